/*
Copyright © 2025-2026 SUSE LLC
SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is a printf-style leveled logger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SetOutput(w io.Writer)
	SetDebug(debug bool)
	IsDebug() bool
}

type logger struct {
	l *logrus.Logger
}

type Opt func(*logger)

// WithDiscardAll discards any log output, mostly used in unit tests.
func WithDiscardAll() Opt {
	return func(log *logger) {
		log.l.SetOutput(io.Discard)
	}
}

// WithDebug sets the log level to debug.
func WithDebug() Opt {
	return func(log *logger) {
		log.l.SetLevel(logrus.DebugLevel)
	}
}

// WithWriter sets the given writer as the log output.
func WithWriter(w io.Writer) Opt {
	return func(log *logger) {
		log.l.SetOutput(w)
	}
}

// New returns a Logger writing to stdout at info level unless
// configured otherwise by the given options.
func New(opts ...Opt) Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})

	log := &logger{l: l}
	for _, o := range opts {
		o(log)
	}
	return log
}

func (log logger) Debug(format string, args ...any) {
	log.l.Debugf(format, args...)
}

func (log logger) Info(format string, args ...any) {
	log.l.Infof(format, args...)
}

func (log logger) Warn(format string, args ...any) {
	log.l.Warnf(format, args...)
}

func (log logger) Error(format string, args ...any) {
	log.l.Errorf(format, args...)
}

func (log logger) SetOutput(w io.Writer) {
	log.l.SetOutput(w)
}

func (log logger) SetDebug(debug bool) {
	if debug {
		log.l.SetLevel(logrus.DebugLevel)
	} else {
		log.l.SetLevel(logrus.InfoLevel)
	}
}

func (log logger) IsDebug() bool {
	return log.l.IsLevelEnabled(logrus.DebugLevel)
}
