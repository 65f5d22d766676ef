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

package sys

import (
	"github.com/diskforge/diskforge/pkg/log"
	"github.com/diskforge/diskforge/pkg/sys/platform"
	"github.com/diskforge/diskforge/pkg/sys/vfs"
)

// System aggregates the host facilities (filesystem, command execution,
// mounts, syscalls, logging) so they can be swapped with mocks in tests.
type System struct {
	logger   log.Logger
	fs       vfs.FS
	runner   Runner
	mounter  Mounter
	syscall  Syscall
	platform *platform.Platform
}

type SystemOption func(*System)

func WithLogger(logger log.Logger) SystemOption {
	return func(s *System) {
		s.logger = logger
	}
}

func WithFS(fs vfs.FS) SystemOption {
	return func(s *System) {
		s.fs = fs
	}
}

func WithRunner(runner Runner) SystemOption {
	return func(s *System) {
		s.runner = runner
	}
}

func WithMounter(mounter Mounter) SystemOption {
	return func(s *System) {
		s.mounter = mounter
	}
}

func WithSyscall(syscall Syscall) SystemOption {
	return func(s *System) {
		s.syscall = syscall
	}
}

func WithPlatform(p *platform.Platform) SystemOption {
	return func(s *System) {
		s.platform = p
	}
}

// NewSystem returns a System for the current host with any given option
// applied on top of the defaults.
func NewSystem(opts ...SystemOption) (*System, error) {
	s := &System{}
	for _, o := range opts {
		o(s)
	}

	if s.logger == nil {
		s.logger = log.New()
	}
	if s.fs == nil {
		s.fs = vfs.OSFS
	}
	if s.mounter == nil {
		s.mounter = NewMounter()
	}
	if s.syscall == nil {
		s.syscall = &realSyscall{}
	}
	if s.platform == nil {
		s.platform = platform.NewDefault()
	}
	if s.runner == nil {
		s.runner = NewRunner(s.logger)
	}

	return s, nil
}

func (s System) Logger() log.Logger {
	return s.logger
}

func (s System) FS() vfs.FS {
	return s.fs
}

func (s System) Runner() Runner {
	return s.runner
}

func (s System) Mounter() Mounter {
	return s.mounter
}

func (s System) Syscall() Syscall {
	return s.syscall
}

func (s System) Platform() *platform.Platform {
	return s.platform
}
