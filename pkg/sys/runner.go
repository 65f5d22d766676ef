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
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/diskforge/diskforge/pkg/log"
)

// Runner executes external commands. Commands are synchronous, no timeout
// is imposed on them beyond the given context.
type Runner interface {
	// Run executes the command and returns its combined output.
	Run(command string, args ...string) ([]byte, error)

	// RunContext executes the command bound to the given context and returns
	// its combined output.
	RunContext(ctx context.Context, command string, args ...string) ([]byte, error)

	// RunContextParseOutput executes the command and streams stdout and
	// stderr line by line to the given handlers.
	RunContextParseOutput(ctx context.Context, stdoutH, stderrH func(string), command string, args ...string) error

	// RunInteractive executes the command with the process standard streams
	// attached, for commands requiring operator interaction.
	RunInteractive(ctx context.Context, command string, args ...string) error
}

type realRunner struct {
	logger log.Logger
}

func NewRunner(logger log.Logger) Runner {
	return &realRunner{logger: logger}
}

func (r realRunner) Run(command string, args ...string) ([]byte, error) {
	return r.RunContext(context.Background(), command, args...)
}

func (r realRunner) RunContext(ctx context.Context, command string, args ...string) ([]byte, error) {
	r.debug(command, args...)
	out, err := exec.CommandContext(ctx, command, args...).CombinedOutput()
	if err != nil {
		r.logger.Debug("'%s' command reported an error: %s", command, err.Error())
	}
	return out, err
}

func (r realRunner) RunContextParseOutput(ctx context.Context, stdoutH, stderrH func(string), command string, args ...string) error {
	r.debug(command, args...)
	cmd := exec.CommandContext(ctx, command, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	err = cmd.Start()
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go parseLines(&wg, stdout, stdoutH)
	go parseLines(&wg, stderr, stderrH)
	wg.Wait()

	err = cmd.Wait()
	if err != nil {
		r.logger.Debug("'%s' command reported an error: %s", command, err.Error())
	}
	return err
}

func (r realRunner) RunInteractive(ctx context.Context, command string, args ...string) error {
	r.debug(command, args...)
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (r realRunner) debug(command string, args ...string) {
	r.logger.Debug("Running cmd: '%s %v'", command, args)
}

func parseLines(wg *sync.WaitGroup, reader io.Reader, handler func(string)) {
	defer wg.Done()
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		if handler != nil {
			handler(scanner.Text())
		}
	}
}
