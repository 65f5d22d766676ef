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

package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/diskforge/diskforge/pkg/sys"
)

// Runner is a Runner mock logging all the executed commands. If a
// SideEffect is set its return values are forwarded to the caller,
// otherwise ReturnValue and ReturnError are returned.
type Runner struct {
	cmds        [][]string
	ReturnValue []byte
	ReturnError error
	SideEffect  func(command string, args ...string) ([]byte, error)
}

var _ sys.Runner = (*Runner)(nil)

func NewRunner() *Runner {
	return &Runner{cmds: [][]string{}}
}

func (r *Runner) Run(command string, args ...string) ([]byte, error) {
	r.cmds = append(r.cmds, append([]string{command}, args...))
	if r.SideEffect != nil {
		return r.SideEffect(command, args...)
	}
	return r.ReturnValue, r.ReturnError
}

func (r *Runner) RunContext(_ context.Context, command string, args ...string) ([]byte, error) {
	return r.Run(command, args...)
}

func (r *Runner) RunContextParseOutput(_ context.Context, stdoutH, _ func(string), command string, args ...string) error {
	out, err := r.Run(command, args...)
	if stdoutH != nil {
		for _, line := range strings.Split(strings.TrimSuffix(string(out), "\n"), "\n") {
			stdoutH(line)
		}
	}
	return err
}

func (r *Runner) RunInteractive(_ context.Context, command string, args ...string) error {
	_, err := r.Run(command, args...)
	return err
}

// ClearCmds clears the registered commands
func (r *Runner) ClearCmds() {
	r.cmds = [][]string{}
}

// GetCmds returns the list of commands executed so far
func (r *Runner) GetCmds() [][]string {
	return r.cmds
}

// CmdsMatch matches the commands list in order. Note it uses a prefix match,
// so expecting [{"sgdisk"}] matches any sgdisk call regardless of arguments.
func (r *Runner) CmdsMatch(cmdList [][]string) error {
	if len(cmdList) != len(r.cmds) {
		return fmt.Errorf("expected %d commands, got %d: %v", len(cmdList), len(r.cmds), r.cmds)
	}
	for i, cmd := range cmdList {
		if !prefixMatch(r.cmds[i], cmd) {
			return fmt.Errorf("expected command '%v' at position %d, got '%v'", cmd, i, r.cmds[i])
		}
	}
	return nil
}

// IncludesCmds checks the given commands were executed in any order
func (r *Runner) IncludesCmds(cmdList [][]string) error {
	for _, cmd := range cmdList {
		found := false
		for _, executed := range r.cmds {
			if prefixMatch(executed, cmd) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("command '%v' not found in %v", cmd, r.cmds)
		}
	}
	return nil
}

// MatchMilestones matches the given commands were executed in the given
// order, with any number of unrelated commands in between.
func (r *Runner) MatchMilestones(cmdList [][]string) error {
	executed := r.cmds
	for _, cmd := range cmdList {
		found := false
		for i, e := range executed {
			if prefixMatch(e, cmd) {
				executed = executed[i+1:]
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("milestone command '%v' not found in %v", cmd, r.cmds)
		}
	}
	return nil
}

func prefixMatch(executed, expected []string) bool {
	if len(expected) > len(executed) {
		return false
	}
	for i, f := range expected {
		if executed[i] != f {
			return false
		}
	}
	return true
}
