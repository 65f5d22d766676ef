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

// Package cleanstack provides an ordered stack of release actions for
// resources acquired along a build pipeline (loop devices, mount points,
// mounted trees). The stack unwinds in strict reverse order of
// registration and a failing action never prevents the remaining ones
// from running.
package cleanstack

import (
	"github.com/diskforge/diskforge/pkg/log"
)

type Task func() error

type job struct {
	task      Task
	errorOnly bool
}

// CleanStack accumulates release actions. It is meant to be unwound once,
// typically from a deferred call wrapping a whole pipeline:
//
//	cleanup := cleanstack.NewCleanStack(s.Logger())
//	defer func() { err = cleanup.Cleanup(err) }()
type CleanStack struct {
	jobs   []*job
	logger log.Logger
	done   bool
}

func NewCleanStack(logger log.Logger) *CleanStack {
	return &CleanStack{logger: logger}
}

// Push appends a release action to the stack.
func (c *CleanStack) Push(task Task) {
	c.jobs = append(c.jobs, &job{task: task})
}

// PushErrorOnly appends a release action that only runs when the stack
// unwinds due to an error.
func (c *CleanStack) PushErrorOnly(task Task) {
	c.jobs = append(c.jobs, &job{task: task, errorOnly: true})
}

// Len returns the number of pending release actions.
func (c *CleanStack) Len() int {
	return len(c.jobs)
}

// Cleanup unwinds the stack executing every registered action in reverse
// order of registration. Action failures are logged and swallowed, they
// never interrupt the unwind and never escalate. The given pipeline error
// is returned unchanged. Unwinding happens at most once, any further call
// is a no-op.
func (c *CleanStack) Cleanup(err error) error {
	if c.done {
		return err
	}
	c.done = true

	for i := len(c.jobs) - 1; i >= 0; i-- {
		j := c.jobs[i]
		if j.errorOnly && err == nil {
			continue
		}
		if cErr := j.task(); cErr != nil {
			c.logger.Warn("cleanup action failed: %s", cErr.Error())
		}
	}
	c.jobs = nil
	return err
}

// Discard drops all pending release actions without running them, leaving
// the acquired resources in place for post-mortem inspection.
func (c *CleanStack) Discard() {
	if c.done {
		return
	}
	c.done = true
	if len(c.jobs) > 0 {
		c.logger.Warn("cleanup suppressed, leaving %d acquired resources in place", len(c.jobs))
	}
	c.jobs = nil
}
