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

package rsync

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/diskforge/diskforge/pkg/sys"
)

type Option func(*Rsync)

type Rsync struct {
	ctx   context.Context
	s     *sys.System
	flags []string
}

// DefaultFlags returns the flags used for local data synchronization unless
// configured otherwise.
func DefaultFlags() []string {
	return []string{
		"--archive", "--hard-links", "--xattrs", "--acls",
	}
}

func WithFlags(flags ...string) Option {
	return func(r *Rsync) {
		r.flags = flags
	}
}

func WithContext(ctx context.Context) Option {
	return func(r *Rsync) {
		r.ctx = ctx
	}
}

// WithExcludeFrom appends an exclude-pattern file to the rsync invocation,
// with the standard rsync exclude list matching semantics.
func WithExcludeFrom(file string) Option {
	return func(r *Rsync) {
		r.flags = append(r.flags, "--exclude-from", file)
	}
}

func NewRsync(s *sys.System, opts ...Option) *Rsync {
	r := &Rsync{
		ctx:   context.Background(),
		s:     s,
		flags: DefaultFlags(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SyncData copies the source directory tree contents into the target
// directory. Excludes are passed verbatim to rsync as exclude patterns.
func (r Rsync) SyncData(source string, target string, excludes ...string) error {
	if !strings.HasSuffix(source, "/") {
		source = source + "/"
	}
	if !strings.HasSuffix(target, "/") {
		target = target + "/"
	}

	args := slices.Clone(r.flags)
	for _, e := range excludes {
		args = append(args, "--exclude", e)
	}
	args = append(args, source, target)

	out, err := r.s.Runner().RunContext(r.ctx, "rsync", args...)
	if err != nil {
		r.s.Logger().Debug("rsync output: %s", string(out))
		return fmt.Errorf("rsync from '%s' to '%s': %w", source, target, err)
	}
	return nil
}
