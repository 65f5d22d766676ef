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

// Package setup stages caller provided files into the freshly installed
// tree and executes the caller setup script chrooted into it.
package setup

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/diskforge/diskforge/pkg/chroot"
	"github.com/diskforge/diskforge/pkg/rsync"
	"github.com/diskforge/diskforge/pkg/sys"
	"github.com/diskforge/diskforge/pkg/sys/vfs"
)

const (
	// stageDir is where the setup directory tree lands inside the image.
	// The script reads anything it needs beyond packages from there.
	stageDir = "/setup"

	// scriptPath is the transient location of the setup script inside the
	// image, removed before the image is finalized.
	scriptPath = "/setup.sh"

	inspectShell = "/bin/bash"
)

type Option func(*Runner)

type Runner struct {
	ctx     context.Context
	s       *sys.System
	inspect bool
}

// WithInspect drops into an interactive shell inside the image after the
// setup script completes, for manual verification.
func WithInspect(inspect bool) Option {
	return func(r *Runner) {
		r.inspect = inspect
	}
}

func New(ctx context.Context, s *sys.System, opts ...Option) *Runner {
	r := &Runner{ctx: ctx, s: s}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run stages the setup directory and script into the mounted tree and
// executes the script chrooted into it. A non-zero script exit fails the
// whole build. Staged content is removed afterwards in any case, the
// inspection shell runs before the staging directory is dropped.
func (r Runner) Run(root, script, dir, excludeFile string) (err error) {
	if dir != "" {
		err = r.stage(root, dir, excludeFile)
		if err != nil {
			return err
		}
		defer func() {
			rmErr := r.s.FS().RemoveAll(filepath.Join(root, stageDir))
			if rmErr != nil && err == nil {
				err = fmt.Errorf("removing staged setup directory: %w", rmErr)
			}
		}()
	}

	if script != "" {
		err = r.runScript(root, script)
		if err != nil {
			return err
		}
	}

	if r.inspect {
		r.s.Logger().Info("Dropping into inspection shell, exit to continue the build")
		err = chroot.ChrootedCallback(r.s, root, nil, func() error {
			return r.s.Runner().RunInteractive(r.ctx, inspectShell)
		})
		if err != nil {
			return fmt.Errorf("running inspection shell: %w", err)
		}
	}

	return nil
}

func (r Runner) stage(root, dir, excludeFile string) error {
	r.s.Logger().Info("Staging setup directory %s", dir)

	target := filepath.Join(root, stageDir)
	err := vfs.MkdirAll(r.s.FS(), target, vfs.DirPerm)
	if err != nil {
		return fmt.Errorf("creating staging directory '%s': %w", target, err)
	}

	opts := []rsync.Option{rsync.WithContext(r.ctx)}
	if excludeFile != "" {
		opts = append(opts, rsync.WithExcludeFrom(excludeFile))
	}

	err = rsync.NewRsync(r.s, opts...).SyncData(dir, target)
	if err != nil {
		return fmt.Errorf("staging setup directory: %w", err)
	}
	return nil
}

func (r Runner) runScript(root, script string) (err error) {
	r.s.Logger().Info("Running setup script %s", script)

	target := filepath.Join(root, scriptPath)
	err = vfs.CopyFile(r.s.FS(), script, target)
	if err != nil {
		return fmt.Errorf("copying setup script to '%s': %w", target, err)
	}
	// remove the transient script regardless of its outcome
	defer func() {
		rmErr := r.s.FS().Remove(target)
		if rmErr != nil && err == nil {
			err = fmt.Errorf("removing setup script: %w", rmErr)
		}
	}()

	err = r.s.FS().Chmod(target, vfs.ExecPerm)
	if err != nil {
		return fmt.Errorf("marking setup script executable: %w", err)
	}

	callback := func() error {
		return r.s.Runner().RunContextParseOutput(r.ctx, r.logLine, r.logLine, scriptPath)
	}
	err = chroot.ChrootedCallback(r.s, root, nil, callback)
	if err != nil {
		return fmt.Errorf("setup script failed: %w", err)
	}
	return nil
}

func (r Runner) logLine(line string) {
	r.s.Logger().Info("setup: %s", line)
}
