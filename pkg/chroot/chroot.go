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

package chroot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/diskforge/diskforge/pkg/sys"
	"github.com/diskforge/diskforge/pkg/sys/vfs"
)

// Chroot represents a chroot context to run commands inside a target
// directory tree with the usual kernel filesystems bound into it.
type Chroot struct {
	path          string
	defaultMounts []string
	extraMounts   map[string]string
	activeMounts  []string
	s             *sys.System
}

// NewChroot creates a Chroot struct for the given root tree
func NewChroot(s *sys.System, path string) *Chroot {
	return &Chroot{
		path:          path,
		defaultMounts: []string{"/dev", "/dev/pts", "/proc", "/sys"},
		extraMounts:   map[string]string{},
		activeMounts:  []string{},
		s:             s,
	}
}

// ChrootedCallback runs the given callback in a chroot environment of the
// given root tree, with the given extra bind mounts applied on top of the
// default kernel filesystem binds.
func ChrootedCallback(s *sys.System, path string, bindMounts map[string]string, callback func() error) error {
	chroot := NewChroot(s, path)
	chroot.SetExtraMounts(bindMounts)
	return chroot.RunCallback(callback)
}

// SetExtraMounts sets additional bind mounts for the chroot environment.
// They are unmounted by Close.
func (c *Chroot) SetExtraMounts(mounts map[string]string) {
	if mounts != nil {
		c.extraMounts = mounts
	}
}

// Prepare creates the mountpoints and mounts the default and extra binds
// into the chroot tree.
func (c *Chroot) Prepare() (err error) {
	if len(c.activeMounts) > 0 {
		return fmt.Errorf("there are already active mountpoints for this instance")
	}

	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	for _, mnt := range c.defaultMounts {
		mountPoint := filepath.Join(c.path, mnt)
		err = vfs.MkdirAll(c.s.FS(), mountPoint, vfs.DirPerm)
		if err != nil {
			return err
		}
		err = c.s.Mounter().Mount(mnt, mountPoint, "bind", []string{"bind"})
		if err != nil {
			return err
		}
		c.activeMounts = append(c.activeMounts, mountPoint)
	}

	// deterministic bind order
	sources := make([]string, 0, len(c.extraMounts))
	for source := range c.extraMounts {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	for _, source := range sources {
		target := filepath.Join(c.path, c.extraMounts[source])
		if ok, _ := vfs.IsDir(c.s.FS(), source); ok {
			err = vfs.MkdirAll(c.s.FS(), target, vfs.DirPerm)
			if err != nil {
				return err
			}
		} else {
			err = vfs.MkdirAll(c.s.FS(), filepath.Dir(target), vfs.DirPerm)
			if err != nil {
				return err
			}
			if ok, _ := vfs.Exists(c.s.FS(), target); !ok {
				err = c.s.FS().WriteFile(target, []byte{}, vfs.FilePerm)
				if err != nil {
					return err
				}
			}
		}
		err = c.s.Mounter().Mount(source, target, "bind", []string{"bind"})
		if err != nil {
			return err
		}
		c.activeMounts = append(c.activeMounts, target)
	}

	return nil
}

// Close unmounts all active mounts created by Prepare, in reverse order.
func (c *Chroot) Close() error {
	var failures []string

	// unmount in reverse order
	for i := len(c.activeMounts) - 1; i >= 0; i-- {
		mnt := c.activeMounts[i]
		err := c.s.Mounter().Unmount(mnt)
		if err != nil {
			c.s.Logger().Error("failed unmounting '%s': %s", mnt, err.Error())
			failures = append(failures, mnt)
		}
	}
	c.activeMounts = []string{}
	if len(failures) > 0 {
		return fmt.Errorf("failed closing chroot environment, could not unmount: %v", failures)
	}
	return nil
}

// RunCallback runs the given callback in a chroot environment of the
// instance root tree. Mounts are prepared and released around the call.
func (c *Chroot) RunCallback(callback func() error) (err error) {
	// store current root directory to exit the chroot later on
	oldRoot, err := os.Open("/")
	if err != nil {
		return fmt.Errorf("can't open current root: %w", err)
	}
	defer oldRoot.Close()

	err = c.Prepare()
	if err != nil {
		return fmt.Errorf("can't mount chroot binds: %w", err)
	}
	defer func() {
		if cErr := c.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	err = c.s.Syscall().Chroot(c.path)
	if err != nil {
		return fmt.Errorf("can't chroot into '%s': %w", c.path, err)
	}

	// allways exit the chroot even if the callback fails
	defer func() {
		tmpErr := oldRoot.Chdir()
		if tmpErr == nil {
			tmpErr = c.s.Syscall().Chroot(".")
		}
		if tmpErr != nil && err == nil {
			err = fmt.Errorf("can't exit chroot: %w", tmpErr)
		}
	}()

	err = c.s.Syscall().Chdir("/")
	if err != nil {
		return fmt.Errorf("can't change to chroot root directory: %w", err)
	}

	return callback()
}
