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

// Package filesystem formats the planned partitions and assembles the
// scratch mount tree the installation runs against.
package filesystem

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/diskforge/diskforge/pkg/cleanstack"
	"github.com/diskforge/diskforge/pkg/partitioner"
	"github.com/diskforge/diskforge/pkg/sys"
	"github.com/diskforge/diskforge/pkg/sys/vfs"
)

const efiSubdir = "boot"

// MountContext is the mounted scratch tree of a build. Root holds the
// root filesystem, Efi is the ESP mounted under Root.
type MountContext struct {
	Root string
	Efi  string
}

type Provisioner struct {
	ctx context.Context
	s   *sys.System
}

func NewProvisioner(ctx context.Context, s *sys.System) *Provisioner {
	return &Provisioner{ctx: ctx, s: s}
}

// FormatVFat formats the given device with a FAT filesystem using the
// tool defaults. The partition is freshly created, so this is safe.
func (p Provisioner) FormatVFat(device string) error {
	p.s.Logger().Info("Formatting %s as vfat", device)
	out, err := p.s.Runner().RunContext(p.ctx, "mkfs.vfat", device)
	if err != nil {
		p.s.Logger().Debug("mkfs.vfat output: %s", string(out))
		return fmt.Errorf("formatting '%s' as vfat: %w", device, err)
	}
	return nil
}

// FormatExt4 formats the given device as ext4, overwriting any residual
// filesystem signature, with the given label.
func (p Provisioner) FormatExt4(device, label string) error {
	p.s.Logger().Info("Formatting %s as ext4", device)
	out, err := p.s.Runner().RunContext(p.ctx, "mkfs.ext4", "-F", "-L", label, device)
	if err != nil {
		p.s.Logger().Debug("mkfs.ext4 output: %s", string(out))
		return fmt.Errorf("formatting '%s' as ext4: %w", device, err)
	}
	return nil
}

// MountDisk creates a scratch mount root and mounts the root partition
// there and the ESP under it. Release actions are registered on the clean
// stack before each acquisition they release, so a failed mount still
// unwinds cleanly: a single recursive unmount covers the ESP submount and
// the root mount in the correct order, and the scratch directory removal
// runs after it.
func (p Provisioner) MountDisk(devices partitioner.Devices, cleanup *cleanstack.CleanStack) (MountContext, error) {
	mountRoot, err := vfs.TempDir(p.s.FS(), "", "diskforge-")
	if err != nil {
		return MountContext{}, fmt.Errorf("creating scratch mount directory: %w", err)
	}
	cleanup.Push(func() error { return p.s.FS().RemoveAll(mountRoot) })

	err = p.s.Mounter().Mount(devices.Root, mountRoot, "ext4", nil)
	if err != nil {
		return MountContext{}, fmt.Errorf("mounting root partition '%s' at '%s': %w", devices.Root, mountRoot, err)
	}
	cleanup.Push(func() error { return p.unmountRecursive(mountRoot) })

	efiMount := filepath.Join(mountRoot, efiSubdir)
	err = vfs.MkdirAll(p.s.FS(), efiMount, vfs.DirPerm)
	if err != nil {
		return MountContext{}, fmt.Errorf("creating ESP mountpoint '%s': %w", efiMount, err)
	}

	err = p.s.Mounter().Mount(devices.EFI, efiMount, "vfat", nil)
	if err != nil {
		return MountContext{}, fmt.Errorf("mounting ESP '%s' at '%s': %w", devices.EFI, efiMount, err)
	}

	return MountContext{Root: mountRoot, Efi: efiMount}, nil
}

// unmountRecursive unmounts the given tree including any submount. The
// mount-utils interface has no recursive unmount, umount(8) has.
func (p Provisioner) unmountRecursive(path string) error {
	p.s.Logger().Info("Unmounting %s recursively", path)
	out, err := p.s.Runner().Run("umount", "--recursive", path)
	if err != nil {
		p.s.Logger().Debug("umount output: %s", string(out))
		return fmt.Errorf("unmounting '%s': %w", path, err)
	}
	return nil
}
