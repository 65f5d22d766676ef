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

// Package bootloader makes the installed tree bootable: fstab, base
// system identity files and the GRUB EFI setup.
package bootloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/diskforge/diskforge/pkg/chroot"
	"github.com/diskforge/diskforge/pkg/sys"
	"github.com/diskforge/diskforge/pkg/sys/platform"
	"github.com/diskforge/diskforge/pkg/sys/vfs"
)

const (
	fstabPath       = "/etc/fstab"
	hostnamePath    = "/etc/hostname"
	localtimePath   = "/etc/localtime"
	zoneinfoUTC     = "/usr/share/zoneinfo/UTC"
	grubDefaultPath = "/etc/default/grub"
	grubCfgPath     = "/boot/grub/grub.cfg"

	cmdlineVar = "GRUB_CMDLINE_LINUX_DEFAULT"

	// appended boot parameters: short menu timeout, quiet kernel log,
	// auditing off
	grubTimeout     = "1"
	extraKernelArgs = "quiet loglevel=3 audit=0"
)

type Grub struct {
	ctx context.Context
	s   *sys.System
}

func NewGrub(ctx context.Context, s *sys.System) *Grub {
	return &Grub{ctx: ctx, s: s}
}

// WriteFstab writes the fstab of the installed tree with a single entry
// for the root partition, keyed by its partition UUID rather than its
// transient device path. The runtime root is overlaid at boot by the
// overlay-root mechanism, this entry describes the underlying partition.
func (g Grub) WriteFstab(root, rootPartUUID string) error {
	line := fmt.Sprintf("PARTUUID=%s / ext4 rw,relatime,data=ordered 0 0\n", rootPartUUID)
	path := filepath.Join(root, fstabPath)

	err := g.s.FS().WriteFile(path, []byte(line), vfs.FilePerm)
	if err != nil {
		return fmt.Errorf("writing fstab '%s': %w", path, err)
	}
	return nil
}

// ConfigureSystem sets the timezone symlink and the hostname file of the
// installed tree.
func (g Grub) ConfigureSystem(root, hostname string) error {
	localtime := filepath.Join(root, localtimePath)
	if ok, _ := vfs.Exists(g.s.FS(), localtime); ok {
		err := g.s.FS().Remove(localtime)
		if err != nil {
			return fmt.Errorf("removing pre-existing localtime link: %w", err)
		}
	}
	err := g.s.FS().Symlink(zoneinfoUTC, localtime)
	if err != nil {
		return fmt.Errorf("setting timezone link '%s': %w", localtime, err)
	}

	hostnameFile := filepath.Join(root, hostnamePath)
	err = g.s.FS().WriteFile(hostnameFile, []byte(hostname+"\n"), vfs.FilePerm)
	if err != nil {
		return fmt.Errorf("writing hostname file '%s': %w", hostnameFile, err)
	}
	return nil
}

// Install installs GRUB into the ESP mounted at espMount, below root, for
// a removable EFI target, so the image boots on machines without a
// matching NVRAM boot entry, appends the boot parameters to the GRUB
// defaults file and regenerates the menu configuration. All commands run
// chrooted into the installed tree so paths match the eventual booted
// filesystem.
func (g Grub) Install(root, espMount string) error {
	g.s.Logger().Info("Installing GRUB bootloader for removable EFI target")

	efiDir := strings.TrimPrefix(espMount, root)
	if efiDir == espMount || !strings.HasPrefix(efiDir, "/") {
		return fmt.Errorf("ESP mount point '%s' is not below root '%s'", espMount, root)
	}

	target := grubTarget(g.s.Platform())
	err := g.chrootedRun(root, "grub-install", fmt.Sprintf("--target=%s", target),
		fmt.Sprintf("--efi-directory=%s", efiDir), "--removable")
	if err != nil {
		return fmt.Errorf("installing grub: %w", err)
	}

	err = g.appendDefaults(root)
	if err != nil {
		return fmt.Errorf("updating grub defaults: %w", err)
	}

	err = g.chrootedRun(root, "grub-mkconfig", "-o", grubCfgPath)
	if err != nil {
		return fmt.Errorf("generating grub configuration: %w", err)
	}
	return nil
}

// appendDefaults appends the timeout and kernel command line settings to
// the GRUB defaults file, extending any command line the file already
// carries rather than replacing it.
func (g Grub) appendDefaults(root string) error {
	path := filepath.Join(root, grubDefaultPath)

	cmdline := extraKernelArgs
	if vars, err := vfs.LoadEnvFile(g.s.FS(), path); err == nil {
		if current := strings.TrimSpace(vars[cmdlineVar]); current != "" {
			cmdline = current + " " + extraKernelArgs
		}
	}

	f, err := g.s.FS().OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, vfs.FilePerm)
	if err != nil {
		return fmt.Errorf("opening '%s': %w", path, err)
	}

	_, err = fmt.Fprintf(f, "\nGRUB_TIMEOUT=%s\n%s=\"%s\"\n", grubTimeout, cmdlineVar, cmdline)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("appending to '%s': %w", path, err)
	}
	return f.Close()
}

func (g Grub) chrootedRun(root string, command string, args ...string) error {
	callback := func() error {
		out, err := g.s.Runner().RunContext(g.ctx, command, args...)
		if err != nil {
			g.s.Logger().Debug("%s output: %s", command, string(out))
		}
		return err
	}
	return chroot.ChrootedCallback(g.s, root, nil, callback)
}

// grubTarget returns the grub platform target for the build host
// architecture.
func grubTarget(p *platform.Platform) string {
	switch p.Arch {
	case platform.ArchAarch64, platform.ArchArm64:
		return "arm64-efi"
	case platform.ArchRiscv64:
		return "riscv64-efi"
	default:
		return "x86_64-efi"
	}
}
