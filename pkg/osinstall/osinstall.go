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

// Package osinstall populates the mounted root with the base operating
// system by driving the distribution installer.
package osinstall

import (
	"context"
	"fmt"
	"slices"

	"github.com/diskforge/diskforge/pkg/sys"
)

// BasePackages is the fixed package set any bootable image needs: kernel,
// firmware and the bootloader tooling.
var BasePackages = []string{"base", "linux", "linux-firmware", "grub", "efibootmgr"}

type Pacstrap struct {
	ctx context.Context
	s   *sys.System
}

func New(ctx context.Context, s *sys.System) *Pacstrap {
	return &Pacstrap{ctx: ctx, s: s}
}

// Install runs the base system installation against the mounted root with
// the base package set plus the given extra packages. The host package
// cache is shared to avoid redundant downloads.
func (p Pacstrap) Install(root string, extra []string) error {
	packages := packageUnion(BasePackages, extra)
	p.s.Logger().Info("Installing base system to %s: %v", root, packages)

	args := append([]string{"-c", "-K", root}, packages...)
	err := p.s.Runner().RunContextParseOutput(p.ctx, p.logLine, p.logLine, "pacstrap", args...)
	if err != nil {
		return fmt.Errorf("installing base system to '%s': %w", root, err)
	}
	return nil
}

func (p Pacstrap) logLine(line string) {
	p.s.Logger().Debug("pacstrap: %s", line)
}

// packageUnion returns the ordered union of both lists, first occurrence
// wins.
func packageUnion(base, extra []string) []string {
	packages := slices.Clone(base)
	for _, pkg := range extra {
		if !slices.Contains(packages, pkg) {
			packages = append(packages, pkg)
		}
	}
	return packages
}
