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

// Package build orchestrates the image build pipeline: target resolution,
// partitioning, formatting, base system installation, boot configuration
// and the caller setup step. Every resource acquired along the way (loop
// device, scratch directory, mounted tree) registers its release on a
// clean stack that unwinds in reverse order on any exit path.
package build

import (
	"context"
	"fmt"

	"github.com/diskforge/diskforge/pkg/block/lsblk"
	"github.com/diskforge/diskforge/pkg/bootloader"
	"github.com/diskforge/diskforge/pkg/cleanstack"
	"github.com/diskforge/diskforge/pkg/disk"
	"github.com/diskforge/diskforge/pkg/filesystem"
	"github.com/diskforge/diskforge/pkg/osinstall"
	"github.com/diskforge/diskforge/pkg/partitioner"
	"github.com/diskforge/diskforge/pkg/setup"
	"github.com/diskforge/diskforge/pkg/sys"
)

type Option func(*Builder)

type Builder struct {
	ctx       context.Context
	s         *sys.System
	noCleanup bool
	inspect   bool
}

// WithNoCleanup leaves all acquired resources (loop device, mounts,
// scratch directory) in place after the build, for post-mortem debugging
// of a failed build.
func WithNoCleanup(noCleanup bool) Option {
	return func(b *Builder) {
		b.noCleanup = noCleanup
	}
}

// WithInspect drops into an interactive shell inside the image after the
// setup step.
func WithInspect(inspect bool) Option {
	return func(b *Builder) {
		b.inspect = inspect
	}
}

func New(ctx context.Context, s *sys.System, opts ...Option) *Builder {
	b := &Builder{ctx: ctx, s: s}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build runs the whole pipeline against the given target path. The
// pipeline is strictly sequential and fail-fast: the first failing step
// aborts the build and the clean stack unwinds whatever was acquired so
// far.
func (b Builder) Build(d Definition, target string) (err error) {
	err = d.Sanitize()
	if err != nil {
		return fmt.Errorf("invalid build definition: %w", err)
	}

	cleanup := cleanstack.NewCleanStack(b.s.Logger())
	defer func() {
		if b.noCleanup {
			cleanup.Discard()
			return
		}
		err = cleanup.Cleanup(err)
	}()

	t, err := disk.ResolveTarget(b.s, target)
	if err != nil {
		return err
	}

	logicalDisk, err := disk.NewResolver(b.ctx, b.s).Resolve(t, d.ImageSize, cleanup)
	if err != nil {
		return err
	}

	plan := partitioner.NewPlan()
	err = partitioner.NewGdisk(b.ctx, b.s).Apply(logicalDisk, plan)
	if err != nil {
		return err
	}

	err = b.verifyPlan(logicalDisk, plan)
	if err != nil {
		return err
	}

	scheme, err := partitioner.ResolveScheme(b.s, logicalDisk)
	if err != nil {
		return err
	}
	devices := partitioner.PartitionDevices(logicalDisk, scheme, plan)

	provisioner := filesystem.NewProvisioner(b.ctx, b.s)
	err = provisioner.FormatVFat(devices.EFI)
	if err != nil {
		return err
	}
	err = provisioner.FormatExt4(devices.Root, plan.Root.Label)
	if err != nil {
		return err
	}

	mnt, err := provisioner.MountDisk(devices, cleanup)
	if err != nil {
		return err
	}

	err = osinstall.New(b.ctx, b.s).Install(mnt.Root, d.Packages)
	if err != nil {
		return err
	}

	grub := bootloader.NewGrub(b.ctx, b.s)
	err = grub.WriteFstab(mnt.Root, plan.Root.UUID)
	if err != nil {
		return err
	}
	err = grub.ConfigureSystem(mnt.Root, d.Hostname)
	if err != nil {
		return err
	}
	err = grub.Install(mnt.Root, mnt.Efi)
	if err != nil {
		return err
	}

	runner := setup.New(b.ctx, b.s, setup.WithInspect(b.inspect))
	err = runner.Run(mnt.Root, d.SetupScript, d.SetupDir, d.SetupExclude)
	if err != nil {
		return err
	}

	b.s.Logger().Info("Build of %s complete", target)
	return nil
}

// verifyPlan checks the kernel picked up the rewritten partition table:
// every planned partition UUID must be reported back for the disk.
func (b Builder) verifyPlan(d disk.Disk, plan partitioner.Plan) error {
	parts, err := lsblk.NewLsDevice(b.s).GetDevicePartitions(d.Device)
	if err != nil {
		return fmt.Errorf("probing partitions of '%s': %w", d.Device, err)
	}
	for _, p := range []partitioner.Partition{plan.EFI, plan.Root} {
		if parts.GetByUUID(p.UUID) == nil {
			return fmt.Errorf("partition '%s' (%s) missing on '%s' after partitioning", p.Label, p.UUID, d.Device)
		}
	}
	return nil
}
