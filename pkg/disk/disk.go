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

// Package disk resolves the build output target into a single disk device
// all later build stages can address, hiding the distinction between a
// real block device and a loop device backed image file.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/diskforge/diskforge/pkg/block"
	"github.com/diskforge/diskforge/pkg/block/lsblk"
	"github.com/diskforge/diskforge/pkg/cleanstack"
	"github.com/diskforge/diskforge/pkg/sys"
	"github.com/diskforge/diskforge/pkg/sys/vfs"
)

type TargetKind int

const (
	// BlockDevice is an existing block device, its partition table gets
	// destroyed and rewritten in place.
	BlockDevice TargetKind = iota + 1

	// ImageFile is a regular file, created if missing, attached to a loop
	// device for the duration of the build.
	ImageFile
)

// Target is the classified build output destination.
type Target struct {
	Path string
	Kind TargetKind
}

// Disk is the logical disk device all partitioning and formatting steps
// address. Backing is only set for loop devices backed by an image file.
type Disk struct {
	Device  string
	Backing string
}

type Option func(*Resolver)

type Resolver struct {
	ctx    context.Context
	s      *sys.System
	blockd block.Device
}

// WithBlockDevice allows swapping the kernel block device prober, mostly
// for unit tests.
func WithBlockDevice(b block.Device) Option {
	return func(r *Resolver) {
		r.blockd = b
	}
}

func NewResolver(ctx context.Context, s *sys.System, opts ...Option) *Resolver {
	r := &Resolver{ctx: ctx, s: s}
	for _, o := range opts {
		o(r)
	}
	if r.blockd == nil {
		r.blockd = lsblk.NewLsDevice(s)
	}
	return r
}

// ResolveTarget classifies the given path as a block device or an image
// file. A missing path is an image file to be created. Any other path
// type is a fatal error, reported before any resource is acquired.
func ResolveTarget(s *sys.System, path string) (Target, error) {
	info, err := s.FS().Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Target{Path: path, Kind: ImageFile}, nil
	}
	if err != nil {
		return Target{}, fmt.Errorf("inspecting target '%s': %w", path, err)
	}

	mode := info.Mode()
	switch {
	case mode.IsRegular():
		return Target{Path: path, Kind: ImageFile}, nil
	case mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0:
		return Target{Path: path, Kind: BlockDevice}, nil
	default:
		return Target{}, fmt.Errorf("target '%s' is neither a block device nor a regular file", path)
	}
}

// Resolve turns the target into a Disk ready for partitioning. For block
// devices the existing partition table is destroyed, this is irrecoverable.
// For image files a fresh sparse file of the given size is allocated and
// attached to a loop device with partition scanning enabled; the loop
// detach is registered on the clean stack.
func (r Resolver) Resolve(target Target, size int64, cleanup *cleanstack.CleanStack) (Disk, error) {
	switch target.Kind {
	case BlockDevice:
		err := r.wipeDevice(target.Path)
		if err != nil {
			return Disk{}, err
		}
		return Disk{Device: target.Path}, nil
	case ImageFile:
		return r.attachImage(target.Path, size, cleanup)
	default:
		return Disk{}, fmt.Errorf("unresolved target kind for '%s'", target.Path)
	}
}

// wipeDevice destroys the partition table of the given device. It refuses
// to touch a device holding active mountpoints.
func (r Resolver) wipeDevice(device string) error {
	parts, err := r.blockd.GetDevicePartitions(device)
	if err != nil {
		return fmt.Errorf("probing partitions of '%s': %w", device, err)
	}
	if mounts := parts.ActiveMounts(); len(mounts) > 0 {
		return fmt.Errorf("device '%s' has active mountpoints: %v", device, mounts)
	}

	r.s.Logger().Info("Destroying partition table on %s", device)
	_, err = r.s.Runner().RunContext(r.ctx, "sgdisk", "--zap-all", device)
	if err != nil {
		return fmt.Errorf("wiping partition table of '%s': %w", device, err)
	}
	return nil
}

// attachImage allocates the backing file and attaches it to the first
// unused loop device.
func (r Resolver) attachImage(path string, size int64, cleanup *cleanstack.CleanStack) (Disk, error) {
	fsys := r.s.FS()

	if ok, _ := vfs.Exists(fsys, path); ok {
		r.s.Logger().Info("Removing pre-existing image file %s", path)
		err := fsys.Remove(path)
		if err != nil {
			return Disk{}, fmt.Errorf("removing pre-existing image file '%s': %w", path, err)
		}
	}

	f, err := fsys.Create(path)
	if err != nil {
		return Disk{}, fmt.Errorf("creating image file '%s': %w", path, err)
	}
	err = f.Close()
	if err != nil {
		return Disk{}, fmt.Errorf("closing image file '%s': %w", path, err)
	}

	err = fsys.Truncate(path, size)
	if err != nil {
		return Disk{}, fmt.Errorf("allocating %d bytes for '%s': %w", size, path, err)
	}

	// --partscan makes the kernel expose partition subdevices automatically
	out, err := r.s.Runner().RunContext(r.ctx, "losetup", "--find", "--show", "--partscan", path)
	if err != nil {
		return Disk{}, fmt.Errorf("attaching '%s' to a loop device: %w", path, err)
	}
	device := strings.TrimSpace(string(out))
	if device == "" {
		return Disk{}, fmt.Errorf("losetup reported no loop device for '%s'", path)
	}

	cleanup.Push(func() error {
		r.s.Logger().Info("Detaching loop device %s", device)
		_, dErr := r.s.Runner().Run("losetup", "--detach", device)
		return dErr
	})

	r.s.Logger().Info("Attached %s to %s", path, device)
	return Disk{Device: device, Backing: path}, nil
}
