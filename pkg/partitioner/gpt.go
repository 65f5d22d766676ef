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

// Package partitioner creates the GPT layout of an appliance disk: an EFI
// system partition and a root partition covering the remaining space.
// Partition UUIDs are generated up front, before the partitions physically
// exist, so later configuration (fstab) can reference them without
// re-reading the partition table.
package partitioner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/diskforge/diskforge/pkg/disk"
	"github.com/diskforge/diskforge/pkg/sys"
)

type MiB uint

const (
	EfiSize  MiB = 100
	EfiLabel     = "EFI"

	SystemLabel = "SYSTEM"

	// SGDisk type codes
	TypeEfi   = "ef00"
	TypeLinux = "8300"

	// AllAvailableSize grows the partition to the remaining disk space
	AllAvailableSize MiB = 0
)

// Partition is a planned GPT entry.
type Partition struct {
	Index int
	Size  MiB
	Type  string
	Label string
	UUID  string
}

// Plan is the full two-partition layout of an appliance disk.
type Plan struct {
	EFI  Partition
	Root Partition
}

// NewPlan returns a Plan with freshly generated partition UUIDs.
func NewPlan() Plan {
	return Plan{
		EFI: Partition{
			Index: 1,
			Size:  EfiSize,
			Type:  TypeEfi,
			Label: EfiLabel,
			UUID:  uuid.NewString(),
		},
		Root: Partition{
			Index: 2,
			Size:  AllAvailableSize,
			Type:  TypeLinux,
			Label: SystemLabel,
			UUID:  uuid.NewString(),
		},
	}
}

type Gdisk struct {
	ctx context.Context
	s   *sys.System
}

func NewGdisk(ctx context.Context, s *sys.System) *Gdisk {
	return &Gdisk{ctx: ctx, s: s}
}

// Apply creates all planned partitions in a single sgdisk transaction, so
// the disk never holds a partial layout, then asks the kernel to re-read
// the partition table.
func (g Gdisk) Apply(d disk.Disk, p Plan) error {
	g.s.Logger().Info("Creating GPT layout on %s", d.Device)

	args := []string{}
	for _, part := range []Partition{p.EFI, p.Root} {
		args = append(args, partitionArgs(part)...)
	}
	args = append(args, d.Device)

	_, err := g.s.Runner().RunContext(g.ctx, "sgdisk", args...)
	if err != nil {
		return fmt.Errorf("creating partitions on '%s': %w", d.Device, err)
	}

	out, err := g.s.Runner().RunContext(g.ctx, "partprobe", d.Device)
	if err != nil {
		g.s.Logger().Debug("partprobe output: %s", string(out))
		return fmt.Errorf("re-reading partition table of '%s': %w", d.Device, err)
	}

	return nil
}

func partitionArgs(p Partition) []string {
	size := ""
	if p.Size > 0 {
		size = fmt.Sprintf("+%dM", p.Size)
	}
	return []string{
		"--new", fmt.Sprintf("%d:0:%s", p.Index, size),
		"--typecode", fmt.Sprintf("%d:%s", p.Index, p.Type),
		"--partition-guid", fmt.Sprintf("%d:%s", p.Index, p.UUID),
		"--change-name", fmt.Sprintf("%d:%s", p.Index, p.Label),
	}
}
