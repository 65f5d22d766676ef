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

package partitioner

import (
	"errors"
	"fmt"

	"github.com/diskforge/diskforge/pkg/disk"
	"github.com/diskforge/diskforge/pkg/sys"
	"github.com/diskforge/diskforge/pkg/sys/vfs"
)

// ErrNoPartitionDevices means the kernel has not materialized any
// partition subdevice for the disk under either naming convention.
var ErrNoPartitionDevices = errors.New("no partition subdevices found for disk")

// NamingScheme is the convention the kernel uses to name partition
// subdevices of a disk. Physically partitioned devices get `<base>N`
// (sda1), loop and other numbered devices get `<base>pN` (loop0p1).
type NamingScheme int

const (
	DirectIndex NamingScheme = iota + 1
	PartSeparator
)

func (n NamingScheme) String() string {
	switch n {
	case DirectIndex:
		return "direct"
	case PartSeparator:
		return "p-separator"
	default:
		return "unknown"
	}
}

// PartitionDevice returns the device path of the given partition index
// under this naming scheme.
func (n NamingScheme) PartitionDevice(base string, index int) string {
	if n == PartSeparator {
		return fmt.Sprintf("%sp%d", base, index)
	}
	return fmt.Sprintf("%s%d", base, index)
}

// Devices holds the resolved partition device paths of a planned disk.
type Devices struct {
	EFI  string
	Root string
}

// ResolveScheme probes the kernel block device topology for the first
// partition of the given disk, trying both naming conventions. The scheme
// is resolved once and threaded through later steps as data.
func ResolveScheme(s *sys.System, d disk.Disk) (NamingScheme, error) {
	for _, scheme := range []NamingScheme{DirectIndex, PartSeparator} {
		candidate := scheme.PartitionDevice(d.Device, 1)
		if ok, _ := vfs.Exists(s.FS(), candidate); ok {
			s.Logger().Debug("Resolved partition naming scheme '%s' for %s", scheme, d.Device)
			return scheme, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoPartitionDevices, d.Device)
}

// PartitionDevices maps the plan onto concrete partition device paths.
func PartitionDevices(d disk.Disk, scheme NamingScheme, p Plan) Devices {
	return Devices{
		EFI:  scheme.PartitionDevice(d.Device, p.EFI.Index),
		Root: scheme.PartitionDevice(d.Device, p.Root.Index),
	}
}
