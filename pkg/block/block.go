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

package block

// Partition describes a partition subdevice as reported by the kernel.
type Partition struct {
	Label       string
	Name        string
	UUID        string
	Size        uint
	FileSystem  string
	MountPoints []string
	Path        string
	Disk        string
}

type PartitionList []*Partition

// Device probes the kernel view of block devices.
type Device interface {
	GetDevicePartitions(device string) (PartitionList, error)
}

// GetByUUID returns the partition with the given partition UUID, nil if
// not found.
func (pl PartitionList) GetByUUID(uuid string) *Partition {
	for _, p := range pl {
		if p.UUID == uuid {
			return p
		}
	}
	return nil
}

// ActiveMounts returns all mount points currently held by any partition
// of the list.
func (pl PartitionList) ActiveMounts() []string {
	var mounts []string
	for _, p := range pl {
		mounts = append(mounts, p.MountPoints...)
	}
	return mounts
}
