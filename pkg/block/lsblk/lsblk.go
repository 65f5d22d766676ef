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

package lsblk

import (
	"encoding/json"
	"errors"

	"github.com/diskforge/diskforge/pkg/block"
	"github.com/diskforge/diskforge/pkg/sys"
)

const lsblkColumns = "LABEL,PARTLABEL,PARTUUID,SIZE,FSTYPE,MOUNTPOINTS,PATH,PKNAME,TYPE"

type lsDevice struct {
	runner sys.Runner
}

func NewLsDevice(s *sys.System) *lsDevice { //nolint:revive
	return &lsDevice{runner: s.Runner()}
}

var _ block.Device = (*lsDevice)(nil)

type jPart struct {
	Label       string   `json:"label,omitempty"`
	Name        string   `json:"partlabel,omitempty"`
	UUID        string   `json:"partuuid,omitempty"`
	Size        uint64   `json:"size,omitempty"`
	FS          string   `json:"fstype,omitempty"`
	MountPoints []string `json:"mountpoints,omitempty"`
	Path        string   `json:"path,omitempty"`
	Disk        string   `json:"pkname,omitempty"`
	Type        string   `json:"type,omitempty"`
}

type jParts []*block.Partition

func (p jPart) Partition() *block.Partition {
	// Converts B to MiB
	return &block.Partition{
		Label:       p.Label,
		Size:        uint(p.Size / (1024 * 1024)),
		FileSystem:  p.FS,
		UUID:        p.UUID,
		MountPoints: filterEmpty(p.MountPoints),
		Path:        p.Path,
		Disk:        p.Disk,
		Name:        p.Name,
	}
}

// lsblk reports a null mountpoint entry for unmounted partitions
func filterEmpty(mounts []string) []string {
	var filtered []string
	for _, m := range mounts {
		if m != "" {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

func (p *jParts) UnmarshalJSON(data []byte) error {
	var parts []jPart

	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}

	var partitions jParts
	for _, part := range parts {
		// filter only partition subdevices
		if part.Type == "part" {
			partitions = append(partitions, part.Partition())
		}
	}
	*p = partitions
	return nil
}

func unmarshalLsblk(lsblkOut []byte) (block.PartitionList, error) {
	var objmap map[string]*json.RawMessage
	err := json.Unmarshal(lsblkOut, &objmap)
	if err != nil {
		return nil, err
	}

	if _, ok := objmap["blockdevices"]; !ok {
		return nil, errors.New("invalid json object, no 'blockdevices' key found")
	}

	var parts jParts
	err = json.Unmarshal(*objmap["blockdevices"], &parts)
	if err != nil {
		return nil, err
	}

	return block.PartitionList(parts), nil
}

// GetDevicePartitions gets a slice of the partitions found in the given
// device. If the device is a disk it lists all its partitions, if it is
// already a partition it lists that single partition.
func (l lsDevice) GetDevicePartitions(device string) (block.PartitionList, error) {
	out, err := l.runner.Run("lsblk", "-p", "-b", "-n", "-J", "--output", lsblkColumns, device)
	if err != nil {
		return nil, err
	}

	return unmarshalLsblk(out)
}
