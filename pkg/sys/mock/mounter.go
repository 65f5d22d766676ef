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

package mock

import (
	"fmt"

	"github.com/diskforge/diskforge/pkg/sys"
)

type MountPoint struct {
	Source  string
	Target  string
	FsType  string
	Options []string
}

// Mounter is a Mounter mock tracking mounts in memory.
type Mounter struct {
	mounts       []MountPoint
	ErrorOnMount bool
	ErrorUnmount bool
}

var _ sys.Mounter = (*Mounter)(nil)

func NewMounter() *Mounter {
	return &Mounter{mounts: []MountPoint{}}
}

func (m *Mounter) Mount(source string, target string, fstype string, options []string) error {
	if m.ErrorOnMount {
		return fmt.Errorf("mount error")
	}
	m.mounts = append(m.mounts, MountPoint{
		Source: source, Target: target, FsType: fstype, Options: options,
	})
	return nil
}

func (m *Mounter) Unmount(target string) error {
	if m.ErrorUnmount {
		return fmt.Errorf("unmount error")
	}
	for i, mnt := range m.mounts {
		if mnt.Target == target {
			m.mounts = append(m.mounts[:i], m.mounts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("not mounted: %s", target)
}

func (m *Mounter) IsMountPoint(path string) (bool, error) {
	for _, mnt := range m.mounts {
		if mnt.Target == path {
			return true, nil
		}
	}
	return false, nil
}

// List returns the currently tracked mount points in mount order.
func (m *Mounter) List() []MountPoint {
	return m.mounts
}
