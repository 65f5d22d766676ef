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

// Syscall is a Syscall mock recording chroot transitions.
type Syscall struct {
	chrootHistory []string
	ErrorOnChroot bool
}

var _ sys.Syscall = (*Syscall)(nil)

func (s *Syscall) Chroot(path string) error {
	if s.ErrorOnChroot {
		return fmt.Errorf("chroot error")
	}
	s.chrootHistory = append(s.chrootHistory, path)
	return nil
}

func (s *Syscall) Chdir(_ string) error {
	return nil
}

// WasChrootCalledWith reports whether a chroot to the given path happened.
func (s *Syscall) WasChrootCalledWith(path string) bool {
	for _, c := range s.chrootHistory {
		if c == path {
			return true
		}
	}
	return false
}
