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

package sys

import (
	"golang.org/x/sys/unix"
)

// Syscall wraps the few raw system calls needed to enter and leave a
// chrooted execution context.
type Syscall interface {
	Chroot(path string) error
	Chdir(path string) error
}

type realSyscall struct{}

func (r realSyscall) Chroot(path string) error {
	return unix.Chroot(path)
}

func (r realSyscall) Chdir(path string) error {
	return unix.Chdir(path)
}
