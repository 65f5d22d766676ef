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

package platform

import (
	"fmt"
	"runtime"
)

const (
	ArchAmd64   = "amd64"
	ArchX86_64  = "x86_64"
	ArchArm64   = "arm64"
	ArchAarch64 = "aarch64"
	ArchRiscv64 = "riscv64"
)

type Platform struct {
	OS   string
	Arch string
}

func New(os, arch string) (*Platform, error) {
	switch arch {
	case ArchAmd64, ArchX86_64:
		arch = ArchX86_64
	case ArchArm64, ArchAarch64:
		arch = ArchAarch64
	case ArchRiscv64:
	default:
		return nil, fmt.Errorf("invalid arch: %s", arch)
	}

	return &Platform{OS: os, Arch: arch}, nil
}

func NewDefault() *Platform {
	p, _ := New(runtime.GOOS, runtime.GOARCH)
	return p
}

func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}
