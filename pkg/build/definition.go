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

package build

import (
	"fmt"
	"path/filepath"
)

// Definition is the fully resolved input of one build: sizes in bytes and
// all paths absolute. Built once per invocation, immutable afterwards.
type Definition struct {
	ImageSize    int64
	Packages     []string
	Hostname     string
	SetupScript  string
	SetupDir     string
	SetupExclude string
}

// Sanitize verifies the definition is complete enough to build from.
func (d Definition) Sanitize() error {
	if d.ImageSize <= 0 {
		return fmt.Errorf("image size must be positive, got %d", d.ImageSize)
	}
	if d.Hostname == "" {
		return fmt.Errorf("undefined hostname")
	}
	for _, path := range []string{d.SetupScript, d.SetupDir, d.SetupExclude} {
		if path != "" && !filepath.IsAbs(path) {
			return fmt.Errorf("setup path '%s' is not absolute", path)
		}
	}
	return nil
}
