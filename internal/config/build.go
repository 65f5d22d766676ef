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

package config

import (
	"fmt"
	"path/filepath"

	"github.com/docker/go-units"
	"go.yaml.in/yaml/v3"

	"github.com/diskforge/diskforge/pkg/build"
	"github.com/diskforge/diskforge/pkg/sys"
	"github.com/diskforge/diskforge/pkg/sys/vfs"
)

const (
	DefaultImageSize = "10GiB"
	DefaultHostname  = "arch-image"
)

// Build is the declarative build configuration schema. All paths are
// relative to the directory holding the configuration file, never to the
// process working directory.
type Build struct {
	ImageSize    string   `yaml:"imageSize,omitempty"`
	Packages     []string `yaml:"packages,omitempty"`
	Hostname     string   `yaml:"hostname,omitempty"`
	SetupScript  string   `yaml:"setupScript,omitempty"`
	SetupDir     string   `yaml:"setupDir,omitempty"`
	SetupExclude string   `yaml:"setupExclude,omitempty"`
}

// Default returns the built-in configuration defaults.
func Default() *Build {
	return &Build{
		ImageSize: DefaultImageSize,
		Hostname:  DefaultHostname,
	}
}

// Parse reads the configuration file at the given path and merges it over
// the defaults, resolving all relative paths against the file's directory.
func Parse(s *sys.System, path string) (build.Definition, error) {
	data, err := s.FS().ReadFile(path)
	if err != nil {
		return build.Definition{}, fmt.Errorf("reading configuration file '%s': %w", path, err)
	}

	cfg := Default()
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return build.Definition{}, fmt.Errorf("unmarshalling configuration file '%s': %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return build.Definition{}, fmt.Errorf("resolving configuration directory: %w", err)
	}

	d, err := cfg.Resolve(dir)
	if err != nil {
		return build.Definition{}, err
	}

	for _, p := range []string{d.SetupScript, d.SetupDir, d.SetupExclude} {
		if p == "" {
			continue
		}
		if ok, _ := vfs.Exists(s.FS(), p); !ok {
			return build.Definition{}, fmt.Errorf("configured setup path '%s' not found", p)
		}
	}

	return d, nil
}

// Resolve turns the schema into a build definition with the image size in
// bytes and all setup paths absolute, resolved against dir.
func (b Build) Resolve(dir string) (build.Definition, error) {
	size, err := units.RAMInBytes(b.ImageSize)
	if err != nil {
		return build.Definition{}, fmt.Errorf("parsing image size '%s': %w", b.ImageSize, err)
	}

	return build.Definition{
		ImageSize:    size,
		Packages:     b.Packages,
		Hostname:     b.Hostname,
		SetupScript:  resolvePath(dir, b.SetupScript),
		SetupDir:     resolvePath(dir, b.SetupDir),
		SetupExclude: resolvePath(dir, b.SetupExclude),
	}, nil
}

// DefaultDefinition returns the build definition of an empty
// configuration.
func DefaultDefinition() build.Definition {
	d, _ := Default().Resolve("/")
	return d
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
