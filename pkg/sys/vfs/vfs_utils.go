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

package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
)

// MkdirAll creates the named directory and any missing parents with the
// given permission bits.
func MkdirAll(fsys FS, path string, perm fs.FileMode) error {
	path = filepath.Clean(path)
	if path == "/" || path == "." {
		return nil
	}

	if info, err := fsys.Stat(path); err == nil {
		if info.IsDir() {
			return nil
		}
		return &fs.PathError{Op: "mkdir", Path: path, Err: syscall.ENOTDIR}
	}

	err := MkdirAll(fsys, filepath.Dir(path), perm)
	if err != nil {
		return err
	}

	err = fsys.Mkdir(path, perm)
	if err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}
	return nil
}

// TempDir creates a uniquely named, empty directory inside dir, or inside
// the default temporary directory if dir is empty, and returns its path
// relative to the given filesystem.
func TempDir(fsys FS, dir, prefix string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	rawPath, err := fsys.RawPath(dir)
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp(rawPath, prefix)
	if err != nil {
		return "", err
	}

	if rawPath != dir {
		tmpDir = filepath.Join(dir, filepath.Base(tmpDir))
	}
	return tmpDir, nil
}

// Exists reports whether the given path exists in the filesystem. Returns
// an error for failures other than fs.ErrNotExist.
func Exists(fsys FS, path string) (bool, error) {
	_, err := fsys.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// IsDir reports whether the given path is an existing directory.
func IsDir(fsys FS, path string) (bool, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// CopyFile copies source file to target file using the given filesystem. If
// target is a directory the source file is copied there keeping its base name.
func CopyFile(fsys FS, source string, target string) (err error) {
	if dir, _ := IsDir(fsys, target); dir {
		target = filepath.Join(target, filepath.Base(source))
	}

	sourceFile, err := fsys.Open(source)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sourceFile.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	targetFile, err := fsys.Create(target)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := targetFile.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(targetFile, sourceFile)
	return err
}

// LoadEnvFile reads a file in shell environment format (KEY=value lines)
// and returns the parsed variables.
func LoadEnvFile(fsys FS, path string) (map[string]string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}

	envMap, err := godotenv.UnmarshalBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing environment file '%s': %w", path, err)
	}

	return envMap, nil
}
