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
	"io/fs"
	"os"

	gvfs "github.com/twpayne/go-vfs/v4"
)

const (
	// DirPerm is the default permission for new directories
	DirPerm = fs.FileMode(0755)

	// FilePerm is the default permission for new files
	FilePerm = fs.FileMode(0644)

	// ExecPerm is the permission for executable files
	ExecPerm = fs.FileMode(0755)

	// NoWritePerm is the permission for read only files
	NoWritePerm = fs.FileMode(0444)
)

// FS is the filesystem interface used all over the code base. It allows
// swapping the host filesystem with a test scoped one in unit tests.
// github.com/twpayne/go-vfs/v4 types satisfy it.
type FS interface {
	Chmod(name string, mode fs.FileMode) error
	Create(name string) (*os.File, error)
	Glob(pattern string) ([]string, error)
	Link(oldname, newname string) error
	Lstat(name string) (fs.FileInfo, error)
	Mkdir(name string, perm fs.FileMode) error
	Open(name string) (fs.File, error)
	OpenFile(name string, flag int, perm fs.FileMode) (*os.File, error)
	RawPath(name string) (string, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	Readlink(name string) (string, error)
	Remove(name string) error
	RemoveAll(name string) error
	Rename(oldname, newname string) error
	Stat(name string) (fs.FileInfo, error)
	Symlink(oldname, newname string) error
	Truncate(name string, size int64) error
	WriteFile(name string, data []byte, perm fs.FileMode) error
}

// OSFS is the host filesystem
var OSFS FS = gvfs.OSFS
