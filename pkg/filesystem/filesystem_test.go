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

package filesystem_test

import (
	"context"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/diskforge/diskforge/pkg/cleanstack"
	"github.com/diskforge/diskforge/pkg/filesystem"
	"github.com/diskforge/diskforge/pkg/log"
	"github.com/diskforge/diskforge/pkg/partitioner"
	"github.com/diskforge/diskforge/pkg/sys"
	sysmock "github.com/diskforge/diskforge/pkg/sys/mock"
	"github.com/diskforge/diskforge/pkg/sys/vfs"
)

func TestFilesystemSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Filesystem test suite")
}

var _ = Describe("Provisioner", Label("filesystem"), func() {
	var runner *sysmock.Runner
	var mounter *sysmock.Mounter
	var fs vfs.FS
	var cleanupFS func()
	var s *sys.System
	var cleanup *cleanstack.CleanStack
	var p *filesystem.Provisioner
	var devices partitioner.Devices
	BeforeEach(func() {
		var err error
		runner = sysmock.NewRunner()
		mounter = sysmock.NewMounter()
		fs, cleanupFS, err = sysmock.TestFS(map[string]any{
			"/tmp/.keep": "",
		})
		Expect(err).ToNot(HaveOccurred())
		s, err = sys.NewSystem(
			sys.WithRunner(runner), sys.WithMounter(mounter),
			sys.WithFS(fs), sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())
		cleanup = cleanstack.NewCleanStack(s.Logger())
		p = filesystem.NewProvisioner(context.Background(), s)
		devices = partitioner.Devices{EFI: "/dev/loop0p1", Root: "/dev/loop0p2"}
	})
	AfterEach(func() {
		cleanupFS()
	})
	Describe("formatting", func() {
		It("formats the ESP as vfat", func() {
			Expect(p.FormatVFat("/dev/loop0p1")).To(Succeed())
			Expect(runner.CmdsMatch([][]string{
				{"mkfs.vfat", "/dev/loop0p1"},
			})).To(Succeed())
		})
		It("formats the root partition as labeled ext4", func() {
			Expect(p.FormatExt4("/dev/loop0p2", "SYSTEM")).To(Succeed())
			Expect(runner.CmdsMatch([][]string{
				{"mkfs.ext4", "-F", "-L", "SYSTEM", "/dev/loop0p2"},
			})).To(Succeed())
		})
		It("fails if mkfs fails", func() {
			runner.ReturnError = fmt.Errorf("mkfs call failed")
			Expect(p.FormatVFat("/dev/loop0p1")).To(
				MatchError(ContainSubstring("mkfs call failed")))
			Expect(p.FormatExt4("/dev/loop0p2", "SYSTEM")).To(
				MatchError(ContainSubstring("mkfs call failed")))
		})
	})
	Describe("MountDisk", func() {
		It("mounts root first and nests the ESP under it", func() {
			mnt, err := p.MountDisk(devices, cleanup)
			Expect(err).NotTo(HaveOccurred())
			Expect(mnt.Root).NotTo(BeEmpty())
			Expect(mnt.Efi).To(Equal(mnt.Root + "/boot"))

			mounts := mounter.List()
			Expect(len(mounts)).To(Equal(2))
			Expect(mounts[0].Source).To(Equal("/dev/loop0p2"))
			Expect(mounts[0].Target).To(Equal(mnt.Root))
			Expect(mounts[0].FsType).To(Equal("ext4"))
			Expect(mounts[1].Source).To(Equal("/dev/loop0p1"))
			Expect(mounts[1].Target).To(Equal(mnt.Efi))
			Expect(mounts[1].FsType).To(Equal("vfat"))
		})
		It("registers the recursive unmount before the scratch dir removal", func() {
			mnt, err := p.MountDisk(devices, cleanup)
			Expect(err).NotTo(HaveOccurred())
			Expect(cleanup.Len()).To(Equal(2))

			Expect(cleanup.Cleanup(nil)).To(Succeed())
			Expect(runner.CmdsMatch([][]string{
				{"umount", "--recursive", mnt.Root},
			})).To(Succeed())
			ok, _ := vfs.Exists(fs, mnt.Root)
			Expect(ok).To(BeFalse())
		})
		It("keeps the scratch dir removal registered if mounting fails", func() {
			mounter.ErrorOnMount = true
			_, err := p.MountDisk(devices, cleanup)
			Expect(err).To(MatchError(ContainSubstring("mounting root partition")))
			Expect(cleanup.Len()).To(Equal(1))
			Expect(cleanup.Cleanup(err)).To(MatchError(err))
		})
	})
})
