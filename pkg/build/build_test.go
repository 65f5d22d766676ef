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

package build_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/diskforge/diskforge/pkg/build"
	"github.com/diskforge/diskforge/pkg/log"
	"github.com/diskforge/diskforge/pkg/sys"
	sysmock "github.com/diskforge/diskforge/pkg/sys/mock"
	"github.com/diskforge/diskforge/pkg/sys/vfs"
)

func TestBuildSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Build test suite")
}

var _ = Describe("Builder", Label("build"), func() {
	var runner *sysmock.Runner
	var mounter *sysmock.Mounter
	var syscall *sysmock.Syscall
	var fs vfs.FS
	var cleanupFS func()
	var s *sys.System
	var b *build.Builder
	var d build.Definition
	var mountRoot string
	var planUUIDs []string
	var sideEffects map[string]func(...string) ([]byte, error)
	BeforeEach(func() {
		var err error
		runner = sysmock.NewRunner()
		mounter = sysmock.NewMounter()
		syscall = &sysmock.Syscall{}
		sideEffects = map[string]func(...string) ([]byte, error){}
		mountRoot = ""
		planUUIDs = nil
		fs, cleanupFS, err = sysmock.TestFS(map[string]any{
			"/tmp/.keep": "",
			"/dev/.keep": "",
		})
		Expect(err).ToNot(HaveOccurred())
		s, err = sys.NewSystem(
			sys.WithRunner(runner), sys.WithMounter(mounter),
			sys.WithSyscall(syscall), sys.WithFS(fs),
			sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())
		b = build.New(context.Background(), s)
		d = build.Definition{
			ImageSize: 1 << 30,
			Hostname:  "arch-image",
			Packages:  []string{"vim"},
		}

		runner.SideEffect = func(cmd string, args ...string) ([]byte, error) {
			if f := sideEffects[cmd]; f != nil {
				return f(args...)
			}
			return runner.ReturnValue, runner.ReturnError
		}
		sideEffects["losetup"] = func(args ...string) ([]byte, error) {
			// partition subdevices show up once the kernel scanned the table
			Expect(fs.WriteFile("/dev/loop0p1", []byte{}, vfs.FilePerm)).To(Succeed())
			Expect(fs.WriteFile("/dev/loop0p2", []byte{}, vfs.FilePerm)).To(Succeed())
			return []byte("/dev/loop0\n"), nil
		}
		sideEffects["sgdisk"] = func(args ...string) ([]byte, error) {
			for i, arg := range args {
				if arg == "--partition-guid" {
					planUUIDs = append(planUUIDs, args[i+1][2:])
				}
			}
			return []byte{}, nil
		}
		sideEffects["lsblk"] = func(args ...string) ([]byte, error) {
			// the kernel reports the freshly written table
			parts := make([]string, len(planUUIDs))
			for i, uuid := range planUUIDs {
				parts[i] = fmt.Sprintf(
					`{"partuuid": "%s", "path": "/dev/loop0p%d", "pkname": "/dev/loop0", "type": "part"}`,
					uuid, i+1,
				)
			}
			return []byte(fmt.Sprintf(`{"blockdevices": [%s]}`, strings.Join(parts, ", "))), nil
		}
		sideEffects["pacstrap"] = func(args ...string) ([]byte, error) {
			// the base system provides the configuration tree
			mountRoot = args[2]
			Expect(vfs.MkdirAll(fs, mountRoot+"/etc/default", vfs.DirPerm)).To(Succeed())
			return []byte{}, nil
		}
	})
	AfterEach(func() {
		cleanupFS()
	})
	It("builds an image file end to end and releases all resources", func() {
		Expect(b.Build(d, "/image.img")).To(Succeed())
		Expect(runner.MatchMilestones([][]string{
			{"losetup", "--find", "--show", "--partscan", "/image.img"},
			{"sgdisk"},
			{"partprobe", "/dev/loop0"},
			{"lsblk", "-p", "-b", "-n", "-J"},
			{"mkfs.vfat", "/dev/loop0p1"},
			{"mkfs.ext4", "-F", "-L", "SYSTEM", "/dev/loop0p2"},
			{"pacstrap", "-c", "-K"},
			{"grub-install"},
			{"grub-mkconfig"},
			{"umount", "--recursive"},
			{"losetup", "--detach", "/dev/loop0"},
		})).To(Succeed())
	})
	It("installs the configured packages on top of the base set", func() {
		Expect(b.Build(d, "/image.img")).To(Succeed())
		Expect(runner.IncludesCmds([][]string{
			{"pacstrap", "-c", "-K", mountRoot, "base", "linux", "linux-firmware", "grub", "efibootmgr", "vim"},
		})).To(Succeed())
	})
	It("leaves resources in place when cleanup is suppressed", func() {
		b = build.New(context.Background(), s, build.WithNoCleanup(true))
		Expect(b.Build(d, "/image.img")).To(Succeed())
		Expect(runner.IncludesCmds([][]string{{"umount"}})).NotTo(Succeed())
		Expect(runner.IncludesCmds([][]string{{"losetup", "--detach"}})).NotTo(Succeed())

		data, err := fs.ReadFile(mountRoot + "/etc/fstab")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(MatchRegexp(`^PARTUUID=\S+ / ext4 rw,relatime,data=ordered 0 0\n$`))
		data, err = fs.ReadFile(mountRoot + "/etc/hostname")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("arch-image\n"))
	})
	It("keys fstab by the same UUID handed to the partitioner", func() {
		b = build.New(context.Background(), s, build.WithNoCleanup(true))
		Expect(b.Build(d, "/image.img")).To(Succeed())

		var rootUUID string
		for _, cmd := range runner.GetCmds() {
			if cmd[0] != "sgdisk" {
				continue
			}
			for i, arg := range cmd {
				if arg == "--partition-guid" && cmd[i+1][:2] == "2:" {
					rootUUID = cmd[i+1][2:]
				}
			}
		}
		Expect(rootUUID).NotTo(BeEmpty())

		data, err := fs.ReadFile(mountRoot + "/etc/fstab")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(HavePrefix(fmt.Sprintf("PARTUUID=%s ", rootUUID)))
	})
	It("fails when the kernel does not report a planned partition", func() {
		sideEffects["lsblk"] = func(args ...string) ([]byte, error) {
			return []byte(`{"blockdevices": []}`), nil
		}
		Expect(b.Build(d, "/image.img")).To(
			MatchError(ContainSubstring("after partitioning")))
		Expect(runner.IncludesCmds([][]string{{"mkfs.vfat"}})).NotTo(Succeed())
		Expect(runner.MatchMilestones([][]string{
			{"partprobe"},
			{"losetup", "--detach", "/dev/loop0"},
		})).To(Succeed())
	})
	It("fails the build on a failing setup script, still detaching the loop device", func() {
		Expect(fs.WriteFile("/script.sh", []byte("#!/bin/bash\nfalse\n"), vfs.FilePerm)).To(Succeed())
		d.SetupScript = "/script.sh"
		sideEffects["/setup.sh"] = func(args ...string) ([]byte, error) {
			return nil, fmt.Errorf("exit status 1")
		}
		Expect(b.Build(d, "/image.img")).To(
			MatchError(ContainSubstring("setup script failed")))
		Expect(runner.MatchMilestones([][]string{
			{"/setup.sh"},
			{"umount", "--recursive"},
			{"losetup", "--detach", "/dev/loop0"},
		})).To(Succeed())
	})
	It("runs the setup step after boot configuration", func() {
		Expect(fs.WriteFile("/script.sh", []byte("#!/bin/bash\n"), vfs.FilePerm)).To(Succeed())
		d.SetupScript = "/script.sh"
		Expect(b.Build(d, "/image.img")).To(Succeed())
		Expect(runner.MatchMilestones([][]string{
			{"grub-mkconfig"},
			{"/setup.sh"},
			{"umount", "--recursive"},
		})).To(Succeed())
	})
	It("unwinds acquired resources when a step fails", func() {
		sideEffects["pacstrap"] = func(args ...string) ([]byte, error) {
			return nil, fmt.Errorf("pacstrap call failed")
		}
		Expect(b.Build(d, "/image.img")).To(
			MatchError(ContainSubstring("pacstrap call failed")))
		Expect(runner.MatchMilestones([][]string{
			{"pacstrap"},
			{"umount", "--recursive"},
			{"losetup", "--detach", "/dev/loop0"},
		})).To(Succeed())
	})
	It("fails when no partition subdevice materializes", func() {
		sideEffects["losetup"] = func(args ...string) ([]byte, error) {
			return []byte("/dev/loop0\n"), nil
		}
		Expect(b.Build(d, "/image.img")).To(
			MatchError(ContainSubstring("no partition subdevices")))
		Expect(runner.MatchMilestones([][]string{
			{"losetup", "--detach", "/dev/loop0"},
		})).To(Succeed())
	})
	It("rejects an invalid definition before acquiring anything", func() {
		d.ImageSize = 0
		Expect(b.Build(d, "/image.img")).To(
			MatchError(ContainSubstring("image size must be positive")))
		Expect(runner.GetCmds()).To(BeEmpty())
	})
	It("rejects relative setup paths", func() {
		d.SetupScript = "script.sh"
		Expect(b.Build(d, "/image.img")).To(
			MatchError(ContainSubstring("is not absolute")))
	})
})
