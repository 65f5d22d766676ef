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

package chroot_test

import (
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/diskforge/diskforge/pkg/chroot"
	"github.com/diskforge/diskforge/pkg/log"
	"github.com/diskforge/diskforge/pkg/sys"
	sysmock "github.com/diskforge/diskforge/pkg/sys/mock"
	"github.com/diskforge/diskforge/pkg/sys/vfs"
)

func TestChrootSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chroot test suite")
}

var _ = Describe("Chroot", Label("chroot"), func() {
	var mounter *sysmock.Mounter
	var syscall *sysmock.Syscall
	var fs vfs.FS
	var cleanup func()
	var s *sys.System
	BeforeEach(func() {
		var err error
		mounter = sysmock.NewMounter()
		syscall = &sysmock.Syscall{}
		fs, cleanup, err = sysmock.TestFS(map[string]any{
			"/target/etc/os-release": "",
			"/data/file":             "content",
		})
		Expect(err).ToNot(HaveOccurred())
		s, err = sys.NewSystem(
			sys.WithMounter(mounter), sys.WithSyscall(syscall),
			sys.WithFS(fs), sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())
	})
	AfterEach(func() {
		cleanup()
	})
	It("runs the callback chrooted with the default binds in place", func() {
		var mountsDuringCallback int
		err := chroot.ChrootedCallback(s, "/target", nil, func() error {
			mountsDuringCallback = len(mounter.List())
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(mountsDuringCallback).To(Equal(4))
		Expect(syscall.WasChrootCalledWith("/target")).To(BeTrue())
		Expect(mounter.List()).To(BeEmpty())
	})
	It("binds extra mounts on top of the defaults", func() {
		err := chroot.ChrootedCallback(s, "/target", map[string]string{"/data": "/mnt/data"}, func() error {
			found := false
			for _, mnt := range mounter.List() {
				if mnt.Source == "/data" && mnt.Target == "/target/mnt/data" {
					found = true
				}
			}
			Expect(found).To(BeTrue())
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(mounter.List()).To(BeEmpty())
	})
	It("propagates the callback error after unmounting", func() {
		err := chroot.ChrootedCallback(s, "/target", nil, func() error {
			return fmt.Errorf("callback failed")
		})
		Expect(err).To(MatchError(ContainSubstring("callback failed")))
		Expect(mounter.List()).To(BeEmpty())
	})
	It("fails if the chroot transition fails", func() {
		syscall.ErrorOnChroot = true
		called := false
		err := chroot.ChrootedCallback(s, "/target", nil, func() error {
			called = true
			return nil
		})
		Expect(err).To(MatchError(ContainSubstring("chroot")))
		Expect(called).To(BeFalse())
		Expect(mounter.List()).To(BeEmpty())
	})
	It("fails preparing binds if mounting fails", func() {
		mounter.ErrorOnMount = true
		err := chroot.ChrootedCallback(s, "/target", nil, func() error { return nil })
		Expect(err).To(MatchError(ContainSubstring("mount")))
	})
	It("reports unmount failures on close", func() {
		c := chroot.NewChroot(s, "/target")
		Expect(c.Prepare()).To(Succeed())
		mounter.ErrorUnmount = true
		Expect(c.Close()).To(MatchError(ContainSubstring("could not unmount")))
	})
})
