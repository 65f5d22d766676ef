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

package rsync_test

import (
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/diskforge/diskforge/pkg/log"
	"github.com/diskforge/diskforge/pkg/rsync"
	"github.com/diskforge/diskforge/pkg/sys"
	sysmock "github.com/diskforge/diskforge/pkg/sys/mock"
)

func TestRsyncSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rsync test suite")
}

var _ = Describe("Rsync", Label("rsync"), func() {
	var runner *sysmock.Runner
	var s *sys.System
	BeforeEach(func() {
		var err error
		runner = sysmock.NewRunner()
		s, err = sys.NewSystem(
			sys.WithRunner(runner), sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())
	})
	It("syncs with the default flags and trailing slashes", func() {
		r := rsync.NewRsync(s)
		Expect(r.SyncData("/source", "/target")).To(Succeed())
		Expect(runner.CmdsMatch([][]string{{
			"rsync", "--archive", "--hard-links", "--xattrs", "--acls",
			"/source/", "/target/",
		}})).To(Succeed())
	})
	It("keeps already terminated paths untouched", func() {
		r := rsync.NewRsync(s, rsync.WithFlags("--archive"))
		Expect(r.SyncData("/source/", "/target/")).To(Succeed())
		Expect(runner.CmdsMatch([][]string{{
			"rsync", "--archive", "/source/", "/target/",
		}})).To(Succeed())
	})
	It("passes exclude patterns and the exclude file", func() {
		r := rsync.NewRsync(s, rsync.WithFlags("--archive"), rsync.WithExcludeFrom("/excludes.txt"))
		Expect(r.SyncData("/source", "/target", ".git")).To(Succeed())
		Expect(runner.CmdsMatch([][]string{{
			"rsync", "--archive", "--exclude-from", "/excludes.txt",
			"--exclude", ".git", "/source/", "/target/",
		}})).To(Succeed())
	})
	It("fails if rsync reports an error", func() {
		runner.ReturnError = fmt.Errorf("rsync call failed")
		r := rsync.NewRsync(s)
		Expect(r.SyncData("/source", "/target")).To(
			MatchError(ContainSubstring("rsync call failed")))
	})
})
