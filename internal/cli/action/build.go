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

package action

import (
	"fmt"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/urfave/cli/v2"

	"github.com/diskforge/diskforge/internal/cli/cmd"
	"github.com/diskforge/diskforge/internal/config"
	"github.com/diskforge/diskforge/pkg/build"
	"github.com/diskforge/diskforge/pkg/sys"
)

// Build parses the configuration and runs the image build pipeline for the
// target path given as argument.
func Build(ctx *cli.Context) error {
	var s *sys.System
	args := &cmd.BuildArgs
	if ctx.App.Metadata == nil || ctx.App.Metadata["system"] == nil {
		return fmt.Errorf("error setting up initial configuration")
	}
	s = ctx.App.Metadata["system"].(*sys.System)

	if ctx.NArg() != 1 {
		return cli.Exit("a single target image path or block device is required", 1)
	}
	target := ctx.Args().First()

	d := config.DefaultDefinition()
	if args.ConfigPath != "" {
		var err error
		d, err = config.Parse(s, args.ConfigPath)
		if err != nil {
			return fmt.Errorf("loading build configuration: %w", err)
		}
	}

	buildCtx, stop := signal.NotifyContext(ctx.Context, unix.SIGINT, unix.SIGTERM)
	defer stop()

	builder := build.New(
		buildCtx, s,
		build.WithNoCleanup(args.NoCleanupSet()),
		build.WithInspect(args.InspectSet()),
	)

	return builder.Build(d, target)
}
