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

package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/diskforge/diskforge/pkg/log"
	"github.com/diskforge/diskforge/pkg/sys"
)

// Usage is the top level application usage string.
const Usage = "Build bootable Arch Linux disk images"

// GlobalFlags returns the flags shared by all commands.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "Enable debug output",
			EnvVars: []string{"DISKFORGE_DEBUG"},
		},
	}
}

// Setup initializes the system abstraction and stores it in the application
// metadata for the command actions to pick up.
func Setup(ctx *cli.Context) error {
	logger := log.New()
	if ctx.Bool("debug") {
		logger.SetDebug(true)
	}

	s, err := sys.NewSystem(sys.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx.App.Metadata["system"] = s
	return nil
}

// Teardown runs after any command action returns.
func Teardown(_ *cli.Context) error {
	return nil
}
