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
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// BuildFlags contains the flags for the build command.
type BuildFlags struct {
	ConfigPath string
	NoCleanup  bool
	Inspect    bool
}

// BuildArgs holds the parsed build command flags.
var BuildArgs BuildFlags

// NoCleanupSet reports whether cleanup is disabled, either by flag or by the
// NO_CLEANUP environment variable. The variable is a switch, any non-empty
// value enables it.
func (f BuildFlags) NoCleanupSet() bool {
	return f.NoCleanup || os.Getenv("NO_CLEANUP") != ""
}

// InspectSet reports whether an interactive shell is requested, either by
// flag or by any non-empty INSPECT environment variable.
func (f BuildFlags) InspectSet() bool {
	return f.Inspect || os.Getenv("INSPECT") != ""
}

// NewBuildCommand creates the build command.
func NewBuildCommand(appName string, action func(*cli.Context) error) *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Build a bootable disk image or provision a block device",
		UsageText: fmt.Sprintf("%s build [OPTIONS] TARGET", appName),
		Action:    action,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "Path to the build configuration file",
				Destination: &BuildArgs.ConfigPath,
			},
			&cli.BoolFlag{
				Name:        "no-cleanup",
				Usage:       "Leave loop devices and mounts in place after the build (also $NO_CLEANUP)",
				Destination: &BuildArgs.NoCleanup,
			},
			&cli.BoolFlag{
				Name:        "inspect",
				Usage:       "Open an interactive shell in the image before unmounting (also $INSPECT)",
				Destination: &BuildArgs.Inspect,
			},
		},
	}
}
