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

	"github.com/urfave/cli/v2"
)

// version is injected at build time through the linker.
var version = "dev"

// NewVersionCommand creates the version command.
func NewVersionCommand(appName string) *cli.Command {
	return &cli.Command{
		Name:      "version",
		Usage:     "Print the version and exit",
		UsageText: fmt.Sprintf("%s version", appName),
		Action: func(ctx *cli.Context) error {
			fmt.Fprintln(ctx.App.Writer, version)
			return nil
		},
	}
}
