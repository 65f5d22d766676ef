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

package app

import (
	"github.com/urfave/cli/v2"
)

const appName = "diskforge"

// Name returns the application name.
func Name() string {
	return appName
}

// New assembles the command line application from the given global flags,
// lifecycle hooks and commands.
func New(usage string, flags []cli.Flag, setup cli.BeforeFunc, teardown cli.AfterFunc, cmds ...*cli.Command) *cli.App {
	return &cli.App{
		Name:                 appName,
		Usage:                usage,
		Flags:                flags,
		Before:               setup,
		After:                teardown,
		Commands:             cmds,
		Metadata:             map[string]any{},
		EnableBashCompletion: true,
	}
}
