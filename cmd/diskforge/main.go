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

package main

import (
	"log"
	"os"

	"github.com/diskforge/diskforge/internal/cli/action"
	"github.com/diskforge/diskforge/internal/cli/app"
	"github.com/diskforge/diskforge/internal/cli/cmd"
)

func main() {
	appName := app.Name()
	application := app.New(
		cmd.Usage,
		cmd.GlobalFlags(),
		cmd.Setup,
		cmd.Teardown,
		cmd.NewBuildCommand(appName, action.Build),
		cmd.NewVersionCommand(appName))

	if err := application.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
