// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/neurograph/internal/errors"
	"github.com/kraklabs/neurograph/internal/ui"
)

// runInit executes the 'init' CLI command, writing a default
// .neurograph/project.yaml in the current directory.
func runInit(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	projectID := fs.String("project-id", "", "Project identifier (default: directory name)")
	force := fs.BoolP("force", "f", false, "Overwrite an existing configuration")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: neurograph init [options]

Description:
  Create .neurograph/project.yaml with default analysis settings.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Cannot access current directory",
			"Failed to determine working directory",
			"Check that the working directory still exists and is readable.",
			err,
		), globals.JSON)
	}

	id := *projectID
	if id == "" {
		id = filepath.Base(cwd)
	}

	existing := filepath.Join(cwd, defaultConfigDir, defaultConfigFile)
	if _, err := os.Stat(existing); err == nil && !*force {
		errors.FatalError(errors.NewInputError(
			"Configuration already exists",
			existing,
			"Pass --force to overwrite the existing configuration.",
			nil,
		), globals.JSON)
	}

	path, err := SaveConfig(DefaultProjectConfig(id), cwd)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot write configuration",
			err.Error(),
			"Check directory permissions and retry.",
			err,
		), globals.JSON)
	}

	ui.Successf("created %s", path)
	ui.Info("Run 'neurograph analyze' to build the code graph.")
}
