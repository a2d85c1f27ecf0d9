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
	"encoding/json"
	"fmt"
	"os"

	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/neurograph/internal/errors"
	"github.com/kraklabs/neurograph/internal/ui"
	"github.com/kraklabs/neurograph/pkg/merkle"
)

// runStatus executes the 'status' CLI command: fingerprint cache statistics.
func runStatus(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	root := fs.String("root", "", "Project root (default: current directory)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: neurograph status [options]

Description:
  Show the state of the project's fingerprint cache: how many files and
  nodes are tracked for incremental diffing.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	rootPath := *root
	if rootPath == "" {
		rootPath, err = os.Getwd()
		if err != nil {
			errors.FatalError(errors.NewInternalError(
				"Cannot access current directory",
				"Failed to determine working directory",
				"Check that the working directory still exists and is readable.",
				err,
			), globals.JSON)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	detector := merkle.NewDetector(logger)
	cacheMgr := merkle.NewCacheManager(cacheDir(rootPath))
	loaded, err := cacheMgr.Load(cfg.ProjectID, detector)
	if err != nil {
		errors.FatalError(errors.NewStorageError(
			"Cannot load fingerprint cache",
			err.Error(),
			"Delete the cache under .neurograph/ and run 'neurograph analyze' again.",
			err,
		), globals.JSON)
	}

	stats := detector.Stats()

	if globals.JSON {
		payload, _ := json.MarshalIndent(map[string]any{
			"project_id":     cfg.ProjectID,
			"analyzed":       loaded,
			"cached_files":   stats.CachedFiles,
			"cached_modules": stats.CachedModules,
			"total_hashes":   stats.TotalHashes,
		}, "", "  ")
		fmt.Println(string(payload))
		return
	}

	ui.Header("NeuroGraph status")
	ui.Label("project", cfg.ProjectID)
	if !loaded {
		ui.Info("  not analyzed yet " + ui.DimText("(run 'neurograph analyze')"))
		return
	}
	ui.Label("cached files", ui.CountText(stats.CachedFiles))
	ui.Label("cached modules", ui.CountText(stats.CachedModules))
	ui.Label("fingerprints", ui.CountText(stats.TotalHashes))
}
