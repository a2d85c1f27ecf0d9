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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/neurograph/internal/errors"
	"github.com/kraklabs/neurograph/internal/ui"
	"github.com/kraklabs/neurograph/pkg/analyzer"
	"github.com/kraklabs/neurograph/pkg/merkle"
)

// runDiff executes the 'diff' CLI command: re-fingerprint the repository
// against the persisted cache and print the change set. The cache is
// updated in place so consecutive diffs report only new changes.
func runDiff(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	root := fs.String("root", "", "Project root to diff (default: current directory)")
	debug := fs.Bool("debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: neurograph diff [options]

Description:
  Re-parse and re-fingerprint every source file, compare against the
  fingerprint cache from the previous run, and print the added, removed,
  and modified qualified names. Run 'neurograph analyze' first to seed
  the cache.

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

	logLevel := slog.LevelWarn
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

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

	detector := merkle.NewDetector(logger)
	detector.SetLogDir(cacheDir(rootPath))
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
	if !loaded {
		errors.FatalError(errors.NewInputError(
			"No fingerprint cache found",
			fmt.Sprintf("Project %q has not been analyzed yet", cfg.ProjectID),
			"Run 'neurograph analyze' first to seed the cache.",
			nil,
		), globals.JSON)
	}

	files, err := analyzer.DiscoverFiles(rootPath, cfg.Analysis.Ignore)
	if err != nil {
		errors.FatalError(errors.NewInputError(
			"Cannot read project root",
			err.Error(),
			"Check that the project root exists and is readable.",
			err,
		), globals.JSON)
	}

	// Deleted files are still in the cache; include them so their removals
	// surface.
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Path] = true
	}
	for _, path := range detector.CachedFiles() {
		if !seen[path] {
			files = append(files, analyzer.FileInfo{Path: path, FullPath: filepath.Join(rootPath, path)})
		}
	}

	changes := detector.DetectChangesBatch(context.Background(), files)

	if err := cacheMgr.Save(cfg.ProjectID, detector); err != nil {
		ui.Warningf("fingerprint cache not saved: %v", err)
	}

	if globals.JSON {
		payload, _ := json.MarshalIndent(map[string]any{
			"added":    changes.SortedAdded(),
			"removed":  changes.SortedRemoved(),
			"modified": changes.SortedModified(),
		}, "", "  ")
		fmt.Println(string(payload))
		return
	}

	if !changes.HasChanges() {
		ui.Success("no changes since last analysis")
		return
	}

	ui.Header(fmt.Sprintf("%d change(s)", changes.TotalChanges()))
	for _, name := range changes.SortedAdded() {
		ui.Infof("  + %s", name)
	}
	for _, name := range changes.SortedRemoved() {
		ui.Infof("  - %s", name)
	}
	for _, name := range changes.SortedModified() {
		ui.Infof("  ~ %s", name)
	}
}
