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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/neurograph/internal/errors"
	"github.com/kraklabs/neurograph/internal/ui"
	"github.com/kraklabs/neurograph/pkg/analyzer"
	"github.com/kraklabs/neurograph/pkg/emitter"
	"github.com/kraklabs/neurograph/pkg/merkle"
	"github.com/kraklabs/neurograph/pkg/storage"
)

// runAnalyze executes the 'analyze' CLI command: a full multi-pass analysis
// of the repository, fingerprint cache update, and emission to the backend.
//
// Flags:
//   - --root: Project root to analyze (default: current directory)
//   - --workers: Number of parallel extraction workers
//   - --debug: Enable debug logging
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
func runAnalyze(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	root := fs.String("root", "", "Project root to analyze (default: current directory)")
	workers := fs.Int("workers", 0, "Number of parallel extraction workers (default: from config)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: neurograph analyze [options]

Description:
  Analyze the repository: discover packages and modules, extract the
  syntax tree of every source file, resolve cross-file references into
  typed relationship edges, and fingerprint every node. The fingerprint
  cache under .neurograph/ enables incremental diffs on later runs.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Analyze the current repository
  neurograph analyze

  # Analyze with more extraction workers and metrics
  neurograph analyze --workers 8 --metrics-addr :9090

`)
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
	slog.SetDefault(logger)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

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

	analyzerCfg := analyzer.Config{
		RootPath:          rootPath,
		IgnorePatterns:    cfg.Analysis.Ignore,
		Workers:           cfg.Analysis.Workers,
		IncludeDocstrings: cfg.Analysis.IncludeDocstrings,
	}
	if *workers > 0 {
		analyzerCfg.Workers = *workers
	}

	hasher := merkle.NewHasher(cfg.Analysis.IncludeDocstrings)
	a := analyzer.New(analyzerCfg, hasher, logger)

	var bar *progressbar.ProgressBar
	if !globals.Quiet && !globals.JSON {
		a.SetProgressCallback(func(current, total int64, phase string) {
			if bar == nil || bar.GetMax64() != total {
				bar = progressbar.NewOptions64(total,
					progressbar.OptionSetDescription(phase),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set64(current)
		})
	}

	result, stats, err := a.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			errors.FatalError(errors.NewInputError(
				"Analysis cancelled",
				"The run was interrupted before completion; no output was produced",
				"Re-run 'neurograph analyze' to produce a complete result.",
				err,
			), globals.JSON)
		}
		errors.FatalError(errors.NewInternalError(
			"Analysis failed",
			err.Error(),
			"Check that the project root is readable and retry.",
			err,
		), globals.JSON)
	}

	// Update the fingerprint cache for future diffs.
	detector := merkle.NewDetector(logger)
	detector.InitializeFromModules(result.Modules)
	cacheMgr := merkle.NewCacheManager(cacheDir(rootPath))
	if err := cacheMgr.Save(cfg.ProjectID, detector); err != nil {
		ui.Warningf("fingerprint cache not saved: %v", err)
	}

	// Emit to the in-process store.
	em := emitter.New(logger)
	ops := em.Emit(result)
	backend := storage.NewMemoryBackend()
	defer func() { _ = backend.Close() }()
	if err := em.Apply(ctx, backend, ops); err != nil {
		errors.FatalError(errors.NewStorageError(
			"Failed to write graph",
			err.Error(),
			"Retry the analysis; if the failure persists, report it.",
			err,
		), globals.JSON)
	}

	if globals.JSON {
		payload, _ := json.MarshalIndent(map[string]any{
			"project_id":    cfg.ProjectID,
			"packages":      stats.Packages,
			"modules":       stats.Modules,
			"relationships": stats.Relationships,
			"fingerprints":  stats.Fingerprints,
			"parse_errors":  stats.ParseErrors,
			"duration_ms":   stats.TotalDuration.Milliseconds(),
			"errors":        result.Errors,
		}, "", "  ")
		fmt.Println(string(payload))
		return
	}

	ui.Header("Analysis complete")
	ui.Label("project", cfg.ProjectID)
	ui.Label("packages", ui.CountText(stats.Packages))
	ui.Label("modules", ui.CountText(stats.Modules))
	ui.Label("relationships", ui.CountText(stats.Relationships))
	ui.Label("fingerprints", ui.CountText(stats.Fingerprints))
	ui.Label("graph nodes", ui.CountText(backend.NodeCount()))
	ui.Label("graph edges", ui.CountText(backend.EdgeCount()))
	ui.Label("duration", stats.TotalDuration.Round(time.Millisecond).String())
	if stats.ParseErrors > 0 {
		ui.Warningf("%d file(s) failed to parse", stats.ParseErrors)
		for _, msg := range result.Errors {
			ui.Info("  " + ui.DimText(msg))
		}
	}
	ui.Successf("fingerprint cache updated for %s", cfg.ProjectID)
}
