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

package analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"
)

// ProgressCallback is called to report progress during analysis.
// Parameters:
//   - current: current item number (1-based)
//   - total: total number of items
//   - phase: current phase name ("extracting", "hashing")
type ProgressCallback func(current, total int64, phase string)

// Config controls an analysis run.
type Config struct {
	// RootPath is the project root directory.
	RootPath string

	// IgnorePatterns are path substrings excluded from discovery.
	// Nil means DefaultIgnorePatterns().
	IgnorePatterns []string

	// Workers is the extraction worker count for pass 2. Values <= 0
	// default to 4.
	Workers int

	// IncludeDocstrings controls whether docstrings participate in
	// fingerprints.
	IncludeDocstrings bool
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig(rootPath string) Config {
	return Config{
		RootPath:          rootPath,
		IgnorePatterns:    DefaultIgnorePatterns(),
		Workers:           4,
		IncludeDocstrings: true,
	}
}

// Stats summarizes one analysis run.
type Stats struct {
	FilesDiscovered int
	FilesParsed     int
	ParseErrors     int
	Packages        int
	Modules         int
	Relationships   int
	Fingerprints    int
	ExtractDuration time.Duration
	LinkDuration    time.Duration
	HashDuration    time.Duration
	TotalDuration   time.Duration
}

// Fingerprinter computes the Merkle fingerprint map of one module tree.
// The merkle package provides the production implementation.
type Fingerprinter interface {
	HashTree(module *Module) map[string]string
}

// Analyzer runs the full multi-pass analysis of one project tree and yields
// a pure value: packages, modules, relationships, and fingerprints. It does
// no I/O beyond reading each source file once; persisting the result is the
// emitter's concern.
type Analyzer struct {
	config      Config
	logger      *slog.Logger
	extractor   *Extractor
	fingerprint Fingerprinter
	onProgress  ProgressCallback
}

// New creates an analyzer. fp computes per-node fingerprints; a nil fp
// yields an empty fingerprint map.
func New(config Config, fp Fingerprinter, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.IgnorePatterns == nil {
		config.IgnorePatterns = DefaultIgnorePatterns()
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	return &Analyzer{
		config:      config,
		logger:      logger,
		extractor:   NewExtractor(logger),
		fingerprint: fp,
	}
}

// SetProgressCallback sets an optional callback for progress reporting.
func (a *Analyzer) SetProgressCallback(cb ProgressCallback) {
	a.onProgress = cb
}

func (a *Analyzer) reportProgress(current, total int64, phase string) {
	if a.onProgress != nil {
		a.onProgress(current, total, phase)
	}
}

// Run executes the analysis passes. For a fixed file set the output is
// bit-identical across runs regardless of worker count: extraction results
// are merged in sorted file order, not completion order. A cancelled run
// returns ctx.Err() and no partial output.
func (a *Analyzer) Run(ctx context.Context) (*Result, *Stats, error) {
	startTime := time.Now()

	files, err := DiscoverFiles(a.config.RootPath, a.config.IgnorePatterns)
	if err != nil {
		return nil, nil, fmt.Errorf("discover files: %w", err)
	}
	a.logger.Info("analyze.discover.complete", "files", len(files), "root", a.config.RootPath)

	resolver := NewResolver(filepath.Base(a.config.RootPath), a.logger)
	resolver.Pass0Packages(files)
	resolver.Pass1Modules(files)

	extractStart := time.Now()
	parseErrors, err := a.pass2Extract(ctx, files, resolver)
	if err != nil {
		return nil, nil, err
	}
	extractDuration := time.Since(extractStart)
	filesParsed.Add(float64(len(files) - parseErrors))
	parseErrorsTotal.Add(float64(parseErrors))
	a.logger.Info("analyze.pass2.complete",
		"modules", len(resolver.Modules()),
		"parse_errors", parseErrors,
		"duration_ms", extractDuration.Milliseconds(),
	)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	linkStart := time.Now()
	relationships := resolver.Pass3Link()
	linkDuration := time.Since(linkStart)
	relationshipsEmitted.Add(float64(len(relationships)))

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	modules := resolver.Modules()

	hashStart := time.Now()
	fingerprints := a.fingerprintModules(modules)
	hashDuration := time.Since(hashStart)

	result := &Result{
		Packages:      resolver.Packages(),
		Modules:       modules,
		Relationships: relationships,
		Fingerprints:  fingerprints,
		Errors:        resolver.Errors(),
	}

	stats := &Stats{
		FilesDiscovered: len(files),
		FilesParsed:     len(files) - parseErrors,
		ParseErrors:     parseErrors,
		Packages:        len(result.Packages),
		Modules:         len(result.Modules),
		Relationships:   len(result.Relationships),
		Fingerprints:    len(result.Fingerprints),
		ExtractDuration: extractDuration,
		LinkDuration:    linkDuration,
		HashDuration:    hashDuration,
		TotalDuration:   time.Since(startTime),
	}

	a.logger.Info("analyze.complete",
		"packages", stats.Packages,
		"modules", stats.Modules,
		"relationships", stats.Relationships,
		"fingerprints", stats.Fingerprints,
		"parse_errors", stats.ParseErrors,
		"total_duration_ms", stats.TotalDuration.Milliseconds(),
	)

	return result, stats, nil
}

// pass2Extract runs the extractor over every file. This is the only
// parallelizable pass: one worker per slot, no shared mutable state until the
// per-file results are drained into the symbol table in sorted order by the
// single merger.
func (a *Analyzer) pass2Extract(ctx context.Context, files []FileInfo, resolver *Resolver) (int, error) {
	if len(files) == 0 {
		return 0, ctx.Err()
	}

	numWorkers := a.config.Workers
	if len(files) < 10 || numWorkers <= 1 {
		return a.extractSequential(ctx, files, resolver)
	}

	type fileResult struct {
		module *Module
		err    error
	}
	results := make([]fileResult, len(files))

	jobs := make(chan int, len(files))
	var progressCount int64
	totalFiles := int64(len(files))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				module, err := a.extractor.ExtractFile(ctx, files[i])
				results[i] = fileResult{module: module, err: err}

				current := atomic.AddInt64(&progressCount, 1)
				a.reportProgress(current, totalFiles, "extracting")
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// Merge in sorted file order, not completion order.
	parseErrors := 0
	for i, fr := range results {
		if fr.err != nil {
			parseErrors++
			resolver.RecordError(fmt.Sprintf("%s: %v", files[i].Path, fr.err))
			a.logger.Warn("analyze.extract.error", "path", files[i].Path, "err", fr.err)
			continue
		}
		if fr.module == nil {
			continue
		}
		resolver.AddModule(fr.module)
	}
	return parseErrors, nil
}

func (a *Analyzer) extractSequential(ctx context.Context, files []FileInfo, resolver *Resolver) (int, error) {
	parseErrors := 0
	totalFiles := int64(len(files))

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		module, err := a.extractor.ExtractFile(ctx, file)
		if err != nil {
			parseErrors++
			resolver.RecordError(fmt.Sprintf("%s: %v", file.Path, err))
			a.logger.Warn("analyze.extract.error", "path", file.Path, "err", err)
			a.reportProgress(int64(i+1), totalFiles, "extracting")
			continue
		}
		resolver.AddModule(module)
		a.reportProgress(int64(i+1), totalFiles, "extracting")
	}
	return parseErrors, nil
}

// fingerprintModules computes the Merkle map over every merged module,
// setting each module's Hash field as a side effect.
func (a *Analyzer) fingerprintModules(modules []Module) map[string]string {
	fingerprints := make(map[string]string)
	if a.fingerprint == nil {
		return fingerprints
	}

	total := int64(len(modules))
	for i := range modules {
		for qn, h := range a.fingerprint.HashTree(&modules[i]) {
			fingerprints[qn] = h
		}
		a.reportProgress(int64(i+1), total, "hashing")
	}
	return fingerprints
}
