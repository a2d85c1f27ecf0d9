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

package merkle

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"log/slog"

	"github.com/kraklabs/neurograph/pkg/analyzer"
)

// ChangeSet represents detected changes between two fingerprint states:
// three disjoint sets of qualified names plus the affected file paths.
type ChangeSet struct {
	Added         map[string]bool `json:"added"`
	Removed       map[string]bool `json:"removed"`
	Modified      map[string]bool `json:"modified"`
	AffectedFiles map[string]bool `json:"affected_files"`
}

// NewChangeSet creates an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		Added:         make(map[string]bool),
		Removed:       make(map[string]bool),
		Modified:      make(map[string]bool),
		AffectedFiles: make(map[string]bool),
	}
}

// HasChanges reports whether any node was added, removed, or modified.
func (cs *ChangeSet) HasChanges() bool {
	return len(cs.Added) > 0 || len(cs.Removed) > 0 || len(cs.Modified) > 0
}

// TotalChanges returns the total number of changed nodes.
func (cs *ChangeSet) TotalChanges() int {
	return len(cs.Added) + len(cs.Removed) + len(cs.Modified)
}

// Merge unions another change set into a new one. Batch results are
// order-independent.
func (cs *ChangeSet) Merge(other *ChangeSet) *ChangeSet {
	merged := NewChangeSet()
	for _, pair := range []struct{ dst, a, b map[string]bool }{
		{merged.Added, cs.Added, other.Added},
		{merged.Removed, cs.Removed, other.Removed},
		{merged.Modified, cs.Modified, other.Modified},
		{merged.AffectedFiles, cs.AffectedFiles, other.AffectedFiles},
	} {
		for k := range pair.a {
			pair.dst[k] = true
		}
		for k := range pair.b {
			pair.dst[k] = true
		}
	}
	return merged
}

// SortedAdded returns the added names in sorted order, for display.
func (cs *ChangeSet) SortedAdded() []string { return sortedKeys(cs.Added) }

// SortedRemoved returns the removed names in sorted order, for display.
func (cs *ChangeSet) SortedRemoved() []string { return sortedKeys(cs.Removed) }

// SortedModified returns the modified names in sorted order, for display.
func (cs *ChangeSet) SortedModified() []string { return sortedKeys(cs.Modified) }

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CacheStats summarizes the detector's cache.
type CacheStats struct {
	CachedFiles   int `json:"cached_files"`
	CachedModules int `json:"cached_modules"`
	TotalHashes   int `json:"total_hashes"`
}

// Detector detects code changes by Merkle tree comparison, maintaining a
// per-project fingerprint cache across runs.
//
// The cache is mutated only by its owning goroutine; concurrent Detector
// instances over the same cache are not supported.
type Detector struct {
	logger    *slog.Logger
	extractor *analyzer.Extractor
	hasher    *Hasher
	// logDir, when set, receives an append-only changes.log for diagnosis.
	logDir string

	// hashCache: relative file path -> {qualified_name -> hash}
	hashCache map[string]map[string]string
	// moduleCache: relative file path -> module record
	moduleCache map[string]*analyzer.Module
}

// NewDetector creates a change detector with its own extractor and hasher.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		logger:      logger,
		extractor:   analyzer.NewExtractor(logger),
		hasher:      NewHasher(true),
		hashCache:   make(map[string]map[string]string),
		moduleCache: make(map[string]*analyzer.Module),
	}
}

// SetLogDir enables the diagnostic change log under dir.
func (d *Detector) SetLogDir(dir string) {
	d.logDir = dir
}

// DetectChanges diffs a single file against the cached state and replaces
// the cached entry. A file gone from disk removes every cached name for the
// file. Parse failures yield an empty change set and are logged, never
// fatal.
func (d *Detector) DetectChanges(ctx context.Context, file analyzer.FileInfo) *ChangeSet {
	changes := NewChangeSet()

	if _, err := os.Stat(file.FullPath); os.IsNotExist(err) {
		if oldHashes, ok := d.hashCache[file.Path]; ok {
			for name := range oldHashes {
				changes.Removed[name] = true
			}
			changes.AffectedFiles[file.Path] = true
			delete(d.hashCache, file.Path)
			delete(d.moduleCache, file.Path)
			d.logger.Info("merkle.file_deleted",
				"path", file.Path,
				"removed_count", len(changes.Removed),
			)
			AppendChangeLog(d.logDir, fmt.Sprintf("deleted %s", file.Path))
		}
		return changes
	}

	module, err := d.extractor.ExtractFile(ctx, file)
	if err != nil {
		d.logger.Error("merkle.parse_failed", "path", file.Path, "err", err)
		return changes
	}

	newHashes := d.hasher.HashTree(module)
	oldHashes := d.hashCache[file.Path]

	added, removed, modified := CompareHashes(oldHashes, newHashes)
	changes.Added = added
	changes.Removed = removed
	changes.Modified = modified
	changes.AffectedFiles[file.Path] = true

	d.hashCache[file.Path] = newHashes
	d.moduleCache[file.Path] = module

	if changes.HasChanges() {
		d.logger.Info("merkle.changes_detected",
			"path", file.Path,
			"added", len(added),
			"removed", len(removed),
			"modified", len(modified),
		)
		AppendChangeLog(d.logDir, fmt.Sprintf("changed %s added=%d removed=%d modified=%d",
			file.Path, len(added), len(removed), len(modified)))
	}

	return changes
}

// DetectChangesBatch diffs multiple files and merges the results by set
// union.
func (d *Detector) DetectChangesBatch(ctx context.Context, files []analyzer.FileInfo) *ChangeSet {
	combined := NewChangeSet()
	for _, file := range files {
		combined = combined.Merge(d.DetectChanges(ctx, file))
	}
	return combined
}

// InitializeFromModules seeds the cache from pre-parsed modules.
func (d *Detector) InitializeFromModules(modules []analyzer.Module) {
	totalHashes := 0
	for i := range modules {
		m := modules[i]
		hashes := d.hasher.HashTree(&m)
		d.hashCache[m.Path] = hashes
		d.moduleCache[m.Path] = &m
		totalHashes += len(hashes)
	}
	d.logger.Info("merkle.cache_initialized",
		"module_count", len(modules),
		"total_hashes", totalHashes,
	)
}

// Module returns the cached module record for a file, or nil.
func (d *Detector) Module(path string) *analyzer.Module {
	return d.moduleCache[path]
}

// Hash returns the cached hash for one qualified name in a file.
func (d *Detector) Hash(path, qualifiedName string) (string, bool) {
	hashes, ok := d.hashCache[path]
	if !ok {
		return "", false
	}
	h, ok := hashes[qualifiedName]
	return h, ok
}

// RemoveFile drops a file from the cache and returns the removed names.
func (d *Detector) RemoveFile(path string) map[string]bool {
	removed := make(map[string]bool)
	for name := range d.hashCache[path] {
		removed[name] = true
	}
	delete(d.hashCache, path)
	delete(d.moduleCache, path)
	return removed
}

// ClearCache drops all cached state.
func (d *Detector) ClearCache() {
	d.hashCache = make(map[string]map[string]string)
	d.moduleCache = make(map[string]*analyzer.Module)
	d.logger.Info("merkle.cache_cleared")
}

// AffectedBy returns the nodes an external observer should consider affected
// by a structural change to a qualified name: every strict prefix (the
// containing scopes). Reference-graph propagation is delegated to the graph
// store.
func (d *Detector) AffectedBy(qualifiedName string) map[string]bool {
	affected := make(map[string]bool)
	parts := strings.Split(qualifiedName, ".")
	for i := 1; i < len(parts); i++ {
		affected[strings.Join(parts[:i], ".")] = true
	}
	return affected
}

// PropagateHashes re-hashes every cached module containing a changed node
// and returns the updated qualified_name -> hash map. With the Merkle
// property, ancestors inside a module update automatically; this makes the
// refreshed values observable.
func (d *Detector) PropagateHashes(changes *ChangeSet) map[string]string {
	updated := make(map[string]string)
	affectedPaths := make(map[string]bool)

	changedNames := make([]string, 0, changes.TotalChanges())
	changedNames = append(changedNames, sortedKeys(changes.Added)...)
	changedNames = append(changedNames, sortedKeys(changes.Removed)...)
	changedNames = append(changedNames, sortedKeys(changes.Modified)...)

	for path, hashes := range d.hashCache {
		for _, name := range changedNames {
			if _, ok := hashes[name]; ok {
				affectedPaths[path] = true
				break
			}
			prefixed := false
			for existing := range hashes {
				if strings.HasPrefix(name, existing+".") {
					prefixed = true
					break
				}
			}
			if prefixed {
				affectedPaths[path] = true
				break
			}
		}
	}

	for path := range affectedPaths {
		module := d.moduleCache[path]
		if module == nil {
			continue
		}
		newHashes := d.hasher.HashTree(module)
		d.hashCache[path] = newHashes
		for qn, h := range newHashes {
			updated[qn] = h
		}
	}

	return updated
}

// CachedFiles returns the cached file paths in sorted order.
func (d *Detector) CachedFiles() []string {
	paths := make([]string, 0, len(d.hashCache))
	for p := range d.hashCache {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Stats returns cache statistics.
func (d *Detector) Stats() CacheStats {
	total := 0
	for _, hashes := range d.hashCache {
		total += len(hashes)
	}
	return CacheStats{
		CachedFiles:   len(d.hashCache),
		CachedModules: len(d.moduleCache),
		TotalHashes:   total,
	}
}
