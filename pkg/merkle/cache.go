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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kraklabs/neurograph/pkg/analyzer"
)

// cacheVersion is the on-disk cache schema version.
const cacheVersion = 1

// cacheEntry is the persisted state of one file.
type cacheEntry struct {
	Hashes map[string]string `json:"hashes"`
	Module *analyzer.Module  `json:"module"`
}

// cacheFile is the persisted cache layout. The layout is engine-private:
// only the roundtrip contract is observable.
type cacheFile struct {
	Version int                    `json:"version"`
	Files   map[string]*cacheEntry `json:"files"`
}

// CacheManager persists a detector's fingerprint cache across runs.
type CacheManager struct {
	basePath string
}

// NewCacheManager creates a cache manager rooted at basePath. An empty
// basePath uses the current working directory.
func NewCacheManager(basePath string) *CacheManager {
	return &CacheManager{basePath: basePath}
}

func (cm *CacheManager) cachePath(projectID string) string {
	name := fmt.Sprintf("fingerprints-%s.json", projectID)
	if cm.basePath != "" {
		return filepath.Join(cm.basePath, name)
	}
	return name
}

// Load restores a detector's cache from disk. Returns false with a nil
// error when no cache exists yet (first run).
func (cm *CacheManager) Load(projectID string, d *Detector) (bool, error) {
	data, err := os.ReadFile(cm.cachePath(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read fingerprint cache: %w", err)
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return false, fmt.Errorf("parse fingerprint cache: %w", err)
	}

	d.hashCache = make(map[string]map[string]string, len(cf.Files))
	d.moduleCache = make(map[string]*analyzer.Module, len(cf.Files))
	for path, entry := range cf.Files {
		if entry == nil {
			continue
		}
		d.hashCache[path] = entry.Hashes
		if entry.Module != nil {
			d.moduleCache[path] = entry.Module
		}
	}
	return true, nil
}

// Save writes a detector's cache to disk atomically (temp file + rename).
func (cm *CacheManager) Save(projectID string, d *Detector) error {
	path := cm.cachePath(projectID)

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	cf := cacheFile{
		Version: cacheVersion,
		Files:   make(map[string]*cacheEntry, len(d.hashCache)),
	}
	for p, hashes := range d.hashCache {
		cf.Files[p] = &cacheEntry{
			Hashes: hashes,
			Module: d.moduleCache[p],
		}
	}

	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fingerprint cache: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write fingerprint cache temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename fingerprint cache: %w", err)
	}
	return nil
}

// Delete removes a project's cache file from disk.
func (cm *CacheManager) Delete(projectID string) error {
	if err := os.Remove(cm.cachePath(projectID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove fingerprint cache: %w", err)
	}
	return nil
}
