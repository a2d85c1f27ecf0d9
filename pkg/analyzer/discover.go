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
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// SourceExt is the canonical extension of analyzed source files.
const SourceExt = ".py"

// MarkerFile is the filename that marks a directory as a package.
const MarkerFile = "__init__.py"

// DefaultIgnorePatterns are path substrings excluded from discovery.
// Substrings, not globs: simpler and adequate for the standard exclusion list.
func DefaultIgnorePatterns() []string {
	return []string{
		"__pycache__",
		".git",
		".venv",
		"venv",
		"node_modules",
		".pytest_cache",
		".mypy_cache",
		"build",
		"dist",
		".egg-info",
		".tox",
	}
}

// FileInfo describes one discovered source file.
type FileInfo struct {
	// Path is the file path relative to the project root, slash-separated.
	Path string
	// FullPath is the absolute path on disk.
	FullPath string
}

// DiscoverFiles walks root and returns every source file not matching the
// ignore patterns, sorted lexicographically by relative path. This is the
// only pass that touches the filesystem tree; an unreadable root is the one
// catastrophic failure of the analyzer.
func DiscoverFiles(root string, ignorePatterns []string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == absRoot {
				return walkErr
			}
			// Unreadable subtrees are skipped, not fatal.
			return nil
		}
		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if shouldIgnore(rel, ignorePatterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, SourceExt) {
			return nil
		}
		files = append(files, FileInfo{Path: rel, FullPath: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk project root: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// shouldIgnore reports whether a relative path contains any ignore substring.
func shouldIgnore(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern != "" && strings.Contains(relPath, pattern) {
			return true
		}
	}
	return false
}

// moduleNameOf converts a relative file path to its simple module name and
// owning package dotted name. The marker filename is trimmed: a/b/__init__.py
// names the package a.b itself (module name "b" here, package "a").
func moduleNameOf(relPath string) (moduleName, packageName string) {
	p := strings.TrimSuffix(relPath, SourceExt)
	parts := strings.Split(filepath.ToSlash(p), "/")

	if parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
		if len(parts) == 0 {
			return "__init__", ""
		}
	}

	moduleName = parts[len(parts)-1]
	if len(parts) > 1 {
		packageName = strings.Join(parts[:len(parts)-1], ".")
	}
	return moduleName, packageName
}

// dirQualifiedName converts a relative directory path to its dotted form.
func dirQualifiedName(relDir string) string {
	if relDir == "." || relDir == "" {
		return ""
	}
	return strings.ReplaceAll(filepath.ToSlash(relDir), "/", ".")
}
