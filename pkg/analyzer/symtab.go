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
	"sort"
)

// SymbolEntry is one entry in the project-wide symbol table.
type SymbolEntry struct {
	ID            string
	Name          string
	Kind          NodeKind
	FilePath      string
	QualifiedName string
	ParentID      string
	Location      *SourceLocation
}

// ImportEntry is a per-file resolved import alias mapping.
type ImportEntry struct {
	Alias         string
	QualifiedName string
	TargetID      string
	ImportedNames []string
}

// SymbolTable is the project-wide registry mapping hierarchical IDs,
// qualified names, and per-file import aliases to symbol entries.
//
// Write contract: only the Resolver mutates the table. Readers (the linker
// pass, the emitter, tests) see a quiescent table. Lookups are O(1) expected.
type SymbolTable struct {
	symbols     map[string]SymbolEntry
	qualifiedTo map[string]string
	fileImports map[string]map[string]*ImportEntry
	packages    map[string]*Package
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		symbols:     make(map[string]SymbolEntry),
		qualifiedTo: make(map[string]string),
		fileImports: make(map[string]map[string]*ImportEntry),
		packages:    make(map[string]*Package),
	}
}

// Register adds a symbol entry. Name collisions within a scope keep the
// first-registered entry, which is deterministic because files are processed
// in sorted order.
func (st *SymbolTable) Register(entry SymbolEntry) {
	if _, exists := st.symbols[entry.ID]; !exists {
		st.symbols[entry.ID] = entry
	}
	if entry.QualifiedName != "" {
		if _, exists := st.qualifiedTo[entry.QualifiedName]; !exists {
			st.qualifiedTo[entry.QualifiedName] = entry.ID
		}
	}
}

// Lookup returns the symbol entry for a hierarchical ID.
func (st *SymbolTable) Lookup(id string) (SymbolEntry, bool) {
	entry, ok := st.symbols[id]
	return entry, ok
}

// LookupQualified resolves a qualified dotted name to a hierarchical ID.
func (st *SymbolTable) LookupQualified(qualifiedName string) (string, bool) {
	id, ok := st.qualifiedTo[qualifiedName]
	return id, ok
}

// SetImport records an import alias for a file.
func (st *SymbolTable) SetImport(fileID, alias string, entry *ImportEntry) {
	m, ok := st.fileImports[fileID]
	if !ok {
		m = make(map[string]*ImportEntry)
		st.fileImports[fileID] = m
	}
	m[alias] = entry
}

// ImportsFor returns the alias map of a file. The returned map must be
// treated as read-only outside the resolver.
func (st *SymbolTable) ImportsFor(fileID string) map[string]*ImportEntry {
	return st.fileImports[fileID]
}

// SetPackage registers a package record keyed by its relative directory path.
func (st *SymbolTable) SetPackage(dir string, pkg *Package) {
	st.packages[dir] = pkg
}

// PackageAt returns the package record for a directory, if any.
func (st *SymbolTable) PackageAt(dir string) (*Package, bool) {
	pkg, ok := st.packages[dir]
	return pkg, ok
}

// Len returns the number of registered symbols.
func (st *SymbolTable) Len() int {
	return len(st.symbols)
}

// IDs returns all registered IDs in sorted order.
func (st *SymbolTable) IDs() []string {
	ids := make([]string, 0, len(st.symbols))
	for id := range st.symbols {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// QualifiedNames returns all registered qualified names in sorted order.
func (st *SymbolTable) QualifiedNames() []string {
	names := make([]string, 0, len(st.qualifiedTo))
	for qn := range st.qualifiedTo {
		names = append(names, qn)
	}
	sort.Strings(names)
	return names
}
