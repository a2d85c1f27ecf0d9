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
	"path"
	"sort"
	"strings"

	"log/slog"
)

// Resolver drives the ordered analysis passes over a project file set and
// owns the symbol table. No pass reads a data product produced by a later
// pass:
//
//	Pass 0 discovers packages, Pass 1 registers module IDs, Pass 2 merges
//	extracted modules (produced by the workers), Pass 3 links references
//	into relationship edges.
type Resolver struct {
	logger   *slog.Logger
	rootName string

	table         *SymbolTable
	packages      []*Package
	modules       []*Module
	relationships []Relationship
	errors        []string

	// packageDirs maps a relative directory path to its package record.
	packageDirs map[string]*Package
}

// NewResolver creates a resolver for one analysis run. Resolvers are
// single-use: tests instantiate fresh ones.
func NewResolver(rootName string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		logger:      logger,
		rootName:    rootName,
		table:       NewSymbolTable(),
		packageDirs: make(map[string]*Package),
	}
}

// Table exposes the symbol table for the emitter and tests. Read-only after
// pass 3.
func (r *Resolver) Table() *SymbolTable { return r.table }

// Errors returns per-file errors recorded so far.
func (r *Resolver) Errors() []string { return r.errors }

// RecordError appends a per-file error; analysis continues.
func (r *Resolver) RecordError(msg string) {
	r.errors = append(r.errors, msg)
}

// =============================================================================
// Pass 0: package discovery
// =============================================================================

// Pass0Packages identifies every directory containing the package marker
// file, builds the package tree sorted by depth, and registers one package
// symbol per directory.
func (r *Resolver) Pass0Packages(files []FileInfo) {
	markerDirs := make(map[string]bool)
	for _, f := range files {
		if path.Base(f.Path) == MarkerFile {
			markerDirs[path.Dir(f.Path)] = true
		}
	}

	dirs := make([]string, 0, len(markerDirs))
	for dir := range markerDirs {
		dirs = append(dirs, dir)
	}
	// Shallowest first so parents exist before children; lexicographic
	// within a depth for determinism.
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], "/"), strings.Count(dirs[j], "/")
		if di != dj {
			return di < dj
		}
		return dirs[i] < dirs[j]
	})

	for _, dir := range dirs {
		name := path.Base(dir)
		id := dir
		qualified := dirQualifiedName(dir)
		if dir == "." {
			name = r.rootName
			id = r.rootName
			qualified = r.rootName
		}

		parentID := ""
		parent := path.Dir(dir)
		for parent != "." && parent != "/" && parent != dir {
			if p, ok := r.packageDirs[parent]; ok {
				parentID = p.ID
				break
			}
			parent = path.Dir(parent)
		}
		if parentID == "" && dir != "." {
			if p, ok := r.packageDirs["."]; ok {
				parentID = p.ID
			}
		}

		pkg := &Package{
			ID:            id,
			Path:          dir,
			Name:          name,
			QualifiedName: qualified,
			ParentID:      parentID,
		}
		r.packages = append(r.packages, pkg)
		r.packageDirs[dir] = pkg
		r.table.SetPackage(dir, pkg)

		r.table.Register(SymbolEntry{
			ID:            pkg.ID,
			Name:          name,
			Kind:          KindPackage,
			FilePath:      dir,
			QualifiedName: qualified,
			ParentID:      parentID,
		})

		if parentID != "" {
			for _, p := range r.packages {
				if p.ID == parentID {
					p.ChildPackages = append(p.ChildPackages, pkg.ID)
					break
				}
			}
		}
	}

	r.logger.Info("analyze.pass0.complete", "packages", len(r.packages))
}

// =============================================================================
// Pass 1: module discovery
// =============================================================================

// Pass1Modules synthesizes a module symbol per source file and attaches
// modules to their owning packages. Marker files are not recorded as package
// children; their docstring is attributed to the package during the pass-2
// merge.
func (r *Resolver) Pass1Modules(files []FileInfo) {
	for _, f := range files {
		moduleName, packageName := moduleNameOf(f.Path)
		qualified := moduleName
		if packageName != "" {
			qualified = packageName + "." + moduleName
		}

		r.table.Register(SymbolEntry{
			ID:            f.Path,
			Name:          moduleName,
			Kind:          KindModule,
			FilePath:      f.Path,
			QualifiedName: qualified,
		})

		dir := path.Dir(f.Path)
		if pkg, ok := r.packageDirs[dir]; ok {
			if path.Base(f.Path) != MarkerFile {
				pkg.ChildModules = append(pkg.ChildModules, f.Path)
			}
		}
	}

	r.logger.Info("analyze.pass1.complete", "symbols", r.table.Len())
}

// =============================================================================
// Pass 2: merge extracted modules
// =============================================================================

// AddModule merges one extracted module into the symbol table. Called by the
// single merger goroutine in sorted file order; the table sees no concurrent
// writes.
func (r *Resolver) AddModule(module *Module) {
	r.modules = append(r.modules, module)

	fileID := module.ID

	// Marker files carry the package docstring.
	if path.Base(module.Path) == MarkerFile {
		if pkg, ok := r.packageDirs[path.Dir(module.Path)]; ok && pkg.Docstring == "" {
			pkg.Docstring = module.Docstring
		}
	}

	for ci := range module.Classes {
		r.registerClass(&module.Classes[ci], module, fileID)
	}
	for fi := range module.Functions {
		r.registerFunction(&module.Functions[fi], module, fileID, fileID)
	}
	for vi := range module.Variables {
		v := module.Variables[vi]
		r.table.Register(SymbolEntry{
			ID:            v.ID,
			Name:          v.Name,
			Kind:          KindVariable,
			FilePath:      module.Path,
			QualifiedName: module.QualifiedName() + "." + v.Name,
			ParentID:      fileID,
			Location:      v.Location,
		})
	}

	r.registerImports(module, fileID)
}

func (r *Resolver) registerClass(cls *Class, module *Module, fileID string) {
	r.table.Register(SymbolEntry{
		ID:            cls.ID,
		Name:          cls.Name,
		Kind:          KindClass,
		FilePath:      module.Path,
		QualifiedName: cls.QualifiedName,
		ParentID:      fileID,
		Location:      cls.Location,
	})

	for mi := range cls.Methods {
		r.registerFunction(&cls.Methods[mi], module, fileID, cls.ID)
	}
	for _, v := range cls.AllVariables() {
		r.table.Register(SymbolEntry{
			ID:            v.ID,
			Name:          v.Name,
			Kind:          KindVariable,
			FilePath:      module.Path,
			QualifiedName: cls.QualifiedName + "." + v.Name,
			ParentID:      cls.ID,
			Location:      v.Location,
		})
	}
	for ni := range cls.NestedClasses {
		r.registerClass(&cls.NestedClasses[ni], module, fileID)
	}
}

func (r *Resolver) registerFunction(fn *Function, module *Module, fileID, parentID string) {
	kind := KindFunction
	if fn.IsMethod {
		kind = KindMethod
	}
	r.table.Register(SymbolEntry{
		ID:            fn.ID,
		Name:          fn.Name,
		Kind:          kind,
		FilePath:      module.Path,
		QualifiedName: fn.QualifiedName,
		ParentID:      parentID,
		Location:      fn.Location,
	})
	for _, v := range fn.Variables {
		r.table.Register(SymbolEntry{
			ID:            v.ID,
			Name:          v.Name,
			Kind:          KindVariable,
			FilePath:      module.Path,
			QualifiedName: fn.QualifiedName + "." + v.Name,
			ParentID:      fn.ID,
			Location:      v.Location,
		})
	}
}

// registerImports populates the file's alias map. Resolved target IDs stay
// blank until pass 3. Wildcard imports record nothing beyond the import
// record itself: a conscious under-approximation.
func (r *Resolver) registerImports(module *Module, fileID string) {
	for _, imp := range module.Imports {
		if !imp.IsFromImport() {
			alias := imp.ModuleName
			if idx := strings.LastIndex(alias, "."); idx >= 0 {
				alias = alias[idx+1:]
			}
			if a, ok := imp.Aliases[imp.ModuleName]; ok {
				alias = a
			}
			r.table.SetImport(fileID, alias, &ImportEntry{
				Alias:         alias,
				QualifiedName: imp.ModuleName,
			})
			continue
		}

		target := imp.AbsoluteModule()
		for _, name := range imp.ImportedNames {
			if name == "*" {
				continue
			}
			alias := name
			if a, ok := imp.Aliases[name]; ok {
				alias = a
			}
			qualified := name
			if target != "" {
				qualified = target + "." + name
			}
			r.table.SetImport(fileID, alias, &ImportEntry{
				Alias:         alias,
				QualifiedName: qualified,
				ImportedNames: []string{name},
			})
		}
	}
}

// =============================================================================
// Pass 3: linker
// =============================================================================

// Pass3Link resolves references against the quiescent symbol table and emits
// relationship edges. References that fail to resolve are dropped silently.
func (r *Resolver) Pass3Link() []Relationship {
	r.linkPackages()

	for _, module := range r.modules {
		fileID := module.ID
		r.linkContains(module, fileID)
		r.linkImports(module, fileID)
		r.linkCalls(module, fileID)
		r.linkInheritance(module, fileID)
	}

	r.logger.Info("analyze.pass3.complete", "relationships", len(r.relationships))
	return r.relationships
}

func (r *Resolver) addRel(sourceID, targetID string, kind RelKind, props map[string]any) {
	r.relationships = append(r.relationships, Relationship{
		SourceID:   sourceID,
		TargetID:   targetID,
		Type:       kind,
		Properties: props,
	})
}

func (r *Resolver) linkPackages() {
	for _, pkg := range r.packages {
		for _, childPkg := range pkg.ChildPackages {
			r.addRel(pkg.ID, childPkg, RelContains, map[string]any{"weight": 1})
		}
		for _, childMod := range pkg.ChildModules {
			r.addRel(pkg.ID, childMod, RelContains, map[string]any{"weight": 1})
		}
	}
}

// linkContains emits the structural tree under one module.
func (r *Resolver) linkContains(module *Module, fileID string) {
	for ci := range module.Classes {
		r.linkClassContains(&module.Classes[ci], fileID, fileID)
	}
	for _, fn := range module.Functions {
		r.addRel(fileID, fn.ID, RelContains, map[string]any{"weight": 1})
		r.linkFunctionDefines(&fn)
	}
	for _, v := range module.Variables {
		r.addRel(fileID, v.ID, RelDefines, map[string]any{"scope": v.Scope})
	}
}

func (r *Resolver) linkClassContains(cls *Class, parentID, fileID string) {
	r.addRel(parentID, cls.ID, RelContains, map[string]any{"weight": 1})

	for mi := range cls.Methods {
		r.addRel(cls.ID, cls.Methods[mi].ID, RelContains, map[string]any{"weight": 1})
		r.linkFunctionDefines(&cls.Methods[mi])
	}
	for _, v := range cls.AllVariables() {
		r.addRel(cls.ID, v.ID, RelDefines, map[string]any{"scope": v.Scope})
	}
	for ni := range cls.NestedClasses {
		r.linkClassContains(&cls.NestedClasses[ni], cls.ID, fileID)
	}
}

func (r *Resolver) linkFunctionDefines(fn *Function) {
	for _, v := range fn.Variables {
		r.addRel(fn.ID, v.ID, RelDefines, map[string]any{"scope": "local"})
	}
}

// linkImports resolves each import to a known module and, where possible, to
// the individual imported symbols.
func (r *Resolver) linkImports(module *Module, fileID string) {
	aliases := r.table.ImportsFor(fileID)

	for _, imp := range module.Imports {
		targetModule := imp.AbsoluteModule()
		targetID, ok := r.table.LookupQualified(targetModule)
		if !ok {
			continue
		}

		r.addRel(fileID, targetID, RelImports, map[string]any{
			"imported_names": append([]string{}, imp.ImportedNames...),
			"is_relative":    imp.IsRelative,
		})

		// Fill in resolved IDs on the alias map. Prefix matches stop at a
		// dot boundary so "a" does not claim "app.*" aliases.
		for _, entry := range aliases {
			if entry.TargetID != "" {
				continue
			}
			if entry.QualifiedName == targetModule || strings.HasPrefix(entry.QualifiedName, targetModule+".") {
				entry.TargetID = targetID
			}
		}

		for _, name := range imp.ImportedNames {
			if name == "*" {
				continue
			}
			symbolID, ok := r.table.LookupQualified(targetModule + "." + name)
			if !ok {
				continue
			}
			r.addRel(fileID, symbolID, RelImports, map[string]any{
				"imported_names": []string{name},
				"is_relative":    imp.IsRelative,
				"symbol_name":    name,
			})
			alias := name
			if a, ok := imp.Aliases[name]; ok {
				alias = a
			}
			if entry, ok := aliases[alias]; ok {
				entry.TargetID = symbolID
			}
		}
	}
}

// linkCalls resolves call names per function and emits CALLS edges, plus
// INSTANTIATES when the target is a class, plus DECORATES edges for
// resolvable decorators.
func (r *Resolver) linkCalls(module *Module, fileID string) {
	aliases := r.table.ImportsFor(fileID)

	for fi := range module.Functions {
		r.linkFunctionCalls(&module.Functions[fi], fileID, aliases, nil)
		r.linkDecorators(module.Functions[fi].Decorators, module.Functions[fi].ID, fileID, aliases)
	}
	for ci := range module.Classes {
		r.linkClassCalls(&module.Classes[ci], fileID, aliases)
	}
}

func (r *Resolver) linkClassCalls(cls *Class, fileID string, aliases map[string]*ImportEntry) {
	r.linkDecorators(cls.Decorators, cls.ID, fileID, aliases)
	for mi := range cls.Methods {
		r.linkFunctionCalls(&cls.Methods[mi], fileID, aliases, cls)
		r.linkDecorators(cls.Methods[mi].Decorators, cls.Methods[mi].ID, fileID, aliases)
	}
	for ni := range cls.NestedClasses {
		r.linkClassCalls(&cls.NestedClasses[ni], fileID, aliases)
	}
}

func (r *Resolver) linkFunctionCalls(fn *Function, fileID string, aliases map[string]*ImportEntry, parentClass *Class) {
	// Aggregate duplicate call names, preserving first-seen order.
	counts := make(map[string]int)
	var order []string
	for _, ref := range fn.Calls {
		if counts[ref.Name] == 0 {
			order = append(order, ref.Name)
		}
		counts[ref.Name]++
	}

	for _, callName := range order {
		targetID := r.resolveSymbol(callName, fileID, aliases, parentClass)
		if targetID == "" {
			continue
		}

		// Complete the reference records for this call name.
		for ri := range fn.Calls {
			if fn.Calls[ri].Name == callName {
				fn.Calls[ri].ResolvedID = targetID
			}
		}

		entry, _ := r.table.Lookup(targetID)
		props := map[string]any{
			"call_name":  callName,
			"call_count": counts[callName],
		}
		if entry.FilePath != "" && entry.FilePath != fileID {
			props["cross_module"] = true
		}
		r.addRel(fn.ID, targetID, RelCalls, props)

		if entry.Kind == KindClass {
			r.addRel(fn.ID, targetID, RelInstantiates, map[string]any{"count": counts[callName]})
		}
	}
}

func (r *Resolver) linkDecorators(decorators []Decorator, targetID, fileID string, aliases map[string]*ImportEntry) {
	for i, dec := range decorators {
		decoratorID := r.resolveSymbol(dec.Name, fileID, aliases, nil)
		if decoratorID == "" {
			continue
		}
		r.addRel(decoratorID, targetID, RelDecorates, map[string]any{"decorator_order": i})
	}
}

// linkInheritance resolves base-class expressions and emits INHERITS edges
// with declaration order.
func (r *Resolver) linkInheritance(module *Module, fileID string) {
	aliases := r.table.ImportsFor(fileID)

	var linkClass func(cls *Class)
	linkClass = func(cls *Class) {
		for i, base := range cls.Bases {
			targetID := r.resolveSymbol(base, fileID, aliases, nil)
			if targetID == "" {
				continue
			}
			cls.ResolvedBases = append(cls.ResolvedBases, targetID)
			r.addRel(cls.ID, targetID, RelInherits, map[string]any{
				"base_name": base,
				"order":     i,
			})
		}
		for ni := range cls.NestedClasses {
			linkClass(&cls.NestedClasses[ni])
		}
	}

	for ci := range module.Classes {
		linkClass(&module.Classes[ci])
	}
}

// resolveSymbol resolves a written name to a definition ID.
//
// Resolution order (earlier rules win):
//  1. Dotted names: an import-alias head resolves against the imported
//     module's qualified name (one attribute level deep); a self/cls head
//     resolves against the enclosing class.
//  2. Enclosing class scope.
//  3. Module-local definition.
//  4. Import alias.
//  5. The name itself as a qualified name.
func (r *Resolver) resolveSymbol(name, fileID string, aliases map[string]*ImportEntry, parentClass *Class) string {
	if strings.Contains(name, ".") {
		parts := strings.Split(name, ".")
		head := parts[0]

		if entry, ok := aliases[head]; ok && len(parts) == 2 {
			// Deeper chains (a.b.c.d) are left unresolved by design.
			if id, ok := r.table.LookupQualified(entry.QualifiedName + "." + parts[1]); ok {
				return id
			}
		}

		if (head == "self" || head == "cls") && parentClass != nil && len(parts) > 1 {
			candidate := parentClass.ID + "::" + parts[1]
			if _, ok := r.table.Lookup(candidate); ok {
				return candidate
			}
		}
	}

	if parentClass != nil {
		candidate := parentClass.ID + "::" + name
		if _, ok := r.table.Lookup(candidate); ok {
			return candidate
		}
	}

	candidate := NodeID(fileID, name)
	if _, ok := r.table.Lookup(candidate); ok {
		return candidate
	}

	if entry, ok := aliases[name]; ok {
		if entry.TargetID != "" {
			return entry.TargetID
		}
		if id, ok := r.table.LookupQualified(entry.QualifiedName); ok {
			return id
		}
	}

	if id, ok := r.table.LookupQualified(name); ok {
		return id
	}

	return ""
}

// Packages returns the discovered package records as values.
func (r *Resolver) Packages() []Package {
	out := make([]Package, len(r.packages))
	for i, p := range r.packages {
		out[i] = *p
	}
	return out
}

// Modules returns the merged module records as values.
func (r *Resolver) Modules() []Module {
	out := make([]Module, len(r.modules))
	for i, m := range r.modules {
		out[i] = *m
	}
	return out
}
