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

// Package merkle computes deterministic content fingerprints for code graph
// nodes and diffs fingerprint maps across runs for incremental re-ingestion.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/neurograph/pkg/analyzer"
)

// Hasher calculates content-based hashes for code elements.
//
// Hash components are chosen to capture semantic changes while ignoring
// formatting: sibling hashes are sorted (reordering siblings is
// semantically irrelevant), while parameter and decorator order is
// preserved (behaviorally significant). Components are joined with a NUL
// byte; no source name may contain NUL, so boundaries are unambiguous.
type Hasher struct {
	includeDocstrings bool
}

// NewHasher creates a hasher. includeDocstrings controls whether docstrings
// participate in the hash (default behavior of the engine is true).
func NewHasher(includeDocstrings bool) *Hasher {
	return &Hasher{includeDocstrings: includeDocstrings}
}

// HashModule calculates the hash for a module.
//
// Components: file path; docstring (conditional); sorted import hashes;
// sorted class hashes; sorted function hashes; sorted variable hashes.
func (h *Hasher) HashModule(module *analyzer.Module) string {
	components := []string{module.Path}

	if h.includeDocstrings && module.Docstring != "" {
		components = append(components, module.Docstring)
	}

	components = append(components, sortedHashes(module.Imports, h.HashImport)...)
	components = append(components, sortedHashesPtr(module.Classes, h.HashClass)...)
	components = append(components, sortedHashes(module.Functions, h.HashFunction)...)
	components = append(components, sortedHashes(module.Variables, h.HashVariable)...)

	return computeHash(components)
}

// HashClass calculates the hash for a class.
//
// Components: name; sorted base names; decorators in declaration order;
// docstring (conditional); sorted method hashes; sorted class-variable
// hashes; sorted instance-variable hashes; sorted nested-class hashes.
func (h *Hasher) HashClass(cls *analyzer.Class) string {
	components := []string{cls.Name}

	bases := append([]string{}, cls.Bases...)
	sort.Strings(bases)
	components = append(components, bases...)

	for _, dec := range cls.Decorators {
		components = append(components, dec.Written())
	}

	if h.includeDocstrings && cls.Docstring != "" {
		components = append(components, cls.Docstring)
	}

	components = append(components, sortedHashes(cls.Methods, h.HashFunction)...)
	components = append(components, sortedHashes(cls.ClassVariables, h.HashVariable)...)
	components = append(components, sortedHashes(cls.InstanceVariables, h.HashVariable)...)
	components = append(components, sortedHashesPtr(cls.NestedClasses, h.HashClass)...)

	return computeHash(components)
}

// HashFunction calculates the hash for a function or method.
//
// Components: name; parameters in declaration order; return type;
// decorators in declaration order; async/generator markers; docstring
// (conditional); sorted call names; sorted local-variable hashes; body hash.
func (h *Hasher) HashFunction(fn analyzer.Function) string {
	components := []string{fn.Name}

	for _, p := range fn.Parameters {
		components = append(components, renderParameter(p))
	}

	if fn.ReturnType != "" {
		components = append(components, "->"+fn.ReturnType)
	}

	for _, dec := range fn.Decorators {
		components = append(components, dec.Written())
	}

	if fn.IsAsync {
		components = append(components, "async")
	}
	if fn.IsGenerator {
		components = append(components, "generator")
	}

	if h.includeDocstrings && fn.Docstring != "" {
		components = append(components, fn.Docstring)
	}

	calls := fn.CallNames()
	sort.Strings(calls)
	components = append(components, calls...)

	components = append(components, sortedHashes(fn.Variables, h.HashVariable)...)

	if fn.BodyHash != "" {
		components = append(components, fn.BodyHash)
	}

	return computeHash(components)
}

// renderParameter renders one parameter as name[:type][=default] with
// variadic prefixes.
func renderParameter(p analyzer.Parameter) string {
	s := p.Name
	if p.TypeHint != "" {
		s += ":" + p.TypeHint
	}
	if p.DefaultValue != "" {
		s += "=" + p.DefaultValue
	}
	if p.IsArgs {
		s = "*" + s
	}
	if p.IsKwargs {
		s = "**" + s
	}
	return s
}

// HashVariable calculates the hash for a variable.
//
// Components: name; type hint; initial value.
func (h *Hasher) HashVariable(v analyzer.Variable) string {
	components := []string{v.Name}
	if v.TypeHint != "" {
		components = append(components, v.TypeHint)
	}
	if v.InitialValue != "" {
		components = append(components, v.InitialValue)
	}
	return computeHash(components)
}

// HashImport calculates the hash for an import statement.
//
// Components: module name as written; relative marker; sorted imported
// names; sorted name=alias pairs.
func (h *Hasher) HashImport(imp analyzer.Import) string {
	components := []string{imp.ModuleName}

	if imp.IsRelative {
		components = append(components, fmt.Sprintf("relative:%d", imp.RelativeLevel))
	}

	names := append([]string{}, imp.ImportedNames...)
	sort.Strings(names)
	components = append(components, names...)

	aliasKeys := make([]string, 0, len(imp.Aliases))
	for name := range imp.Aliases {
		aliasKeys = append(aliasKeys, name)
	}
	sort.Strings(aliasKeys)
	for _, name := range aliasKeys {
		components = append(components, name+"="+imp.Aliases[name])
	}

	return computeHash(components)
}

// HashTree calculates hashes for the entire module tree: the module itself,
// every class (including nested), every method, every top-level function,
// every module/class/instance variable, and every import. The module's own
// hash depends transitively on all children (the Merkle property).
func (h *Hasher) HashTree(module *analyzer.Module) map[string]string {
	hashes := make(map[string]string)

	for ci := range module.Classes {
		h.hashClassRecursive(&module.Classes[ci], hashes)
	}

	for _, fn := range module.Functions {
		hashes[fn.QualifiedName] = h.HashFunction(fn)
	}

	for _, v := range module.Variables {
		hashes[module.QualifiedName()+"."+v.Name] = h.HashVariable(v)
	}

	for i, imp := range module.Imports {
		hashes[fmt.Sprintf("%s.__import_%d__", module.QualifiedName(), i)] = h.HashImport(imp)
	}

	moduleHash := h.HashModule(module)
	hashes[module.QualifiedName()] = moduleHash
	module.Hash = moduleHash

	return hashes
}

func (h *Hasher) hashClassRecursive(cls *analyzer.Class, hashes map[string]string) {
	for _, method := range cls.Methods {
		hashes[method.QualifiedName] = h.HashFunction(method)
	}
	for _, v := range cls.AllVariables() {
		hashes[cls.QualifiedName+"."+v.Name] = h.HashVariable(v)
	}
	for ni := range cls.NestedClasses {
		h.hashClassRecursive(&cls.NestedClasses[ni], hashes)
	}
	hashes[cls.QualifiedName] = h.HashClass(cls)
}

// CompareHashes diffs two fingerprint maps into (added, removed, modified)
// sets of qualified names.
func CompareHashes(oldHashes, newHashes map[string]string) (added, removed, modified map[string]bool) {
	added = make(map[string]bool)
	removed = make(map[string]bool)
	modified = make(map[string]bool)

	for key := range newHashes {
		if _, ok := oldHashes[key]; !ok {
			added[key] = true
		}
	}
	for key, oldHash := range oldHashes {
		newHash, ok := newHashes[key]
		if !ok {
			removed[key] = true
		} else if oldHash != newHash {
			modified[key] = true
		}
	}
	return added, removed, modified
}

// computeHash joins non-empty components with NUL and returns the SHA-256
// hex digest.
func computeHash(components []string) string {
	kept := components[:0]
	for _, c := range components {
		if c != "" {
			kept = append(kept, c)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(kept, "\x00")))
	return hex.EncodeToString(sum[:])
}

// sortedHashes hashes each item and returns the hashes sorted.
func sortedHashes[T any](items []T, hash func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, hash(item))
	}
	sort.Strings(out)
	return out
}

// sortedHashesPtr is sortedHashes for hash functions taking a pointer.
func sortedHashesPtr[T any](items []T, hash func(*T) string) []string {
	out := make([]string, 0, len(items))
	for i := range items {
		out = append(out, hash(&items[i]))
	}
	sort.Strings(out)
	return out
}
