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
	"strings"
)

// NodeKind identifies the kind of a node in the code graph.
type NodeKind string

const (
	KindPackage  NodeKind = "package"
	KindModule   NodeKind = "module"
	KindClass    NodeKind = "class"
	KindFunction NodeKind = "function"
	KindMethod   NodeKind = "method"
	KindVariable NodeKind = "variable"
	KindImport   NodeKind = "import"
)

// RelKind identifies the kind of a relationship between two nodes.
type RelKind string

const (
	RelContains     RelKind = "CONTAINS"
	RelImports      RelKind = "IMPORTS"
	RelCalls        RelKind = "CALLS"
	RelInstantiates RelKind = "INSTANTIATES"
	RelInherits     RelKind = "INHERITS"
	RelDecorates    RelKind = "DECORATES"
	RelDefines      RelKind = "DEFINES"
	RelUses         RelKind = "USES"
	RelReturns      RelKind = "RETURNS"
	RelRaises       RelKind = "RAISES"
	RelReads        RelKind = "READS"
	RelWrites       RelKind = "WRITES"
)

// NodeID builds a hierarchical node ID from a relative file path and scope names.
//
// Format: file_path::scope1::scope2::...
//
// Examples:
//
//	pkg/util/io.py
//	pkg/util/io.py::Reader
//	pkg/util/io.py::Reader::read
//
// IDs are deterministic functions of source location: two analyses of the
// same project produce identical IDs.
func NodeID(filePath string, scopes ...string) string {
	if len(scopes) == 0 {
		return filePath
	}
	return filePath + "::" + strings.Join(scopes, "::")
}

// SourceLocation describes a span in a source file.
// Lines are 1-based, columns 0-based, byte offsets absolute.
type SourceLocation struct {
	Line      int `json:"line"`
	Column    int `json:"column"`
	EndLine   int `json:"end_line"`
	EndColumn int `json:"end_column"`
	StartByte int `json:"start_byte"`
	EndByte   int `json:"end_byte"`
}

// Parameter describes a single function or method parameter.
type Parameter struct {
	Name         string `json:"name"`
	TypeHint     string `json:"type_hint,omitempty"`
	DefaultValue string `json:"default_value,omitempty"`
	IsArgs       bool   `json:"is_args,omitempty"`
	IsKwargs     bool   `json:"is_kwargs,omitempty"`
}

// Decorator describes one decorator application in declaration order.
type Decorator struct {
	Name      string          `json:"name"`
	Arguments []string        `json:"arguments,omitempty"`
	Location  *SourceLocation `json:"location,omitempty"`
}

// Written returns the decorator's written form, used both for fingerprinting
// and for DECORATES edge properties.
func (d Decorator) Written() string {
	if len(d.Arguments) > 0 {
		return "@" + d.Name + "(" + strings.Join(d.Arguments, ", ") + ")"
	}
	return "@" + d.Name
}

// Import describes one import statement.
type Import struct {
	ID            string          `json:"id"`
	ModuleName    string          `json:"module_name"`
	ImportedNames []string        `json:"imported_names,omitempty"`
	Aliases       map[string]string `json:"aliases,omitempty"`
	IsRelative    bool            `json:"is_relative,omitempty"`
	RelativeLevel int             `json:"relative_level,omitempty"`
	// ResolvedModule is the absolute dotted module name after relative
	// resolution. Empty for absolute imports (ModuleName already absolute).
	ResolvedModule string          `json:"resolved_module,omitempty"`
	Location       *SourceLocation `json:"location,omitempty"`
}

// AbsoluteModule returns the absolute dotted module name.
func (i Import) AbsoluteModule() string {
	if i.ResolvedModule != "" {
		return i.ResolvedModule
	}
	return i.ModuleName
}

// IsFromImport reports whether this is a 'from x import y' style import.
func (i Import) IsFromImport() bool {
	return len(i.ImportedNames) > 0
}

// Variable describes a module, class, instance, or function-local variable.
type Variable struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	TypeHint     string          `json:"type_hint,omitempty"`
	InitialValue string          `json:"initial_value,omitempty"`
	// Scope is one of "module", "class", "instance", "function".
	Scope      string          `json:"scope"`
	IsConstant bool            `json:"is_constant,omitempty"`
	Location   *SourceLocation `json:"location,omitempty"`
}

// Reference is a symbol use site recorded during extraction and resolved in
// the linker pass.
type Reference struct {
	Name string `json:"name"`
	// Kind is one of "call", "read", "write", "import".
	Kind       string          `json:"kind"`
	Location   *SourceLocation `json:"location,omitempty"`
	ContextID  string          `json:"context_id"`
	ResolvedID string          `json:"resolved_id,omitempty"`
}

// Function describes a function or method definition.
type Function struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	QualifiedName string          `json:"qualified_name"`
	Parameters    []Parameter     `json:"parameters,omitempty"`
	ReturnType    string          `json:"return_type,omitempty"`
	Decorators    []Decorator     `json:"decorators,omitempty"`
	Docstring     string          `json:"docstring,omitempty"`
	IsAsync       bool            `json:"is_async,omitempty"`
	IsGenerator   bool            `json:"is_generator,omitempty"`
	IsMethod      bool            `json:"is_method,omitempty"`
	IsClassMethod bool            `json:"is_classmethod,omitempty"`
	IsStaticMethod bool           `json:"is_staticmethod,omitempty"`
	IsProperty    bool            `json:"is_property,omitempty"`
	Complexity    int             `json:"complexity"`
	Location      *SourceLocation `json:"location,omitempty"`
	Variables     []Variable      `json:"variables,omitempty"`
	// Calls holds raw call names as written in source, pre-resolution.
	Calls      []Reference `json:"calls,omitempty"`
	References []Reference `json:"references,omitempty"`
	// BodyHash is the content hash of the function body bytes.
	BodyHash string `json:"body_hash,omitempty"`
}

// CallNames returns the written call names in source order.
func (f Function) CallNames() []string {
	names := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		names = append(names, c.Name)
	}
	return names
}

// Class describes a class definition.
type Class struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	QualifiedName     string          `json:"qualified_name"`
	Bases             []string        `json:"bases,omitempty"`
	Decorators        []Decorator     `json:"decorators,omitempty"`
	Docstring         string          `json:"docstring,omitempty"`
	IsAbstract        bool            `json:"is_abstract,omitempty"`
	Methods           []Function      `json:"methods,omitempty"`
	ClassVariables    []Variable      `json:"class_variables,omitempty"`
	InstanceVariables []Variable      `json:"instance_variables,omitempty"`
	NestedClasses     []Class         `json:"nested_classes,omitempty"`
	Location          *SourceLocation `json:"location,omitempty"`
	// ResolvedBases holds resolved base-class IDs, filled by the linker.
	ResolvedBases []string `json:"resolved_bases,omitempty"`
}

// AllVariables returns class and instance variables together.
func (c Class) AllVariables() []Variable {
	vars := make([]Variable, 0, len(c.ClassVariables)+len(c.InstanceVariables))
	vars = append(vars, c.ClassVariables...)
	vars = append(vars, c.InstanceVariables...)
	return vars
}

// Package describes a directory participating in the package convention
// (a directory containing __init__.py).
type Package struct {
	ID            string   `json:"id"`
	Path          string   `json:"path"`
	Name          string   `json:"name"`
	QualifiedName string   `json:"qualified_name"`
	ParentID      string   `json:"parent_id,omitempty"`
	Docstring     string   `json:"docstring,omitempty"`
	ChildPackages []string `json:"child_packages,omitempty"`
	ChildModules  []string `json:"child_modules,omitempty"`
}

// Module describes a single source file.
type Module struct {
	ID           string     `json:"id"`
	Path         string     `json:"path"`
	Name         string     `json:"name"`
	Package      string     `json:"package,omitempty"`
	Docstring    string     `json:"docstring,omitempty"`
	Imports      []Import   `json:"imports,omitempty"`
	Classes      []Class    `json:"classes,omitempty"`
	Functions    []Function `json:"functions,omitempty"`
	Variables    []Variable `json:"variables,omitempty"`
	LinesOfCode  int        `json:"lines_of_code"`
	Hash         string     `json:"hash,omitempty"`
}

// QualifiedName returns the dotted module name including its package.
func (m Module) QualifiedName() string {
	if m.Package != "" {
		return m.Package + "." + m.Name
	}
	return m.Name
}

// Relationship is a typed edge between two nodes, addressed by hierarchical IDs.
type Relationship struct {
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Type       RelKind        `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Result is the value produced by a complete analysis run. It is the
// analyzer's only output: external collaborators (the store emitter, the
// push channel, the HTTP surface) consume it.
type Result struct {
	Packages      []Package         `json:"packages"`
	Modules       []Module          `json:"modules"`
	Relationships []Relationship    `json:"relationships"`
	Fingerprints  map[string]string `json:"fingerprints"`
	Errors        []string          `json:"errors,omitempty"`
}

// TotalClasses counts classes across all modules, including nested ones.
func (r *Result) TotalClasses() int {
	n := 0
	for _, m := range r.Modules {
		for _, c := range m.Classes {
			n += 1 + countNested(c)
		}
	}
	return n
}

func countNested(c Class) int {
	n := 0
	for _, nc := range c.NestedClasses {
		n += 1 + countNested(nc)
	}
	return n
}

// TotalFunctions counts top-level functions and methods across all modules.
func (r *Result) TotalFunctions() int {
	n := 0
	for _, m := range r.Modules {
		n += len(m.Functions)
		for _, c := range m.Classes {
			n += countMethods(c)
		}
	}
	return n
}

func countMethods(c Class) int {
	n := len(c.Methods)
	for _, nc := range c.NestedClasses {
		n += countMethods(nc)
	}
	return n
}
