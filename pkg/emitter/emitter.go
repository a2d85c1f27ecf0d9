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

// Package emitter translates a resolved analysis result into an ordered,
// idempotent stream of upsert operations for the external graph store.
package emitter

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/kraklabs/neurograph/pkg/analyzer"
	"github.com/kraklabs/neurograph/pkg/storage"
)

// Emitter converts analysis results into upsert streams.
//
// Ordering contract: node upserts for packages, then modules, then classes,
// then functions, then variables; then all CONTAINS/DEFINES edges; then all
// other edges. A relationship may reference only IDs appearing earlier in
// the stream or already present in the store.
type Emitter struct {
	logger *slog.Logger
}

// New creates an emitter.
func New(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger}
}

// Emit produces the ordered upsert stream for one analysis result. Emit is
// pure: calling it twice on the same result yields identical streams.
func (e *Emitter) Emit(result *analyzer.Result) []storage.Op {
	var ops []storage.Op

	node := func(label, id string, props map[string]any) {
		ops = append(ops, storage.Op{Node: &storage.NodeUpsert{Label: label, ID: id, Props: props}})
	}

	for _, pkg := range result.Packages {
		node("package", pkg.ID, map[string]any{
			"name":           pkg.Name,
			"qualified_name": pkg.QualifiedName,
			"path":           pkg.Path,
			"docstring":      pkg.Docstring,
		})
	}

	for _, m := range result.Modules {
		props := map[string]any{
			"name":           m.Name,
			"qualified_name": m.QualifiedName(),
			"path":           m.Path,
			"package":        m.Package,
			"docstring":      m.Docstring,
			"lines_of_code":  m.LinesOfCode,
		}
		if h, ok := result.Fingerprints[m.QualifiedName()]; ok {
			props["fingerprint"] = h
		}
		node("module", m.ID, props)
	}

	// Classes across all modules, nested ones after their containers.
	for _, m := range result.Modules {
		for ci := range m.Classes {
			e.emitClassNodes(&m.Classes[ci], result, node)
		}
	}

	// Functions: top-level then methods, in module order.
	for _, m := range result.Modules {
		for _, fn := range m.Functions {
			e.emitFunctionNode(fn, result, node)
		}
		for ci := range m.Classes {
			e.emitMethodNodes(&m.Classes[ci], result, node)
		}
	}

	// Variables of every scope.
	for _, m := range result.Modules {
		for _, v := range m.Variables {
			e.emitVariableNode(v, node)
		}
		for _, fn := range m.Functions {
			for _, v := range fn.Variables {
				e.emitVariableNode(v, node)
			}
		}
		for ci := range m.Classes {
			e.emitClassVariableNodes(&m.Classes[ci], node)
		}
	}

	// Structural edges before non-structural ones.
	var structural, other []storage.Op
	for _, rel := range result.Relationships {
		op := storage.Op{Edge: &storage.EdgeUpsert{
			Type:     string(rel.Type),
			SourceID: rel.SourceID,
			TargetID: rel.TargetID,
			Props:    rel.Properties,
		}}
		if rel.Type == analyzer.RelContains || rel.Type == analyzer.RelDefines {
			structural = append(structural, op)
		} else {
			other = append(other, op)
		}
	}
	ops = append(ops, structural...)
	ops = append(ops, other...)

	e.logger.Info("emit.complete",
		"nodes", len(ops)-len(structural)-len(other),
		"structural_edges", len(structural),
		"other_edges", len(other),
	)
	return ops
}

func (e *Emitter) emitClassNodes(cls *analyzer.Class, result *analyzer.Result, node func(string, string, map[string]any)) {
	props := map[string]any{
		"name":           cls.Name,
		"qualified_name": cls.QualifiedName,
		"bases":          append([]string{}, cls.Bases...),
		"is_abstract":    cls.IsAbstract,
		"docstring":      cls.Docstring,
	}
	if h, ok := result.Fingerprints[cls.QualifiedName]; ok {
		props["fingerprint"] = h
	}
	node("class", cls.ID, props)
	for ni := range cls.NestedClasses {
		e.emitClassNodes(&cls.NestedClasses[ni], result, node)
	}
}

func (e *Emitter) emitMethodNodes(cls *analyzer.Class, result *analyzer.Result, node func(string, string, map[string]any)) {
	for _, fn := range cls.Methods {
		e.emitFunctionNode(fn, result, node)
	}
	for ni := range cls.NestedClasses {
		e.emitMethodNodes(&cls.NestedClasses[ni], result, node)
	}
}

func (e *Emitter) emitFunctionNode(fn analyzer.Function, result *analyzer.Result, node func(string, string, map[string]any)) {
	params := make([]string, 0, len(fn.Parameters))
	for _, p := range fn.Parameters {
		params = append(params, p.Name)
	}
	props := map[string]any{
		"name":           fn.Name,
		"qualified_name": fn.QualifiedName,
		"parameters":     params,
		"return_type":    fn.ReturnType,
		"is_async":       fn.IsAsync,
		"is_generator":   fn.IsGenerator,
		"is_method":      fn.IsMethod,
		"complexity":     fn.Complexity,
		"docstring":      fn.Docstring,
	}
	if h, ok := result.Fingerprints[fn.QualifiedName]; ok {
		props["fingerprint"] = h
	}
	node("function", fn.ID, props)
}

func (e *Emitter) emitClassVariableNodes(cls *analyzer.Class, node func(string, string, map[string]any)) {
	for _, v := range cls.AllVariables() {
		e.emitVariableNode(v, node)
	}
	for _, fn := range cls.Methods {
		for _, v := range fn.Variables {
			e.emitVariableNode(v, node)
		}
	}
	for ni := range cls.NestedClasses {
		e.emitClassVariableNodes(&cls.NestedClasses[ni], node)
	}
}

func (e *Emitter) emitVariableNode(v analyzer.Variable, node func(string, string, map[string]any)) {
	node("variable", v.ID, map[string]any{
		"name":          v.Name,
		"scope":         v.Scope,
		"type_hint":     v.TypeHint,
		"initial_value": v.InitialValue,
		"is_constant":   v.IsConstant,
	})
}

// Validate checks the stream contract: every edge endpoint appears as a node
// earlier in the stream. Endpoints assumed pre-existing in the store must be
// listed in known.
func Validate(ops []storage.Op, known map[string]bool) error {
	seen := make(map[string]bool, len(ops))
	for k := range known {
		seen[k] = true
	}

	var missing []string
	for _, op := range ops {
		switch {
		case op.Node != nil:
			if op.Node.ID == "" {
				missing = append(missing, "(empty node id)")
				continue
			}
			seen[op.Node.ID] = true
		case op.Edge != nil:
			if !seen[op.Edge.SourceID] {
				missing = append(missing, op.Edge.SourceID)
			}
			if !seen[op.Edge.TargetID] {
				missing = append(missing, op.Edge.TargetID)
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("edge endpoints not present earlier in stream: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Apply streams the ops to a backend in order. Cancellation is checked per
// operation; retry policy for transient store errors belongs to the backend.
func (e *Emitter) Apply(ctx context.Context, backend storage.Backend, ops []storage.Op) error {
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case op.Node != nil:
			if err := backend.UpsertNode(ctx, *op.Node); err != nil {
				return fmt.Errorf("upsert node %d (%s): %w", i, op.Node.ID, err)
			}
		case op.Edge != nil:
			if err := backend.UpsertEdge(ctx, *op.Edge); err != nil {
				return fmt.Errorf("upsert edge %d (%s %s->%s): %w", i, op.Edge.Type, op.Edge.SourceID, op.Edge.TargetID, err)
			}
		}
	}
	return nil
}
