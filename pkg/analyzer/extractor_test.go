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
	"testing"
)

func extract(t *testing.T, source, relPath string) *Module {
	t.Helper()
	e := NewExtractor(nil)
	module, err := e.ExtractSource(context.Background(), []byte(source), relPath)
	if err != nil {
		t.Fatalf("ExtractSource failed: %v", err)
	}
	return module
}

func TestExtractor_TwoFunctionsWithCall(t *testing.T) {
	source := `def alpha():
    beta()

def beta():
    pass
`
	module := extract(t, source, "f.py")

	if len(module.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(module.Functions))
	}
	if module.Functions[0].ID != "f.py::alpha" {
		t.Errorf("expected id f.py::alpha, got %s", module.Functions[0].ID)
	}
	if module.Functions[1].ID != "f.py::beta" {
		t.Errorf("expected id f.py::beta, got %s", module.Functions[1].ID)
	}

	calls := module.Functions[0].CallNames()
	if len(calls) != 1 || calls[0] != "beta" {
		t.Errorf("expected alpha to call beta, got %v", calls)
	}
	if len(module.Functions[1].Calls) != 0 {
		t.Errorf("expected beta to call nothing, got %v", module.Functions[1].CallNames())
	}
}

func TestExtractor_ModuleDocstringAndVariables(t *testing.T) {
	source := `"""Module docs."""

MAX_SIZE = 100
name = "neurograph"
`
	module := extract(t, source, "pkg/mod.py")

	if module.Docstring != "Module docs." {
		t.Errorf("expected module docstring, got %q", module.Docstring)
	}
	if len(module.Variables) != 2 {
		t.Fatalf("expected 2 variables, got %d", len(module.Variables))
	}

	maxVar := module.Variables[0]
	if maxVar.Name != "MAX_SIZE" || !maxVar.IsConstant {
		t.Errorf("expected MAX_SIZE constant, got %+v", maxVar)
	}
	if maxVar.ID != "pkg/mod.py::MAX_SIZE" {
		t.Errorf("unexpected variable id %s", maxVar.ID)
	}
	if maxVar.Scope != "module" {
		t.Errorf("expected module scope, got %s", maxVar.Scope)
	}
	if module.Variables[1].IsConstant {
		t.Errorf("name should not be constant")
	}
}

func TestExtractor_ClassWithMethodsAndVariables(t *testing.T) {
	source := `class Reader:
    """Reads things."""

    buffer_size = 4096

    def __init__(self, path):
        self.path = path
        self.closed = False

    def read(self, n: int = -1) -> bytes:
        data = self.fetch(n)
        return data
`
	module := extract(t, source, "pkg/util/io.py")

	if len(module.Classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(module.Classes))
	}
	cls := module.Classes[0]

	if cls.ID != "pkg/util/io.py::Reader" {
		t.Errorf("unexpected class id %s", cls.ID)
	}
	if cls.QualifiedName != "pkg.util.io.Reader" {
		t.Errorf("unexpected qualified name %s", cls.QualifiedName)
	}
	if cls.Docstring != "Reads things." {
		t.Errorf("unexpected docstring %q", cls.Docstring)
	}

	if len(cls.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(cls.Methods))
	}
	read := cls.Methods[1]
	if read.ID != "pkg/util/io.py::Reader::read" {
		t.Errorf("unexpected method id %s", read.ID)
	}
	if !read.IsMethod {
		t.Errorf("read should be a method")
	}
	if read.ReturnType != "bytes" {
		t.Errorf("unexpected return type %q", read.ReturnType)
	}
	if len(read.Parameters) != 2 {
		t.Fatalf("expected 2 parameters, got %+v", read.Parameters)
	}
	if read.Parameters[1].Name != "n" || read.Parameters[1].TypeHint != "int" || read.Parameters[1].DefaultValue != "-1" {
		t.Errorf("unexpected parameter %+v", read.Parameters[1])
	}

	if len(cls.ClassVariables) != 1 || cls.ClassVariables[0].Name != "buffer_size" {
		t.Fatalf("expected class variable buffer_size, got %+v", cls.ClassVariables)
	}
	if cls.ClassVariables[0].Scope != "class" {
		t.Errorf("unexpected scope %s", cls.ClassVariables[0].Scope)
	}

	if len(cls.InstanceVariables) != 2 {
		t.Fatalf("expected 2 instance variables, got %+v", cls.InstanceVariables)
	}
	if cls.InstanceVariables[0].Name != "path" || cls.InstanceVariables[0].Scope != "instance" {
		t.Errorf("unexpected instance variable %+v", cls.InstanceVariables[0])
	}

	// Method-local variables are recorded with function scope.
	if len(read.Variables) != 1 || read.Variables[0].Name != "data" || read.Variables[0].Scope != "function" {
		t.Errorf("unexpected local variables %+v", read.Variables)
	}
}

func TestExtractor_NestedClassIDs(t *testing.T) {
	source := `class Outer:
    class Inner:
        def m(self):
            pass
`
	module := extract(t, source, "m.py")

	if len(module.Classes) != 1 || len(module.Classes[0].NestedClasses) != 1 {
		t.Fatalf("expected one nested class, got %+v", module.Classes)
	}
	inner := module.Classes[0].NestedClasses[0]
	if inner.ID != "m.py::Outer::Inner" {
		t.Errorf("unexpected nested class id %s", inner.ID)
	}
	if inner.QualifiedName != "m.Outer.Inner" {
		t.Errorf("unexpected nested qualified name %s", inner.QualifiedName)
	}
	if len(inner.Methods) != 1 || inner.Methods[0].ID != "m.py::Outer::Inner::m" {
		t.Errorf("unexpected nested method %+v", inner.Methods)
	}
}

func TestExtractor_DecoratorsAndFlags(t *testing.T) {
	source := `import functools

class Service:
    @classmethod
    def create(cls):
        return cls()

    @staticmethod
    def helper():
        pass

    @property
    def value(self):
        return 1

@functools.lru_cache(maxsize=10)
async def cached():
    yield 1
`
	module := extract(t, source, "svc.py")

	cls := module.Classes[0]
	if !cls.Methods[0].IsClassMethod {
		t.Errorf("create should be a classmethod")
	}
	if !cls.Methods[1].IsStaticMethod {
		t.Errorf("helper should be a staticmethod")
	}
	if !cls.Methods[2].IsProperty {
		t.Errorf("value should be a property")
	}

	if len(module.Functions) != 1 {
		t.Fatalf("expected one module-level function, got %d", len(module.Functions))
	}
	cached := module.Functions[0]
	if !cached.IsAsync {
		t.Errorf("cached should be async")
	}
	if !cached.IsGenerator {
		t.Errorf("cached should be a generator")
	}
	if len(cached.Decorators) != 1 {
		t.Fatalf("expected one decorator, got %+v", cached.Decorators)
	}
	dec := cached.Decorators[0]
	if dec.Name != "functools.lru_cache" {
		t.Errorf("unexpected decorator name %q", dec.Name)
	}
	if dec.Written() != "@functools.lru_cache(maxsize=10)" {
		t.Errorf("unexpected written form %q", dec.Written())
	}
}

func TestExtractor_GeneratorExcludesNestedFunctions(t *testing.T) {
	source := `def outer():
    def inner():
        yield 1
    return inner
`
	module := extract(t, source, "g.py")

	if module.Functions[0].IsGenerator {
		t.Errorf("outer should not be a generator: yield is inside a nested function")
	}
}

func TestExtractor_Complexity(t *testing.T) {
	// 1 base + if + elif + for + while + except + with + assert +
	// conditional expression + and = 10
	source := `def busy(a, b):
    if a:
        pass
    elif b:
        pass
    for i in range(3):
        pass
    while False:
        pass
    try:
        pass
    except ValueError:
        pass
    with open("x") as f:
        pass
    assert a
    c = 1 if a else 2
    return a and b
`
	module := extract(t, source, "c.py")

	if got := module.Functions[0].Complexity; got != 10 {
		t.Errorf("expected complexity 10, got %d", got)
	}
}

func TestExtractor_ComplexityIgnoresNestedDefs(t *testing.T) {
	source := `def outer():
    def inner(x):
        if x:
            pass
        return x
    return inner
`
	module := extract(t, source, "c.py")

	if got := module.Functions[0].Complexity; got != 1 {
		t.Errorf("expected complexity 1 for outer, got %d", got)
	}
}

func TestExtractor_Imports(t *testing.T) {
	source := `import os
import numpy as np
from pathlib import Path
from collections import OrderedDict as OD, defaultdict
from . import sibling
from ..common import helpers
from os.path import *
`
	module := extract(t, source, "a/b/mod.py")

	if len(module.Imports) != 7 {
		t.Fatalf("expected 7 imports, got %d: %+v", len(module.Imports), module.Imports)
	}

	osImp := module.Imports[0]
	if osImp.ModuleName != "os" || osImp.IsRelative {
		t.Errorf("unexpected import %+v", osImp)
	}

	np := module.Imports[1]
	if np.Aliases["numpy"] != "np" {
		t.Errorf("expected numpy aliased to np, got %+v", np.Aliases)
	}

	pathImp := module.Imports[2]
	if pathImp.ModuleName != "pathlib" || len(pathImp.ImportedNames) != 1 || pathImp.ImportedNames[0] != "Path" {
		t.Errorf("unexpected from-import %+v", pathImp)
	}

	coll := module.Imports[3]
	if len(coll.ImportedNames) != 2 {
		t.Errorf("expected 2 imported names, got %+v", coll.ImportedNames)
	}
	if coll.Aliases["OrderedDict"] != "OD" {
		t.Errorf("expected OrderedDict aliased to OD, got %+v", coll.Aliases)
	}

	sibling := module.Imports[4]
	if !sibling.IsRelative || sibling.RelativeLevel != 1 {
		t.Errorf("unexpected relative import %+v", sibling)
	}
	// Level 1 in package a.b resolves to a.b itself.
	if sibling.ResolvedModule != "a.b" {
		t.Errorf("expected resolved module a.b, got %q", sibling.ResolvedModule)
	}

	common := module.Imports[5]
	if common.RelativeLevel != 2 || common.ResolvedModule != "a.common" {
		t.Errorf("unexpected resolved module %+v", common)
	}

	wildcard := module.Imports[6]
	if len(wildcard.ImportedNames) != 1 || wildcard.ImportedNames[0] != "*" {
		t.Errorf("expected wildcard import, got %+v", wildcard)
	}
}

func TestExtractor_ParseFailureYieldsStub(t *testing.T) {
	e := NewExtractor(nil)
	module, err := e.ExtractFile(context.Background(), FileInfo{
		Path:     "missing.py",
		FullPath: "/nonexistent/missing.py",
	})
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if module == nil || module.ID != "missing.py" {
		t.Errorf("expected stub module with path populated, got %+v", module)
	}
}

func TestExtractor_VariadicParameters(t *testing.T) {
	source := `def call(*args, **kwargs):
    pass
`
	module := extract(t, source, "v.py")

	params := module.Functions[0].Parameters
	if len(params) != 2 {
		t.Fatalf("expected 2 parameters, got %+v", params)
	}
	if params[0].Name != "args" || !params[0].IsArgs {
		t.Errorf("unexpected *args parameter %+v", params[0])
	}
	if params[1].Name != "kwargs" || !params[1].IsKwargs {
		t.Errorf("unexpected **kwargs parameter %+v", params[1])
	}
}

func TestExtractor_UnderscoredNamesRetained(t *testing.T) {
	source := `_private = 1

def _helper():
    pass
`
	module := extract(t, source, "p.py")

	if len(module.Variables) != 1 || module.Variables[0].Name != "_private" {
		t.Errorf("underscored variable should be retained, got %+v", module.Variables)
	}
	if len(module.Functions) != 1 || module.Functions[0].Name != "_helper" {
		t.Errorf("underscored function should be retained, got %+v", module.Functions)
	}
}

func TestExtractor_AbstractClass(t *testing.T) {
	source := `from abc import ABC

class Base(ABC):
    pass

class Concrete(Base):
    pass
`
	module := extract(t, source, "abc_mod.py")

	if !module.Classes[0].IsAbstract {
		t.Errorf("Base should be abstract")
	}
	if module.Classes[1].IsAbstract {
		t.Errorf("Concrete should not be abstract")
	}
}

func TestExtractor_BodyHashChangesWithBody(t *testing.T) {
	a := extract(t, "def f():\n    return 1\n", "f.py")
	b := extract(t, "def f():\n    return 2\n", "f.py")

	if a.Functions[0].BodyHash == "" {
		t.Fatalf("body hash should be populated")
	}
	if a.Functions[0].BodyHash == b.Functions[0].BodyHash {
		t.Errorf("different bodies should hash differently")
	}
}

func TestModuleNameOf(t *testing.T) {
	tests := []struct {
		path       string
		wantModule string
		wantPkg    string
	}{
		{"a/b/m.py", "m", "a.b"},
		{"a/__init__.py", "a", ""},
		{"a/b/__init__.py", "b", "a"},
		{"top.py", "top", ""},
		{"__init__.py", "__init__", ""},
	}
	for _, tt := range tests {
		gotModule, gotPkg := moduleNameOf(tt.path)
		if gotModule != tt.wantModule || gotPkg != tt.wantPkg {
			t.Errorf("moduleNameOf(%q) = (%q, %q), want (%q, %q)",
				tt.path, gotModule, gotPkg, tt.wantModule, tt.wantPkg)
		}
	}
}
