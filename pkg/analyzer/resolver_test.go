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

// link runs the full pass sequence over in-memory sources keyed by relative
// path. Files are processed in the order given; callers pass sorted paths.
func link(t *testing.T, sources map[string]string, order []string) (*Resolver, []Relationship) {
	t.Helper()

	files := make([]FileInfo, 0, len(order))
	for _, p := range order {
		files = append(files, FileInfo{Path: p, FullPath: "/" + p})
	}

	r := NewResolver("proj", nil)
	r.Pass0Packages(files)
	r.Pass1Modules(files)

	e := NewExtractor(nil)
	for _, p := range order {
		module, err := e.ExtractSource(context.Background(), []byte(sources[p]), p)
		if err != nil {
			t.Fatalf("extract %s: %v", p, err)
		}
		r.AddModule(module)
	}

	return r, r.Pass3Link()
}

func findRels(rels []Relationship, kind RelKind, sourceID, targetID string) []Relationship {
	var out []Relationship
	for _, rel := range rels {
		if rel.Type != kind {
			continue
		}
		if sourceID != "" && rel.SourceID != sourceID {
			continue
		}
		if targetID != "" && rel.TargetID != targetID {
			continue
		}
		out = append(out, rel)
	}
	return out
}

func TestResolver_SingleFileCalls(t *testing.T) {
	sources := map[string]string{
		"f.py": "def alpha():\n    beta()\n\ndef beta():\n    pass\n",
	}
	r, rels := link(t, sources, []string{"f.py"})

	if got := len(r.Modules()); got != 1 {
		t.Fatalf("expected 1 module, got %d", got)
	}

	if len(findRels(rels, RelContains, "f.py", "f.py::alpha")) != 1 {
		t.Errorf("missing CONTAINS module->alpha")
	}
	if len(findRels(rels, RelContains, "f.py", "f.py::beta")) != 1 {
		t.Errorf("missing CONTAINS module->beta")
	}

	calls := findRels(rels, RelCalls, "f.py::alpha", "f.py::beta")
	if len(calls) != 1 {
		t.Fatalf("expected CALLS alpha->beta, got %+v", rels)
	}
	if calls[0].Properties["call_name"] != "beta" {
		t.Errorf("expected call_name beta, got %v", calls[0].Properties)
	}
	if calls[0].Properties["call_count"] != 1 {
		t.Errorf("expected call_count 1, got %v", calls[0].Properties)
	}
}

func TestResolver_RelativeImport(t *testing.T) {
	sources := map[string]string{
		"a/__init__.py":   "",
		"a/b/__init__.py": "",
		"a/b/m.py":        "from .. import c\n",
		"a/c.py":          "def helper():\n    pass\n",
	}
	order := []string{"a/__init__.py", "a/b/__init__.py", "a/b/m.py", "a/c.py"}
	_, rels := link(t, sources, order)

	// Module-level IMPORTS edge to the package a.
	imports := findRels(rels, RelImports, "a/b/m.py", "a")
	if len(imports) != 1 {
		t.Fatalf("expected IMPORTS a/b/m.py -> a, got %+v", findRels(rels, RelImports, "a/b/m.py", ""))
	}
	if imports[0].Properties["is_relative"] != true {
		t.Errorf("expected is_relative true, got %v", imports[0].Properties)
	}

	// Symbol-level IMPORTS edge to a.c, which exists.
	symbol := findRels(rels, RelImports, "a/b/m.py", "a/c.py")
	if len(symbol) != 1 {
		t.Fatalf("expected symbol IMPORTS edge to a/c.py, got none")
	}
	if symbol[0].Properties["symbol_name"] != "c" {
		t.Errorf("expected symbol_name c, got %v", symbol[0].Properties)
	}
}

func TestResolver_CrossModuleInheritance(t *testing.T) {
	sources := map[string]string{
		"a.py": "class B:\n    pass\n",
		"b.py": "import a\n\nclass D(a.B):\n    pass\n",
	}
	_, rels := link(t, sources, []string{"a.py", "b.py"})

	inherits := findRels(rels, RelInherits, "b.py::D", "a.py::B")
	if len(inherits) != 1 {
		t.Fatalf("expected INHERITS b.py::D -> a.py::B, got %+v", findRels(rels, RelInherits, "", ""))
	}
	if inherits[0].Properties["base_name"] != "a.B" {
		t.Errorf("expected base_name a.B, got %v", inherits[0].Properties)
	}
	if inherits[0].Properties["order"] != 0 {
		t.Errorf("expected order 0, got %v", inherits[0].Properties)
	}
}

func TestResolver_ResolutionOrderPrefersClassScope(t *testing.T) {
	// helper exists both as a method and as a module-level function; a call
	// from inside the class resolves to the method (rule 2 before rule 3).
	sources := map[string]string{
		"m.py": `def helper():
    pass

class K:
    def helper(self):
        pass

    def run(self):
        helper()
`,
	}
	_, rels := link(t, sources, []string{"m.py"})

	toMethod := findRels(rels, RelCalls, "m.py::K::run", "m.py::K::helper")
	if len(toMethod) != 1 {
		t.Fatalf("expected call resolved to class scope, got %+v", findRels(rels, RelCalls, "m.py::K::run", ""))
	}
}

func TestResolver_SelfMethodCall(t *testing.T) {
	sources := map[string]string{
		"m.py": `class K:
    def a(self):
        self.b()

    def b(self):
        pass
`,
	}
	_, rels := link(t, sources, []string{"m.py"})

	calls := findRels(rels, RelCalls, "m.py::K::a", "m.py::K::b")
	if len(calls) != 1 {
		t.Fatalf("expected self.b() resolved to K.b, got %+v", findRels(rels, RelCalls, "m.py::K::a", ""))
	}
	if calls[0].Properties["call_name"] != "self.b" {
		t.Errorf("expected call_name self.b, got %v", calls[0].Properties)
	}
}

func TestResolver_ImportAliasCall(t *testing.T) {
	sources := map[string]string{
		"util.py": "def work():\n    pass\n",
		"app.py":  "from util import work as w\n\ndef main():\n    w()\n",
	}
	_, rels := link(t, sources, []string{"app.py", "util.py"})

	calls := findRels(rels, RelCalls, "app.py::main", "util.py::work")
	if len(calls) != 1 {
		t.Fatalf("expected aliased call resolved, got %+v", findRels(rels, RelCalls, "app.py::main", ""))
	}
	if calls[0].Properties["cross_module"] != true {
		t.Errorf("expected cross_module true, got %v", calls[0].Properties)
	}
}

func TestResolver_InstantiatesOnClassTarget(t *testing.T) {
	sources := map[string]string{
		"m.py": `class Widget:
    pass

def build():
    return Widget()
`,
	}
	_, rels := link(t, sources, []string{"m.py"})

	if len(findRels(rels, RelCalls, "m.py::build", "m.py::Widget")) != 1 {
		t.Errorf("expected CALLS build -> Widget")
	}
	inst := findRels(rels, RelInstantiates, "m.py::build", "m.py::Widget")
	if len(inst) != 1 {
		t.Fatalf("expected INSTANTIATES build -> Widget")
	}
	if inst[0].Properties["count"] != 1 {
		t.Errorf("expected count 1, got %v", inst[0].Properties)
	}
}

func TestResolver_DecoratesEdge(t *testing.T) {
	sources := map[string]string{
		"m.py": `def trace(fn):
    return fn

@trace
def target():
    pass
`,
	}
	_, rels := link(t, sources, []string{"m.py"})

	dec := findRels(rels, RelDecorates, "m.py::trace", "m.py::target")
	if len(dec) != 1 {
		t.Fatalf("expected DECORATES trace -> target, got %+v", findRels(rels, RelDecorates, "", ""))
	}
	if dec[0].Properties["decorator_order"] != 0 {
		t.Errorf("expected decorator_order 0, got %v", dec[0].Properties)
	}
}

func TestResolver_UnresolvedCallDropped(t *testing.T) {
	sources := map[string]string{
		"m.py": "def f():\n    print('x')\n    unknown_symbol()\n",
	}
	_, rels := link(t, sources, []string{"m.py"})

	if got := findRels(rels, RelCalls, "m.py::f", ""); len(got) != 0 {
		t.Errorf("unresolvable calls should be dropped, got %+v", got)
	}
}

func TestResolver_DeepAliasChainUnresolved(t *testing.T) {
	// Chained attribute access through an alias is resolved one level deep
	// only; deeper chains stay unresolved.
	sources := map[string]string{
		"x/__init__.py": "",
		"x/a.py":        "class B:\n    class C:\n        pass\n",
		"m.py":          "from x import a\n\ndef f():\n    a.B.C()\n",
	}
	_, rels := link(t, sources, []string{"m.py", "x/__init__.py", "x/a.py"})

	if got := findRels(rels, RelCalls, "m.py::f", ""); len(got) != 0 {
		t.Errorf("deep alias chain should stay unresolved, got %+v", got)
	}
}

func TestResolver_WildcardImportEmitsNoSymbolEdges(t *testing.T) {
	sources := map[string]string{
		"util.py": "def work():\n    pass\n",
		"app.py":  "from util import *\n",
	}
	_, rels := link(t, sources, []string{"app.py", "util.py"})

	moduleEdges := findRels(rels, RelImports, "app.py", "util.py")
	if len(moduleEdges) != 1 {
		t.Fatalf("expected module-level IMPORTS edge, got %+v", findRels(rels, RelImports, "app.py", ""))
	}
	if len(findRels(rels, RelImports, "app.py", "util.py::work")) != 0 {
		t.Errorf("wildcard import must not emit symbol-level edges")
	}
}

func TestResolver_PackageContainsModule(t *testing.T) {
	sources := map[string]string{
		"a/__init__.py": `"""Package a."""` + "\n",
		"a/m.py":        "",
	}
	r, rels := link(t, sources, []string{"a/__init__.py", "a/m.py"})

	if len(findRels(rels, RelContains, "a", "a/m.py")) != 1 {
		t.Errorf("expected package a CONTAINS a/m.py")
	}
	// The marker file itself is not a package child.
	if len(findRels(rels, RelContains, "a", "a/__init__.py")) != 0 {
		t.Errorf("marker file must not be a package child")
	}

	pkgs := r.Packages()
	if len(pkgs) != 1 {
		t.Fatalf("expected 1 package, got %d", len(pkgs))
	}
	if pkgs[0].Docstring != "Package a." {
		t.Errorf("package docstring should come from the marker file, got %q", pkgs[0].Docstring)
	}
}

func TestResolver_ContainsIsATree(t *testing.T) {
	sources := map[string]string{
		"a/__init__.py":   "",
		"a/b/__init__.py": "",
		"a/b/m.py": `class K:
    class N:
        def m(self):
            pass

    def method(self):
        pass

def free():
    pass
`,
	}
	_, rels := link(t, sources, []string{"a/__init__.py", "a/b/__init__.py", "a/b/m.py"})

	parents := make(map[string]string)
	for _, rel := range rels {
		if rel.Type != RelContains {
			continue
		}
		if prev, ok := parents[rel.TargetID]; ok {
			t.Errorf("node %s has two parents: %s and %s", rel.TargetID, prev, rel.SourceID)
		}
		parents[rel.TargetID] = rel.SourceID
	}

	// No CONTAINS cycles: following parents always terminates.
	for node := range parents {
		seen := map[string]bool{node: true}
		cur := node
		for {
			parent, ok := parents[cur]
			if !ok {
				break
			}
			if seen[parent] {
				t.Fatalf("CONTAINS cycle through %s", parent)
			}
			seen[parent] = true
			cur = parent
		}
	}
}

func TestResolver_QualifiedNameInjective(t *testing.T) {
	sources := map[string]string{
		"a/__init__.py": "",
		"a/m.py":        "def f():\n    pass\n\nclass C:\n    pass\n",
	}
	r, _ := link(t, sources, []string{"a/__init__.py", "a/m.py"})

	table := r.Table()
	seen := make(map[string]string)
	for _, qn := range table.QualifiedNames() {
		id, _ := table.LookupQualified(qn)
		if prev, ok := seen[qn]; ok && prev != id {
			t.Errorf("qualified name %s maps to both %s and %s", qn, prev, id)
		}
		seen[qn] = id
	}
}
