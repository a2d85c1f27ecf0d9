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
	"testing"

	"github.com/kraklabs/neurograph/pkg/analyzer"
)

func extractModule(t *testing.T, source, relPath string) *analyzer.Module {
	t.Helper()
	e := analyzer.NewExtractor(nil)
	module, err := e.ExtractSource(context.Background(), []byte(source), relPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return module
}

func TestHasher_Deterministic(t *testing.T) {
	source := "def f(a, b=1):\n    return a\n"
	h := NewHasher(true)

	m1 := extractModule(t, source, "m.py")
	m2 := extractModule(t, source, "m.py")

	if h.HashModule(m1) != h.HashModule(m2) {
		t.Errorf("identical content must hash identically")
	}
}

func TestHasher_MerkleProperty(t *testing.T) {
	// Mutating a descendant (method body) changes the class hash and the
	// module hash.
	before := `class K:
    def m(self):
        return 1
`
	after := `class K:
    def m(self):
        return 2
`
	h := NewHasher(true)
	m1 := extractModule(t, before, "m.py")
	m2 := extractModule(t, after, "m.py")

	h1 := h.HashTree(m1)
	h2 := h.HashTree(m2)

	if h1["m.K.m"] == h2["m.K.m"] {
		t.Errorf("method hash should change")
	}
	if h1["m.K"] == h2["m.K"] {
		t.Errorf("class hash should change when a method changes")
	}
	if h1["m"] == h2["m"] {
		t.Errorf("module hash should change when a descendant changes")
	}
}

func TestHasher_SiblingOrderInsensitivity(t *testing.T) {
	// Moving g above f changes neither the function hashes nor the module
	// hash.
	a := `def f():
    return 1

def g():
    return 2
`
	b := `def g():
    return 2

def f():
    return 1
`
	h := NewHasher(true)
	m1 := extractModule(t, a, "m.py")
	m2 := extractModule(t, b, "m.py")

	h1 := h.HashTree(m1)
	h2 := h.HashTree(m2)

	if h1["m.f"] != h2["m.f"] {
		t.Errorf("f hash changed on sibling reorder")
	}
	if h1["m.g"] != h2["m.g"] {
		t.Errorf("g hash changed on sibling reorder")
	}
	if h1["m"] != h2["m"] {
		t.Errorf("module hash changed on sibling reorder")
	}
}

func TestHasher_DecoratorOrderSensitivity(t *testing.T) {
	a := `@dec1
@dec2
def f():
    pass
`
	b := `@dec2
@dec1
def f():
    pass
`
	h := NewHasher(true)
	m1 := extractModule(t, a, "m.py")
	m2 := extractModule(t, b, "m.py")

	h1 := h.HashTree(m1)
	h2 := h.HashTree(m2)

	if h1["m.f"] == h2["m.f"] {
		t.Errorf("swapping decorators must change the function hash")
	}
	if h1["m"] == h2["m"] {
		t.Errorf("swapping decorators must change the module hash")
	}
}

func TestHasher_ParameterOrderSensitivity(t *testing.T) {
	h := NewHasher(true)
	m1 := extractModule(t, "def f(a, b):\n    pass\n", "m.py")
	m2 := extractModule(t, "def f(b, a):\n    pass\n", "m.py")

	if h.HashFunction(m1.Functions[0]) == h.HashFunction(m2.Functions[0]) {
		t.Errorf("parameter order is behaviorally significant")
	}
}

func TestHasher_DocstringFlag(t *testing.T) {
	a := "def f():\n    \"\"\"Docs A.\"\"\"\n    return 1\n"
	b := "def f():\n    \"\"\"Docs B.\"\"\"\n    return 1\n"

	withDocs := NewHasher(true)
	m1 := extractModule(t, a, "m.py")
	m2 := extractModule(t, b, "m.py")
	if withDocs.HashFunction(m1.Functions[0]) == withDocs.HashFunction(m2.Functions[0]) {
		t.Errorf("docstring change should affect hash when included")
	}

	// The docstring still shifts the body bytes, so compare function hashes
	// built from records with the body hash cleared.
	withoutDocs := NewHasher(false)
	f1, f2 := m1.Functions[0], m2.Functions[0]
	f1.BodyHash = ""
	f2.BodyHash = ""
	if withoutDocs.HashFunction(f1) != withoutDocs.HashFunction(f2) {
		t.Errorf("docstring change should not affect hash when excluded")
	}
}

func TestHasher_ImportComponents(t *testing.T) {
	h := NewHasher(true)

	rel := analyzer.Import{ModuleName: "util", IsRelative: true, RelativeLevel: 2}
	abs := analyzer.Import{ModuleName: "util"}
	if h.HashImport(rel) == h.HashImport(abs) {
		t.Errorf("relative marker must affect the import hash")
	}

	// Imported-name order is irrelevant (sorted).
	x := analyzer.Import{ModuleName: "util", ImportedNames: []string{"a", "b"}}
	y := analyzer.Import{ModuleName: "util", ImportedNames: []string{"b", "a"}}
	if h.HashImport(x) != h.HashImport(y) {
		t.Errorf("imported-name order must not affect the import hash")
	}
}

func TestHasher_VariableComponents(t *testing.T) {
	h := NewHasher(true)

	v1 := analyzer.Variable{Name: "x", TypeHint: "int", InitialValue: "1"}
	v2 := analyzer.Variable{Name: "x", TypeHint: "int", InitialValue: "2"}
	v3 := analyzer.Variable{Name: "x", TypeHint: "int", InitialValue: "1"}

	if h.HashVariable(v1) == h.HashVariable(v2) {
		t.Errorf("initial value must affect the variable hash")
	}
	if h.HashVariable(v1) != h.HashVariable(v3) {
		t.Errorf("identical variables must hash identically")
	}
}

func TestHasher_TreeCoversAllNodes(t *testing.T) {
	source := `"""Docs."""

import os

TOP = 1


class K:
    attr = 2

    def __init__(self):
        self.inst = 3

    def m(self):
        pass

    class N:
        pass


def free():
    pass
`
	h := NewHasher(true)
	module := extractModule(t, source, "m.py")
	hashes := h.HashTree(module)

	for _, key := range []string{
		"m", "m.K", "m.K.__init__", "m.K.m", "m.K.N",
		"m.K.attr", "m.K.inst", "m.free", "m.TOP",
		"m.__import_0__",
	} {
		if _, ok := hashes[key]; !ok {
			t.Errorf("hash tree missing %s (have %d entries)", key, len(hashes))
		}
	}

	if module.Hash == "" || module.Hash != hashes["m"] {
		t.Errorf("module record hash should be set to the tree root hash")
	}
}

func TestCompareHashes(t *testing.T) {
	old := map[string]string{"a": "1", "b": "2", "c": "3"}
	new_ := map[string]string{"b": "2", "c": "9", "d": "4"}

	added, removed, modified := CompareHashes(old, new_)

	if !added["d"] || len(added) != 1 {
		t.Errorf("unexpected added %v", added)
	}
	if !removed["a"] || len(removed) != 1 {
		t.Errorf("unexpected removed %v", removed)
	}
	if !modified["c"] || len(modified) != 1 {
		t.Errorf("unexpected modified %v", modified)
	}
}
