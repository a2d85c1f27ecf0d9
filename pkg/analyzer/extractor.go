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
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// maxValueText caps recorded initial-value texts so that one large literal
// does not dominate the record.
const maxValueText = 100

// Extractor converts one source file's concrete syntax tree into typed node
// records: module, classes, functions, variables, imports, decorators,
// parameters, and unresolved references.
//
// The extractor is error tolerant: a CST with recoverable syntax errors is
// processed best-effort. Only a completely failed parse yields an empty
// module record.
type Extractor struct {
	logger *slog.Logger

	// Parsers are not thread-safe; one per worker via the pool.
	parsers sync.Pool
	init    sync.Once
}

// NewExtractor creates a new extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

func (e *Extractor) initParsers() {
	e.init.Do(func() {
		e.parsers.New = func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(python.GetLanguage())
			return parser
		}
	})
}

// ExtractFile reads and extracts a single source file. The returned module is
// never nil: on read or parse failure it carries only path, name, and line
// count, alongside the returned error.
func (e *Extractor) ExtractFile(ctx context.Context, file FileInfo) (*Module, error) {
	content, err := os.ReadFile(file.FullPath)
	if err != nil {
		return stubModule(file.Path, nil), fmt.Errorf("read file: %w", err)
	}
	return e.ExtractSource(ctx, content, file.Path)
}

// ExtractSource extracts a module record from in-memory source bytes.
// relPath is the project-root-relative path that forms the ID prefix.
func (e *Extractor) ExtractSource(ctx context.Context, content []byte, relPath string) (*Module, error) {
	e.initParsers()

	parser, ok := e.parsers.Get().(*sitter.Parser)
	if !ok {
		return stubModule(relPath, content), fmt.Errorf("invalid parser type from pool")
	}
	defer e.parsers.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return stubModule(relPath, content), fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return stubModule(relPath, content), fmt.Errorf("tree-sitter parse: no tree produced")
	}
	if root.HasError() {
		e.logger.Warn("extract.syntax_errors",
			"path", relPath,
			"error_count", countErrorNodes(root),
		)
	}

	fx := &fileExtractor{content: content, path: relPath}
	moduleName, packageName := moduleNameOf(relPath)
	module := &Module{
		ID:          relPath,
		Path:        relPath,
		Name:        moduleName,
		Package:     packageName,
		LinesOfCode: bytes.Count(content, []byte("\n")) + 1,
	}

	module.Docstring = fx.extractDocstring(root)
	fx.extractTopLevel(root, module)

	return module, nil
}

// stubModule is what a failed read or parse produces: path, name, and line
// count only, per the skip-record-continue failure policy.
func stubModule(relPath string, content []byte) *Module {
	name, pkg := moduleNameOf(relPath)
	m := &Module{ID: relPath, Path: relPath, Name: name, Package: pkg}
	if len(content) > 0 {
		m.LinesOfCode = bytes.Count(content, []byte("\n")) + 1
	}
	return m
}

// countErrorNodes counts ERROR nodes in the CST.
func countErrorNodes(node *sitter.Node) int {
	count := 0
	if node.Type() == "ERROR" {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countErrorNodes(node.Child(i))
	}
	return count
}

// fileExtractor carries per-file extraction state.
type fileExtractor struct {
	content []byte
	path    string
}

func (fx *fileExtractor) text(node *sitter.Node) string {
	return string(fx.content[node.StartByte():node.EndByte()])
}

func (fx *fileExtractor) location(node *sitter.Node) *SourceLocation {
	return &SourceLocation{
		Line:      int(node.StartPoint().Row) + 1,
		Column:    int(node.StartPoint().Column),
		EndLine:   int(node.EndPoint().Row) + 1,
		EndColumn: int(node.EndPoint().Column),
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
	}
}

// extractTopLevel walks the module's direct children in source order.
func (fx *fileExtractor) extractTopLevel(root *sitter.Node, module *Module) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "import_statement":
			module.Imports = append(module.Imports, fx.parseImports(child, module)...)
		case "import_from_statement":
			module.Imports = append(module.Imports, fx.parseFromImport(child, module))
		case "class_definition":
			module.Classes = append(module.Classes, fx.parseClass(child, module.QualifiedName(), nil, nil))
		case "function_definition":
			module.Functions = append(module.Functions, fx.parseFunction(child, module.QualifiedName(), nil, false, nil))
		case "decorated_definition":
			fx.parseDecorated(child, module.QualifiedName(), nil, module, nil)
		case "expression_statement":
			if v := fx.parseAssignment(child, "module", nil); v != nil {
				module.Variables = append(module.Variables, *v)
			}
		}
	}
}

// extractDocstring returns the leading string literal of a block if it is the
// first non-comment statement.
func (fx *fileExtractor) extractDocstring(block *sitter.Node) string {
	for i := 0; i < int(block.ChildCount()); i++ {
		child := block.Child(i)
		switch child.Type() {
		case "expression_statement":
			if child.ChildCount() > 0 && child.Child(0).Type() == "string" {
				return cleanDocstring(fx.text(child.Child(0)))
			}
			return ""
		case "comment":
			continue
		default:
			return ""
		}
	}
	return ""
}

// cleanDocstring strips the surrounding quotes from a string literal.
func cleanDocstring(s string) string {
	switch {
	case strings.HasPrefix(s, `"""`) || strings.HasPrefix(s, "'''"):
		if len(s) >= 6 {
			return strings.TrimSpace(s[3 : len(s)-3])
		}
	case strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "'"):
		if len(s) >= 2 {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return strings.TrimSpace(s)
}

// parseImports parses 'import x, y as z' statements; one record per module.
func (fx *fileExtractor) parseImports(node *sitter.Node, module *Module) []Import {
	var imports []Import

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			name := fx.text(child)
			imports = append(imports, Import{
				ID:         NodeID(module.ID, "import", name),
				ModuleName: name,
				Location:   fx.location(child),
			})
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil {
				continue
			}
			name := fx.text(nameNode)
			imp := Import{
				ID:         NodeID(module.ID, "import", name),
				ModuleName: name,
				Location:   fx.location(child),
			}
			if aliasNode != nil {
				imp.Aliases = map[string]string{name: fx.text(aliasNode)}
			}
			imports = append(imports, imp)
		}
	}

	return imports
}

// parseFromImport parses a 'from x import y, z' statement.
//
// For a relative import of level dots in current package a.b.c, the base is
// the package truncated by level-1 trailing segments, with the written
// module (if any) appended.
func (fx *fileExtractor) parseFromImport(node *sitter.Node, module *Module) Import {
	imp := Import{Location: fx.location(node)}
	seenImportKeyword := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import":
			seenImportKeyword = true
		case "dotted_name":
			if !seenImportKeyword {
				imp.ModuleName = fx.text(child)
			} else {
				imp.ImportedNames = append(imp.ImportedNames, fx.text(child))
			}
		case "relative_import":
			for j := 0; j < int(child.ChildCount()); j++ {
				sub := child.Child(j)
				switch sub.Type() {
				case "import_prefix":
					imp.RelativeLevel = strings.Count(fx.text(sub), ".")
					imp.IsRelative = true
				case "dotted_name":
					imp.ModuleName = fx.text(sub)
				}
			}
		case "import_prefix":
			imp.RelativeLevel = strings.Count(fx.text(child), ".")
			imp.IsRelative = true
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil {
				continue
			}
			name := fx.text(nameNode)
			imp.ImportedNames = append(imp.ImportedNames, name)
			if aliasNode != nil {
				if imp.Aliases == nil {
					imp.Aliases = make(map[string]string)
				}
				imp.Aliases[name] = fx.text(aliasNode)
			}
		case "wildcard_import":
			imp.ImportedNames = append(imp.ImportedNames, "*")
		}
	}

	if imp.RelativeLevel > 0 {
		imp.ResolvedModule = resolveRelativeImport(module.Package, imp.ModuleName, imp.RelativeLevel)
	}
	imp.ID = NodeID(module.ID, "import", imp.AbsoluteModule())
	return imp
}

// resolveRelativeImport turns a relative import into an absolute dotted name.
func resolveRelativeImport(currentPackage, moduleName string, level int) string {
	if currentPackage == "" {
		return moduleName
	}
	parts := strings.Split(currentPackage, ".")
	if level > len(parts) {
		return moduleName
	}
	base := strings.Join(parts[:len(parts)-level+1], ".")
	if moduleName == "" {
		return base
	}
	if base == "" {
		return moduleName
	}
	return base + "." + moduleName
}

// parseDecorated gathers the decorator list and hands it to the underlying
// class or function definition. Exactly one of module/parentClass receives
// the produced record.
func (fx *fileExtractor) parseDecorated(node *sitter.Node, parentQualified string, scopes []string, module *Module, parentClass *Class) {
	var decorators []Decorator

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "decorator":
			if dec := fx.parseDecorator(child); dec != nil {
				decorators = append(decorators, *dec)
			}
		case "class_definition":
			cls := fx.parseClass(child, parentQualified, scopes, decorators)
			if parentClass != nil {
				parentClass.NestedClasses = append(parentClass.NestedClasses, cls)
			} else {
				module.Classes = append(module.Classes, cls)
			}
		case "function_definition":
			fn := fx.parseFunction(child, parentQualified, scopes, parentClass != nil, decorators)
			if parentClass != nil {
				parentClass.Methods = append(parentClass.Methods, fn)
				if fn.Name == "__init__" {
					parentClass.InstanceVariables = append(parentClass.InstanceVariables,
						fx.extractInstanceVariables(child, scopes)...)
				}
			} else {
				module.Functions = append(module.Functions, fn)
			}
		}
	}
}

// parseDecorator parses one decorator application.
func (fx *fileExtractor) parseDecorator(node *sitter.Node) *Decorator {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier", "attribute", "dotted_name":
			return &Decorator{Name: fx.text(child), Location: fx.location(node)}
		case "call":
			dec := &Decorator{Location: fx.location(node)}
			if funcNode := child.ChildByFieldName("function"); funcNode != nil {
				dec.Name = fx.text(funcNode)
			}
			if argsNode := child.ChildByFieldName("arguments"); argsNode != nil {
				for j := 0; j < int(argsNode.ChildCount()); j++ {
					arg := argsNode.Child(j)
					switch arg.Type() {
					case "(", ")", ",", "comment":
					default:
						dec.Arguments = append(dec.Arguments, fx.text(arg))
					}
				}
			}
			if dec.Name != "" {
				return dec
			}
		}
	}
	return nil
}

// parseClass parses a class definition and recursively its body.
func (fx *fileExtractor) parseClass(node *sitter.Node, parentQualified string, parentScopes []string, decorators []Decorator) Class {
	cls := Class{
		Decorators: decorators,
		Location:   fx.location(node),
	}

	nameNode := node.ChildByFieldName("name")
	if nameNode != nil {
		cls.Name = fx.text(nameNode)
	}
	scopes := append(append([]string{}, parentScopes...), cls.Name)
	cls.ID = NodeID(fx.path, scopes...)
	if parentQualified != "" {
		cls.QualifiedName = parentQualified + "." + cls.Name
	} else {
		cls.QualifiedName = cls.Name
	}

	if basesNode := node.ChildByFieldName("superclasses"); basesNode != nil {
		for i := 0; i < int(basesNode.ChildCount()); i++ {
			child := basesNode.Child(i)
			switch child.Type() {
			case "identifier", "attribute":
				cls.Bases = append(cls.Bases, fx.text(child))
			}
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		cls.Docstring = fx.extractDocstring(body)
		fx.parseClassBody(body, &cls, scopes)
	}

	cls.IsAbstract = isAbstract(cls.Decorators, cls.Bases)
	return cls
}

// isAbstract applies the abstract-class convention: an ABC/ABCMeta base or an
// abstractmethod-family decorator.
func isAbstract(decorators []Decorator, bases []string) bool {
	for _, d := range decorators {
		switch d.Name {
		case "abstractmethod", "ABC", "ABCMeta":
			return true
		}
	}
	for _, b := range bases {
		if b == "ABC" || b == "ABCMeta" || strings.HasSuffix(b, ".ABC") || strings.HasSuffix(b, ".ABCMeta") {
			return true
		}
	}
	return false
}

// parseClassBody gathers methods, class variables, and nested classes.
func (fx *fileExtractor) parseClassBody(body *sitter.Node, cls *Class, scopes []string) {
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "function_definition":
			method := fx.parseFunction(child, cls.QualifiedName, scopes, true, nil)
			cls.Methods = append(cls.Methods, method)
			if method.Name == "__init__" {
				cls.InstanceVariables = append(cls.InstanceVariables,
					fx.extractInstanceVariables(child, scopes)...)
			}
		case "class_definition":
			cls.NestedClasses = append(cls.NestedClasses, fx.parseClass(child, cls.QualifiedName, scopes, nil))
		case "decorated_definition":
			fx.parseDecorated(child, cls.QualifiedName, scopes, nil, cls)
		case "expression_statement":
			if v := fx.parseAssignment(child, "class", scopes); v != nil {
				cls.ClassVariables = append(cls.ClassVariables, *v)
			}
		}
	}
}

// parseFunction parses a function or method definition.
func (fx *fileExtractor) parseFunction(node *sitter.Node, parentQualified string, parentScopes []string, isMethod bool, decorators []Decorator) Function {
	fn := Function{
		Decorators: decorators,
		IsMethod:   isMethod,
		Complexity: 1,
		Location:   fx.location(node),
	}

	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		fn.Name = fx.text(nameNode)
	}
	scopes := append(append([]string{}, parentScopes...), fn.Name)
	fn.ID = NodeID(fx.path, scopes...)
	if parentQualified != "" {
		fn.QualifiedName = parentQualified + "." + fn.Name
	} else {
		fn.QualifiedName = fn.Name
	}

	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		fn.Parameters = fx.parseParameters(paramsNode)
	}
	if returnNode := node.ChildByFieldName("return_type"); returnNode != nil {
		fn.ReturnType = fx.text(returnNode)
	}
	if node.ChildCount() > 0 && node.Child(0).Type() == "async" {
		fn.IsAsync = true
	}

	for _, d := range fn.Decorators {
		switch d.Name {
		case "classmethod":
			fn.IsClassMethod = true
		case "staticmethod":
			fn.IsStaticMethod = true
		case "property":
			fn.IsProperty = true
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		fn.Docstring = fx.extractDocstring(body)
		fn.Complexity = fx.complexity(body)
		fn.IsGenerator = hasYield(body)
		fn.Calls = fx.extractCalls(body, fn.ID)
		fn.Variables = fx.extractLocalVariables(body, scopes)
		fn.BodyHash = hashBytes(fx.content[body.StartByte():body.EndByte()])
	}

	return fn
}

// hashBytes is the content hash used for function bodies.
func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// parseParameters parses the declaration-ordered parameter list.
func (fx *fileExtractor) parseParameters(node *sitter.Node) []Parameter {
	var params []Parameter

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		var p Parameter
		switch child.Type() {
		case "identifier":
			p.Name = fx.text(child)
		case "typed_parameter":
			nameNode := child.ChildByFieldName("name")
			if nameNode == nil && child.NamedChildCount() > 0 {
				nameNode = child.NamedChild(0)
			}
			if nameNode != nil {
				p.Name = fx.text(nameNode)
			}
			if typeNode := child.ChildByFieldName("type"); typeNode != nil {
				p.TypeHint = fx.text(typeNode)
			}
		case "default_parameter":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				p.Name = fx.text(nameNode)
			}
			if valueNode := child.ChildByFieldName("value"); valueNode != nil {
				p.DefaultValue = fx.text(valueNode)
			}
		case "typed_default_parameter":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				p.Name = fx.text(nameNode)
			}
			if typeNode := child.ChildByFieldName("type"); typeNode != nil {
				p.TypeHint = fx.text(typeNode)
			}
			if valueNode := child.ChildByFieldName("value"); valueNode != nil {
				p.DefaultValue = fx.text(valueNode)
			}
		case "list_splat_pattern":
			for j := 0; j < int(child.ChildCount()); j++ {
				if child.Child(j).Type() == "identifier" {
					p.Name = fx.text(child.Child(j))
					p.IsArgs = true
					break
				}
			}
		case "dictionary_splat_pattern":
			for j := 0; j < int(child.ChildCount()); j++ {
				if child.Child(j).Type() == "identifier" {
					p.Name = fx.text(child.Child(j))
					p.IsKwargs = true
					break
				}
			}
		default:
			continue
		}
		if p.Name != "" {
			params = append(params, p)
		}
	}

	return params
}

// parseAssignment parses an expression statement whose inner form is an
// assignment to a plain identifier. scope is the tag recorded on the record.
func (fx *fileExtractor) parseAssignment(node *sitter.Node, scope string, parentScopes []string) *Variable {
	if node.ChildCount() == 0 {
		return nil
	}
	expr := node.Child(0)
	if expr.Type() != "assignment" {
		return nil
	}

	left := expr.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return nil
	}
	name := fx.text(left)

	v := &Variable{
		ID:         NodeID(fx.path, append(append([]string{}, parentScopes...), name)...),
		Name:       name,
		Scope:      scope,
		IsConstant: isConstantName(name),
		Location:   fx.location(node),
	}
	if typeNode := expr.ChildByFieldName("type"); typeNode != nil {
		v.TypeHint = fx.text(typeNode)
	}
	if right := expr.ChildByFieldName("right"); right != nil {
		v.InitialValue = truncateValue(fx.text(right))
	}
	return v
}

// isConstantName applies the SHOUT_CASE constant convention.
func isConstantName(name string) bool {
	hasUpper := false
	for _, r := range name {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasUpper = true
		}
	}
	return hasUpper
}

func truncateValue(s string) string {
	if len(s) > maxValueText {
		return s[:maxValueText]
	}
	return s
}

// extractInstanceVariables scans an __init__ body for 'self.attr = expr'
// assignments. Records are attributed to the owning class scope.
func (fx *fileExtractor) extractInstanceVariables(initNode *sitter.Node, classScopes []string) []Variable {
	var vars []Variable

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node.Type() == "assignment" {
			left := node.ChildByFieldName("left")
			if left != nil && left.Type() == "attribute" {
				obj := left.ChildByFieldName("object")
				attr := left.ChildByFieldName("attribute")
				if obj != nil && attr != nil && fx.text(obj) == "self" {
					name := fx.text(attr)
					v := Variable{
						ID:       NodeID(fx.path, append(append([]string{}, classScopes...), name)...),
						Name:     name,
						Scope:    "instance",
						Location: fx.location(node),
					}
					if right := node.ChildByFieldName("right"); right != nil {
						v.InitialValue = truncateValue(fx.text(right))
					}
					vars = append(vars, v)
				}
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}

	walk(initNode)
	return vars
}

// extractLocalVariables collects function-local identifier assignments,
// first occurrence per name, without entering nested definitions.
func (fx *fileExtractor) extractLocalVariables(body *sitter.Node, funcScopes []string) []Variable {
	var vars []Variable
	seen := make(map[string]bool)

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node.Type() == "assignment" {
			left := node.ChildByFieldName("left")
			if left != nil && left.Type() == "identifier" {
				name := fx.text(left)
				if !seen[name] {
					seen[name] = true
					v := Variable{
						ID:       NodeID(fx.path, append(append([]string{}, funcScopes...), name)...),
						Name:     name,
						Scope:    "function",
						Location: fx.location(node),
					}
					if typeNode := node.ChildByFieldName("type"); typeNode != nil {
						v.TypeHint = fx.text(typeNode)
					}
					if right := node.ChildByFieldName("right"); right != nil {
						v.InitialValue = truncateValue(fx.text(right))
					}
					vars = append(vars, v)
				}
			}
		}
		if node.Type() == "function_definition" || node.Type() == "class_definition" {
			return
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}

	for i := 0; i < int(body.ChildCount()); i++ {
		walk(body.Child(i))
	}
	return vars
}

// extractCalls records the function part of every call expression in a body,
// in source order, without entering nested definitions.
func (fx *fileExtractor) extractCalls(body *sitter.Node, contextID string) []Reference {
	var calls []Reference

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node.Type() == "call" {
			if funcNode := node.ChildByFieldName("function"); funcNode != nil {
				calls = append(calls, Reference{
					Name:      fx.text(funcNode),
					Kind:      "call",
					Location:  fx.location(funcNode),
					ContextID: contextID,
				})
			}
		}
		if node.Type() == "function_definition" || node.Type() == "class_definition" {
			return
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}

	for i := 0; i < int(body.ChildCount()); i++ {
		walk(body.Child(i))
	}
	return calls
}

// complexity computes cyclomatic complexity: 1 plus one per decision point.
// Nested definitions keep their own complexity and are not traversed.
func (fx *fileExtractor) complexity(body *sitter.Node) int {
	complexity := 1

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		switch node.Type() {
		case "if_statement", "elif_clause", "for_statement", "while_statement",
			"except_clause", "with_statement", "assert_statement",
			"conditional_expression":
			complexity++
		case "boolean_operator":
			if node.ChildCount() > 1 {
				op := fx.text(node.Child(1))
				if op == "and" || op == "or" {
					complexity++
				}
			}
		case "function_definition", "class_definition":
			return
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}

	for i := 0; i < int(body.ChildCount()); i++ {
		walk(body.Child(i))
	}
	return complexity
}

// hasYield reports whether a body contains a yield form outside nested
// functions.
func hasYield(body *sitter.Node) bool {
	var walk func(node *sitter.Node) bool
	walk = func(node *sitter.Node) bool {
		if node.Type() == "yield" {
			return true
		}
		if node.Type() == "function_definition" {
			return false
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			if walk(node.Child(i)) {
				return true
			}
		}
		return false
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		if walk(body.Child(i)) {
			return true
		}
	}
	return false
}
