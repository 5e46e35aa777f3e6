// # internal/engine/parser/javascript.go
package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/heystewart/knip/internal/engine/graph"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

var jsDocTagPattern = regexp.MustCompile(`@([A-Za-z][\w-]*)`)

// jsExtractor reads ES module syntax shared by the JavaScript, TypeScript
// and TSX grammars.
type jsExtractor struct{}

func (x *jsExtractor) Extract(root *sitter.Node, source []byte, filePath, lang string) (*File, error) {
	file := &File{
		Path:          filePath,
		Language:      lang,
		NamespaceRefs: make(map[string]graph.Set),
		ParsedAt:      time.Now(),
	}
	if root == nil {
		return file, nil
	}

	w := &jsWalker{source: source, file: file, namespaces: make(map[string]bool)}

	// Top-level statements first so namespace bindings are known before
	// member accesses are collected.
	for i := uint(0); i < root.ChildCount(); i++ {
		node := root.Child(i)
		if node == nil {
			continue
		}
		switch node.Kind() {
		case "import_statement":
			w.importStatement(node)
		case "export_statement":
			w.exportStatement(node)
		}
	}
	w.walkExpressions(root)
	return file, nil
}

type jsWalker struct {
	source     []byte
	file       *File
	namespaces map[string]bool
}

func (w *jsWalker) text(n *sitter.Node) string {
	return nodeText(n, w.source)
}

func (w *jsWalker) addImport(n *sitter.Node, imp Import) {
	imp.Line, imp.Col = position(n)
	w.file.Imports = append(w.file.Imports, imp)
}

func (w *jsWalker) importStatement(n *sitter.Node) {
	spec := trimQuoted(w.text(n.ChildByFieldName("source")))
	if spec == "" {
		return
	}
	typeOnly := hasChildKind(n, "type")

	clause := childOfKind(n, "import_clause")
	if clause == nil {
		w.addImport(n, Import{Specifier: spec, Kind: ImportSideEffect, TypeOnly: typeOnly})
		return
	}

	for i := uint(0); i < clause.ChildCount(); i++ {
		c := clause.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "identifier":
			w.addImport(c, Import{
				Specifier:  spec,
				Kind:       ImportDefault,
				Identifier: "default",
				Alias:      w.text(c),
				TypeOnly:   typeOnly,
			})
		case "namespace_import":
			binding := w.text(lastChildOfKind(c, "identifier"))
			if binding == "" {
				continue
			}
			w.namespaces[binding] = true
			w.addImport(c, Import{
				Specifier:  spec,
				Kind:       ImportNamespace,
				Identifier: "*",
				Alias:      binding,
				TypeOnly:   typeOnly,
			})
		case "named_imports":
			for j := uint(0); j < c.NamedChildCount(); j++ {
				s := c.NamedChild(j)
				if s == nil || s.Kind() != "import_specifier" {
					continue
				}
				name := trimQuoted(w.text(s.ChildByFieldName("name")))
				if name == "" {
					continue
				}
				imp := Import{
					Specifier:  spec,
					Kind:       ImportNamed,
					Identifier: name,
					TypeOnly:   typeOnly || hasChildKind(s, "type"),
				}
				if alias := w.text(s.ChildByFieldName("alias")); alias != "" && alias != name {
					imp.Alias = alias
				}
				w.addImport(s, imp)
			}
		}
	}
}

func (w *jsWalker) exportStatement(n *sitter.Node) {
	if src := n.ChildByFieldName("source"); src != nil {
		w.reExport(n, trimQuoted(w.text(src)))
		return
	}

	tags := w.jsDocTags(n)
	decl := n.ChildByFieldName("declaration")

	if hasChildKind(n, "default") {
		exp := graph.NewExport("default")
		exp.Type = graph.KindDefault
		target := n.ChildByFieldName("value")
		if decl != nil {
			target = decl
			if kind, _ := declarationKind(decl); kind != graph.KindUnknown {
				exp.Type = kind
			}
			exp.Members = w.members(decl)
		}
		setPosition(exp, n)
		exp.JSDocTags.Add(tags...)
		if target != nil {
			exp.Fixes = append(exp.Fixes, graph.Fix{Start: int(n.StartByte()), End: int(target.StartByte())})
		}
		w.file.Exports = append(w.file.Exports, exp)
		return
	}

	if decl != nil {
		w.declarationExports(n, decl, tags)
		return
	}

	clause := childOfKind(n, "export_clause")
	if clause == nil {
		return
	}
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		s := clause.NamedChild(i)
		if s == nil || s.Kind() != "export_specifier" {
			continue
		}
		name := trimQuoted(w.text(s.ChildByFieldName("name")))
		exported := trimQuoted(w.text(s.ChildByFieldName("alias")))
		if exported == "" {
			exported = name
		}
		if exported == "" {
			continue
		}
		exp := graph.NewExport(exported)
		setPosition(exp, s)
		exp.JSDocTags.Add(tags...)
		exp.Fixes = append(exp.Fixes, graph.Fix{Start: int(s.StartByte()), End: int(s.EndByte())})
		w.file.Exports = append(w.file.Exports, exp)
	}
}

func (w *jsWalker) reExport(n *sitter.Node, spec string) {
	if spec == "" {
		return
	}
	typeOnly := hasChildKind(n, "type")

	if ns := childOfKind(n, "namespace_export"); ns != nil {
		alias := trimQuoted(w.text(lastNamedChild(ns)))
		w.addImport(ns, Import{Specifier: spec, Kind: ReExportNamespace, Identifier: "*", Alias: alias, TypeOnly: typeOnly})
		return
	}

	clause := childOfKind(n, "export_clause")
	if clause == nil {
		w.addImport(n, Import{Specifier: spec, Kind: ReExportAll, Identifier: "*", TypeOnly: typeOnly})
		return
	}
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		s := clause.NamedChild(i)
		if s == nil || s.Kind() != "export_specifier" {
			continue
		}
		name := trimQuoted(w.text(s.ChildByFieldName("name")))
		if name == "" {
			continue
		}
		imp := Import{
			Specifier:  spec,
			Kind:       ReExportNamed,
			Identifier: name,
			TypeOnly:   typeOnly || hasChildKind(s, "type"),
		}
		if alias := trimQuoted(w.text(s.ChildByFieldName("alias"))); alias != "" && alias != name {
			imp.Alias = alias
		}
		w.addImport(s, imp)
	}
}

func (w *jsWalker) declarationExports(stmt, decl *sitter.Node, tags []string) {
	if decl.Kind() == "ambient_declaration" {
		if inner := firstNamedChild(decl); inner != nil {
			decl = inner
		}
	}
	fix := graph.Fix{Start: int(stmt.StartByte()), End: int(decl.StartByte())}

	kind, named := declarationKind(decl)
	var names []*sitter.Node
	if named {
		names = append(names, decl.ChildByFieldName("name"))
	} else if kind == graph.KindVariable {
		for i := uint(0); i < decl.NamedChildCount(); i++ {
			d := decl.NamedChild(i)
			if d != nil && d.Kind() == "variable_declarator" {
				names = append(names, bindingIdentifiers(d.ChildByFieldName("name"))...)
			}
		}
	}

	members := w.members(decl)
	for _, nameNode := range names {
		name := w.text(nameNode)
		if name == "" {
			continue
		}
		exp := graph.NewExport(name)
		exp.Type = kind
		setPosition(exp, nameNode)
		exp.Members = append(exp.Members, members...)
		exp.JSDocTags.Add(tags...)
		exp.Fixes = append(exp.Fixes, fix)
		w.file.Exports = append(w.file.Exports, exp)
	}
}

// declarationKind maps a declaration node to its symbol kind. named is true
// when the node carries a single "name" field.
func declarationKind(decl *sitter.Node) (kind graph.SymbolKind, named bool) {
	switch decl.Kind() {
	case "function_declaration", "generator_function_declaration", "function_signature":
		return graph.KindFunction, true
	case "class_declaration", "abstract_class_declaration", "class":
		return graph.KindClass, decl.ChildByFieldName("name") != nil
	case "lexical_declaration", "variable_declaration":
		return graph.KindVariable, false
	case "type_alias_declaration":
		return graph.KindType, true
	case "interface_declaration":
		return graph.KindInterface, true
	case "enum_declaration":
		return graph.KindEnum, true
	case "internal_module", "module":
		return graph.KindNamespace, true
	}
	return graph.KindUnknown, false
}

// members lists class and enum member names in declaration order.
func (w *jsWalker) members(decl *sitter.Node) []string {
	body := decl.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for i := uint(0); i < body.NamedChildCount(); i++ {
		m := body.NamedChild(i)
		if m == nil {
			continue
		}
		var name string
		switch m.Kind() {
		case "method_definition", "public_field_definition", "method_signature", "abstract_method_signature", "enum_assignment":
			name = w.text(m.ChildByFieldName("name"))
		case "field_definition":
			name = w.text(m.ChildByFieldName("property"))
		case "property_identifier":
			name = w.text(m)
		}
		name = trimQuoted(name)
		if name == "" || name == "constructor" || strings.HasPrefix(name, "#") {
			continue
		}
		out = appendUnique(out, seen, name)
	}
	return out
}

// jsDocTags reads "@tag" markers from a /** */ block directly above n.
func (w *jsWalker) jsDocTags(n *sitter.Node) []string {
	prev := n.PrevSibling()
	if prev == nil || prev.Kind() != "comment" {
		return nil
	}
	text := w.text(prev)
	if !strings.HasPrefix(text, "/**") {
		return nil
	}
	var tags []string
	seen := make(map[string]bool)
	for _, m := range jsDocTagPattern.FindAllStringSubmatch(text, -1) {
		tags = appendUnique(tags, seen, "@"+m[1])
	}
	return tags
}

// walkExpressions collects dynamic imports, require calls and member access
// through namespace bindings anywhere in the tree.
func (w *jsWalker) walkExpressions(n *sitter.Node) {
	switch n.Kind() {
	case "call_expression":
		w.callExpression(n)
	case "member_expression":
		obj := n.ChildByFieldName("object")
		if obj != nil && obj.Kind() == "identifier" && w.namespaces[w.text(obj)] {
			if prop := w.text(n.ChildByFieldName("property")); prop != "" {
				ns := w.text(obj)
				if w.file.NamespaceRefs[ns] == nil {
					w.file.NamespaceRefs[ns] = graph.NewSet()
				}
				w.file.NamespaceRefs[ns].Add(prop)
			}
		}
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil {
			w.walkExpressions(c)
		}
	}
}

func (w *jsWalker) callExpression(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	isImport := fn.Kind() == "import"
	isRequire := fn.Kind() == "identifier" && w.text(fn) == "require"
	if !isImport && !isRequire {
		return
	}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	first := firstNamedChild(args)
	if first == nil || (first.Kind() != "string" && first.Kind() != "template_string") {
		return
	}
	spec := trimQuoted(w.text(first))
	if spec == "" || strings.Contains(spec, "${") {
		return
	}
	w.addImport(n, Import{Specifier: spec, Kind: ImportDynamic, Identifier: "*"})
}

// bindingIdentifiers returns the identifiers bound by a declarator name,
// descending into object and array patterns.
func bindingIdentifiers(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []*sitter.Node{n}
	case "pair_pattern":
		return bindingIdentifiers(n.ChildByFieldName("value"))
	case "assignment_pattern":
		return bindingIdentifiers(n.ChildByFieldName("left"))
	}
	var out []*sitter.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		out = append(out, bindingIdentifiers(n.NamedChild(i))...)
	}
	return out
}

func setPosition(exp *graph.Export, n *sitter.Node) {
	if n == nil {
		return
	}
	exp.Pos = int(n.StartByte())
	exp.Line, exp.Col = position(n)
}

func position(n *sitter.Node) (line, col int) {
	p := n.StartPosition()
	return int(p.Row) + 1, int(p.Column) + 1
}
