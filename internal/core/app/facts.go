// # internal/core/app/facts.go
package app

import (
	"github.com/heystewart/knip/internal/core/ports"
	"github.com/heystewart/knip/internal/engine/graph"
	"github.com/heystewart/knip/internal/engine/parser"
	"github.com/heystewart/knip/internal/engine/resolver"
)

// BuildFacts turns what the parser saw in one file into graph facts,
// resolving every specifier against the file's location.
func BuildFacts(file *parser.File, res ports.SpecifierResolver) *graph.FileFacts {
	facts := &graph.FileFacts{
		Imports: make(graph.ImportMap),
		Exports: make(map[string]*graph.Export, len(file.Exports)),
	}
	for _, exp := range file.Exports {
		if exp == nil {
			continue
		}
		// First declaration wins, e.g. for overloads.
		if _, ok := facts.Exports[exp.Identifier]; !ok {
			facts.Exports[exp.Identifier] = exp
		}
	}

	external := graph.NewSet()
	unresolved := graph.NewSet()
	src := file.Path

	for _, imp := range file.Imports {
		r := res.Resolve(src, imp.Specifier)
		switch r.Kind {
		case resolver.KindExternal:
			external.Add(r.Package)
			continue
		case resolver.KindUnresolved:
			unresolved.Add(imp.Specifier)
			continue
		}

		d, ok := facts.Imports[r.Path]
		if !ok {
			d = graph.NewImportDetails()
			facts.Imports[r.Path] = d
		}

		switch imp.Kind {
		case parser.ImportNamed:
			if imp.Alias != "" {
				d.AddImportAs(imp.Identifier, imp.Alias, src)
			} else {
				d.AddImport(imp.Identifier, src)
			}
		case parser.ImportDefault:
			d.AddImport("default", src)
		case parser.ImportNamespace:
			d.AddImportNs(imp.Alias, src)
			for member := range file.NamespaceRefs[imp.Alias] {
				d.AddRef(member)
			}
		case parser.ReExportNamed:
			exported := imp.Identifier
			if imp.Alias != "" {
				d.AddReExportAs(imp.Identifier, imp.Alias, src)
				exported = imp.Alias
			} else {
				d.AddReExport(imp.Identifier, src)
			}
			addReExport(facts, exported, graph.KindUnknown, imp)
		case parser.ReExportAll:
			d.AddReExport("*", src)
		case parser.ReExportNamespace:
			if imp.Alias == "" {
				d.AddReExport("*", src)
				continue
			}
			d.AddReExportNs(imp.Alias, src)
			addReExport(facts, imp.Alias, graph.KindNamespace, imp)
		}
		// Side-effect and dynamic imports only register the edge.
	}

	facts.External = external.Sorted()
	facts.Unresolved = unresolved.Sorted()
	return facts
}

func addReExport(facts *graph.FileFacts, identifier string, kind graph.SymbolKind, imp parser.Import) {
	if _, ok := facts.Exports[identifier]; ok {
		return
	}
	exp := graph.NewExport(identifier)
	exp.Type = kind
	exp.Line, exp.Col = imp.Line, imp.Col
	exp.IsReExport = true
	facts.Exports[identifier] = exp
}
