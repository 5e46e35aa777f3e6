package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/heystewart/knip/internal/engine/graph"
)

type TSVGenerator struct {
	graph *graph.Graph
	root  string
}

func NewTSVGenerator(g *graph.Graph, root string) *TSVGenerator {
	return &TSVGenerator{graph: g, root: root}
}

// Generate writes one row per internal edge and one per package import.
// Symbols lists the imported names, "* as ns" for namespaces and "*" for
// re-export-all.
func (t *TSVGenerator) Generate() (string, error) {
	v := newView(t.graph, t.root, nil)

	var buf strings.Builder
	buf.WriteString("From\tTo\tKind\tSymbols\n")
	for _, e := range v.edges {
		fmt.Fprintf(&buf, "%s\t%s\tinternal\t%s\n", e.from, e.to, strings.Join(symbols(e.details), ","))
	}
	for _, f := range v.files {
		for _, pkg := range v.external[f] {
			fmt.Fprintf(&buf, "%s\t%s\texternal\t\n", f, pkg)
		}
	}
	return buf.String(), nil
}

func symbols(d *graph.ImportDetails) []string {
	if d == nil {
		return nil
	}
	names := make(map[string]bool)
	for id := range d.Imported {
		names[id] = true
	}
	for id := range d.ImportedAs {
		names[id] = true
	}
	for id := range d.ReExported {
		names[id] = true
	}
	for id := range d.ReExportedAs {
		names[id] = true
	}
	out := sortedKeys(names)
	for ns := range d.ImportedNs {
		out = append(out, "* as "+ns)
	}
	for ns := range d.ReExportedNs {
		out = append(out, "* as "+ns)
	}
	sort.Strings(out[len(names):])
	return out
}
