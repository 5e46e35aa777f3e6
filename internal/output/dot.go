package output

import (
	"fmt"
	"strings"

	"github.com/heystewart/knip/internal/engine/graph"
)

type DOTGenerator struct {
	graph *graph.Graph
	root  string
}

func NewDOTGenerator(g *graph.Graph, root string) *DOTGenerator {
	return &DOTGenerator{graph: g, root: root}
}

func (d *DOTGenerator) Generate(cycles [][]string) (string, error) {
	v := newView(d.graph, d.root, cycles)

	var buf strings.Builder
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	buf.WriteString("  subgraph cluster_internal {\n")
	buf.WriteString("    label=\"Project Files\";\n")
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
	for _, f := range v.files {
		if v.inCycle[f] {
			fmt.Fprintf(&buf, "    %q [fillcolor=\"mistyrose\", color=\"red\", penwidth=2.0];\n", f)
		} else {
			fmt.Fprintf(&buf, "    %q [color=\"darkslategrey\"];\n", f)
		}
	}
	buf.WriteString("  }\n\n")

	if len(v.packages) > 0 {
		buf.WriteString("  // Packages\n")
		buf.WriteString("  node [fillcolor=\"gainsboro\", style=\"rounded,filled\", color=\"grey\"];\n")
		for _, pkg := range v.packages {
			fmt.Fprintf(&buf, "  %q;\n", pkg)
		}
		buf.WriteString("\n")
	}

	for _, e := range v.edges {
		if v.cycleEdges[[2]string{e.from, e.to}] {
			fmt.Fprintf(&buf, "  %q -> %q [color=\"red\", penwidth=3.0, label=\"CYCLE\"];\n", e.from, e.to)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q [color=\"forestgreen\", penwidth=1.8];\n", e.from, e.to)
		}
	}
	for _, f := range v.files {
		for _, pkg := range v.external[f] {
			fmt.Fprintf(&buf, "  %q -> %q [color=\"grey\", style=dashed];\n", f, pkg)
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}
