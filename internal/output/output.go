// Package output renders a dependency graph as DOT, Mermaid or TSV.
package output

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/heystewart/knip/internal/engine/graph"
)

// Format names accepted by Render.
const (
	FormatDOT     = "dot"
	FormatMermaid = "mermaid"
	FormatTSV     = "tsv"
)

// Formats lists every supported format name.
var Formats = []string{FormatDOT, FormatMermaid, FormatTSV}

type edge struct {
	from, to string
	details  *graph.ImportDetails
}

// view is the sorted, root-relative projection shared by the generators.
type view struct {
	files      []string
	edges      []edge
	external   map[string][]string
	packages   []string
	cycleEdges map[[2]string]bool
	inCycle    map[string]bool
}

func newView(g *graph.Graph, root string, cycles [][]string) *view {
	v := &view{
		external:   make(map[string][]string),
		cycleEdges: make(map[[2]string]bool),
		inCycle:    make(map[string]bool),
	}
	packages := make(map[string]bool)
	for _, p := range g.Paths() {
		node, _ := g.Node(p)
		from := relPath(root, p)
		v.files = append(v.files, from)

		targets := make([]string, 0, len(node.Imports.Internal))
		for to := range node.Imports.Internal {
			targets = append(targets, to)
		}
		sort.Strings(targets)
		for _, to := range targets {
			v.edges = append(v.edges, edge{from: from, to: relPath(root, to), details: node.Imports.Internal[to]})
		}

		ext := node.Imports.External.Sorted()
		if len(ext) > 0 {
			v.external[from] = ext
		}
		for _, pkg := range ext {
			packages[pkg] = true
		}
	}
	for pkg := range packages {
		v.packages = append(v.packages, pkg)
	}
	sort.Strings(v.packages)

	for _, cycle := range cycles {
		for i := range cycle {
			from := relPath(root, cycle[i])
			to := relPath(root, cycle[(i+1)%len(cycle)])
			v.cycleEdges[[2]string{from, to}] = true
			v.inCycle[from] = true
		}
	}
	return v
}

// Render writes g in the named format with paths relative to root.
func Render(format string, g *graph.Graph, root string, cycles [][]string) (string, error) {
	switch format {
	case FormatDOT:
		return NewDOTGenerator(g, root).Generate(cycles)
	case FormatMermaid:
		return NewMermaidGenerator(g, root).Generate(cycles)
	case FormatTSV:
		return NewTSVGenerator(g, root).Generate()
	default:
		return "", fmt.Errorf("unknown output format %q (want one of %v)", format, Formats)
	}
}

func relPath(root, p string) string {
	if root == "" {
		return filepath.ToSlash(p)
	}
	if r, err := filepath.Rel(root, p); err == nil {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(p)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
