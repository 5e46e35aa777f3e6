package output

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/heystewart/knip/internal/engine/graph"
)

const (
	externalAggregationThreshold = 10
	externalAggregateNodeID      = "__external__"
)

type MermaidGenerator struct {
	graph *graph.Graph
	root  string
}

func NewMermaidGenerator(g *graph.Graph, root string) *MermaidGenerator {
	return &MermaidGenerator{graph: g, root: root}
}

// Generate renders a left-to-right flowchart. Packages collapse into one
// node once there are more than externalAggregationThreshold of them.
func (m *MermaidGenerator) Generate(cycles [][]string) (string, error) {
	v := newView(m.graph, m.root, cycles)

	var b strings.Builder
	b.WriteString("%%{init: {'flowchart': {'nodeSpacing': 80, 'rankSpacing': 110, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")

	aggregate := len(v.packages) > externalAggregationThreshold
	names := make([]string, 0, len(v.files)+len(v.packages)+1)
	for _, f := range v.files {
		names = append(names, fileKey(f))
	}
	if aggregate {
		names = append(names, externalAggregateNodeID)
	} else {
		for _, pkg := range v.packages {
			names = append(names, packageKey(pkg))
		}
	}
	ids := makeMermaidIDs(names)

	for _, f := range v.files {
		fmt.Fprintf(&b, "  %s[\"%s\"]\n", ids[fileKey(f)], escapeMermaidLabel(f))
	}
	if aggregate {
		fmt.Fprintf(&b, "  %s[\"External\\n(%d packages)\"]\n", ids[externalAggregateNodeID], len(v.packages))
	} else {
		for _, pkg := range v.packages {
			fmt.Fprintf(&b, "  %s[\"%s\"]\n", ids[packageKey(pkg)], escapeMermaidLabel(pkg))
		}
	}

	b.WriteString("\n")
	if len(v.files) > 0 {
		b.WriteString("  classDef internalNode fill:#f7fbff,stroke:#4d6480,stroke-width:1px;\n")
		fmt.Fprintf(&b, "  class %s internalNode;\n", joinIDs(v.files, fileKey, ids))
	}
	if len(v.packages) > 0 {
		b.WriteString("  classDef externalNode fill:#efefef,stroke:#808080,stroke-dasharray:4 3;\n")
		if aggregate {
			fmt.Fprintf(&b, "  class %s externalNode;\n", ids[externalAggregateNodeID])
		} else {
			fmt.Fprintf(&b, "  class %s externalNode;\n", joinIDs(v.packages, packageKey, ids))
		}
	}
	var cycleFiles []string
	for _, f := range v.files {
		if v.inCycle[f] {
			cycleFiles = append(cycleFiles, f)
		}
	}
	if len(cycleFiles) > 0 {
		b.WriteString("  classDef cycleNode fill:#ffecec,stroke:#cc0000,stroke-width:2px;\n")
		fmt.Fprintf(&b, "  class %s cycleNode;\n", joinIDs(cycleFiles, fileKey, ids))
	}

	b.WriteString("\n")
	linkIndex := 0
	var cycleLinks, externalLinks []int
	for _, e := range v.edges {
		label := ""
		if v.cycleEdges[[2]string{e.from, e.to}] {
			label = "|CYCLE|"
			cycleLinks = append(cycleLinks, linkIndex)
		}
		fmt.Fprintf(&b, "  %s -->%s %s\n", ids[fileKey(e.from)], label, ids[fileKey(e.to)])
		linkIndex++
	}
	for _, f := range v.files {
		pkgs := v.external[f]
		if len(pkgs) == 0 {
			continue
		}
		if aggregate {
			fmt.Fprintf(&b, "  %s -->|ext:%d| %s\n", ids[fileKey(f)], len(pkgs), ids[externalAggregateNodeID])
			externalLinks = append(externalLinks, linkIndex)
			linkIndex++
			continue
		}
		for _, pkg := range pkgs {
			fmt.Fprintf(&b, "  %s --> %s\n", ids[fileKey(f)], ids[packageKey(pkg)])
			externalLinks = append(externalLinks, linkIndex)
			linkIndex++
		}
	}

	if len(cycleLinks) > 0 || len(externalLinks) > 0 {
		b.WriteString("\n")
	}
	if len(cycleLinks) > 0 {
		fmt.Fprintf(&b, "  linkStyle %s stroke:#cc0000,stroke-width:3px;\n", joinInts(cycleLinks))
	}
	if len(externalLinks) > 0 {
		fmt.Fprintf(&b, "  linkStyle %s stroke:#808080,stroke-dasharray:4 3;\n", joinInts(externalLinks))
	}
	return b.String(), nil
}

func fileKey(f string) string      { return "f:" + f }
func packageKey(pkg string) string { return "p:" + pkg }

func joinIDs(names []string, key func(string) string, ids map[string]string) string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, ids[key(n)])
	}
	return strings.Join(out, ",")
}

func sanitizeMermaidID(name string) string {
	name = strings.TrimPrefix(strings.TrimPrefix(name, "f:"), "p:")
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if out == "" {
		return "m"
	}
	if unicode.IsDigit(rune(out[0])) {
		return "m_" + out
	}
	return out
}

func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func joinInts(v []int) string {
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, ",")
}
