package graph

import (
	"fmt"
	"reflect"
	"testing"
)

func link(g *Graph, from string, to ...string) {
	m := make(ImportMap, len(to))
	for _, t := range to {
		d := NewImportDetails()
		d.AddImport("x", from)
		m[t] = d
	}
	g.UpdateImportMap(from, m)
}

func TestDetectCycles(t *testing.T) {
	g := NewGraph()
	link(g, "b.ts", "c.ts")
	link(g, "c.ts", "a.ts")
	link(g, "a.ts", "b.ts")
	link(g, "d.ts", "a.ts")

	cycles := g.DetectCycles()
	want := [][]string{{"a.ts", "b.ts", "c.ts"}}
	if !reflect.DeepEqual(cycles, want) {
		t.Errorf("cycles = %v, want %v", cycles, want)
	}
}

func TestDetectCycles_SelfImport(t *testing.T) {
	g := NewGraph()
	link(g, "a.ts", "a.ts")
	if cycles := g.DetectCycles(); len(cycles) != 1 || len(cycles[0]) != 1 {
		t.Errorf("expected one self cycle, got %v", cycles)
	}
}

func TestDetectCycles_Deep(t *testing.T) {
	g := NewGraph()
	const count = 5000
	for i := 0; i < count; i++ {
		link(g, fmt.Sprintf("f%05d.ts", i), fmt.Sprintf("f%05d.ts", (i+1)%count))
	}

	cycles := g.DetectCycles()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if len(cycles[0]) != count {
		t.Errorf("cycle length = %d, want %d", len(cycles[0]), count)
	}
	if cycles[0][0] != "f00000.ts" {
		t.Errorf("cycle should start at the smallest path, got %s", cycles[0][0])
	}
}

func TestFindImportChain(t *testing.T) {
	g := NewGraph()
	link(g, "main.ts", "a.ts", "b.ts")
	link(g, "a.ts", "c.ts")
	link(g, "b.ts", "c.ts")
	link(g, "c.ts", "d.ts")

	chain, ok := g.FindImportChain("main.ts", "d.ts")
	if !ok {
		t.Fatal("expected a chain")
	}
	if want := []string{"main.ts", "a.ts", "c.ts", "d.ts"}; !reflect.DeepEqual(chain, want) {
		t.Errorf("chain = %v, want %v", chain, want)
	}

	if _, ok := g.FindImportChain("d.ts", "main.ts"); ok {
		t.Error("imports are directed; no chain expected")
	}
	if _, ok := g.FindImportChain("main.ts", "missing.ts"); ok {
		t.Error("unknown target should not resolve")
	}
}

func TestAnalyzeImpact(t *testing.T) {
	g := NewGraph()
	link(g, "app.ts", "feature.ts")
	link(g, "feature.ts", "util.ts")
	link(g, "other.ts", "util.ts")

	exports := map[string]*Export{"x": NewExport("x"), "unused": NewExport("unused")}
	g.AddExports("util.ts", exports)

	report, err := g.AnalyzeImpact("util.ts")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"feature.ts", "other.ts"}; !reflect.DeepEqual(report.DirectImporters, want) {
		t.Errorf("direct = %v, want %v", report.DirectImporters, want)
	}
	if want := []string{"app.ts"}; !reflect.DeepEqual(report.TransitiveImporters, want) {
		t.Errorf("transitive = %v, want %v", report.TransitiveImporters, want)
	}
	if want := []string{"x"}; !reflect.DeepEqual(report.UsedExports, want) {
		t.Errorf("used exports = %v, want %v", report.UsedExports, want)
	}

	if _, err := g.AnalyzeImpact("nope.ts"); err == nil {
		t.Error("expected an error for an unknown file")
	}
}
