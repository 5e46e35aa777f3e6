// # internal/engine/graph/graph_test.go
package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

func TestGraph_GetOrCreateFileNodeIsIdempotent(t *testing.T) {
	g := NewGraph()

	first := g.GetOrCreateFileNode("/p/a.ts")
	second := g.GetOrCreateFileNode("/p/a.ts")
	if first != second {
		t.Fatal("expected the same node instance for repeated calls")
	}
	if g.Len() != 1 {
		t.Fatalf("expected 1 node, got %d", g.Len())
	}

	first.Scripts.Add("build")
	if !g.GetOrCreateFileNode("/p/a.ts").Scripts.Has("build") {
		t.Error("mutation through first handle not visible through second")
	}
}

func TestGraph_UpdateImportMapRegistersTargets(t *testing.T) {
	g := NewGraph()

	d := NewImportDetails()
	d.AddImport("x", "/p/a.ts")
	g.UpdateImportMap("/p/a.ts", ImportMap{"/p/c.ts": d})

	if !g.Has("/p/c.ts") {
		t.Fatal("expected target /p/c.ts to be registered before its own analysis")
	}

	source, _ := g.Node("/p/a.ts")
	if !source.Imports.Internal["/p/c.ts"].Imported["x"].Has("/p/a.ts") {
		t.Errorf("source outgoing record missing x: %+v", source.Imports.Internal)
	}

	target, _ := g.Node("/p/c.ts")
	if !target.Imported.Imported["x"].Has("/p/a.ts") {
		t.Errorf("target incoming record missing x: %+v", target.Imported)
	}
}

func TestGraph_UpdateImportMapDoesNotAliasInput(t *testing.T) {
	g := NewGraph()

	d := NewImportDetails()
	d.AddImport("x", "/p/a.ts")
	g.UpdateImportMap("/p/a.ts", ImportMap{"/p/c.ts": d})

	d.AddImport("y", "/p/a.ts")
	d.Imported["x"].Add("/p/late.ts")

	target, _ := g.Node("/p/c.ts")
	if _, ok := target.Imported.Imported["y"]; ok {
		t.Error("later mutation of the input leaked into the graph")
	}
	if target.Imported.Imported["x"].Has("/p/late.ts") {
		t.Error("input set is shared with the graph")
	}
}

func TestGraph_UpdateImportMapNilDetails(t *testing.T) {
	g := NewGraph()
	g.UpdateImportMap("/p/a.ts", ImportMap{"/p/side-effect.ts": nil})

	if !g.Has("/p/side-effect.ts") {
		t.Fatal("expected side-effect target to be registered")
	}
	source, _ := g.Node("/p/a.ts")
	if _, ok := source.Imports.Internal["/p/side-effect.ts"]; !ok {
		t.Error("expected an empty outgoing record for the side-effect import")
	}
}

func TestGraph_AddExportsMergesByIdentifier(t *testing.T) {
	g := NewGraph()

	first := NewExport("x")
	first.Type = KindFunction
	first.Pos, first.Line, first.Col = 40, 3, 8
	first.Members = []string{"a"}
	g.AddExports("/p/c.ts", map[string]*Export{"x": first})

	second := NewExport("x")
	second.Members = []string{"a", "b"}
	second.JSDocTags.Add("@public")
	g.AddExports("/p/c.ts", map[string]*Export{"x": second})

	node, _ := g.Node("/p/c.ts")
	got := node.Exports["x"]
	if got.Type != KindFunction {
		t.Errorf("kind overwritten: %s", got.Type)
	}
	if got.Pos != 40 || got.Line != 3 || got.Col != 8 {
		t.Errorf("position overwritten by default: %d/%d/%d", got.Pos, got.Line, got.Col)
	}
	if len(got.Members) != 2 || got.Members[0] != "a" || got.Members[1] != "b" {
		t.Errorf("unexpected members %v", got.Members)
	}
	if !got.JSDocTags.Has("@public") {
		t.Error("expected tag to be merged")
	}
}

func TestGraph_OrderIndependence(t *testing.T) {
	facts := map[string]*FileFacts{
		"/p/a.ts": factsImporting("/p/a.ts", "/p/c.ts", "x"),
		"/p/b.ts": factsImporting("/p/b.ts", "/p/c.ts", "x"),
		"/p/c.ts": {
			Exports:  map[string]*Export{"x": NewExport("x")},
			External: []string{"lodash"},
		},
	}

	orders := [][]string{
		{"/p/a.ts", "/p/b.ts", "/p/c.ts"},
		{"/p/c.ts", "/p/b.ts", "/p/a.ts"},
		{"/p/b.ts", "/p/a.ts", "/p/c.ts"},
	}

	var want []byte
	for i, order := range orders {
		g := NewGraph()
		for _, path := range order {
			g.Apply(path, facts[path])
		}
		got, err := json.Marshal(g)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if i == 0 {
			want = got
			continue
		}
		if !bytes.Equal(want, got) {
			t.Errorf("order %v produced a different graph:\nwant %s\ngot  %s", order, want, got)
		}
	}

	g := NewGraph()
	for _, path := range orders[0] {
		g.Apply(path, facts[path])
	}
	c, _ := g.Node("/p/c.ts")
	importers := c.Imported.Imported["x"]
	if !importers.Has("/p/a.ts") || !importers.Has("/p/b.ts") || len(importers) != 2 {
		t.Errorf("expected a and b as importers of x, got %v", importers.Sorted())
	}
}

func TestGraph_ConcurrentMergesCommute(t *testing.T) {
	g := NewGraph()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			source := fmt.Sprintf("/p/src%02d.ts", i)
			g.UpdateImportMap(source, ImportMap{"/p/shared.ts": detailsFor(source, "x")})
		}(i)
	}
	wg.Wait()

	shared, ok := g.Node("/p/shared.ts")
	if !ok {
		t.Fatal("shared target missing")
	}
	if n := len(shared.Imported.Imported["x"]); n != 32 {
		t.Fatalf("expected 32 importers, got %d", n)
	}
	if g.Len() != 33 {
		t.Fatalf("expected 33 nodes, got %d", g.Len())
	}
}

func TestGraph_Paths(t *testing.T) {
	g := NewGraph()
	g.GetOrCreateFileNode("/p/b.ts")
	g.GetOrCreateFileNode("/p/a.ts")

	paths := g.Paths()
	if len(paths) != 2 || paths[0] != "/p/a.ts" || paths[1] != "/p/b.ts" {
		t.Errorf("unexpected paths %v", paths)
	}
}

func factsImporting(source, target, identifier string) *FileFacts {
	return &FileFacts{Imports: ImportMap{target: detailsFor(source, identifier)}}
}

func detailsFor(source, identifier string) *ImportDetails {
	d := NewImportDetails()
	d.AddImport(identifier, source)
	return d
}
