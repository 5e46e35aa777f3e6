package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	kerrors "github.com/heystewart/knip/internal/core/errors"
	"github.com/heystewart/knip/internal/engine/graph"
)

func sampleGraph() *graph.Graph {
	g := graph.NewGraph()

	a := graph.NewImportDetails()
	a.AddImport("x", "src/a.ts")
	a.AddImportAs("y", "why", "src/a.ts")
	g.UpdateImportMap("src/a.ts", graph.ImportMap{"src/c.ts": a})

	b := graph.NewImportDetails()
	b.AddImport("x", "src/b.ts")
	b.AddImportNs("lib", "src/b.ts")
	b.AddRef("z")
	g.UpdateImportMap("src/b.ts", graph.ImportMap{"src/c.ts": b})
	g.AddExternal("src/b.ts", "react")

	x := graph.NewExport("x")
	x.Type = graph.KindFunction
	x.Pos, x.Line, x.Col = 40, 3, 17
	x.JSDocTags.Add("@public")
	y := graph.NewExport("y")
	y.Type = graph.KindClass
	y.Pos, y.Line, y.Col = 10, 1, 14
	y.Members = []string{"open", "close"}
	g.AddExports("src/c.ts", map[string]*graph.Export{"x": x, "y": y})
	return g
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "knip.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_RejectsBadPaths(t *testing.T) {
	if _, err := Open("  "); !kerrors.IsCode(err, kerrors.CodeValidationError) {
		t.Errorf("empty path: %v", err)
	}
	if _, err := Open(t.TempDir()); !kerrors.IsCode(err, kerrors.CodeValidationError) {
		t.Errorf("directory path: %v", err)
	}
}

func TestStore_SaveAndQuery(t *testing.T) {
	s := openStore(t)
	if err := s.SaveGraph("proj", sampleGraph()); err != nil {
		t.Fatalf("save graph: %v", err)
	}

	importers, err := s.Importers("proj", "src/c.ts", "x")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(importers, []string{"src/a.ts", "src/b.ts"}) {
		t.Errorf("importers of x = %v", importers)
	}

	importers, _ = s.Importers("proj", "src/c.ts", "y")
	if !reflect.DeepEqual(importers, []string{"src/a.ts"}) {
		t.Errorf("importers of y = %v", importers)
	}
	importers, _ = s.Importers("proj", "src/c.ts", "z")
	if !reflect.DeepEqual(importers, []string{"src/b.ts"}) {
		t.Errorf("importers of z = %v", importers)
	}

	exports, err := s.Exports("proj", "src/c.ts")
	if err != nil {
		t.Fatal(err)
	}
	if len(exports) != 2 || exports[0].Identifier != "y" || exports[1].Identifier != "x" {
		t.Fatalf("exports = %+v", exports)
	}
	if !reflect.DeepEqual(exports[0].Members, []string{"open", "close"}) || exports[0].Type != graph.KindClass {
		t.Errorf("y = %+v", exports[0])
	}
	if !exports[1].JSDocTags.Has("@public") || exports[1].Line != 3 {
		t.Errorf("x = %+v", exports[1])
	}

	files, err := s.Files("proj")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(files, []string{"src/a.ts", "src/b.ts", "src/c.ts"}) {
		t.Errorf("files = %v", files)
	}
}

func TestStore_SaveReplacesSnapshot(t *testing.T) {
	s := openStore(t)
	if err := s.SaveGraph("proj", sampleGraph()); err != nil {
		t.Fatal(err)
	}

	g := graph.NewGraph()
	g.GetOrCreateFileNode("only.ts")
	if err := s.SaveGraph("proj", g); err != nil {
		t.Fatal(err)
	}

	files, _ := s.Files("proj")
	if !reflect.DeepEqual(files, []string{"only.ts"}) {
		t.Errorf("files after replace = %v", files)
	}
	importers, _ := s.Importers("proj", "src/c.ts", "x")
	if len(importers) != 0 {
		t.Errorf("stale importers: %v", importers)
	}

	snap, err := s.LoadSnapshot("proj")
	if err != nil {
		t.Fatal(err)
	}
	if snap.FileCount != 1 || snap.Timestamp.IsZero() {
		t.Errorf("snapshot = %+v", snap)
	}
	want, _ := g.MarshalJSON()
	if string(snap.GraphJSON) != string(want) {
		t.Errorf("graph json = %s, want %s", snap.GraphJSON, want)
	}
}

func TestStore_ProjectsAreIsolated(t *testing.T) {
	s := openStore(t)
	if err := s.SaveGraph("", sampleGraph()); err != nil {
		t.Fatal(err)
	}

	if _, err := s.LoadSnapshot("other"); !kerrors.IsCode(err, kerrors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	files, _ := s.Files("default")
	if len(files) != 3 {
		t.Errorf("empty key should map to the default project: %v", files)
	}
}

func TestStore_ReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knip.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveGraph("proj", sampleGraph()); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	var version int
	if err := s.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %d", version)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	if files, _ := s.Files("proj"); len(files) != 3 {
		t.Errorf("files after reopen = %v", files)
	}
}
