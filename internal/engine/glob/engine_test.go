// # internal/engine/glob/engine_test.go
package glob

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
)

type countingFS struct {
	calls atomic.Int64
}

func (c *countingFS) ReadDir(name string) ([]fs.DirEntry, error) {
	c.calls.Add(1)
	return os.ReadDir(name)
}

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExpandGlobstar(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"*.ts", []string{"*.ts"}},
		{"**/*.ts", []string{"**/*.ts", "*.ts"}},
		{"src/**/x", []string{"src/**/x", "src/x"}},
		{"a**/b", []string{"a**/b"}},
		{"**/a/**/b", []string{"**/a/**/b", "**/a/b", "a/**/b", "a/b"}},
	}
	for _, tt := range tests {
		if got := expandGlobstar(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("expandGlobstar(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPatternMatch(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"**/*.log", "b.log", true},
		{"**/*.log", "a/b.log", true},
		{"**/*.log/**", "a/b.log", false},
		{"build", "build", true},
		{"build/**", "build/out/x.js", true},
		{"build", "src/build", false},
		{"src/*.ts", "src/a/b.ts", false},
		{"src/**/*.{ts,tsx}", "src/a/b.tsx", true},
		{"./src/*.ts", "src/a.ts", true},
	}
	for _, tt := range tests {
		p, err := e.Compile(tt.pattern)
		if err != nil {
			t.Fatalf("compile %q: %v", tt.pattern, err)
		}
		if got := p.Match(tt.path); got != tt.want {
			t.Errorf("%q.Match(%q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestMatcher_LaterNegationOverrides(t *testing.T) {
	e := NewEngine(nil)
	m := e.NewMatcher([]string{"**/*.log", "**/*.log/**", "!**/keep.log", "!**/keep.log/**"})

	if !m.Ignored("a/b.log") {
		t.Error("expected a/b.log to be ignored")
	}
	if m.Ignored("a/keep.log") {
		t.Error("expected a/keep.log to be re-included")
	}
	if m.Ignored("a/b.txt") {
		t.Error("expected a/b.txt to pass")
	}
}

func TestMatcher_SkipsInvalidPatterns(t *testing.T) {
	e := NewEngine(nil)
	m := e.NewMatcher([]string{"[", "**/*.tmp"})
	if !m.Ignored("x.tmp") {
		t.Error("valid pattern after an invalid one was lost")
	}
}

func TestGlob_EmptyPatternsDoNotTouchFS(t *testing.T) {
	fsys := &countingFS{}
	e := NewEngine(fsys)

	got, err := e.Glob(context.Background(), nil, Options{Cwd: "/does/not/matter"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}
	if n := fsys.calls.Load(); n != 0 {
		t.Errorf("expected 0 filesystem calls, got %d", n)
	}
}

func TestGlob_Options(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"src/a.ts",
		"src/b.js",
		"src/nested/c.ts",
		"src/.hidden/d.ts",
		"dist/e.ts",
	)
	e := NewEngine(nil)
	ctx := context.Background()

	got, err := e.Glob(ctx, []string{"**/*.ts"}, Options{Cwd: root, Ignore: []string{"dist", "dist/**"}})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"src/a.ts", "src/nested/c.ts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("relative glob = %v, want %v", got, want)
	}

	got, _ = e.Glob(ctx, []string{"**/*.ts"}, Options{Cwd: root, Dot: true, Absolute: true, Ignore: []string{"dist/**"}})
	want = []string{
		filepath.Join(root, "src", ".hidden", "d.ts"),
		filepath.Join(root, "src", "a.ts"),
		filepath.Join(root, "src", "nested", "c.ts"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("absolute dot glob = %v, want %v", got, want)
	}

	got, _ = e.Glob(ctx, []string{"src/*"}, Options{Cwd: root, OnlyDirectories: true})
	want = []string{"src/nested"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("directory glob = %v, want %v", got, want)
	}

	got, _ = e.Glob(ctx, []string{"**/*.ts", "!src/nested/**"}, Options{Cwd: root})
	want = []string{"dist/e.ts", "src/a.ts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("negated include glob = %v, want %v", got, want)
	}
}

func TestGlob_IgnoreBaseOffset(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "packages/app/src/a.ts", "packages/app/gen/b.ts")
	e := NewEngine(nil)

	got, err := e.Glob(context.Background(), []string{"**/*.ts"}, Options{
		Cwd:        filepath.Join(root, "packages", "app"),
		IgnoreBase: root,
		Ignore:     []string{"packages/app/gen", "packages/app/gen/**"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"src/a.ts"}) {
		t.Errorf("got %v", got)
	}
}

func TestGlob_InvalidIncludeFails(t *testing.T) {
	e := NewEngine(nil)
	if _, err := e.Glob(context.Background(), []string{"["}, Options{Cwd: t.TempDir()}); err == nil {
		t.Fatal("expected an error for an invalid include pattern")
	}
}

func TestMatcher_ExcludesDir(t *testing.T) {
	e := NewEngine(nil)
	m := e.NewMatcher([]string{".git", ".git/**", "**/node_modules/**", "dist/*"})

	for _, dir := range []string{".git", "node_modules", "packages/a/node_modules"} {
		if !m.ExcludesDir(dir) {
			t.Errorf("expected %q to be skipped", dir)
		}
	}
	// dist/* ignores direct children only, so dist/sub/x.ts must still be seen.
	for _, dir := range []string{"src", "packages/a", "dist"} {
		if m.ExcludesDir(dir) {
			t.Errorf("expected %q to be walked", dir)
		}
	}
}

func TestMatcher_ExcludesDirHonoursLaterNegations(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		name     string
		patterns []string
		dir      string
		want     bool
	}{
		{"negation inside", []string{"**/out", "**/out/**", "!**/out/keep.ts"}, "out", false},
		{"anchored negation inside", []string{"out/**", "!out/keep.ts"}, "out", false},
		{"negation elsewhere", []string{"out/**", "!src/**/keep.ts"}, "out", true},
		{"negation before the rule", []string{"!out/keep.ts", "out/**"}, "out", true},
		{"negation above", []string{"out/gen/**", "!out/*.ts"}, "out/gen", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.NewMatcher(tt.patterns).ExcludesDir(tt.dir); got != tt.want {
				t.Errorf("ExcludesDir(%q) = %v, want %v", tt.dir, got, tt.want)
			}
		})
	}
}

func TestGlob_NegatedIgnoreReachesIntoIgnoredDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "dist/keep.ts", "dist/drop.ts", "src/a.ts")

	got, err := NewEngine(nil).Glob(context.Background(), []string{"**/*.ts"}, Options{
		Cwd:    root,
		Ignore: []string{"**/dist/*", "!**/dist/keep.ts"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"dist/keep.ts", "src/a.ts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
