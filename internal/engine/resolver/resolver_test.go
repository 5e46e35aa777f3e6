// # internal/engine/resolver/resolver_test.go
package resolver

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolve_Relative(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"src/index.ts",
		"src/util.ts",
		"src/button.tsx",
		"src/lib/index.js",
		"src/esm.ts",
		"src/data.json",
	)
	from := filepath.Join(root, "src", "index.ts")
	r := NewResolver(nil)

	tests := []struct {
		spec string
		want string
	}{
		{"./util", "src/util.ts"},
		{"./util.ts", "src/util.ts"},
		{"./button", "src/button.tsx"},
		{"./lib", "src/lib/index.js"},
		{"./esm.js", "src/esm.ts"},
		{"./data.json", "src/data.json"},
		{"../src/util", "src/util.ts"},
	}
	for _, tt := range tests {
		got := r.Resolve(from, tt.spec)
		want := filepath.Join(root, filepath.FromSlash(tt.want))
		if got.Kind != KindInternal || got.Path != want {
			t.Errorf("Resolve(%q) = %+v, want %s", tt.spec, got, want)
		}
	}

	if got := r.Resolve(from, "./missing"); got.Kind != KindUnresolved {
		t.Errorf("missing file resolved to %+v", got)
	}
}

func TestResolve_Packages(t *testing.T) {
	r := NewResolver(nil)
	from := filepath.Join(t.TempDir(), "index.ts")

	tests := []struct {
		spec string
		kind Kind
		pkg  string
	}{
		{"react", KindExternal, "react"},
		{"lodash/fp/get", KindExternal, "lodash"},
		{"@scope/pkg/sub/path", KindExternal, "@scope/pkg"},
		{"node:fs/promises", KindExternal, "node:fs/promises"},
		{"path", KindExternal, "node:path"},
		{"@broken", KindUnresolved, ""},
		{"#internal/x", KindUnresolved, ""},
		{"  ", KindUnresolved, ""},
	}
	for _, tt := range tests {
		got := r.Resolve(from, tt.spec)
		if got.Kind != tt.kind || got.Package != tt.pkg {
			t.Errorf("Resolve(%q) = %+v, want %s %q", tt.spec, got, tt.kind, tt.pkg)
		}
	}
}

func TestResolve_CacheAndReset(t *testing.T) {
	root := t.TempDir()
	from := filepath.Join(root, "index.ts")
	r := NewResolver(nil)

	calls := 0
	r.isFile = func(p string) bool {
		calls++
		return statFile(p)
	}

	if got := r.Resolve(from, "./late"); got.Kind != KindUnresolved {
		t.Fatalf("unexpected %+v", got)
	}
	first := calls
	r.Resolve(from, "./late")
	if calls != first {
		t.Error("second lookup should hit the cache")
	}

	touch(t, root, "late.ts")
	if got := r.Resolve(from, "./late"); got.Kind != KindUnresolved {
		t.Error("cached miss should persist until reset")
	}
	r.Reset()
	if got := r.Resolve(from, "./late"); got.Kind != KindInternal {
		t.Errorf("after reset got %+v", got)
	}
}
