// # internal/core/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "knip.toml", `
version = 1

[project]
root = "app"
include = ["src/**/*.ts"]
exclude = ["src/generated/**"]

[[project.workspaces]]
name = "ui"
dir = "packages/ui"

[ignore]
gitignore = false
patterns = ["tmp/"]

[analysis]
workers = 3

[store]
enabled = true

[watch]
debounce = "1s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if want := filepath.Join(filepath.Dir(path), "app"); cfg.Project.Root != want {
		t.Errorf("root = %q, want %q", cfg.Project.Root, want)
	}
	if cfg.RespectGitignore() {
		t.Error("expected gitignore to be disabled")
	}
	if cfg.Analysis.Workers != 3 {
		t.Errorf("workers = %d", cfg.Analysis.Workers)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("debounce = %v", cfg.Watch.Debounce)
	}
	if len(cfg.Project.Workspaces) != 1 || cfg.Project.Workspaces[0].Include[0] != "src/**/*.ts" {
		t.Errorf("workspace should inherit project includes: %+v", cfg.Project.Workspaces)
	}
	if cfg.StorePath() != filepath.Join(cfg.Project.Root, DefaultStorePath) {
		t.Errorf("store path = %q", cfg.StorePath())
	}
	if cfg.Store.ProjectKey != "app" {
		t.Errorf("project key = %q", cfg.Store.ProjectKey)
	}
	if cfg.Path() == "" {
		t.Error("expected the source path to be recorded")
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "knip.yaml", `
version: 1
project:
  workspaces:
    - dir: packages/a
      exclude: ["dist/**"]
analysis:
  include_tests: true
watch:
  debounce: 250ms
  max_passes_per_second: 4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Project.Root != filepath.Dir(path) {
		t.Errorf("root = %q", cfg.Project.Root)
	}
	if cfg.Project.Workspaces[0].Name != "packages/a" {
		t.Errorf("workspace name should default to dir, got %q", cfg.Project.Workspaces[0].Name)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond || cfg.Watch.MaxPassesPerSecond != 4 {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	for _, p := range cfg.ExcludePatterns(nil) {
		if p == TestPatterns[0] {
			t.Error("test patterns excluded although include_tests is set")
		}
	}
}

func TestLoad_YAMLUnknownField(t *testing.T) {
	path := writeConfig(t, "knip.yml", "projekt:\n  root: .\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestLoad_EmptyYAMLUsesDefaults(t *testing.T) {
	path := writeConfig(t, "knip.yaml", "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Version != CurrentVersion || len(cfg.Project.Include) == 0 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := writeConfig(t, "knip.json", "{}")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a json config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"version", func(c *Config) { c.Version = 9 }, "unsupported config version"},
		{"escaping workspace", func(c *Config) {
			c.Project.Workspaces = []Workspace{{Name: "x", Dir: "../other"}}
		}, "inside the project root"},
		{"duplicate workspace", func(c *Config) {
			c.Project.Workspaces = []Workspace{{Name: "a", Dir: "a"}, {Name: "a", Dir: "b"}}
		}, "declared twice"},
		{"bad pattern", func(c *Config) { c.Project.Include = []string{"src/["} }, "project.include[0]"},
		{"ignore file name", func(c *Config) { c.Ignore.FileNames = []string{"a/.gitignore"} }, "plain file name"},
		{"store path", func(c *Config) { c.Store.Enabled = true; c.Store.Path = " " }, "store.path"},
		{"log level", func(c *Config) { c.Observability.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(t.TempDir())
			tt.mutate(cfg)
			errs := Validate(cfg)
			if len(errs) == 0 {
				t.Fatal("expected a validation error")
			}
			var found bool
			for _, err := range errs {
				if strings.Contains(err.Error(), tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v do not mention %q", errs, tt.want)
			}
		})
	}

	if errs := Validate(DefaultConfig(t.TempDir())); len(errs) != 0 {
		t.Errorf("default config should be valid: %v", errs)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("KNIP_ANALYSIS_WORKERS", "7")
	t.Setenv("KNIP_IGNORE_GITIGNORE", "false")
	t.Setenv("KNIP_WATCH_DEBOUNCE", "2s")
	t.Setenv("KNIP_STORE_ENABLED", "not-a-bool")

	cfg := DefaultConfig(t.TempDir())
	ApplyEnvOverrides(cfg)

	if cfg.Analysis.Workers != 7 {
		t.Errorf("workers = %d", cfg.Analysis.Workers)
	}
	if cfg.RespectGitignore() {
		t.Error("expected gitignore override")
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("debounce = %v", cfg.Watch.Debounce)
	}
	if cfg.Store.Enabled {
		t.Error("invalid boolean should be ignored")
	}
}

func TestLoadOrDefault(t *testing.T) {
	root := t.TempDir()
	cfg, err := LoadOrDefault("", root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path() != "" || cfg.Project.Root != root {
		t.Errorf("expected defaults for %q, got root %q path %q", root, cfg.Project.Root, cfg.Path())
	}

	if err := os.WriteFile(filepath.Join(root, "knip.toml"), []byte("[analysis]\nworkers = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOrDefault("", root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Analysis.Workers != 2 {
		t.Errorf("config in root was not found")
	}
}
