package config

import (
	"time"
)

const (
	CurrentVersion = 1

	DefaultStorePath          = ".knip/knip.db"
	DefaultDebounce           = 300 * time.Millisecond
	DefaultMaxPassesPerSecond = 1.0
)

// FileNames are looked up, in order, when no explicit config path is given.
var FileNames = []string{"knip.toml", "knip.yaml", "knip.yml"}

// DefaultInclude matches every source file the parser understands.
var DefaultInclude = []string{"**/*.{js,jsx,mjs,cjs,ts,tsx,mts,cts}"}

// TestPatterns are excluded unless analysis.include_tests is set.
var TestPatterns = []string{"**/*.test.*", "**/*.spec.*", "**/__tests__/**"}

type Config struct {
	Version       int           `toml:"version" yaml:"version"`
	Project       Project       `toml:"project" yaml:"project"`
	Ignore        Ignore        `toml:"ignore" yaml:"ignore"`
	Analysis      Analysis      `toml:"analysis" yaml:"analysis"`
	Store         Store         `toml:"store" yaml:"store"`
	Watch         Watch         `toml:"watch" yaml:"watch"`
	Observability Observability `toml:"observability" yaml:"observability"`

	// path is the file the config was loaded from, if any.
	path string
}

type Project struct {
	Root       string      `toml:"root" yaml:"root"`
	Include    []string    `toml:"include" yaml:"include"`
	Exclude    []string    `toml:"exclude" yaml:"exclude"`
	Workspaces []Workspace `toml:"workspaces" yaml:"workspaces"`
}

// Workspace is a nested package analysed with its own include/exclude
// patterns, relative to Dir.
type Workspace struct {
	Name    string   `toml:"name" yaml:"name"`
	Dir     string   `toml:"dir" yaml:"dir"`
	Include []string `toml:"include" yaml:"include"`
	Exclude []string `toml:"exclude" yaml:"exclude"`
}

type Ignore struct {
	Gitignore *bool    `toml:"gitignore" yaml:"gitignore"`
	FileNames []string `toml:"file_names" yaml:"file_names"`
	Patterns  []string `toml:"patterns" yaml:"patterns"`
}

type Analysis struct {
	Workers      int  `toml:"workers" yaml:"workers"`
	IncludeTests bool `toml:"include_tests" yaml:"include_tests"`
}

type Store struct {
	Enabled    bool   `toml:"enabled" yaml:"enabled"`
	Path       string `toml:"path" yaml:"path"`
	ProjectKey string `toml:"project_key" yaml:"project_key"`
}

type Watch struct {
	Debounce           time.Duration `toml:"debounce" yaml:"debounce"`
	MaxPassesPerSecond float64       `toml:"max_passes_per_second" yaml:"max_passes_per_second"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr" yaml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint" yaml:"otlp_endpoint"`
	LogLevel     string `toml:"log_level" yaml:"log_level"`
}

// DefaultConfig returns a config for root with every default applied.
func DefaultConfig(root string) *Config {
	cfg := &Config{Project: Project{Root: root}}
	applyDefaults(cfg)
	return cfg
}

// RespectGitignore reports whether ignore files are honoured; on unless
// explicitly disabled.
func (c *Config) RespectGitignore() bool {
	return c.Ignore.Gitignore == nil || *c.Ignore.Gitignore
}

// Path returns the file the config was loaded from, or "".
func (c *Config) Path() string {
	return c.path
}

// ExcludePatterns returns the project excludes, plus test patterns when
// tests are not analysed.
func (c *Config) ExcludePatterns(extra []string) []string {
	out := append([]string(nil), c.Project.Exclude...)
	out = append(out, extra...)
	if !c.Analysis.IncludeTests {
		out = append(out, TestPatterns...)
	}
	return out
}
