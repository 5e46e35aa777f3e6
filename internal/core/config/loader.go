package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	kerrors "github.com/heystewart/knip/internal/core/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a TOML or YAML config, by extension, applies defaults and
// environment overrides, and validates the result. A relative project root
// is resolved against the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kerrors.AddContext(kerrors.Wrap(err, kerrors.CodeIO, "read config"), kerrors.CtxPath, path)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, kerrors.AddContext(kerrors.Wrap(err, kerrors.CodeValidationError, "decode toml config"), kerrors.CtxPath, path)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, kerrors.AddContext(kerrors.Wrap(err, kerrors.CodeValidationError, "decode yaml config"), kerrors.CtxPath, path)
		}
	default:
		return nil, kerrors.AddContext(kerrors.New(kerrors.CodeNotSupported, "unsupported config format"), kerrors.CtxPath, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.path = abs
	if cfg.Project.Root == "" {
		cfg.Project.Root = filepath.Dir(abs)
	} else if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Join(filepath.Dir(abs), cfg.Project.Root)
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, kerrors.AddContext(
			kerrors.Wrap(errors.Join(errs...), kerrors.CodeValidationError, "invalid config"),
			kerrors.CtxPath, path)
	}
	return &cfg, nil
}

// Find returns the first known config file in dir, or "".
func Find(dir string) string {
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// LoadOrDefault loads path, or the config found in root when path is empty,
// falling back to defaults for root.
func LoadOrDefault(path, root string) (*Config, error) {
	if path == "" {
		path = Find(root)
	}
	if path != "" {
		return Load(path)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, kerrors.AddContext(kerrors.Wrap(err, kerrors.CodeIO, "resolve project root"), kerrors.CtxPath, root)
	}
	cfg := DefaultConfig(abs)
	ApplyEnvOverrides(cfg)
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, kerrors.Wrap(errors.Join(errs...), kerrors.CodeValidationError, "invalid config")
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = "."
	}
	if len(cfg.Project.Include) == 0 {
		cfg.Project.Include = append([]string(nil), DefaultInclude...)
	}
	for i := range cfg.Project.Workspaces {
		ws := &cfg.Project.Workspaces[i]
		if strings.TrimSpace(ws.Name) == "" {
			ws.Name = filepath.ToSlash(ws.Dir)
		}
		if len(ws.Include) == 0 {
			ws.Include = append([]string(nil), cfg.Project.Include...)
		}
	}

	if len(cfg.Ignore.FileNames) == 0 {
		cfg.Ignore.FileNames = []string{".gitignore"}
	}

	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = runtime.NumCPU()
	}

	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if strings.TrimSpace(cfg.Store.ProjectKey) == "" {
		cfg.Store.ProjectKey = filepath.Base(filepath.Clean(cfg.Project.Root))
	}

	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = DefaultDebounce
	}
	if cfg.Watch.MaxPassesPerSecond <= 0 {
		cfg.Watch.MaxPassesPerSecond = DefaultMaxPassesPerSecond
	}

	if strings.TrimSpace(cfg.Observability.LogLevel) == "" {
		cfg.Observability.LogLevel = "info"
	}
}

// StorePath resolves the store path against the project root.
func (c *Config) StorePath() string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.Project.Root, c.Store.Path)
}
