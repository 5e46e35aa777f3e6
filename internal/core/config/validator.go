package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/heystewart/knip/internal/engine/glob"
	"github.com/heystewart/knip/internal/shared/util"
)

// Validate returns every problem found in cfg.
func Validate(cfg *Config) []error {
	var errs []error
	if cfg.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("unsupported config version %d; supported version is %d", cfg.Version, CurrentVersion))
	}
	errs = append(errs, validateProject(cfg)...)
	errs = append(errs, validateIgnore(cfg)...)
	if cfg.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must be >= 0, got %d", cfg.Analysis.Workers))
	}
	if cfg.Store.Enabled && strings.TrimSpace(cfg.Store.Path) == "" {
		errs = append(errs, fmt.Errorf("store.path must not be empty when the store is enabled"))
	}
	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative"))
	}
	if cfg.Watch.MaxPassesPerSecond < 0 {
		errs = append(errs, fmt.Errorf("watch.max_passes_per_second must not be negative"))
	}
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("observability.log_level must be one of: debug, info, warn, error"))
	}
	return errs
}

func validateProject(cfg *Config) []error {
	var errs []error
	errs = append(errs, validatePatterns("project.include", cfg.Project.Include)...)
	errs = append(errs, validatePatterns("project.exclude", cfg.Project.Exclude)...)

	seenNames := make(map[string]bool)
	seenDirs := make(map[string]bool)
	for i, ws := range cfg.Project.Workspaces {
		ref := fmt.Sprintf("project.workspaces[%d]", i)
		dir := util.NormalizePatternPath(ws.Dir)
		switch {
		case dir == "":
			errs = append(errs, fmt.Errorf("%s.dir must name a directory below the project root", ref))
		case filepath.IsAbs(ws.Dir) || util.EscapesRoot(dir):
			errs = append(errs, fmt.Errorf("%s.dir %q must be inside the project root", ref, ws.Dir))
		case seenDirs[dir]:
			errs = append(errs, fmt.Errorf("%s.dir %q is declared twice", ref, ws.Dir))
		}
		seenDirs[dir] = true

		if ws.Name != "" {
			if seenNames[ws.Name] {
				errs = append(errs, fmt.Errorf("%s.name %q is declared twice", ref, ws.Name))
			}
			seenNames[ws.Name] = true
		}
		errs = append(errs, validatePatterns(ref+".include", ws.Include)...)
		errs = append(errs, validatePatterns(ref+".exclude", ws.Exclude)...)
	}
	return errs
}

func validateIgnore(cfg *Config) []error {
	var errs []error
	for i, name := range cfg.Ignore.FileNames {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
			errs = append(errs, fmt.Errorf("ignore.file_names[%d] must be a plain file name, got %q", i, name))
		}
	}
	return errs
}

var patternCompiler = glob.NewEngine(nil)

func validatePatterns(field string, patterns []string) []error {
	var errs []error
	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("%s[%d] must not be empty", field, i))
			continue
		}
		if _, err := patternCompiler.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("%s[%d]: %w", field, i, err))
		}
	}
	return errs
}
