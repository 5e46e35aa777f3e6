package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies KNIP_[SECTION]_[KEY] environment overrides,
// e.g. KNIP_STORE_ENABLED=true.
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Project.Root, "KNIP_PROJECT_ROOT")

	if val, ok := os.LookupEnv("KNIP_IGNORE_GITIGNORE"); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", "KNIP_IGNORE_GITIGNORE", "value", val)
			cfg.Ignore.Gitignore = &b
		}
	}

	setEnvInt(&cfg.Analysis.Workers, "KNIP_ANALYSIS_WORKERS")
	setEnvBool(&cfg.Analysis.IncludeTests, "KNIP_ANALYSIS_INCLUDE_TESTS")

	setEnvBool(&cfg.Store.Enabled, "KNIP_STORE_ENABLED")
	setEnvString(&cfg.Store.Path, "KNIP_STORE_PATH")
	setEnvString(&cfg.Store.ProjectKey, "KNIP_STORE_PROJECT_KEY")

	setEnvDuration(&cfg.Watch.Debounce, "KNIP_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.MaxPassesPerSecond, "KNIP_WATCH_MAX_PASSES_PER_SECOND")

	setEnvString(&cfg.Observability.MetricsAddr, "KNIP_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "KNIP_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.LogLevel, "KNIP_OBSERVABILITY_LOG_LEVEL")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
