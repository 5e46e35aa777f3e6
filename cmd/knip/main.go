// Package main is the knip command line: analyze a JS/TS project into a
// dependency graph, list the files that enter analysis, or keep the graph
// fresh in watch mode.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/heystewart/knip/internal/core/config"
	"github.com/heystewart/knip/internal/shared/observability"
)

// Set with -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
)

type globalOptions struct {
	configPath  string
	root        string
	verbose     bool
	metricsAddr string
	store       bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "knip",
		Short: "Build the import/export graph of a JavaScript or TypeScript project",
		Long: `knip resolves the project's ignore files, enumerates the source files that
enter analysis and aggregates every import and export into one graph.

Commands:
  scan      Run one analysis pass
  watch     Re-run passes when files change
  ls-files  Print the files a pass would analyze
  why       Show how one file reaches another
  impact    List the files affected by a change
  importers Query the stored snapshot for the importers of an export
  exports   Query the stored snapshot for the exports of a file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default: knip.toml or knip.yaml in the project root)")
	flags.StringVarP(&opts.root, "root", "r", ".", "project root")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address")
	flags.BoolVar(&opts.store, "store", false, "persist each pass to the SQLite store (store.enabled)")

	rootCmd.AddCommand(
		newScanCommand(opts),
		newWatchCommand(opts),
		newLsFilesCommand(opts),
		newWhyCommand(opts),
		newImpactCommand(opts),
		newImportersCommand(opts),
		newExportsCommand(opts),
		versionCmd(),
	)
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "knip %s (commit: %s)\n", version, commit)
		},
	}
}

// setup loads the config and configures logging, tracing and the metrics
// server. The returned cleanup must run before exit.
func (o *globalOptions) setup(ctx context.Context, stderr io.Writer) (*config.Config, func(), error) {
	cfg, err := config.LoadOrDefault(o.configPath, o.root)
	if err != nil {
		return nil, nil, err
	}
	if o.metricsAddr != "" {
		cfg.Observability.MetricsAddr = o.metricsAddr
	}
	if o.store {
		cfg.Store.Enabled = true
	}
	configureLogging(stderr, o.verbose, cfg.Observability.LogLevel)
	if path := cfg.Path(); path != "" {
		slog.Debug("loaded config", "path", path, "root", cfg.Project.Root)
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}
	cleanups = append(cleanups, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	})

	if cfg.Observability.MetricsAddr != "" {
		srv := observability.NewServer(cfg.Observability.MetricsAddr, nil)
		if err := srv.Start(); err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(sctx); err != nil {
				slog.Warn("failed to stop observability server", "error", err)
			}
		})
	}
	return cfg, cleanup, nil
}

func configureLogging(w io.Writer, verbose bool, level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})))
}
