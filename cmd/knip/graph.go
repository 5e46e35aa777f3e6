package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/heystewart/knip/internal/core/app"
	"github.com/heystewart/knip/internal/core/config"
)

func newWhyCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "why <from> <to>",
		Short: "Print the shortest import chain between two files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, cfg, err := runPass(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			from, to := absIn(cfg, args[0]), absIn(cfg, args[1])
			chain, ok := res.Graph.FindImportChain(from, to)
			if !ok {
				return fmt.Errorf("%s does not import %s", args[0], args[1])
			}
			for i, p := range chain {
				fmt.Fprintf(cmd.OutOrStdout(), "%*s%s\n", i*2, "", rel(cfg.Project.Root, p))
			}
			return nil
		},
	}
}

func newImpactCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "impact <file>",
		Short: "List the files that import a file, directly or transitively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, cfg, err := runPass(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			report, err := res.Graph.AnalyzeImpact(absIn(cfg, args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			root := cfg.Project.Root
			fmt.Fprintf(out, "%s\n", rel(root, report.TargetPath))
			fmt.Fprintf(out, "direct importers (%d):\n", len(report.DirectImporters))
			for _, p := range report.DirectImporters {
				fmt.Fprintf(out, "  %s\n", rel(root, p))
			}
			fmt.Fprintf(out, "transitive importers (%d):\n", len(report.TransitiveImporters))
			for _, p := range report.TransitiveImporters {
				fmt.Fprintf(out, "  %s\n", rel(root, p))
			}
			fmt.Fprintf(out, "used exports: %v\n", report.UsedExports)
			return nil
		},
	}
}

func runPass(ctx context.Context, cmd *cobra.Command, opts *globalOptions) (*app.Result, *config.Config, error) {
	cfg, cleanup, err := opts.setup(ctx, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	a, err := app.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	defer a.Close()

	res, err := a.Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	return res, cfg, nil
}

// absIn resolves a command line path against the project root.
func absIn(cfg *config.Config, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(cfg.Project.Root, p)
}
