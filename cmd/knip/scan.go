package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/heystewart/knip/internal/core/app"
	"github.com/heystewart/knip/internal/output"
	"github.com/heystewart/knip/internal/shared/util"
)

func newScanCommand(opts *globalOptions) *cobra.Command {
	var outPath, format string
	var printJSON, cycles bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one analysis pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, cleanup, err := opts.setup(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Run(ctx)
			if err != nil {
				return err
			}

			if format == "" && (outPath != "" || printJSON) {
				format = "json"
			}
			if format != "" {
				rendered, err := render(format, cfg.Project.Root, res)
				if err != nil {
					return err
				}
				if outPath == "" {
					_, err := io.WriteString(cmd.OutOrStdout(), rendered)
					return err
				}
				if err := util.WriteFileWithDirs(outPath, []byte(rendered), 0o644); err != nil {
					return err
				}
			}

			printSummary(cmd.OutOrStdout(), cfg.Project.Root, res)
			if cycles {
				printCycles(cmd.OutOrStdout(), cfg.Project.Root, res)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the graph to this file (JSON unless --format is set)")
	cmd.Flags().BoolVar(&printJSON, "json", false, "print the graph as JSON instead of a summary")
	cmd.Flags().StringVarP(&format, "format", "f", "", "graph format: json, dot, mermaid or tsv")
	cmd.Flags().BoolVar(&cycles, "cycles", false, "list import cycles")
	return cmd
}

func render(format, root string, res *app.Result) (string, error) {
	if format != "json" {
		return output.Render(format, res.Graph, root, res.Graph.DetectCycles())
	}
	data, err := json.MarshalIndent(res.Graph, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

func printSummary(w io.Writer, root string, res *app.Result) {
	var external, unresolved int
	for _, p := range res.Graph.Paths() {
		node, _ := res.Graph.Node(p)
		external += len(node.Imports.External)
		unresolved += len(node.Imports.Unresolved)
	}
	fmt.Fprintf(w, "analyzed %d files (%d graph nodes) in %s\n", len(res.Files), res.Graph.Len(), res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "external imports: %d, unresolved imports: %d, ignore files: %d\n", external, unresolved, len(res.IgnoreFiles))
	for _, f := range res.Failures {
		fmt.Fprintf(w, "failed: %s: %v\n", rel(root, f.Path), f.Err)
	}
}

func printCycles(w io.Writer, root string, res *app.Result) {
	cycles := res.Graph.DetectCycles()
	if len(cycles) == 0 {
		fmt.Fprintln(w, "no import cycles")
		return
	}
	fmt.Fprintf(w, "%d import cycles:\n", len(cycles))
	for _, c := range cycles {
		for i, p := range c {
			if i > 0 {
				fmt.Fprint(w, " -> ")
			}
			fmt.Fprint(w, rel(root, p))
		}
		fmt.Fprintf(w, " -> %s\n", rel(root, c[0]))
	}
}

func rel(root, p string) string {
	if r, err := filepath.Rel(root, p); err == nil {
		return filepath.ToSlash(r)
	}
	return p
}
