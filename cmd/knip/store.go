package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heystewart/knip/internal/core/config"
	"github.com/heystewart/knip/internal/data/store"
)

// The store commands read the snapshot written by the last persisted pass
// and never analyze the project themselves.

func newImportersCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "importers <file> <identifier>",
		Short: "List the files that import an export, from the stored snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(cfg *config.Config, st *store.Store) error {
				importers, err := st.Importers(cfg.Store.ProjectKey, absIn(cfg, args[0]), args[1])
				if err != nil {
					return err
				}
				for _, p := range importers {
					fmt.Fprintln(cmd.OutOrStdout(), rel(cfg.Project.Root, p))
				}
				return nil
			})
		},
	}
}

func newExportsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exports <file>",
		Short: "List the exports of a file, from the stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(cfg *config.Config, st *store.Store) error {
				exports, err := st.Exports(cfg.Store.ProjectKey, absIn(cfg, args[0]))
				if err != nil {
					return err
				}
				for _, e := range exports {
					marker := ""
					if e.IsReExport {
						marker = " (re-export)"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d:%d\t%s\t%s%s\n", e.Line, e.Col, e.Type, e.Identifier, marker)
				}
				return nil
			})
		},
	}
}

func withStore(cmd *cobra.Command, opts *globalOptions, fn func(*config.Config, *store.Store) error) error {
	cfg, cleanup, err := opts.setup(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.LoadSnapshot(cfg.Store.ProjectKey)
	if err != nil {
		return fmt.Errorf("run `knip scan --store` first: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "snapshot of %d files from %s\n", snap.FileCount, snap.Timestamp.Format("2006-01-02 15:04:05Z07:00"))
	return fn(cfg, st)
}
