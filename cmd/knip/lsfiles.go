package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heystewart/knip/internal/core/app"
)

func newLsFilesCommand(opts *globalOptions) *cobra.Command {
	var showIgnoreFiles, absolute bool

	cmd := &cobra.Command{
		Use:   "ls-files",
		Short: "Print the files an analysis pass would read",
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

			session, err := a.NewSession(ctx, cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if showIgnoreFiles {
				for _, f := range session.Result().IgnoreFiles {
					fmt.Fprintln(out, f)
				}
				return nil
			}

			files, err := a.ListFiles(ctx, cfg, session)
			if err != nil {
				return err
			}
			for _, f := range files {
				if !absolute {
					f = rel(cfg.Project.Root, f)
				}
				fmt.Fprintln(out, f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showIgnoreFiles, "ignore-files", false, "print the ignore files in effect instead")
	cmd.Flags().BoolVar(&absolute, "absolute", false, "print absolute paths")
	return cmd
}
