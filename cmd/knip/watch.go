package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/heystewart/knip/internal/core/app"
	"github.com/heystewart/knip/internal/core/config"
)

func newWatchCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-run analysis passes when files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

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

			if path := cfg.Path(); path != "" {
				cw := config.NewWatcher(path, a.UpdateConfig)
				if err := cw.Start(ctx); err != nil {
					slog.Warn("config reload disabled", "path", path, "error", err)
				} else {
					defer cw.Stop()
				}
			}

			out := cmd.OutOrStdout()
			err = a.Watch(ctx, func(res *app.Result) {
				printSummary(out, a.Config().Project.Root, res)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
