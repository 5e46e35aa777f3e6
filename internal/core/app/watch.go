// # internal/core/app/watch.go
package app

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/heystewart/knip/internal/core/watcher"
	"github.com/heystewart/knip/internal/shared/util"
)

// Watch runs a pass, then another one whenever relevant files change, until
// ctx is done. Bursts of events collapse into one pass and passes are rate
// limited. onPass sees every successful result.
func (a *App) Watch(ctx context.Context, onPass func(*Result)) error {
	res, err := a.Run(ctx)
	if err != nil {
		return err
	}
	if onPass != nil {
		onPass(res)
	}

	cfg := a.Config()
	limiter := util.NewLimiter(cfg.Watch.MaxPassesPerSecond, 1)
	changes := make(chan []string, 1)

	w, err := watcher.NewWatcher(cfg.Watch.Debounce, a.WatchFilter(), func(paths []string) {
		select {
		case changes <- paths:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch([]string{cfg.Project.Root}); err != nil {
		return err
	}
	slog.Info("watching for changes", "root", cfg.Project.Root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changes:
			if err := limiter.Wait(ctx, 1); err != nil {
				return nil
			}
			slog.Info("detected changes", "count", len(paths))

			res, err := a.Run(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("analysis pass failed", "error", err)
				continue
			}
			w.SetFilter(a.WatchFilter())
			next := a.Config().Watch
			w.SetDebounce(next.Debounce)
			limiter.SetRate(next.MaxPassesPerSecond)
			if onPass != nil {
				onPass(res)
			}
		}
	}
}

// WatchFilter skips ignored directories and files the parser does not
// handle. Ignore files and the config file always trigger a pass since
// they change what the next pass sees.
func (a *App) WatchFilter() watcher.Filter {
	session := a.Session()
	cfgPath := a.Config().Path()
	return watcher.FilterFunc(func(p string, isDir bool) bool {
		if isDir {
			return session != nil && session.IsIgnoredDir(p)
		}
		if session != nil && session.IsIgnoreFile(p) {
			return false
		}
		if cfgPath != "" && filepath.Clean(p) == cfgPath {
			return false
		}
		if !a.parser.Supports(p) {
			return true
		}
		return session != nil && session.IsIgnored(p)
	})
}
