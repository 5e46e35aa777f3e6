// # internal/core/watcher/watcher.go
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/heystewart/knip/internal/shared/observability"
)

// Filter decides which paths the watcher cares about. Paths are absolute.
type Filter interface {
	SkipDir(path string) bool
	SkipFile(path string) bool
}

// FilterFunc adapts a single predicate for both directories and files.
type FilterFunc func(path string, isDir bool) bool

func (f FilterFunc) SkipDir(path string) bool  { return f(path, true) }
func (f FilterFunc) SkipFile(path string) bool { return f(path, false) }

type nopFilter struct{}

func (nopFilter) SkipDir(string) bool  { return false }
func (nopFilter) SkipFile(string) bool { return false }

// Watcher batches file system events under a debounce window and hands the
// changed paths to onChange. Callbacks never overlap.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	onChange   func([]string)
	callbackMu sync.Mutex

	filterMu sync.RWMutex
	filter   Filter

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer
}

func NewWatcher(debounce time.Duration, filter Filter, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	if filter == nil {
		filter = nopFilter{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		filter:    filter,
		onChange:  onChange,
		pending:   make(map[string]time.Time),
	}, nil
}

// SetFilter swaps the filter, e.g. after the ignore rules were resolved
// again.
func (w *Watcher) SetFilter(filter Filter) {
	if filter == nil {
		filter = nopFilter{}
	}
	w.filterMu.Lock()
	w.filter = filter
	w.filterMu.Unlock()
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) currentFilter() Filter {
	w.filterMu.RLock()
	defer w.filterMu.RUnlock()
	return w.filter
}

func (w *Watcher) watchRecursive(root string) error {
	filter := w.currentFilter()
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && filter.SkipDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			filter := w.currentFilter()

			if event.Has(fsnotify.Create) {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !filter.SkipDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if filter.SkipFile(event.Name) {
				continue
			}

			if event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) ||
				event.Has(fsnotify.Rename) {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	filter := w.currentFilter()
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d == nil {
			return nil
		}
		if d.IsDir() {
			if path != root && filter.SkipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !filter.SkipFile(path) {
			w.scheduleChange(path)
		}
		return nil
	})
}
