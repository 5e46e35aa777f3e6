// # internal/engine/glob/engine.go
package glob

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	kerrors "github.com/heystewart/knip/internal/core/errors"
)

const defaultCacheSize = 4096

// dirProbe stands in for "any entry" when deciding whether a directory's
// whole subtree is excluded.
const dirProbe = "\x00"

// FS is the slice of the filesystem the engine needs.
type FS interface {
	ReadDir(name string) ([]fs.DirEntry, error)
}

// OSFS reads the real filesystem.
type OSFS struct{}

func (OSFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

// Options mirror the usual glob-library switches.
type Options struct {
	// Cwd is walked and include patterns are relative to it.
	Cwd string
	// IgnoreBase is the directory ignore patterns are relative to. Defaults
	// to Cwd.
	IgnoreBase string
	// Ignore is evaluated in order; a later "!pattern" re-includes what an
	// earlier pattern excluded.
	Ignore []string

	Absolute        bool
	OnlyDirectories bool
	Dot             bool
}

type Engine struct {
	fs    FS
	cache *lruCache[string, *Pattern]
}

func NewEngine(fsys FS) *Engine {
	if fsys == nil {
		fsys = OSFS{}
	}
	return &Engine{fs: fsys, cache: newLRUCache[string, *Pattern](defaultCacheSize)}
}

// Compile returns the compiled form of pattern, reusing cached results.
func (e *Engine) Compile(pattern string) (*Pattern, error) {
	if p, ok := e.cache.Get(pattern); ok {
		return p, nil
	}
	p, err := compilePattern(pattern)
	if err != nil {
		return nil, kerrors.AddContext(
			kerrors.Wrap(err, kerrors.CodeValidationError, "invalid glob pattern"),
			kerrors.CtxPattern, pattern)
	}
	e.cache.Put(pattern, p)
	return p, nil
}

// Matcher evaluates an ordered ignore list.
type Matcher struct {
	patterns []*Pattern
}

// NewMatcher compiles patterns, dropping any that fail to compile.
func (e *Engine) NewMatcher(patterns []string) *Matcher {
	m := &Matcher{}
	for _, raw := range patterns {
		p, err := e.Compile(raw)
		if err != nil {
			continue
		}
		m.patterns = append(m.patterns, p)
	}
	return m
}

// Ignored applies the list last-match-wins: a later negated pattern
// overrides an earlier exclusion.
func (m *Matcher) Ignored(rel string) bool {
	ignored := false
	for _, p := range m.patterns {
		if p.Negated {
			if ignored && p.Match(rel) {
				ignored = false
			}
			continue
		}
		if !ignored && p.Match(rel) {
			ignored = true
		}
	}
	return ignored
}

// ExcludesDir reports whether a walk may skip dir because Ignored holds for
// everything below it: the last pattern covering the subtree is an
// exclusion and no negation after it can reach inside.
func (m *Matcher) ExcludesDir(rel string) bool {
	last := -1
	for i, p := range m.patterns {
		if !p.Negated && p.Covers(rel) {
			last = i
		}
	}
	if last < 0 {
		return false
	}
	for _, p := range m.patterns[last+1:] {
		if p.Negated && p.ReachesBelow(rel) {
			return false
		}
	}
	return true
}

// Glob walks opts.Cwd and returns entries matching patterns, minus ignored
// ones, in lexical order.
func (e *Engine) Glob(ctx context.Context, patterns []string, opts Options) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	cwd, err := filepath.Abs(opts.Cwd)
	if err != nil {
		return nil, err
	}
	ignoreBase := cwd
	if opts.IgnoreBase != "" {
		if ignoreBase, err = filepath.Abs(opts.IgnoreBase); err != nil {
			return nil, err
		}
	}
	offset, err := filepath.Rel(ignoreBase, cwd)
	if err != nil {
		return nil, err
	}
	offset = filepath.ToSlash(offset)

	var includes, excludes []*Pattern
	for _, raw := range patterns {
		p, err := e.Compile(raw)
		if err != nil {
			return nil, err
		}
		if p.Negated {
			excludes = append(excludes, p)
		} else {
			includes = append(includes, p)
		}
	}
	ignore := e.NewMatcher(opts.Ignore)

	w := &walker{
		engine:   e,
		opts:     opts,
		cwd:      cwd,
		offset:   offset,
		includes: includes,
		excludes: excludes,
		ignore:   ignore,
	}
	if err := w.walk(ctx, ""); err != nil {
		return nil, err
	}
	sort.Strings(w.results)
	return w.results, nil
}

type walker struct {
	engine   *Engine
	opts     Options
	cwd      string
	offset   string
	includes []*Pattern
	excludes []*Pattern
	ignore   *Matcher
	results  []string
}

func (w *walker) ignoreRel(rel string) string {
	if w.offset == "." || w.offset == "" {
		return rel
	}
	return path.Join(w.offset, rel)
}

func (w *walker) walk(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := w.engine.fs.ReadDir(filepath.Join(w.cwd, filepath.FromSlash(dir)))
	if err != nil {
		if dir == "" {
			return err
		}
		// Unreadable subdirectories are skipped, the way a shell glob would.
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if !w.opts.Dot && strings.HasPrefix(name, ".") {
			continue
		}
		rel := name
		if dir != "" {
			rel = dir + "/" + name
		}
		ignoreRel := w.ignoreRel(rel)

		if entry.IsDir() {
			if w.ignore.ExcludesDir(ignoreRel) {
				continue
			}
			if w.opts.OnlyDirectories && !w.ignore.Ignored(ignoreRel) && w.included(rel) {
				w.emit(rel)
			}
			if err := w.walk(ctx, rel); err != nil {
				return err
			}
			continue
		}

		if w.opts.OnlyDirectories || w.ignore.Ignored(ignoreRel) || !w.included(rel) {
			continue
		}
		w.emit(rel)
	}
	return nil
}

func (w *walker) included(rel string) bool {
	matched := false
	for _, p := range w.includes {
		if p.Match(rel) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, p := range w.excludes {
		if p.Match(rel) {
			return false
		}
	}
	return true
}

func (w *walker) emit(rel string) {
	if w.opts.Absolute {
		w.results = append(w.results, filepath.Join(w.cwd, filepath.FromSlash(rel)))
		return
	}
	w.results = append(w.results, rel)
}
