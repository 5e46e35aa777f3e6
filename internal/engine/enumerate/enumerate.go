// Package enumerate computes the candidate file set for a query scope by
// combining include globs, excludes and the resolved ignore rules.
package enumerate

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	kerrors "github.com/heystewart/knip/internal/core/errors"
	"github.com/heystewart/knip/internal/engine/glob"
	"github.com/heystewart/knip/internal/engine/ignore"
	"github.com/heystewart/knip/internal/shared/observability"
)

type Query struct {
	// Patterns are include globs relative to Dir. A leading "!" excludes.
	Patterns []string
	// Ignore holds exclude globs relative to Dir.
	Ignore []string
	// Dir is the query scope, for example a workspace. Defaults to Cwd.
	Dir string
	// Cwd is the project root.
	Cwd string
	// Gitignore applies the session's ignore rules.
	Gitignore bool
	// Label names the query in logs and metrics.
	Label string

	Absolute        bool
	OnlyDirectories bool
	Dot             bool
}

type Enumerator struct {
	engine  *glob.Engine
	session *ignore.Session

	mu    sync.Mutex
	lists map[string][]string
}

// New returns an enumerator. session may be nil, in which case only the
// global ignore patterns and per-query excludes apply.
func New(engine *glob.Engine, session *ignore.Session) *Enumerator {
	if engine == nil {
		engine = glob.NewEngine(nil)
	}
	return &Enumerator{
		engine:  engine,
		session: session,
		lists:   make(map[string][]string),
	}
}

// Reset drops the per-directory ignore lists. Call it after the session is
// resolved again.
func (e *Enumerator) Reset() {
	e.mu.Lock()
	e.lists = make(map[string][]string)
	e.mu.Unlock()
}

// Glob returns the files under q.Dir matching q.Patterns, minus excludes and
// ignored paths, in lexical order.
func (e *Enumerator) Glob(ctx context.Context, q Query) ([]string, error) {
	if len(q.Patterns) == 0 {
		return nil, nil
	}
	if strings.TrimSpace(q.Cwd) == "" {
		return nil, kerrors.New(kerrors.CodeValidationError, "glob query requires a project root")
	}

	ctx, span := observability.Tracer.Start(ctx, "enumerate.Glob")
	defer span.End()
	start := time.Now()

	cwd, err := filepath.Abs(q.Cwd)
	if err != nil {
		return nil, kerrors.AddContext(kerrors.Wrap(err, kerrors.CodeIO, "resolve project root"), kerrors.CtxPath, q.Cwd)
	}
	dir := cwd
	if q.Dir != "" {
		if filepath.IsAbs(q.Dir) {
			dir = filepath.Clean(q.Dir)
		} else {
			dir = filepath.Join(cwd, q.Dir)
		}
	}

	var ignores []string
	if q.Gitignore && e.session != nil {
		ignores = append(ignores, e.IgnorePatterns(dir)...)
	} else {
		ignores = append(ignores, ignore.GlobalIgnorePatterns...)
	}
	prefix := relSlash(cwd, dir)
	// Excludes also drop everything below a directory they name.
	for _, p := range q.Ignore {
		p = prependDir(prefix, p)
		ignores = append(ignores, p)
		if !strings.HasSuffix(p, "/**") {
			ignores = append(ignores, p+"/**")
		}
	}

	label := q.Label
	if label == "" {
		label = "glob"
	}
	slog.Debug("glob query",
		"label", label,
		"cwd", cwd,
		"dir", dir,
		"patterns", q.Patterns,
		"ignore", ignores,
		"absolute", q.Absolute,
		"onlyDirectories", q.OnlyDirectories,
		"dot", q.Dot)

	files, err := e.engine.Glob(ctx, q.Patterns, glob.Options{
		Cwd:             dir,
		IgnoreBase:      cwd,
		Ignore:          ignores,
		Absolute:        q.Absolute,
		OnlyDirectories: q.OnlyDirectories,
		Dot:             q.Dot,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	observability.GlobQueries.WithLabelValues(label).Inc()
	observability.GlobDuration.Observe(time.Since(start).Seconds())
	return files, nil
}

// IgnorePatterns returns the ignore list for a query rooted at dir, relative
// to the session's working directory: the working directory's own patterns
// (built-ins and ancestors included), then those cached for every directory
// between it and dir, then those cached below dir. The session orders them
// so that a last-match-wins matcher decides every path the way IsIgnored
// does. Lists are cached per directory.
func (e *Enumerator) IgnorePatterns(dir string) []string {
	if e.session == nil {
		return append([]string(nil), ignore.GlobalIgnorePatterns...)
	}
	dir = filepath.Clean(dir)

	e.mu.Lock()
	defer e.mu.Unlock()
	if list, ok := e.lists[dir]; ok {
		return append([]string(nil), list...)
	}

	cwd := e.session.Cwd()
	cache := e.session.Cache()

	dirs := make([]string, 0, len(cache))
	for d := range cache {
		if d == cwd {
			continue
		}
		if within(cwd, d) && (within(d, dir) || within(dir, d)) {
			dirs = append(dirs, d)
		}
	}
	sort.Strings(dirs)

	sets := []ignore.PatternSet{cache[cwd]}
	for _, d := range dirs {
		sets = append(sets, cache[d])
	}
	list := e.session.Ordered(sets...)
	e.lists[dir] = list
	slog.Debug("ignore patterns", "dir", dir, "patterns", len(list))
	return append([]string(nil), list...)
}

// within reports whether p is parent or equal to child.
func within(parent, child string) bool {
	r, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return r == "." || (r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)))
}

func relSlash(from, to string) string {
	r, err := filepath.Rel(from, to)
	if err != nil || r == "." {
		return ""
	}
	return filepath.ToSlash(r)
}

func prependDir(dir, pattern string) string {
	if dir == "" {
		return pattern
	}
	if strings.HasPrefix(pattern, "!") {
		return "!" + path.Join(dir, strings.TrimPrefix(pattern[1:], "./"))
	}
	return path.Join(dir, strings.TrimPrefix(pattern, "./"))
}
