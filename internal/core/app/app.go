// Package app runs analysis passes: resolve the ignore rules, enumerate the
// project and its workspaces, parse files in parallel and fold their facts
// into a fresh dependency graph.
package app

import (
	"context"
	"log/slog"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/heystewart/knip/internal/core/config"
	kerrors "github.com/heystewart/knip/internal/core/errors"
	"github.com/heystewart/knip/internal/core/ports"
	"github.com/heystewart/knip/internal/data/store"
	"github.com/heystewart/knip/internal/engine/enumerate"
	"github.com/heystewart/knip/internal/engine/glob"
	"github.com/heystewart/knip/internal/engine/graph"
	"github.com/heystewart/knip/internal/engine/ignore"
	"github.com/heystewart/knip/internal/engine/parser"
	"github.com/heystewart/knip/internal/engine/resolver"
	"github.com/heystewart/knip/internal/shared/observability"
)

// FileError is a file that could not be analyzed. The pass goes on without
// its facts.
type FileError struct {
	Path string
	Err  error
}

// Result is the outcome of one pass.
type Result struct {
	SessionID   string
	Graph       *graph.Graph
	Files       []string
	IgnoreFiles []string
	Failures    []FileError
	Duration    time.Duration
}

type App struct {
	parser   ports.CodeParser
	resolver ports.SpecifierResolver
	store    ports.GraphStore
	engine   *glob.Engine

	// runMu serializes passes.
	runMu sync.Mutex

	stateMu sync.RWMutex
	cfg     *config.Config
	session *ignore.Session
	last    *Result
}

type Option func(*App)

func WithParser(p ports.CodeParser) Option {
	return func(a *App) { a.parser = p }
}

func WithResolver(r ports.SpecifierResolver) Option {
	return func(a *App) { a.resolver = r }
}

// WithStore overrides the store opened from the config.
func WithStore(s ports.GraphStore) Option {
	return func(a *App) { a.store = s }
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, kerrors.New(kerrors.CodeValidationError, "app requires a config")
	}
	a := &App{cfg: cfg, engine: glob.NewEngine(nil)}
	for _, opt := range opts {
		opt(a)
	}
	if a.parser == nil {
		a.parser = parser.NewParser()
	}
	if a.resolver == nil {
		a.resolver = resolver.NewResolver(nil)
	}
	if a.store == nil && cfg.Store.Enabled {
		st, err := store.Open(cfg.StorePath())
		if err != nil {
			return nil, err
		}
		a.store = st
	}
	return a, nil
}

func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *App) Config() *config.Config {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.cfg
}

// UpdateConfig swaps the config used by the next pass. The store is kept
// as opened.
func (a *App) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.stateMu.Lock()
	a.cfg = cfg
	a.stateMu.Unlock()
}

// Session returns the ignore session of the latest pass, or nil.
func (a *App) Session() *ignore.Session {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.session
}

// Last returns the latest successful pass, or nil.
func (a *App) Last() *Result {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.last
}

// NewSession builds the ignore session for cfg. Ignore files are only read
// when the config honours them; built-ins and configured patterns always
// apply.
func (a *App) NewSession(ctx context.Context, cfg *config.Config) (*ignore.Session, error) {
	session, err := ignore.NewSession(cfg.Project.Root, ignore.Options{
		FileNames: cfg.Ignore.FileNames,
		Extra:     cfg.Ignore.Patterns,
		Engine:    a.engine,
	})
	if err != nil {
		return nil, err
	}
	if cfg.RespectGitignore() {
		if _, err := session.Resolve(ctx); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// ListFiles returns the absolute paths of every file a pass would analyze:
// each workspace with its own patterns, then the rest of the project.
func (a *App) ListFiles(ctx context.Context, cfg *config.Config, session *ignore.Session) ([]string, error) {
	en := enumerate.New(a.engine, session)
	seen := make(map[string]bool)
	var files []string
	add := func(found []string) {
		for _, f := range found {
			if !seen[f] && a.parser.Supports(f) {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	workspaceDirs := make([]string, 0, len(cfg.Project.Workspaces))
	for _, ws := range cfg.Project.Workspaces {
		found, err := en.Glob(ctx, enumerate.Query{
			Patterns:  ws.Include,
			Ignore:    withTests(cfg, ws.Exclude),
			Dir:       ws.Dir,
			Cwd:       cfg.Project.Root,
			Gitignore: true,
			Label:     "workspace",
			Absolute:  true,
		})
		if err != nil {
			return nil, kerrors.AddContext(err, "workspace", ws.Name)
		}
		add(found)
		workspaceDirs = append(workspaceDirs, path.Join(ws.Dir, "**"))
	}

	found, err := en.Glob(ctx, enumerate.Query{
		Patterns:  cfg.Project.Include,
		Ignore:    cfg.ExcludePatterns(workspaceDirs),
		Cwd:       cfg.Project.Root,
		Gitignore: true,
		Label:     "project",
		Absolute:  true,
	})
	if err != nil {
		return nil, err
	}
	add(found)

	sort.Strings(files)
	return files, nil
}

func withTests(cfg *config.Config, excludes []string) []string {
	out := append([]string(nil), excludes...)
	if !cfg.Analysis.IncludeTests {
		out = append(out, config.TestPatterns...)
	}
	return out
}

// Run performs one full pass. Every pass starts from a new ignore session
// and a new graph; nothing is carried over from earlier passes.
func (a *App) Run(ctx context.Context) (*Result, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	cfg := a.Config()
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "app.Run",
		trace.WithAttributes(attribute.String("root", cfg.Project.Root)))
	defer span.End()

	session, err := a.NewSession(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("session", session.ID))

	files, err := a.ListFiles(ctx, cfg, session)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	slog.Debug("enumerated files", "session", session.ID, "count", len(files))

	a.resolver.Reset()
	g := graph.NewGraph()
	failures, err := a.analyze(ctx, cfg, g, files)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if a.store != nil {
		if err := a.store.SaveGraph(cfg.Store.ProjectKey, g); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	res := &Result{
		SessionID:   session.ID,
		Graph:       g,
		Files:       files,
		IgnoreFiles: session.Result().IgnoreFiles,
		Failures:    failures,
		Duration:    time.Since(start),
	}
	observability.AnalysisDuration.WithLabelValues("pass").Observe(res.Duration.Seconds())
	slog.Info("analysis pass complete",
		"session", session.ID,
		"files", len(files),
		"nodes", g.Len(),
		"failures", len(failures),
		"duration", res.Duration)

	a.stateMu.Lock()
	a.session = session
	a.last = res
	a.stateMu.Unlock()
	return res, nil
}

// analyze parses files with a bounded pool and merges their facts. Merges
// commute, so the graph does not depend on completion order.
func (a *App) analyze(ctx context.Context, cfg *config.Config, g *graph.Graph, files []string) ([]FileError, error) {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(cfg.Analysis.Workers, 1))

	var mu sync.Mutex
	var failures []FileError

	for _, f := range files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			facts, err := a.analyzeFile(f)
			if err != nil {
				slog.Warn("failed to analyze file", "path", f, "error", err)
				observability.FilesAnalyzed.WithLabelValues("failed").Inc()
				g.GetOrCreateFileNode(f)
				mu.Lock()
				failures = append(failures, FileError{Path: f, Err: err})
				mu.Unlock()
				return nil
			}
			g.Apply(f, facts)
			observability.FilesAnalyzed.WithLabelValues("ok").Inc()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
	return failures, nil
}

func (a *App) analyzeFile(path string) (*graph.FileFacts, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, kerrors.AddContext(kerrors.Wrap(err, kerrors.CodeIO, "read source file"), kerrors.CtxPath, path)
	}
	file, err := a.parser.ParseFile(path, content)
	if err != nil {
		return nil, err
	}
	return BuildFacts(file, a.resolver), nil
}
