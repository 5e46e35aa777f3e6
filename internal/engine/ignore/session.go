// # internal/engine/ignore/session.go
package ignore

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	kerrors "github.com/heystewart/knip/internal/core/errors"
	"github.com/heystewart/knip/internal/engine/glob"
	"github.com/heystewart/knip/internal/shared/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	vcsDir          = ".git"
	localExcludeRel = ".git/info/exclude"
	defaultFileName = ".gitignore"
)

// GlobalIgnorePatterns are excluded from every enumeration, whether or not
// ignore files are respected.
var GlobalIgnorePatterns = []string{"**/node_modules/**", ".yarn", ".yarn/**"}

func builtinPatterns() []string {
	vcs := ConvertPattern("/" + vcsDir)
	return append([]string{vcs.Base(), vcs.Extended()}, GlobalIgnorePatterns...)
}

// origin records where a pattern came from. Rules from ignore files above
// the working directory only yield to unignores that are not nested, and
// built-ins yield to nothing.
type origin int

const (
	originBuiltin origin = iota
	originAncestor
	originRoot
	originNested
)

type compiled struct {
	pattern *glob.Pattern
	origin  origin
}

// PatternSet is what one directory's ignore file introduced. Patterns are
// relative to the session's working directory.
type PatternSet struct {
	Ignores   []string
	Unignores []string
}

func (p PatternSet) clone() PatternSet {
	return PatternSet{
		Ignores:   append([]string(nil), p.Ignores...),
		Unignores: append([]string(nil), p.Unignores...),
	}
}

type Options struct {
	// FileNames lists ignore file names to honour. Defaults to .gitignore.
	FileNames []string
	// Extra patterns are applied as if they were lines of the root ignore
	// file.
	Extra []string
	// Engine compiles patterns; a fresh one is created when nil.
	Engine *glob.Engine
}

// Result summarises a resolved session.
type Result struct {
	IgnoreFiles []string
	Ignores     []string
	Unignores   []string
}

// Session owns the ignore state of one analysis pass: aggregate patterns,
// the active matcher and the directory-keyed cache.
type Session struct {
	ID string

	cwd       string
	fileNames map[string]bool
	extra     []string
	engine    *glob.Engine

	mu          sync.RWMutex
	ignores     []string
	ignoreSet   map[string]origin
	unignores   []string
	unignoreSet map[string]origin
	matchers    []compiled
	overrides   []compiled
	cache       map[string]*PatternSet
	files       []string
}

func NewSession(cwd string, opts Options) (*Session, error) {
	if strings.TrimSpace(cwd) == "" {
		return nil, kerrors.New(kerrors.CodeValidationError, "ignore session requires a working directory")
	}
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return nil, kerrors.AddContext(kerrors.Wrap(err, kerrors.CodeIO, "resolve working directory"), kerrors.CtxPath, cwd)
	}

	names := opts.FileNames
	if len(names) == 0 {
		names = []string{defaultFileName}
	}
	fileNames := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			fileNames[n] = true
		}
	}

	engine := opts.Engine
	if engine == nil {
		engine = glob.NewEngine(nil)
	}

	s := &Session{
		cwd:       filepath.Clean(abs),
		fileNames: fileNames,
		extra:     append([]string(nil), opts.Extra...),
		engine:    engine,
	}
	s.Reset()
	return s, nil
}

func (s *Session) Cwd() string { return s.cwd }

// Reset drops everything learned so far and re-seeds the built-ins. A new
// session id is assigned.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ID = uuid.New().String()
	s.ignores = nil
	s.ignoreSet = make(map[string]origin)
	s.unignores = nil
	s.unignoreSet = make(map[string]origin)
	s.matchers = nil
	s.overrides = nil
	s.files = nil
	s.cache = make(map[string]*PatternSet)

	root := &PatternSet{}
	for _, p := range builtinPatterns() {
		if s.addIgnoreLocked(p, originBuiltin) {
			root.Ignores = append(root.Ignores, p)
		}
	}
	s.cache[s.cwd] = root

	if len(s.extra) > 0 {
		local := s.addRulesLocked(ParsePatterns(strings.Join(s.extra, "\n"), ""), "", originRoot)
		s.mergeCacheLocked(s.cwd, local)
	}
}

// Resolve collects ignore files above the working directory, the
// repository's local exclude file and every ignore file discovered while
// walking the tree. It starts from a clean state each time.
func (s *Session) Resolve(ctx context.Context) (*Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "ignore.Resolve",
		trace.WithAttributes(attribute.String("cwd", s.cwd)))
	defer span.End()

	s.Reset()

	ancestors, repoRoot := findAncestorIgnoreFiles(s.cwd, s.fileNames)
	for _, f := range ancestors {
		s.addFile(f, filepath.Dir(f))
	}
	if repoRoot != "" {
		exclude := filepath.Join(repoRoot, filepath.FromSlash(localExcludeRel))
		if isFile(exclude) {
			s.addFile(exclude, repoRoot)
		}
	}

	if err := s.walk(ctx, ""); err != nil {
		span.RecordError(err)
		return nil, err
	}

	res := s.Result()
	observability.IgnorePatterns.WithLabelValues("ignores").Set(float64(len(res.Ignores)))
	observability.IgnorePatterns.WithLabelValues("unignores").Set(float64(len(res.Unignores)))
	slog.Debug("resolved ignore files",
		"session", s.ID,
		"cwd", s.cwd,
		"files", len(res.IgnoreFiles),
		"ignores", len(res.Ignores),
		"unignores", len(res.Unignores))
	return res, nil
}

// walk visits dir (relative to cwd). The directory's own ignore files are
// registered before any child directory is tested or entered, so nested
// rules are always active for the subtree they govern.
func (s *Session) walk(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	absDir := filepath.Join(s.cwd, filepath.FromSlash(dir))
	entries, err := os.ReadDir(absDir)
	if err != nil {
		if dir == "" {
			return kerrors.AddContext(kerrors.Wrap(err, kerrors.CodeIO, "read working directory"), kerrors.CtxPath, absDir)
		}
		slog.Debug("skipping unreadable directory", "path", absDir, "error", err)
		return nil
	}

	for _, entry := range entries {
		if !entry.IsDir() && s.fileNames[entry.Name()] {
			s.addFile(filepath.Join(absDir, entry.Name()), absDir)
		}
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rel := entry.Name()
		if dir != "" {
			rel = dir + "/" + rel
		}
		if s.excludesDir(rel) {
			continue
		}
		if err := s.walk(ctx, rel); err != nil {
			return err
		}
	}
	return nil
}

// addFile parses one ignore file owned by ownerDir and registers its rules.
// Unreadable files are skipped.
func (s *Session) addFile(filePath, ownerDir string) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Debug("skipping unreadable ignore file", "path", filePath, "error", err)
		return
	}

	base := relSlash(s.cwd, ownerDir)
	isAncestor := base == ".." || strings.HasPrefix(base, "../")
	ancestor := ""
	org := originNested
	switch {
	case isAncestor:
		ancestor = relSlash(ownerDir, s.cwd) + "/"
		org = originAncestor
	case base == "":
		org = originRoot
	}

	rules := ParsePatterns(string(data), ancestor)

	s.mu.Lock()
	local := s.addRulesLocked(rules, base, org)
	cacheDir := ownerDir
	if isAncestor {
		cacheDir = s.cwd
	}
	s.mergeCacheLocked(filepath.Clean(cacheDir), local)
	s.files = append(s.files, relSlash(s.cwd, filePath))
	s.mu.Unlock()

	observability.IgnoreFilesParsed.Inc()
	slog.Debug("parsed ignore file",
		"session", s.ID,
		"path", filePath,
		"ignores", len(local.Ignores),
		"unignores", len(local.Unignores))
}

// addRulesLocked folds rules into the aggregate sets and returns only the
// patterns that were new. Rules whose extended form is already known are
// skipped. Caller must hold s.mu.
func (s *Session) addRulesLocked(rules []Rule, base string, org origin) *PatternSet {
	local := &PatternSet{}
	scoped := org == originNested && base != ""

	for _, rule := range rules {
		if !s.compiles(rule) {
			continue
		}
		key := rule.Extended()
		if scoped && !strings.HasPrefix(key, "**/") {
			key = path.Join(base, key)
		}

		if rule.Negated {
			if _, known := s.unignoreSet[key]; known {
				continue
			}
			for _, p := range rule.Patterns {
				p = scope(base, p, scoped)
				if s.addUnignoreLocked(p, org) {
					local.Unignores = append(local.Unignores, p)
				}
			}
			continue
		}

		if _, known := s.ignoreSet[key]; known {
			continue
		}
		for _, p := range rule.Patterns {
			p = scope(base, p, scoped)
			if s.addIgnoreLocked(p, org) {
				local.Ignores = append(local.Ignores, p)
			}
		}
	}
	return local
}

func (s *Session) compiles(rule Rule) bool {
	for _, p := range rule.Patterns {
		if _, err := s.engine.Compile(p); err != nil {
			slog.Debug("skipping malformed ignore pattern", "pattern", p, "error", err)
			return false
		}
	}
	return true
}

func (s *Session) addIgnoreLocked(p string, org origin) bool {
	if _, dup := s.ignoreSet[p]; dup {
		return false
	}
	compiledPattern, err := s.engine.Compile(p)
	if err != nil {
		return false
	}
	s.ignoreSet[p] = org
	s.ignores = append(s.ignores, p)
	s.matchers = append(s.matchers, compiled{pattern: compiledPattern, origin: org})
	return true
}

func (s *Session) addUnignoreLocked(p string, org origin) bool {
	if _, dup := s.unignoreSet[p]; dup {
		return false
	}
	compiledPattern, err := s.engine.Compile(p)
	if err != nil {
		return false
	}
	s.unignoreSet[p] = org
	s.unignores = append(s.unignores, p)
	s.overrides = append(s.overrides, compiled{pattern: compiledPattern, origin: org})
	return true
}

func (s *Session) mergeCacheLocked(dir string, local *PatternSet) {
	entry, ok := s.cache[dir]
	if !ok {
		entry = &PatternSet{}
		s.cache[dir] = entry
	}
	entry.Ignores = appendMissing(entry.Ignores, local.Ignores)
	entry.Unignores = appendMissing(entry.Unignores, local.Unignores)
}

// IsIgnored reports whether path (absolute, or relative to the working
// directory) is excluded. Ignore rules are tried in insertion order and the
// first one that matches without being overridden by an applicable unignore
// decides. Paths outside the working directory are never ignored.
func (s *Session) IsIgnored(p string) bool {
	rel, ok := s.rel(p)
	if !ok {
		return false
	}
	return s.matches(rel)
}

func (s *Session) matches(rel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.matchers {
		if !m.pattern.Match(rel) {
			continue
		}
		if s.overriddenLocked(rel, m.origin) {
			continue
		}
		return true
	}
	return false
}

// IsIgnoredDir reports whether everything below the directory p is
// ignored, so the subtree need not be visited. A directory is kept when an
// unignore that could apply might reach inside it.
func (s *Session) IsIgnoredDir(p string) bool {
	rel, ok := s.rel(p)
	if !ok {
		return false
	}
	return s.excludesDir(rel)
}

func (s *Session) excludesDir(rel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.matchers {
		if m.pattern.Covers(rel) && !s.reachableLocked(rel, m.origin) {
			return true
		}
	}
	return false
}

// reachableLocked reports whether an unignore allowed to lift rules of
// ignoreOrigin could match rel or something below it.
func (s *Session) reachableLocked(rel string, ignoreOrigin origin) bool {
	if ignoreOrigin == originBuiltin {
		return false
	}
	for _, u := range s.overrides {
		if ignoreOrigin == originAncestor && u.origin == originNested {
			continue
		}
		if u.pattern.ReachesBelow(rel) {
			return true
		}
	}
	return false
}

func (s *Session) overriddenLocked(rel string, ignoreOrigin origin) bool {
	if ignoreOrigin == originBuiltin {
		return false
	}
	for _, u := range s.overrides {
		// Known trade-off: a nested unignore cannot reach past a rule that
		// came from an ignore file above the working directory.
		if ignoreOrigin == originAncestor && u.origin == originNested {
			continue
		}
		if u.pattern.Match(rel) {
			return true
		}
	}
	return false
}

func (s *Session) rel(p string) (string, bool) {
	if filepath.IsAbs(p) {
		r, err := filepath.Rel(s.cwd, p)
		if err != nil {
			return "", false
		}
		p = r
	}
	p = strings.TrimPrefix(filepath.ToSlash(p), "./")
	if p == "" || p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

// IsIgnoreFile reports whether name is one of the ignore file names.
func (s *Session) IsIgnoreFile(name string) bool {
	return s.fileNames[filepath.Base(name)]
}

// Cache returns a copy of the directory-keyed pattern cache. Keys are
// absolute directory paths.
func (s *Session) Cache() map[string]PatternSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]PatternSet, len(s.cache))
	for dir, set := range s.cache {
		out[dir] = set.clone()
	}
	return out
}

// PatternsFor returns the patterns introduced by dir's own ignore file.
func (s *Session) PatternsFor(dir string) (PatternSet, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return PatternSet{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.cache[filepath.Clean(abs)]
	if !ok {
		return PatternSet{}, false
	}
	return set.clone(), true
}

// Ordered flattens sets into one list for a last-match-wins matcher such as
// glob.Matcher, arranged so that the matcher agrees with IsIgnored. Ignores
// any unignore may lift come first, then nested unignores, then rules from
// ignore files above the working directory, then the remaining unignores.
// Built-ins close the list since nothing lifts them.
func (s *Session) Ordered(sets ...PatternSet) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	builtins := builtinPatterns()
	seen := make(map[string]bool)
	for _, p := range builtins {
		seen[p] = true
	}
	var open, nested, ancestor, rest []string
	for _, set := range sets {
		for _, p := range set.Ignores {
			if seen[p] {
				continue
			}
			seen[p] = true
			if s.ignoreSet[p] == originAncestor {
				ancestor = append(ancestor, p)
			} else {
				open = append(open, p)
			}
		}
		for _, p := range set.Unignores {
			neg := "!" + p
			if seen[neg] {
				continue
			}
			seen[neg] = true
			if s.unignoreSet[p] == originNested {
				nested = append(nested, neg)
			} else {
				rest = append(rest, neg)
			}
		}
	}

	list := make([]string, 0, len(open)+len(nested)+len(ancestor)+len(rest)+len(builtins))
	list = append(list, open...)
	list = append(list, nested...)
	list = append(list, ancestor...)
	list = append(list, rest...)
	return append(list, builtins...)
}

func (s *Session) Result() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Result{
		IgnoreFiles: append([]string(nil), s.files...),
		Ignores:     append([]string(nil), s.ignores...),
		Unignores:   append([]string(nil), s.unignores...),
	}
}

// findAncestorIgnoreFiles walks up from cwd's parent to the repository root
// (the directory holding .git) or the filesystem root. A directory that
// cannot be stat'ed ends the walk. Files are returned outermost first.
func findAncestorIgnoreFiles(cwd string, names map[string]bool) (files []string, repoRoot string) {
	if isDir(filepath.Join(cwd, vcsDir)) {
		return nil, cwd
	}

	dir := filepath.Dir(cwd)
	for {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			break
		}
		for name := range names {
			candidate := filepath.Join(dir, name)
			if isFile(candidate) {
				files = append(files, candidate)
			}
		}
		if isDir(filepath.Join(dir, vcsDir)) {
			repoRoot = dir
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
		files[i], files[j] = files[j], files[i]
	}
	return files, repoRoot
}

func scope(base, pattern string, scoped bool) string {
	if !scoped {
		return pattern
	}
	return path.Join(base, pattern)
}

func relSlash(from, to string) string {
	r, err := filepath.Rel(from, to)
	if err != nil {
		return to
	}
	r = filepath.ToSlash(r)
	if r == "." {
		return ""
	}
	return r
}

func appendMissing(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range src {
		if !seen[v] {
			seen[v] = true
			dst = append(dst, v)
		}
	}
	return dst
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
