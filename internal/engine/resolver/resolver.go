// # internal/engine/resolver/resolver.go
package resolver

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Kind string

const (
	KindInternal   Kind = "internal"
	KindExternal   Kind = "external"
	KindUnresolved Kind = "unresolved"
)

// Resolution is where one import specifier points. Path is set for
// internal files, Package for external ones.
type Resolution struct {
	Kind    Kind
	Path    string
	Package string
}

// DefaultExtensions are tried in order when a relative specifier has no
// matching file as written.
var DefaultExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cts", ".mts", ".cjs"}

// Resolver maps specifiers to files or packages. Results are cached per
// importing directory.
type Resolver struct {
	extensions []string
	isFile     func(string) bool

	mu    sync.RWMutex
	cache map[string]Resolution
}

func NewResolver(extensions []string) *Resolver {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &Resolver{
		extensions: append([]string(nil), extensions...),
		isFile:     statFile,
		cache:      make(map[string]Resolution),
	}
}

// Resolve resolves specifier as imported from fromFile (an absolute path).
func (r *Resolver) Resolve(fromFile, specifier string) Resolution {
	spec := strings.Trim(strings.TrimSpace(specifier), "\"'`")
	if spec == "" {
		return Resolution{Kind: KindUnresolved}
	}

	if !isPathSpecifier(spec) {
		if pkg := PackageName(spec); pkg != "" {
			return Resolution{Kind: KindExternal, Package: pkg}
		}
		return Resolution{Kind: KindUnresolved}
	}

	dir := filepath.Dir(fromFile)
	key := dir + "\x00" + spec
	r.mu.RLock()
	res, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return res
	}

	res = Resolution{Kind: KindUnresolved}
	base := spec
	if !filepath.IsAbs(filepath.FromSlash(spec)) {
		base = filepath.Join(dir, filepath.FromSlash(spec))
	}
	if path, ok := r.lookup(filepath.Clean(base)); ok {
		res = Resolution{Kind: KindInternal, Path: path}
	}

	r.mu.Lock()
	r.cache[key] = res
	r.mu.Unlock()
	return res
}

// Reset drops cached resolutions; call it when files are added or removed.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.cache = make(map[string]Resolution)
	r.mu.Unlock()
}

func (r *Resolver) lookup(base string) (string, bool) {
	if r.isFile(base) {
		return base, true
	}
	for _, ext := range r.extensions {
		if r.isFile(base + ext) {
			return base + ext, true
		}
	}

	// TypeScript sources import each other by their emitted .js names.
	if ext := filepath.Ext(base); ext == ".js" || ext == ".jsx" || ext == ".mjs" || ext == ".cjs" {
		stem := strings.TrimSuffix(base, ext)
		for _, alt := range tsCounterparts[ext] {
			if r.isFile(stem + alt) {
				return stem + alt, true
			}
		}
	}

	for _, ext := range r.extensions {
		index := filepath.Join(base, "index"+ext)
		if r.isFile(index) {
			return index, true
		}
	}
	return "", false
}

var tsCounterparts = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

func isPathSpecifier(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") ||
		strings.HasPrefix(spec, "/")
}

// PackageName returns the package a bare specifier belongs to: the scope
// plus name for "@scope/pkg/sub", the first segment otherwise. Node
// built-ins keep their "node:" form. Subpath imports ("#x") have none.
func PackageName(spec string) string {
	if strings.HasPrefix(spec, "#") {
		return ""
	}
	if strings.HasPrefix(spec, "node:") {
		return spec
	}
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return ""
		}
		return parts[0] + "/" + parts[1]
	}
	if builtinModules[parts[0]] {
		return "node:" + parts[0]
	}
	return parts[0]
}

var builtinModules = map[string]bool{
	"assert": true, "buffer": true, "child_process": true, "cluster": true,
	"crypto": true, "dgram": true, "dns": true, "events": true, "fs": true,
	"http": true, "http2": true, "https": true, "module": true, "net": true,
	"os": true, "path": true, "perf_hooks": true, "process": true,
	"querystring": true, "readline": true, "stream": true, "string_decoder": true,
	"timers": true, "tls": true, "tty": true, "url": true, "util": true,
	"v8": true, "vm": true, "worker_threads": true, "zlib": true,
}

func statFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
