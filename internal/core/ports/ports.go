// Package ports declares the collaborators an analysis pass depends on, so
// the app can run against fakes in tests.
package ports

import (
	"github.com/heystewart/knip/internal/engine/graph"
	"github.com/heystewart/knip/internal/engine/parser"
	"github.com/heystewart/knip/internal/engine/resolver"
)

// CodeParser abstracts source parsing and language-file support checks.
type CodeParser interface {
	ParseFile(path string, content []byte) (*parser.File, error)
	Supports(path string) bool
}

// SpecifierResolver maps an import specifier, as written in fromFile, to a
// file, a package or nothing.
type SpecifierResolver interface {
	Resolve(fromFile, specifier string) resolver.Resolution
	Reset()
}

// GraphStore persists a finished graph for downstream consumers.
type GraphStore interface {
	SaveGraph(projectKey string, g *graph.Graph) error
	Close() error
}
