// # internal/engine/parser/types.go
package parser

import (
	"time"

	"github.com/heystewart/knip/internal/engine/graph"
)

// ImportKind classifies one module reference found in a file.
type ImportKind string

const (
	ImportNamed      ImportKind = "named"
	ImportDefault    ImportKind = "default"
	ImportNamespace  ImportKind = "namespace"
	ImportSideEffect ImportKind = "side-effect"
	ImportDynamic    ImportKind = "dynamic"

	ReExportNamed     ImportKind = "re-export"
	ReExportAll       ImportKind = "re-export-all"
	ReExportNamespace ImportKind = "re-export-namespace"
)

// Import is one raw module reference. Identifier is the name on the target
// side ("default" for default imports, "*" for star forms). Alias is the
// local binding, or the exported name for re-exports, when it differs.
type Import struct {
	Specifier  string
	Kind       ImportKind
	Identifier string
	Alias      string
	TypeOnly   bool
	Line       int
	Col        int
}

type File struct {
	Path     string
	Language string
	Imports  []Import
	// Exports holds locally declared exports; re-exports are in Imports.
	Exports []*graph.Export
	// NamespaceRefs maps a namespace import binding to the members accessed
	// through it, e.g. ns.helper.
	NamespaceRefs map[string]graph.Set
	ParsedAt      time.Time
}
