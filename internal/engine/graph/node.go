// # internal/engine/graph/node.go
package graph

// Imports is a file's outgoing view.
type Imports struct {
	Internal   map[string]*ImportDetails `json:"internal"`
	External   Set                       `json:"external"`
	Unresolved Set                       `json:"unresolved"`
}

// FileNode aggregates everything known about one file: what it imports,
// what it exports and how other files import from it.
type FileNode struct {
	Imports  Imports            `json:"imports"`
	Exports  map[string]*Export `json:"exports"`
	Imported *ImportDetails     `json:"imported"`

	// Populated by collaborators, opaque here.
	Duplicates Set `json:"duplicates"`
	Scripts    Set `json:"scripts"`
	TraceRefs  Set `json:"traceRefs"`
}

func NewImports() Imports {
	return Imports{
		Internal:   make(map[string]*ImportDetails),
		External:   make(Set),
		Unresolved: make(Set),
	}
}

func NewFileNode() *FileNode {
	return &FileNode{
		Imports:    NewImports(),
		Exports:    make(map[string]*Export),
		Imported:   NewImportDetails(),
		Duplicates: make(Set),
		Scripts:    make(Set),
		TraceRefs:  make(Set),
	}
}

// mergeImport folds details observed for target into the node's outgoing
// record.
func (n *FileNode) mergeImport(target string, details *ImportDetails) {
	existing, ok := n.Imports.Internal[target]
	if !ok {
		existing = NewImportDetails()
		n.Imports.Internal[target] = existing
	}
	existing.Merge(details)
}

func (n *FileNode) mergeExports(exports map[string]*Export) {
	for id, exp := range exports {
		if exp == nil {
			continue
		}
		if existing, ok := n.Exports[id]; ok {
			existing.merge(exp)
			continue
		}
		n.Exports[id] = exp.clone()
	}
}

// Clone returns a deep copy that shares no storage with n.
func (n *FileNode) Clone() *FileNode {
	out := NewFileNode()
	for target, d := range n.Imports.Internal {
		out.Imports.Internal[target] = d.Clone()
	}
	out.Imports.External = unionSet(out.Imports.External, n.Imports.External)
	out.Imports.Unresolved = unionSet(out.Imports.Unresolved, n.Imports.Unresolved)
	out.mergeExports(n.Exports)
	out.Imported.Merge(n.Imported)
	out.Duplicates = unionSet(out.Duplicates, n.Duplicates)
	out.Scripts = unionSet(out.Scripts, n.Scripts)
	out.TraceRefs = unionSet(out.TraceRefs, n.TraceRefs)
	return out
}
