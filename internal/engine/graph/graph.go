// # internal/engine/graph/graph.go
package graph

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/heystewart/knip/internal/shared/observability"
)

// FileFacts is everything the parser reports for a single file.
type FileFacts struct {
	Imports    ImportMap
	External   []string
	Unresolved []string
	Exports    map[string]*Export
	Scripts    []string
}

// Graph maps file paths to their nodes. It lives for one analysis pass; a
// new pass builds a new Graph.
//
// Mutations take the lock for the duration of a single merge. Every
// mutation is a union, so concurrent merges touching the same node commute.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*FileNode
}

func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*FileNode)}
}

// GetOrCreateFileNode returns the node for path, registering a fresh empty
// one on first use. Repeated calls return the same instance.
func (g *Graph) GetOrCreateFileNode(path string) *FileNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getOrCreateLocked(path)
}

func (g *Graph) getOrCreateLocked(path string) *FileNode {
	node, ok := g.nodes[path]
	if !ok {
		node = NewFileNode()
		g.nodes[path] = node
		observability.GraphNodes.Set(float64(len(g.nodes)))
	}
	return node
}

// UpdateImportMap folds what source imports into the graph. For each target
// the details are merged into source's outgoing record and into the
// target's incoming aggregate; the target node is created when it has not
// been analyzed (yet).
func (g *Graph) UpdateImportMap(source string, importMap ImportMap) {
	if len(importMap) == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	sourceNode := g.getOrCreateLocked(source)
	for target, details := range importMap {
		if details == nil {
			details = NewImportDetails()
		}
		sourceNode.mergeImport(target, details)

		targetNode := g.getOrCreateLocked(target)
		targetNode.Imported.Merge(details)
		g.nodes[target] = targetNode
		observability.GraphMerges.Inc()
	}
}

// AddExports merges exports into the node for path, keyed by identifier.
func (g *Graph) AddExports(path string, exports map[string]*Export) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getOrCreateLocked(path).mergeExports(exports)
}

func (g *Graph) AddExternal(path string, packages ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getOrCreateLocked(path).Imports.External.Add(packages...)
}

func (g *Graph) AddUnresolved(path string, specifiers ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getOrCreateLocked(path).Imports.Unresolved.Add(specifiers...)
}

// Apply registers path and merges every fact reported for it.
func (g *Graph) Apply(path string, facts *FileFacts) {
	g.GetOrCreateFileNode(path)
	if facts == nil {
		return
	}
	g.UpdateImportMap(path, facts.Imports)
	if len(facts.External) > 0 {
		g.AddExternal(path, facts.External...)
	}
	if len(facts.Unresolved) > 0 {
		g.AddUnresolved(path, facts.Unresolved...)
	}
	if len(facts.Exports) > 0 {
		g.AddExports(path, facts.Exports)
	}
	if len(facts.Scripts) > 0 {
		g.mu.Lock()
		g.getOrCreateLocked(path).Scripts.Add(facts.Scripts...)
		g.mu.Unlock()
	}
}

// Node returns a copy of the node for path.
func (g *Graph) Node(path string) (*FileNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[path]
	if !ok {
		return nil, false
	}
	return node.Clone(), true
}

func (g *Graph) Has(path string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[path]
	return ok
}

// Paths returns every registered path in lexical order.
func (g *Graph) Paths() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	paths := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Each calls fn for every node in path order while holding the read lock.
// fn must not mutate the graph.
func (g *Graph) Each(fn func(path string, node *FileNode)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	paths := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fn(p, g.nodes[p])
	}
}

// MarshalJSON renders the graph deterministically: map keys and set members
// are sorted, so equal graphs produce identical bytes.
func (g *Graph) MarshalJSON() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return json.Marshal(g.nodes)
}
