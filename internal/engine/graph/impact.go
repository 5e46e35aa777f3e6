// # internal/engine/graph/impact.go
package graph

import (
	"errors"
	"fmt"
	"sort"
)

var ErrImpactTargetNotFound = errors.New("impact target not found")

// ImpactReport lists the files affected by a change to TargetPath.
type ImpactReport struct {
	TargetPath          string
	DirectImporters     []string
	TransitiveImporters []string
	// UsedExports are the target's exports some importer references by
	// name, directly or through a re-export.
	UsedExports []string
}

type ImpactTargetError struct {
	Target string
}

func (e *ImpactTargetError) Error() string {
	return fmt.Sprintf("%v: %s", ErrImpactTargetNotFound, e.Target)
}

func (e *ImpactTargetError) Unwrap() error {
	return ErrImpactTargetNotFound
}

func (g *Graph) AnalyzeImpact(path string) (ImpactReport, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	target, ok := g.nodes[path]
	if !ok {
		return ImpactReport{}, &ImpactTargetError{Target: path}
	}

	importedBy := make(map[string][]string)
	for src, node := range g.nodes {
		for t := range node.Imports.Internal {
			importedBy[t] = append(importedBy[t], src)
		}
	}

	report := ImpactReport{TargetPath: path}
	direct := append([]string(nil), importedBy[path]...)
	sort.Strings(direct)
	report.DirectImporters = direct

	seen := map[string]bool{path: true}
	for _, f := range direct {
		seen[f] = true
	}
	queue := append([]string(nil), direct...)
	transitive := make([]string, 0)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, next := range importedBy[curr] {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
			transitive = append(transitive, next)
		}
	}
	sort.Strings(transitive)
	report.TransitiveImporters = transitive

	used := make([]string, 0)
	for id := range target.Exports {
		if isReferenced(target.Imported, id) {
			used = append(used, id)
		}
	}
	sort.Strings(used)
	report.UsedExports = used
	return report, nil
}

func isReferenced(d *ImportDetails, id string) bool {
	if d == nil {
		return false
	}
	if len(d.Imported[id]) > 0 || len(d.ImportedAs[id]) > 0 || len(d.ReExported[id]) > 0 || len(d.ReExportedAs[id]) > 0 {
		return true
	}
	return d.Refs.Has(id)
}
