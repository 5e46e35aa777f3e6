// # internal/engine/graph/detect.go
package graph

import "sort"

// edgesLocked returns the sorted internal import targets of every node.
func (g *Graph) edgesLocked() map[string][]string {
	edges := make(map[string][]string, len(g.nodes))
	for p, node := range g.nodes {
		targets := make([]string, 0, len(node.Imports.Internal))
		for t := range node.Imports.Internal {
			targets = append(targets, t)
		}
		sort.Strings(targets)
		edges[p] = targets
	}
	return edges
}

// DetectCycles returns every import cycle found by a depth-first walk, each
// starting at its lexically smallest file. The walk is iterative so deep
// chains do not grow the goroutine stack.
func (g *Graph) DetectCycles() [][]string {
	g.mu.RLock()
	edges := g.edgesLocked()
	g.mu.RUnlock()

	roots := make([]string, 0, len(edges))
	for p := range edges {
		roots = append(roots, p)
	}
	sort.Strings(roots)

	type frame struct {
		node string
		next int
	}

	var cycles [][]string
	seen := make(map[string]bool)
	visited := make(map[string]bool)
	onStack := make(map[string]int)

	for _, root := range roots {
		if visited[root] {
			continue
		}
		stack := []frame{{node: root}}
		visited[root] = true
		onStack[root] = 0

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			targets := edges[top.node]
			if top.next >= len(targets) {
				delete(onStack, top.node)
				stack = stack[:len(stack)-1]
				continue
			}
			next := targets[top.next]
			top.next++

			if idx, ok := onStack[next]; ok {
				cycle := make([]string, 0, len(stack)-idx)
				for _, f := range stack[idx:] {
					cycle = append(cycle, f.node)
				}
				cycle = rotateToMin(cycle)
				if key := cycleKey(cycle); !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
				continue
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			onStack[next] = len(stack)
			stack = append(stack, frame{node: next})
		}
	}
	return cycles
}

func rotateToMin(cycle []string) []string {
	minIdx := 0
	for i, p := range cycle {
		if p < cycle[minIdx] {
			minIdx = i
		}
	}
	return append(append([]string(nil), cycle[minIdx:]...), cycle[:minIdx]...)
}

func cycleKey(cycle []string) string {
	key := ""
	for _, p := range cycle {
		key += p + "\x00"
	}
	return key
}

// FindImportChain returns the shortest import path from one file to another.
func (g *Graph) FindImportChain(from, to string) ([]string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[from]; !ok {
		return nil, false
	}
	if _, ok := g.nodes[to]; !ok {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}

	edges := g.edgesLocked()
	queue := []string{from}
	visited := map[string]bool{from: true}
	prev := make(map[string]string)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range edges[curr] {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []string{to}
				for node := to; node != from; {
					node = prev[node]
					path = append(path, node)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}
