// Package graph holds the "run before" dependency graph between test runs and
// the report jobs that merge their execution data.
package graph

import (
	"fmt"
	"sort"
	"sync"
)

// Kind distinguishes run nodes from job nodes.
type Kind string

const (
	KindRun Kind = "run"
	KindJob Kind = "job"
)

// Graph is a DAG of runs and report jobs. An edge from -> to means "from
// must complete before to". All operations are safe for concurrent use.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
}

type node struct {
	id         string
	kind       Kind
	deps       map[string]*node
	dependents map[string]*node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode adds a node. Adding an existing id is a no-op unless the kind
// differs, which is an error.
func (g *Graph) AddNode(id string, kind Kind) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if n, ok := g.nodes[id]; ok {
		if n.kind != kind {
			return fmt.Errorf("node %s already registered as %s", id, n.kind)
		}
		return nil
	}
	g.nodes[id] = &node{
		id:         id,
		kind:       kind,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	return nil
}

// AddEdge declares that toID depends on fromID.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	to.deps[fromID] = from
	from.dependents[toID] = to
	return nil
}

// Dependencies returns the sorted ids the node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.deps), nil
}

// Dependents returns the sorted ids depending on the node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.dependents), nil
}

// Nodes returns the sorted ids of all nodes of a kind.
func (g *Graph) Nodes(kind Kind) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := make([]string, 0, len(g.nodes))
	for id, n := range g.nodes {
		if n.kind == kind {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// TopologicalOrder returns every node so that dependencies come before
// dependents. Ties are broken by id, so the order is deterministic. A cycle
// is reported as an error naming one node on it.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	inDegree := make(map[string]int, len(g.nodes))
	ready := make([]string, 0)
	for id, n := range g.nodes {
		inDegree[id] = len(n.deps)
		if len(n.deps) == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := make([]string, 0)
		for depID := range g.nodes[id].dependents {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				released = append(released, depID)
			}
		}
		ready = append(ready, released...)
		sort.Strings(ready)
	}

	if len(order) != len(g.nodes) {
		stuck := make([]string, 0)
		for id, d := range inDegree {
			if d > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("cycle detected involving node '%s'", stuck[0])
	}
	return order, nil
}

// Prerequisites returns the transitive dependencies of the given nodes in
// topological order, excluding the nodes themselves.
func (g *Graph) Prerequisites(ids ...string) ([]string, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	needed := make(map[string]struct{})
	var visit func(n *node)
	visit = func(n *node) {
		for depID, dep := range n.deps {
			if _, ok := needed[depID]; ok {
				continue
			}
			needed[depID] = struct{}{}
			visit(dep)
		}
	}
	for _, id := range ids {
		n, ok := g.nodes[id]
		if !ok {
			return nil, fmt.Errorf("node not found: %s", id)
		}
		visit(n)
	}

	out := make([]string, 0, len(needed))
	for _, id := range order {
		if _, ok := needed[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func sortedKeys(m map[string]*node) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
