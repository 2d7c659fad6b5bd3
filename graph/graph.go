package graph

import "sort"

// Graph is the set of outbound predicate edges owned by a single subject.
// Targets under each predicate keep insertion order and are deduplicated.
// Graph is not safe for concurrent use; each object operation owns its graph
// for the duration of the call.
type Graph struct {
	edges map[string][]string
}

// New creates an empty edge graph
func New() *Graph {
	return &Graph{
		edges: make(map[string][]string),
	}
}

// FromEdges creates a graph from a predicate -> targets map, copying the
// input and dropping duplicate targets.
func FromEdges(edges map[string][]string) *Graph {
	g := New()
	for predicate, targets := range edges {
		for _, t := range targets {
			g.Add(predicate, t)
		}
	}
	return g
}

// Add appends an edge under the predicate. Adding an existing
// (predicate, target) pair is a no-op.
func (g *Graph) Add(predicate, target string) bool {
	if target == "" {
		return false
	}
	for _, existing := range g.edges[predicate] {
		if existing == target {
			return false
		}
	}
	g.edges[predicate] = append(g.edges[predicate], target)
	return true
}

// Set replaces the full target set under the predicate (clear-then-set).
// An empty target list removes the predicate entirely.
func (g *Graph) Set(predicate string, targets ...string) {
	delete(g.edges, predicate)
	for _, t := range targets {
		g.Add(predicate, t)
	}
}

// Remove deletes one edge. Returns true if the edge existed.
func (g *Graph) Remove(predicate, target string) bool {
	targets, ok := g.edges[predicate]
	if !ok {
		return false
	}
	for i, existing := range targets {
		if existing == target {
			g.edges[predicate] = append(targets[:i:i], targets[i+1:]...)
			if len(g.edges[predicate]) == 0 {
				delete(g.edges, predicate)
			}
			return true
		}
	}
	return false
}

// RemoveTarget deletes every edge pointing at the target, across all
// predicates. Returns the predicates that held one. This is the primitive
// cascade repair uses to strip back-references to a deleted object.
func (g *Graph) RemoveTarget(target string) []string {
	var stripped []string
	for predicate := range g.edges {
		if g.Remove(predicate, target) {
			stripped = append(stripped, predicate)
		}
	}
	sort.Strings(stripped)
	return stripped
}

// Clear removes all edges under the predicate
func (g *Graph) Clear(predicate string) {
	delete(g.edges, predicate)
}

// Targets returns a copy of the ordered target set under the predicate
func (g *Graph) Targets(predicate string) []string {
	targets := g.edges[predicate]
	if len(targets) == 0 {
		return nil
	}
	result := make([]string, len(targets))
	copy(result, targets)
	return result
}

// First returns the first target under the predicate, or "" if none.
// To-one associations store exactly one edge, so First is their read path.
func (g *Graph) First(predicate string) string {
	targets := g.edges[predicate]
	if len(targets) == 0 {
		return ""
	}
	return targets[0]
}

// Has returns true if the edge exists
func (g *Graph) Has(predicate, target string) bool {
	for _, existing := range g.edges[predicate] {
		if existing == target {
			return true
		}
	}
	return false
}

// Predicates returns the sorted list of predicates with at least one edge
func (g *Graph) Predicates() []string {
	names := make([]string, 0, len(g.edges))
	for predicate := range g.edges {
		names = append(names, predicate)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of edges
func (g *Graph) Len() int {
	n := 0
	for _, targets := range g.edges {
		n += len(targets)
	}
	return n
}

// Edges returns a copy of the full predicate -> targets map
func (g *Graph) Edges() map[string][]string {
	result := make(map[string][]string, len(g.edges))
	for predicate, targets := range g.edges {
		cp := make([]string, len(targets))
		copy(cp, targets)
		result[predicate] = cp
	}
	return result
}

// Clone returns a deep copy of the graph
func (g *Graph) Clone() *Graph {
	return FromEdges(g.edges)
}
