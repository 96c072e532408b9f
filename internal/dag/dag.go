// Package dag provides an index-addressed directed graph for ordering dependent entities.
// Nodes are referenced by small integer handles into a single arena. It supports
// typed edges, cycle detection, deterministic topological sorting and level grouping.
package dag

import (
	"fmt"
	"slices"
)

// NodeIndex is an opaque handle to a node in a Graph.
type NodeIndex int

// Edge is a directed edge from a dependency to its dependent.
type Edge[E comparable] struct {
	From   NodeIndex
	To     NodeIndex
	Weight E
}

// Graph is a directed graph whose nodes carry data of type N and whose edges
// carry a weight of type E. An edge From -> To means From must precede To.
type Graph[N any, E comparable] struct {
	nodes    []N
	edges    []Edge[E]
	children [][]int // node -> outgoing edge indices
	parents  [][]int // node -> incoming edge indices
}

// New creates a new empty graph.
func New[N any, E comparable]() *Graph[N, E] {
	return &Graph[N, E]{}
}

// AddNode appends a node and returns its handle.
func (g *Graph[N, E]) AddNode(data N) NodeIndex {
	g.nodes = append(g.nodes, data)
	g.children = append(g.children, nil)
	g.parents = append(g.parents, nil)
	return NodeIndex(len(g.nodes) - 1)
}

// Node returns the data stored at idx.
func (g *Graph[N, E]) Node(idx NodeIndex) (N, bool) {
	if !g.valid(idx) {
		var zero N
		return zero, false
	}
	return g.nodes[idx], true
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
// Identical edges are stored once. It reports whether a new edge was stored.
func (g *Graph[N, E]) AddEdge(parent, child NodeIndex, weight E) (bool, error) {
	if !g.valid(parent) {
		return false, fmt.Errorf("parent node %d does not exist", parent)
	}
	if !g.valid(child) {
		return false, fmt.Errorf("child node %d does not exist", child)
	}
	if parent == child {
		return false, fmt.Errorf("self-loop detected: %d", parent)
	}

	for _, ei := range g.children[parent] {
		e := g.edges[ei]
		if e.To == child && e.Weight == weight {
			return false, nil
		}
	}

	g.edges = append(g.edges, Edge[E]{From: parent, To: child, Weight: weight})
	ei := len(g.edges) - 1
	g.children[parent] = append(g.children[parent], ei)
	g.parents[child] = append(g.parents[child], ei)
	return true, nil
}

// Parents returns the distinct dependencies of idx in edge insertion order.
func (g *Graph[N, E]) Parents(idx NodeIndex) []NodeIndex {
	if !g.valid(idx) {
		return nil
	}
	return g.distinct(g.parents[idx], func(e Edge[E]) NodeIndex { return e.From })
}

// Children returns the distinct dependents of idx in edge insertion order.
func (g *Graph[N, E]) Children(idx NodeIndex) []NodeIndex {
	if !g.valid(idx) {
		return nil
	}
	return g.distinct(g.children[idx], func(e Edge[E]) NodeIndex { return e.To })
}

// Neighbors returns the distinct nodes adjacent to idx in either direction,
// parents first.
func (g *Graph[N, E]) Neighbors(idx NodeIndex) []NodeIndex {
	out := g.Parents(idx)
	for _, c := range g.Children(idx) {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// EdgesTo returns the incoming edges of idx.
func (g *Graph[N, E]) EdgesTo(idx NodeIndex) []Edge[E] {
	if !g.valid(idx) {
		return nil
	}
	out := make([]Edge[E], 0, len(g.parents[idx]))
	for _, ei := range g.parents[idx] {
		out = append(out, g.edges[ei])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph[N, E]) Edges() []Edge[E] {
	return slices.Clone(g.edges)
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph[N, E]) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph[N, E]) EdgeCount() int {
	return len(g.edges)
}

// CycleError reports a dependency cycle. Path starts and ends at the same node.
type CycleError struct {
	Path []NodeIndex
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Path)
}

// FindCycle returns a cycle path if the graph contains one, or nil.
func (g *Graph[N, E]) FindCycle() []NodeIndex {
	visited := make([]bool, len(g.nodes))
	recStack := make([]bool, len(g.nodes))
	path := make(map[NodeIndex]NodeIndex)

	var cyclePath []NodeIndex

	var dfs func(id NodeIndex) bool
	dfs = func(id NodeIndex) bool {
		visited[id] = true
		recStack[id] = true

		for _, ei := range g.children[id] {
			child := g.edges[ei].To
			if !visited[child] {
				path[child] = id
				if dfs(child) {
					return true
				}
			} else if recStack[child] {
				cyclePath = []NodeIndex{child}
				for curr := id; curr != child; curr = path[curr] {
					cyclePath = append([]NodeIndex{curr}, cyclePath...)
				}
				cyclePath = append([]NodeIndex{child}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for id := range g.nodes {
		if !visited[id] && dfs(NodeIndex(id)) {
			return cyclePath
		}
	}
	return nil
}

// TopologicalSort returns node handles with every dependency before its dependents.
// Nodes are visited in handle order and parents in edge insertion order, so the
// result depends only on the order in which nodes and edges were added.
// Returns a *CycleError if the graph contains a cycle.
func (g *Graph[N, E]) TopologicalSort() ([]NodeIndex, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	visited := make([]bool, len(g.nodes))
	result := make([]NodeIndex, 0, len(g.nodes))

	var visit func(id NodeIndex)
	visit = func(id NodeIndex) {
		if visited[id] {
			return
		}
		visited[id] = true

		// Visit all parents first
		for _, ei := range g.parents[id] {
			visit(g.edges[ei].From)
		}

		result = append(result, id)
	}

	for id := range g.nodes {
		visit(NodeIndex(id))
	}

	return result, nil
}

// ExecutionLevels returns nodes grouped by depth.
// Level 0 contains nodes with no dependencies; nodes at level N depend only on
// nodes at lower levels.
func (g *Graph[N, E]) ExecutionLevels() ([][]NodeIndex, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	assigned := make(map[NodeIndex]int, len(g.nodes))

	var getLevel func(id NodeIndex) int
	getLevel = func(id NodeIndex) int {
		if level, ok := assigned[id]; ok {
			return level
		}
		level := 0
		for _, ei := range g.parents[id] {
			if pl := getLevel(g.edges[ei].From) + 1; pl > level {
				level = pl
			}
		}
		assigned[id] = level
		return level
	}

	maxLevel := -1
	for id := range g.nodes {
		if level := getLevel(NodeIndex(id)); level > maxLevel {
			maxLevel = level
		}
	}

	levels := make([][]NodeIndex, maxLevel+1)
	for id := range g.nodes {
		level := assigned[NodeIndex(id)]
		levels[level] = append(levels[level], NodeIndex(id))
	}
	return levels, nil
}

// Upstream returns every transitive dependency of idx, sorted by handle.
func (g *Graph[N, E]) Upstream(idx NodeIndex) []NodeIndex {
	if !g.valid(idx) {
		return nil
	}
	seen := make(map[NodeIndex]bool)

	var mark func(id NodeIndex)
	mark = func(id NodeIndex) {
		for _, ei := range g.parents[id] {
			p := g.edges[ei].From
			if !seen[p] {
				seen[p] = true
				mark(p)
			}
		}
	}
	mark(idx)

	result := make([]NodeIndex, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	slices.Sort(result)
	return result
}

// Downstream returns every transitive dependent of idx, sorted by handle.
func (g *Graph[N, E]) Downstream(idx NodeIndex) []NodeIndex {
	if !g.valid(idx) {
		return nil
	}
	seen := make(map[NodeIndex]bool)

	var mark func(id NodeIndex)
	mark = func(id NodeIndex) {
		for _, ei := range g.children[id] {
			c := g.edges[ei].To
			if !seen[c] {
				seen[c] = true
				mark(c)
			}
		}
	}
	mark(idx)

	result := make([]NodeIndex, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	slices.Sort(result)
	return result
}

func (g *Graph[N, E]) valid(idx NodeIndex) bool {
	return idx >= 0 && int(idx) < len(g.nodes)
}

func (g *Graph[N, E]) distinct(edgeIdx []int, end func(Edge[E]) NodeIndex) []NodeIndex {
	out := make([]NodeIndex, 0, len(edgeIdx))
	for _, ei := range edgeIdx {
		n := end(g.edges[ei])
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
