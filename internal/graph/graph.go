// Package graph holds the dependency graph between declared resources.
//
// Edges point from a dependent node to the node it depends on. Two kinds of
// edge exist: EdgeConsumes, created when a node's inputs use another node's
// outputs, and EdgeDependsOn, an explicit ordering constraint that also
// waits for the upstream node to finish its readiness wait. Both kinds may be
// present on the same pair.
//
// Storage, sorting and cycle search are done by dominikbraun/graph. The edge
// kind travels as edge data, and insertion order is tracked here so every
// listing is deterministic.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	dg "github.com/dominikbraun/graph"
)

// EdgeKind is a bit set of edge kinds.
type EdgeKind uint8

// Edge kinds.
const (
	EdgeConsumes EdgeKind = 1 << iota
	EdgeDependsOn
)

// Has reports whether k includes all bits of other.
func (k EdgeKind) Has(other EdgeKind) bool {
	return k&other == other
}

func (k EdgeKind) String() string {
	var parts []string
	if k.Has(EdgeConsumes) {
		parts = append(parts, "consumes")
	}
	if k.Has(EdgeDependsOn) {
		parts = append(parts, "dependsOn")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Sentinel errors.
var (
	ErrDuplicateNode = errors.New("graph: duplicate node")
	ErrUnknownNode   = errors.New("graph: unknown node")
	ErrSelfEdge      = errors.New("graph: node cannot depend on itself")
)

// CycleError reports a dependency cycle. Path starts and ends with the same node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "graph: dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Edge is a single dependency edge.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Graph is a directed dependency graph. It is not safe for concurrent mutation.
type Graph struct {
	g     dg.Graph[string, string]
	order []string
	index map[string]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		g:     dg.New(dg.StringHash, dg.Directed()),
		index: make(map[string]int),
	}
}

// AddNode adds a node. Adding a name twice returns ErrDuplicateNode.
func (g *Graph) AddNode(name string) error {
	if err := g.g.AddVertex(name); err != nil {
		if errors.Is(err, dg.ErrVertexAlreadyExists) {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
		}
		return fmt.Errorf("graph: add %s: %w", name, err)
	}
	g.index[name] = len(g.order)
	g.order = append(g.order, name)
	return nil
}

// AddEdge records that from depends on to with the given kind. Repeated
// calls merge kinds.
func (g *Graph) AddEdge(from, to string, kind EdgeKind) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if !g.Has(from) {
		return fmt.Errorf("%w: %s", ErrUnknownNode, from)
	}
	if !g.Has(to) {
		return fmt.Errorf("%w: %s (dependency of %s)", ErrUnknownNode, to, from)
	}
	if e, err := g.g.Edge(from, to); err == nil {
		if err := g.g.UpdateEdge(from, to, dg.EdgeData(kindOf(e)|kind)); err != nil {
			return fmt.Errorf("graph: update edge %s -> %s: %w", from, to, err)
		}
		return nil
	}
	if err := g.g.AddEdge(from, to, dg.EdgeData(kind)); err != nil {
		return fmt.Errorf("graph: add edge %s -> %s: %w", from, to, err)
	}
	return nil
}

// Has reports whether the node exists.
func (g *Graph) Has(name string) bool {
	_, err := g.g.Vertex(name)
	return err == nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Nodes returns node names in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.order)
}

// Dependencies returns the nodes name depends on, in insertion order.
func (g *Graph) Dependencies(name string) []string {
	return g.DependenciesOfKind(name, 0)
}

// DependenciesOfKind returns the dependencies of name whose edge includes kind.
func (g *Graph) DependenciesOfKind(name string, kind EdgeKind) []string {
	adj, err := g.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	var out []string
	for dep, e := range adj[name] {
		if kindOf(e).Has(kind) {
			out = append(out, dep)
		}
	}
	return g.sorted(out)
}

// EdgeKindOf returns the kind of the edge between from and to, or zero.
func (g *Graph) EdgeKindOf(from, to string) EdgeKind {
	e, err := g.g.Edge(from, to)
	if err != nil {
		return 0
	}
	return kindOf(e)
}

// Dependents returns the nodes that depend on name, in insertion order.
func (g *Graph) Dependents(name string) []string {
	pred, err := g.g.PredecessorMap()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(pred[name]))
	for d := range pred[name] {
		out = append(out, d)
	}
	return g.sorted(out)
}

// Edges returns all edges ordered by source then target insertion order.
func (g *Graph) Edges() []Edge {
	all, err := g.g.Edges()
	if err != nil {
		return nil
	}
	edges := make([]Edge, 0, len(all))
	for _, e := range all {
		edges = append(edges, Edge{From: e.Source, To: e.Target, Kind: kindOf(e)})
	}
	slices.SortFunc(edges, func(a, b Edge) int {
		if d := g.index[a.From] - g.index[b.From]; d != 0 {
			return d
		}
		return g.index[a.To] - g.index[b.To]
	})
	return edges
}

// TopologicalOrder returns the nodes ordered so that every node appears after
// all of its dependencies. Ties are broken by insertion order, which makes the
// result deterministic.
func (g *Graph) TopologicalOrder() ([]string, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(g.order))
	for _, level := range levels {
		out = append(out, level...)
	}
	return out, nil
}

// Levels groups nodes into waves: level 0 has no dependencies and every node
// in level n depends only on nodes in levels below n.
func (g *Graph) Levels() ([][]string, error) {
	if len(g.order) == 0 {
		return nil, nil
	}
	sorted, err := dg.TopologicalSort(g.g)
	if err != nil {
		if cycle := g.findCycle(); cycle != nil {
			return nil, cycle
		}
		return nil, fmt.Errorf("graph: sort: %w", err)
	}
	adj, err := g.g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("graph: sort: %w", err)
	}

	// Edges run dependent -> dependency, so dependencies come last in sorted.
	depth := make(map[string]int, len(sorted))
	var levels [][]string
	for i := len(sorted) - 1; i >= 0; i-- {
		n := sorted[i]
		level := 0
		for dep := range adj[n] {
			level = max(level, depth[dep]+1)
		}
		depth[n] = level
		for len(levels) <= level {
			levels = append(levels, nil)
		}
		levels[level] = append(levels[level], n)
	}
	for _, level := range levels {
		g.sorted(level)
	}
	return levels, nil
}

// Validate returns a CycleError if the graph is not acyclic.
func (g *Graph) Validate() error {
	_, err := g.Levels()
	return err
}

// findCycle walks the earliest strongly connected component with more than
// one node until a node repeats.
func (g *Graph) findCycle() *CycleError {
	components, err := dg.StronglyConnectedComponents(g.g)
	if err != nil {
		return nil
	}
	var member map[string]bool
	start := ""
	for _, c := range components {
		if len(c) < 2 {
			continue
		}
		first := g.sorted(slices.Clone(c))[0]
		if start == "" || g.index[first] < g.index[start] {
			start = first
			member = make(map[string]bool, len(c))
			for _, n := range c {
				member[n] = true
			}
		}
	}
	if start == "" {
		return nil
	}

	seen := map[string]int{}
	var path []string
	cur := start
	for {
		if i, ok := seen[cur]; ok {
			return &CycleError{Path: append(slices.Clone(path[i:]), cur)}
		}
		seen[cur] = len(path)
		path = append(path, cur)
		next := ""
		for _, d := range g.Dependencies(cur) {
			if member[d] {
				next = d
				break
			}
		}
		if next == "" {
			return &CycleError{Path: path}
		}
		cur = next
	}
}

func (g *Graph) sorted(names []string) []string {
	slices.SortFunc(names, func(a, b string) int {
		return g.index[a] - g.index[b]
	})
	return names
}

func kindOf(e dg.Edge[string]) EdgeKind {
	k, _ := e.Properties.Data.(EdgeKind)
	return k
}
