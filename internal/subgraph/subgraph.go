// Package subgraph extracts a bounded neighborhood around a start node of a
// directed graph.
//
// Extraction runs two independent depth-limited passes from the start node:
// a forward pass over outgoing edges and a backward pass over incoming edges.
// Each pass keeps its own visited set, so a node reached in both directions
// is expanded once per direction. At every visited node only the first
// edgeLimit edges (in the graph's storage order) are followed.
package subgraph

import (
	"errors"
	"fmt"

	"github.com/alfredjeanlab/graphview/internal/model"
)

// ErrNodeNotFound is returned when the start id is not a node of the graph.
var ErrNodeNotFound = errors.New("node not found")

// Index is the read-only graph access the extractor needs. Implementations
// must return edges in a stable storage order and must not change while an
// extraction is running.
type Index interface {
	Node(id string) (model.Node, bool)
	Outgoing(id string) []model.Edge
	Incoming(id string) []model.Edge
}

// Result is an extracted neighborhood. Nodes and Edges are in first-added
// order; the start node is always Nodes[0].
type Result struct {
	Nodes []model.Node `json:"nodes"`
	Edges []model.Edge `json:"links"`
}

// Response converts the result to its wire form.
func (r *Result) Response() *model.SubgraphResponse {
	return &model.SubgraphResponse{Nodes: r.Nodes, Links: r.Edges}
}

// Extract returns the neighborhood of startID reachable within forwardDepth
// hops along outgoing edges and backwardDepth hops along incoming edges,
// following at most edgeLimit edges per visited node and direction.
//
// A depth of 0 disables that direction. Negative depths and limits are
// treated as 0. The only error is ErrNodeNotFound.
func Extract(g Index, startID string, forwardDepth, backwardDepth, edgeLimit int) (*Result, error) {
	if _, ok := g.Node(startID); !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, startID)
	}

	x := &extraction{
		g:         g,
		edgeLimit: max(edgeLimit, 0),
		edges:     []model.Edge{},
		nodeSeen:  make(map[string]struct{}),
		edgeSeen:  make(map[model.EdgeKey]struct{}),
	}
	x.addNode(startID)

	forward := pass{
		maxDepth: max(forwardDepth, 0),
		visited:  make(map[string]struct{}),
		edges:    g.Outgoing,
		next:     func(e model.Edge) string { return e.Target },
	}
	backward := pass{
		maxDepth: max(backwardDepth, 0),
		visited:  make(map[string]struct{}),
		edges:    g.Incoming,
		next:     func(e model.Edge) string { return e.Source },
	}
	x.walk(&forward, startID, 0)
	x.walk(&backward, startID, 0)

	return &Result{Nodes: x.nodes, Edges: x.edges}, nil
}

// pass is one traversal direction.
type pass struct {
	maxDepth int
	visited  map[string]struct{}
	edges    func(id string) []model.Edge
	next     func(e model.Edge) string
}

// extraction accumulates the result of a single Extract call.
type extraction struct {
	g         Index
	edgeLimit int

	nodes    []model.Node
	nodeSeen map[string]struct{}
	edges    []model.Edge
	edgeSeen map[model.EdgeKey]struct{}
}

// walk visits id at the given hop distance from the start node. The depth
// bound is checked before the visited set, and both before any expansion, so
// a node at exactly maxDepth hops is added by its parent but never expanded.
func (x *extraction) walk(p *pass, id string, depth int) {
	if depth >= p.maxDepth {
		return
	}
	if _, ok := p.visited[id]; ok {
		return
	}
	p.visited[id] = struct{}{}
	x.addNode(id)

	edges := p.edges(id)
	if len(edges) > x.edgeLimit {
		edges = edges[:x.edgeLimit]
	}
	for _, e := range edges {
		x.addEdge(e)
		neighbor := p.next(e)
		x.addNode(neighbor)
		x.walk(p, neighbor, depth+1)
	}
}

func (x *extraction) addNode(id string) {
	if _, ok := x.nodeSeen[id]; ok {
		return
	}
	n, ok := x.g.Node(id)
	if !ok {
		return
	}
	x.nodeSeen[id] = struct{}{}
	x.nodes = append(x.nodes, n)
}

func (x *extraction) addEdge(e model.Edge) {
	key := e.Key()
	if _, ok := x.edgeSeen[key]; ok {
		return
	}
	x.edgeSeen[key] = struct{}{}
	x.edges = append(x.edges, e)
}
