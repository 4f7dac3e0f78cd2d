// Package graph holds an immutable, indexed snapshot of the full node/edge
// collection. A Graph is built once per load and then shared read-only by
// every concurrent query.
package graph

import (
	"strings"
	"time"

	"github.com/tidwall/btree"

	"github.com/alfredjeanlab/graphview/internal/model"
)

// DefaultSearchLimit is the number of ids SearchIDs returns when no limit is given.
const DefaultSearchLimit = model.DefaultSearchLimit

// idItem is an entry of the case-insensitive id index.
type idItem struct {
	lower string
	id    string
}

func idItemLess(a, b idItem) bool {
	if a.lower != b.lower {
		return a.lower < b.lower
	}
	return a.id < b.id
}

// Graph is a read-only snapshot of the full graph with adjacency indexes.
// Slices returned by its accessors are shared and must not be modified.
type Graph struct {
	nodes    []model.Node
	index    map[string]int
	edges    []model.Edge
	out      map[string][]model.Edge
	in       map[string][]model.Edge
	ids      *btree.BTreeG[idItem]
	dropped  int
	loadedAt time.Time
}

// New builds a snapshot from nodes and edges given in storage order.
//
// A repeated node id replaces the attributes of the earlier node but keeps its
// position. Edges whose source or target is not a known node are dropped (see
// Dropped) so that every edge reachable through the snapshot has both
// endpoints present.
func New(nodes []model.Node, edges []model.Edge) *Graph {
	g := &Graph{
		nodes:    make([]model.Node, 0, len(nodes)),
		index:    make(map[string]int, len(nodes)),
		edges:    make([]model.Edge, 0, len(edges)),
		out:      make(map[string][]model.Edge),
		in:       make(map[string][]model.Edge),
		ids:      btree.NewBTreeG[idItem](idItemLess),
		loadedAt: time.Now().UTC(),
	}

	for _, n := range nodes {
		if i, ok := g.index[n.ID]; ok {
			g.nodes[i] = n
			continue
		}
		g.index[n.ID] = len(g.nodes)
		g.nodes = append(g.nodes, n)
		g.ids.Set(idItem{lower: strings.ToLower(n.ID), id: n.ID})
	}

	for _, e := range edges {
		_, srcOK := g.index[e.Source]
		_, dstOK := g.index[e.Target]
		if !srcOK || !dstOK {
			g.dropped++
			continue
		}
		g.edges = append(g.edges, e)
		g.out[e.Source] = append(g.out[e.Source], e)
		g.in[e.Target] = append(g.in[e.Target], e)
	}

	return g
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (model.Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return model.Node{}, false
	}
	return g.nodes[i], true
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Outgoing returns the edges whose source is id, in storage order.
func (g *Graph) Outgoing(id string) []model.Edge {
	return g.out[id]
}

// Incoming returns the edges whose target is id, in storage order.
func (g *Graph) Incoming(id string) []model.Edge {
	return g.in[id]
}

// Nodes returns all nodes in storage order.
func (g *Graph) Nodes() []model.Node { return g.nodes }

// Edges returns all retained edges in storage order.
func (g *Graph) Edges() []model.Edge { return g.edges }

// NodeCount returns the number of distinct nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of retained edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Dropped returns the number of edges discarded for a missing endpoint.
func (g *Graph) Dropped() int { return g.dropped }

// LoadedAt returns when the snapshot was built.
func (g *Graph) LoadedAt() time.Time { return g.loadedAt }

// SearchIDs returns up to limit node ids matching term case-insensitively.
// Ids starting with term come first, followed by ids containing it elsewhere;
// each group is in ascending order. An empty term matches every id.
func (g *Graph) SearchIDs(term string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	term = strings.ToLower(term)

	out := make([]string, 0, min(limit, g.ids.Len()))
	g.ids.Ascend(idItem{lower: term}, func(it idItem) bool {
		if !strings.HasPrefix(it.lower, term) {
			return false
		}
		out = append(out, it.id)
		return len(out) < limit
	})
	if term == "" || len(out) >= limit {
		return out
	}

	g.ids.Scan(func(it idItem) bool {
		if strings.HasPrefix(it.lower, term) || !strings.Contains(it.lower, term) {
			return true
		}
		out = append(out, it.id)
		return len(out) < limit
	})
	return out
}

// Stats returns aggregate counts for the snapshot.
func (g *Graph) Stats() *model.GraphStats {
	stats := &model.GraphStats{
		NodeCount:    len(g.nodes),
		LinkCount:    len(g.edges),
		DroppedLinks: g.dropped,
		NodeKinds:    make(map[model.NodeKind]int),
		LinkKinds:    make(map[model.EdgeKind]int),
		LoadedAt:     g.loadedAt,
	}
	for _, n := range g.nodes {
		stats.NodeKinds[n.Kind]++
	}
	for _, e := range g.edges {
		stats.LinkKinds[e.Kind]++
	}
	return stats
}
