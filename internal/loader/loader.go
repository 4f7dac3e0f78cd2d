// Package loader builds in-memory graph snapshots from a store.
package loader

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/graphview/internal/graph"
	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/store"
)

// Load reads every node and edge from s in storage order and builds a
// snapshot. Nodes and edges are read inside one transaction so the snapshot
// never mixes two versions of the graph.
func Load(ctx context.Context, s store.Store) (*graph.Graph, error) {
	var (
		nodes []*model.Node
		edges []*model.Edge
	)
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		if nodes, err = tx.ListNodes(ctx); err != nil {
			return fmt.Errorf("list nodes: %w", err)
		}
		if edges, err = tx.ListEdges(ctx); err != nil {
			return fmt.Errorf("list edges: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}

	ns := make([]model.Node, len(nodes))
	for i, n := range nodes {
		ns[i] = *n
	}
	es := make([]model.Edge, len(edges))
	for i, e := range edges {
		es[i] = *e
	}
	return graph.New(ns, es), nil
}
