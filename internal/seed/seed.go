// Package seed generates a random sample graph for demos and load tests.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/store"
)

// Options controls the generated graph.
type Options struct {
	Nodes    int    // number of nodes, default 1000
	MaxLinks int    // upper bound of link attempts per node, default 10
	Seed     uint64 // PRNG seed; equal seeds produce equal graphs
}

// DefaultOptions returns the stock demo graph settings.
func DefaultOptions() Options {
	return Options{Nodes: 1000, MaxLinks: 10, Seed: 1}
}

var edgeKinds = []model.EdgeKind{model.EdgeOutput, model.EdgeInput, model.EdgeContains}

// Generate builds a graph of opts.Nodes nodes named node_1..node_N. Each node
// is a rule or data node with equal probability and makes between 1 and
// opts.MaxLinks attempts to link to a random node; attempts that would
// create a self loop are skipped.
func Generate(opts Options) ([]model.Node, []model.Edge) {
	if opts.Nodes <= 0 {
		opts.Nodes = DefaultOptions().Nodes
	}
	if opts.MaxLinks <= 0 {
		opts.MaxLinks = DefaultOptions().MaxLinks
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed>>1|1))

	nodes := make([]model.Node, opts.Nodes)
	for i := range nodes {
		kind := model.NodeData
		if rng.Float64() < 0.5 {
			kind = model.NodeRule
		}
		nodes[i] = model.Node{
			ID:          nodeID(i + 1),
			Kind:        kind,
			Description: fmt.Sprintf("This is %s %d. It contains some sample information about the node.", kind, i+1),
		}
	}

	edges := make([]model.Edge, 0, opts.Nodes*(opts.MaxLinks+1)/2)
	for i := 1; i <= opts.Nodes; i++ {
		attempts := 1 + rng.IntN(opts.MaxLinks)
		for range attempts {
			target := 1 + rng.IntN(opts.Nodes)
			if target == i {
				continue
			}
			edges = append(edges, model.Edge{
				Source: nodeID(i),
				Target: nodeID(target),
				Kind:   edgeKinds[rng.IntN(len(edgeKinds))],
			})
		}
	}
	return nodes, edges
}

func nodeID(i int) string {
	return fmt.Sprintf("node_%d", i)
}

// Result reports what Populate wrote.
type Result struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// Populate generates a graph and writes it to s in one transaction. When
// truncate is set the existing graph is removed first.
func Populate(ctx context.Context, s store.Store, opts Options, truncate bool) (*Result, error) {
	nodes, edges := Generate(opts)

	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		if truncate {
			if err := tx.Truncate(ctx); err != nil {
				return err
			}
		}
		for i := range nodes {
			if err := tx.UpsertNode(ctx, &nodes[i]); err != nil {
				return fmt.Errorf("insert node %s: %w", nodes[i].ID, err)
			}
		}
		for i := range edges {
			if err := tx.AddEdge(ctx, &edges[i]); err != nil {
				return fmt.Errorf("insert edge %s->%s: %w", edges[i].Source, edges[i].Target, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("populate graph: %w", err)
	}
	return &Result{Nodes: len(nodes), Edges: len(edges)}, nil
}
