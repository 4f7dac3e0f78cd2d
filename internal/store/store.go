package store

import (
	"context"

	"github.com/alfredjeanlab/graphview/internal/model"
)

// Store defines the persistence interface for the full graph.
//
// Storage order is insertion order: ListNodes and ListEdges return rows in the
// order they were first written, and the in-memory snapshot derives its
// adjacency order (and therefore edge-limit truncation) from it.
type Store interface {
	// Nodes
	UpsertNode(ctx context.Context, node *model.Node) error // replaces attributes, keeps position
	GetNode(ctx context.Context, id string) (*model.Node, error)
	ListNodes(ctx context.Context) ([]*model.Node, error)
	SearchNodeIDs(ctx context.Context, term string, limit int) ([]string, error)
	CountNodes(ctx context.Context) (int, error)

	// Edges
	AddEdge(ctx context.Context, edge *model.Edge) error
	ListEdges(ctx context.Context) ([]*model.Edge, error)
	CountEdges(ctx context.Context) (int, error)

	// Truncate removes every node and edge.
	Truncate(ctx context.Context) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
