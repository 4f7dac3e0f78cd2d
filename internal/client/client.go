// Package client provides a transport-agnostic interface to a graphview
// server with HTTP/JSON and gRPC implementations.
package client

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/graphview/internal/model"
)

// ErrUnsupported is returned by a transport that cannot perform an operation.
var ErrUnsupported = errors.New("operation not supported by this transport")

// GraphClient is the interface the gv CLI and MCP tools use to query a
// graphview server.
type GraphClient interface {
	Counts(ctx context.Context) (*model.GraphCounts, error)
	SearchNodes(ctx context.Context, term string, limit int) ([]string, error)
	GetNode(ctx context.Context, id string) (*model.Node, error)
	Subgraph(ctx context.Context, req *SubgraphRequest) (*model.SubgraphResponse, error)
	Stats(ctx context.Context) (*model.GraphStats, error)
	Reload(ctx context.Context) (*model.GraphStats, error)
	Health(ctx context.Context) (string, error)

	Close() error
}

// SubgraphRequest holds the parameters of a subgraph query.
type SubgraphRequest struct {
	StartNodeID   string `json:"startNodeId"`
	ForwardDepth  int    `json:"forwardDepth"`
	BackwardDepth int    `json:"backwardDepth"`
	EdgeLimit     int    `json:"edgeLimit"`
}
