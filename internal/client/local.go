package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/server"
	"github.com/alfredjeanlab/graphview/internal/store"
	"github.com/alfredjeanlab/graphview/internal/subgraph"
)

// LocalClient implements GraphClient against a store opened in the same
// process, so the CLI can query a database without a running server.
//
// Counts, SearchNodes, GetNode and Health read the store directly. Subgraph
// and Stats need a snapshot, which is loaded on first use and refreshed by
// Reload.
type LocalClient struct {
	store  store.Store
	gs     *server.GraphServer
	limits server.Limits

	mu     sync.Mutex
	loaded bool
}

// NewLocalClient returns a client over s. The client owns s and closes it.
func NewLocalClient(s store.Store, limits server.Limits) *LocalClient {
	gs := server.NewGraphServer(s, nil, limits)
	return &LocalClient{store: s, gs: gs, limits: gs.Limits()}
}

// graph returns the server holding a loaded snapshot.
func (c *LocalClient) graph(ctx context.Context) (*server.GraphServer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		if _, err := c.gs.Reload(ctx, "local"); err != nil {
			return nil, err
		}
		c.loaded = true
	}
	return c.gs, nil
}

// Counts reports stored rows, including links whose endpoints are missing.
func (c *LocalClient) Counts(ctx context.Context) (*model.GraphCounts, error) {
	nodes, err := c.store.CountNodes(ctx)
	if err != nil {
		return nil, err
	}
	links, err := c.store.CountEdges(ctx)
	if err != nil {
		return nil, err
	}
	return &model.GraphCounts{NodeCount: nodes, LinkCount: links}, nil
}

// SearchNodes clamps limit the way the server does.
func (c *LocalClient) SearchNodes(ctx context.Context, term string, limit int) ([]string, error) {
	if limit <= 0 || limit > c.limits.SearchLimit {
		limit = c.limits.SearchLimit
	}
	return c.store.SearchNodeIDs(ctx, term, limit)
}

func (c *LocalClient) GetNode(ctx context.Context, id string) (*model.Node, error) {
	n, err := c.store.GetNode(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", subgraph.ErrNodeNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (c *LocalClient) Subgraph(ctx context.Context, req *SubgraphRequest) (*model.SubgraphResponse, error) {
	gs, err := c.graph(ctx)
	if err != nil {
		return nil, err
	}
	res, err := gs.Subgraph(server.SubgraphParams{
		StartNodeID:   req.StartNodeID,
		ForwardDepth:  req.ForwardDepth,
		BackwardDepth: req.BackwardDepth,
		EdgeLimit:     req.EdgeLimit,
	})
	if err != nil {
		return nil, err
	}
	return res.Response(), nil
}

func (c *LocalClient) Stats(ctx context.Context) (*model.GraphStats, error) {
	gs, err := c.graph(ctx)
	if err != nil {
		return nil, err
	}
	return gs.Stats(), nil
}

func (c *LocalClient) Reload(ctx context.Context) (*model.GraphStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats, err := c.gs.Reload(ctx, "local")
	if err != nil {
		return nil, err
	}
	c.loaded = true
	return stats, nil
}

// Health reports "ok" once the store answers a query.
func (c *LocalClient) Health(ctx context.Context) (string, error) {
	if _, err := c.store.CountNodes(ctx); err != nil {
		return "", fmt.Errorf("store unavailable: %w", err)
	}
	return "ok", nil
}

func (c *LocalClient) Close() error {
	return c.store.Close()
}
