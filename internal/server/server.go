// Package server exposes the current graph snapshot over HTTP, SSE and gRPC.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alfredjeanlab/graphview/internal/events"
	"github.com/alfredjeanlab/graphview/internal/graph"
	"github.com/alfredjeanlab/graphview/internal/loader"
	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/store"
	"github.com/alfredjeanlab/graphview/internal/subgraph"
)

// Limits bound the parameters accepted by the query surfaces.
type Limits struct {
	MaxDepth     int
	MaxEdgeLimit int
	SearchLimit  int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxDepth: 10, MaxEdgeLimit: 100, SearchLimit: graph.DefaultSearchLimit}
}

// GraphServer holds the current graph snapshot and answers queries against it.
// Every query reads a single snapshot for its whole lifetime; Reload swaps in
// a new one atomically.
type GraphServer struct {
	store     store.Store
	publisher events.Publisher
	sseHub    *sseHub
	limits    Limits
	params    *paramValidator

	snapshot atomic.Pointer[graph.Graph]
	reloadMu sync.Mutex
}

// NewGraphServer returns a GraphServer backed by the given store and publisher.
// It starts with an empty snapshot; call Reload to load the stored graph.
func NewGraphServer(s store.Store, p events.Publisher, limits Limits) *GraphServer {
	if p == nil {
		p = &events.NoopPublisher{}
	}
	if limits.SearchLimit <= 0 {
		limits.SearchLimit = graph.DefaultSearchLimit
	}
	gs := &GraphServer{
		store:     s,
		publisher: p,
		sseHub:    newSSEHub(),
		limits:    limits,
		params:    newParamValidator(limits),
	}
	gs.snapshot.Store(graph.New(nil, nil))
	return gs
}

// Graph returns the current snapshot. It is never nil.
func (s *GraphServer) Graph() *graph.Graph {
	return s.snapshot.Load()
}

// Limits returns the configured query limits.
func (s *GraphServer) Limits() Limits {
	return s.limits
}

// Reload rebuilds the snapshot from the store and swaps it in. Concurrent
// reloads are serialized; queries in flight keep the snapshot they started with.
func (s *GraphServer) Reload(ctx context.Context, reason string) (*model.GraphStats, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	g, err := loader.Load(ctx, s.store)
	if err != nil {
		reloadFailures.Inc()
		return nil, err
	}
	s.snapshot.Store(g)

	stats := g.Stats()
	graphReloads.WithLabelValues(reason).Inc()
	graphNodes.Set(float64(stats.NodeCount))
	graphLinks.Set(float64(stats.LinkCount))

	slog.Info("graph loaded",
		"reason", reason,
		"nodes", stats.NodeCount,
		"links", stats.LinkCount,
		"dropped_links", stats.DroppedLinks,
	)
	s.publish(ctx, events.TopicGraphLoaded, events.GraphLoaded{Stats: stats, Reason: reason})
	return stats, nil
}

// Subgraph validates params against the configured limits and extracts the
// neighborhood of params.StartNodeID from the current snapshot. An unknown
// start node is reported before any range violation.
func (s *GraphServer) Subgraph(params SubgraphParams) (*subgraph.Result, error) {
	g := s.Graph()
	if params.StartNodeID != "" && !g.Has(params.StartNodeID) {
		return nil, fmt.Errorf("%w: %q", subgraph.ErrNodeNotFound, params.StartNodeID)
	}
	if err := s.params.validate(params); err != nil {
		return nil, err
	}
	res, err := subgraph.Extract(g, params.StartNodeID, params.ForwardDepth, params.BackwardDepth, params.EdgeLimit)
	if err != nil {
		return nil, err
	}
	subgraphNodes.Observe(float64(len(res.Nodes)))
	subgraphLinks.Observe(float64(len(res.Edges)))
	return res, nil
}

// SearchNodes returns ids matching term. A limit outside 1..SearchLimit is
// replaced by SearchLimit.
func (s *GraphServer) SearchNodes(term string, limit int) []string {
	if limit <= 0 || limit > s.limits.SearchLimit {
		limit = s.limits.SearchLimit
	}
	return s.Graph().SearchIDs(term, limit)
}

// Node returns the node with the given id from the current snapshot.
func (s *GraphServer) Node(id string) (model.Node, error) {
	n, ok := s.Graph().Node(id)
	if !ok {
		return model.Node{}, fmt.Errorf("%w: %q", subgraph.ErrNodeNotFound, id)
	}
	return n, nil
}

// Counts returns the node and link counts of the current snapshot.
func (s *GraphServer) Counts() model.GraphCounts {
	g := s.Graph()
	return model.GraphCounts{NodeCount: g.NodeCount(), LinkCount: g.EdgeCount()}
}

// Stats returns aggregate statistics for the current snapshot.
func (s *GraphServer) Stats() *model.GraphStats {
	return s.Graph().Stats()
}

// Broadcast forwards an event that arrived from elsewhere (for example NATS)
// to connected SSE clients without republishing it.
func (s *GraphServer) Broadcast(topic string, event any) {
	s.broadcastEvent(topic, event)
}

// publish sends an event to NATS and to SSE clients. Failures are logged and
// never block the caller.
func (s *GraphServer) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
	s.broadcastEvent(topic, event)
}

func (s *GraphServer) broadcastEvent(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event for SSE broadcast", "topic", topic, "error", err)
		return
	}
	s.sseHub.broadcast(topic, payload)
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// IsInputError reports whether err was caused by invalid query parameters.
func IsInputError(err error) bool {
	var ie inputError
	return errors.As(err, &ie)
}
