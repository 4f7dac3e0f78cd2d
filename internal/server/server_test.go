package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/alfredjeanlab/graphview/internal/events"
	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/store"
	"github.com/alfredjeanlab/graphview/internal/store/memory"
	"github.com/alfredjeanlab/graphview/internal/subgraph"
)

// recordingPublisher remembers every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// seedStore fills s with the three-node chain 1 -> 2 -> 3.
func seedStore(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	for _, n := range []model.Node{
		{ID: "1", Kind: model.NodeData, Description: "This is data 1"},
		{ID: "2", Kind: model.NodeRule, Description: "This is rule 2"},
		{ID: "3", Kind: model.NodeData, Description: "This is data 3"},
	} {
		if err := s.UpsertNode(ctx, &n); err != nil {
			t.Fatalf("UpsertNode: %v", err)
		}
	}
	for _, e := range []model.Edge{
		{Source: "1", Target: "2", Kind: model.EdgeOutput},
		{Source: "2", Target: "3", Kind: model.EdgeInput},
	} {
		if err := s.AddEdge(ctx, &e); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
}

// newTestServer returns a loaded GraphServer over the three-node chain, the
// publisher it reports to, and its HTTP handler without auth or rate limits.
func newTestServer(t *testing.T) (*GraphServer, *recordingPublisher, http.Handler) {
	t.Helper()
	s := memory.New()
	seedStore(t, s)
	pub := &recordingPublisher{}
	gs := NewGraphServer(s, pub, DefaultLimits())
	if _, err := gs.Reload(context.Background(), "startup"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return gs, pub, gs.NewHTTPHandler(HTTPOptions{})
}

func TestNewGraphServer_EmptySnapshot(t *testing.T) {
	gs := NewGraphServer(memory.New(), nil, DefaultLimits())
	if gs.Graph() == nil {
		t.Fatal("expected a non-nil snapshot before the first reload")
	}
	if c := gs.Counts(); c.NodeCount != 0 || c.LinkCount != 0 {
		t.Fatalf("expected empty counts, got %+v", c)
	}
}

func TestReload_PublishesGraphLoaded(t *testing.T) {
	gs, pub, _ := newTestServer(t)

	if len(pub.topics) != 1 || pub.topics[0] != events.TopicGraphLoaded {
		t.Fatalf("expected one %s event, got %v", events.TopicGraphLoaded, pub.topics)
	}
	evt, ok := pub.events[0].(events.GraphLoaded)
	if !ok {
		t.Fatalf("expected GraphLoaded payload, got %T", pub.events[0])
	}
	if evt.Reason != "startup" || evt.Stats.NodeCount != 3 || evt.Stats.LinkCount != 2 {
		t.Fatalf("unexpected payload: reason=%q stats=%+v", evt.Reason, evt.Stats)
	}
	if c := gs.Counts(); c.NodeCount != 3 || c.LinkCount != 2 {
		t.Fatalf("unexpected counts: %+v", c)
	}
}

func TestReload_SwapsSnapshot(t *testing.T) {
	s := memory.New()
	seedStore(t, s)
	gs := NewGraphServer(s, nil, DefaultLimits())
	ctx := context.Background()
	if _, err := gs.Reload(ctx, "startup"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	before := gs.Graph()

	if err := s.UpsertNode(ctx, &model.Node{ID: "4", Kind: model.NodeRule}); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	if before.Has("4") {
		t.Fatal("store writes must not leak into a loaded snapshot")
	}

	stats, err := gs.Reload(ctx, "api")
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if stats.NodeCount != 4 || !gs.Graph().Has("4") {
		t.Fatalf("expected reloaded snapshot with node 4, stats=%+v", stats)
	}
	if before.Has("4") {
		t.Fatal("old snapshot must stay unchanged")
	}
}

func TestSubgraph_NotFound(t *testing.T) {
	gs, _, _ := newTestServer(t)
	_, err := gs.Subgraph(SubgraphParams{StartNodeID: "4", ForwardDepth: 1, BackwardDepth: 1, EdgeLimit: 1})
	if !errors.Is(err, subgraph.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
	if IsInputError(err) {
		t.Fatal("unknown node must not be reported as an input error")
	}
}

func TestSubgraph_NotFoundBeforeRangeCheck(t *testing.T) {
	gs, _, _ := newTestServer(t)
	_, err := gs.Subgraph(SubgraphParams{StartNodeID: "zzz", ForwardDepth: -1, BackwardDepth: 99, EdgeLimit: 0})
	if !errors.Is(err, subgraph.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}

	_, err = gs.Subgraph(SubgraphParams{StartNodeID: "1", ForwardDepth: -1, BackwardDepth: 1, EdgeLimit: 1})
	if !IsInputError(err) {
		t.Fatalf("known node with negative depth: expected input error, got %v", err)
	}
}

func TestSearchNodes_ClampsLimit(t *testing.T) {
	gs, _, _ := newTestServer(t)
	if got := gs.SearchNodes("", 2); len(got) != 2 {
		t.Fatalf("expected 2 ids, got %v", got)
	}
	if got := gs.SearchNodes("", 1000); len(got) != 3 {
		t.Fatalf("expected limit clamp to return all 3 ids, got %v", got)
	}
}

func TestNode(t *testing.T) {
	gs, _, _ := newTestServer(t)
	n, err := gs.Node("2")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if n.Kind != model.NodeRule {
		t.Fatalf("expected rule node, got %+v", n)
	}
	if _, err := gs.Node("missing"); !errors.Is(err, subgraph.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}
