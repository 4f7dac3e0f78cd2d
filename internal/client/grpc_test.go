package client

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/server"
	"github.com/alfredjeanlab/graphview/internal/store/memory"
)

// newGRPCTestClient serves a graph A -> B -> C over an in-memory listener.
func newGRPCTestClient(t *testing.T, serverToken, clientToken string) *GRPCClient {
	t.Helper()
	ctx := context.Background()

	s := memory.New()
	for _, id := range []string{"A", "B", "C"} {
		if err := s.UpsertNode(ctx, &model.Node{ID: id, Kind: model.NodeRule}); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []model.Edge{
		{Source: "A", Target: "B", Kind: model.EdgeOutput},
		{Source: "B", Target: "C", Kind: model.EdgeContains},
	} {
		if err := s.AddEdge(ctx, &e); err != nil {
			t.Fatal(err)
		}
	}
	gs := server.NewGraphServer(s, nil, server.DefaultLimits())
	if _, err := gs.Reload(ctx, "startup"); err != nil {
		t.Fatal(err)
	}

	lis := bufconn.Listen(1 << 20)
	srv := server.NewGRPCServer(gs, serverToken)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := NewGRPCClient("passthrough:///bufnet", clientToken,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("NewGRPCClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGRPCClient_Queries(t *testing.T) {
	c := newGRPCTestClient(t, "", "")
	ctx := context.Background()

	resp, err := c.Subgraph(ctx, &SubgraphRequest{StartNodeID: "B", ForwardDepth: 1, BackwardDepth: 1, EdgeLimit: 10})
	if err != nil {
		t.Fatalf("Subgraph: %v", err)
	}
	if len(resp.Nodes) != 3 || len(resp.Links) != 2 {
		t.Fatalf("unexpected subgraph: %+v", resp)
	}

	ids, err := c.SearchNodes(ctx, "c", 0)
	if err != nil {
		t.Fatalf("SearchNodes: %v", err)
	}
	if len(ids) != 1 || ids[0] != "C" {
		t.Fatalf("expected [C], got %v", ids)
	}

	counts, err := c.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.NodeCount != 3 || counts.LinkCount != 2 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	n, err := c.GetNode(ctx, "A")
	if err != nil || n.ID != "A" {
		t.Fatalf("GetNode = %+v, %v", n, err)
	}

	health, err := c.Health(ctx)
	if err != nil || health != "ok" {
		t.Fatalf("Health = %q, %v", health, err)
	}
}

func TestGRPCClient_Errors(t *testing.T) {
	c := newGRPCTestClient(t, "", "")
	ctx := context.Background()

	_, err := c.GetNode(ctx, "missing")
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := c.Reload(ctx); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestGRPCClient_Token(t *testing.T) {
	ctx := context.Background()

	if _, err := newGRPCTestClient(t, "secret", "").Stats(ctx); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated without token, got %v", err)
	}
	if _, err := newGRPCTestClient(t, "secret", "secret").Stats(ctx); err != nil {
		t.Fatalf("Stats with token: %v", err)
	}
}
