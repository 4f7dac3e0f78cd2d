package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/server"
)

// GRPCClient implements GraphClient over graphview.v1.GraphService.
type GRPCClient struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// NewGRPCClient connects to addr. When token is non-empty it is sent as a
// bearer token on every call. Extra dial options are appended.
func NewGRPCClient(addr, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dial := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if token != "" {
		dial = append(dial, grpc.WithUnaryInterceptor(bearerInterceptor(token)))
	}
	conn, err := grpc.NewClient(addr, append(dial, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{conn: conn, health: healthpb.NewHealthClient(conn)}, nil
}

func bearerInterceptor(token string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// call invokes method with req encoded as a Struct and decodes the reply into out.
func (c *GRPCClient) call(ctx context.Context, method string, req any, out any) error {
	in, err := server.ToStruct(req)
	if err != nil {
		return err
	}
	reply := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, reply); err != nil {
		return err
	}
	return server.FromStruct(reply, out)
}

func (c *GRPCClient) Counts(ctx context.Context) (*model.GraphCounts, error) {
	stats, err := c.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &model.GraphCounts{NodeCount: stats.NodeCount, LinkCount: stats.LinkCount}, nil
}

func (c *GRPCClient) SearchNodes(ctx context.Context, term string, limit int) ([]string, error) {
	var resp struct {
		IDs []string `json:"ids"`
	}
	req := map[string]any{"term": term}
	if limit > 0 {
		req["limit"] = limit
	}
	if err := c.call(ctx, server.MethodSearchNodes, req, &resp); err != nil {
		return nil, err
	}
	if resp.IDs == nil {
		resp.IDs = []string{}
	}
	return resp.IDs, nil
}

// GetNode fetches a node as the depth-zero subgraph around it.
func (c *GRPCClient) GetNode(ctx context.Context, id string) (*model.Node, error) {
	resp, err := c.Subgraph(ctx, &SubgraphRequest{StartNodeID: id, EdgeLimit: 1})
	if err != nil {
		return nil, err
	}
	if len(resp.Nodes) == 0 {
		return nil, fmt.Errorf("get node %q: empty response", id)
	}
	return &resp.Nodes[0], nil
}

func (c *GRPCClient) Subgraph(ctx context.Context, req *SubgraphRequest) (*model.SubgraphResponse, error) {
	var resp model.SubgraphResponse
	if err := c.call(ctx, server.MethodSubgraph, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *GRPCClient) Stats(ctx context.Context) (*model.GraphStats, error) {
	var stats model.GraphStats
	if err := c.call(ctx, server.MethodStats, map[string]any{}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Reload is only exposed over HTTP.
func (c *GRPCClient) Reload(context.Context) (*model.GraphStats, error) {
	return nil, fmt.Errorf("reload: %w", ErrUnsupported)
}

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: server.GraphServiceName})
	if err != nil {
		return "", err
	}
	if resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
		return "ok", nil
	}
	return resp.GetStatus().String(), nil
}
