package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/graphview/internal/subgraph"
)

// GraphServiceName is the fully qualified gRPC service name.
const GraphServiceName = "graphview.v1.GraphService"

// Full method names of the graph service.
const (
	MethodSubgraph    = "/" + GraphServiceName + "/Subgraph"
	MethodSearchNodes = "/" + GraphServiceName + "/SearchNodes"
	MethodStats       = "/" + GraphServiceName + "/Stats"
)

// GraphServiceServer is the server API of graphview.v1.GraphService. Requests
// and responses are google.protobuf.Struct values carrying the same JSON
// shapes as the HTTP API.
type GraphServiceServer interface {
	Subgraph(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchNodes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// GraphServiceDesc describes graphview.v1.GraphService for grpc.Server.
var GraphServiceDesc = grpc.ServiceDesc{
	ServiceName: GraphServiceName,
	HandlerType: (*GraphServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Subgraph", Handler: unaryHandler(MethodSubgraph, GraphServiceServer.Subgraph)},
		{MethodName: "SearchNodes", Handler: unaryHandler(MethodSearchNodes, GraphServiceServer.SearchNodes)},
		{MethodName: "Stats", Handler: unaryHandler(MethodStats, GraphServiceServer.Stats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "graphview/v1/graph.proto",
}

type structMethod func(GraphServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GraphServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GraphServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// NewGRPCServer creates a gRPC server with standard interceptors and
// registers the graph service, the health service and reflection.
func NewGRPCServer(gs *GraphServer, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor,
			RecoveryInterceptor,
			AuthInterceptor(authToken),
		),
	)

	srv.RegisterService(&GraphServiceDesc, &grpcGraphService{gs: gs})

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(GraphServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	reflection.Register(srv)
	return srv
}

// grpcGraphService adapts GraphServer to GraphServiceServer.
type grpcGraphService struct {
	gs *GraphServer
}

func (g *grpcGraphService) Subgraph(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	params, err := subgraphParamsFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := g.gs.Subgraph(params)
	switch {
	case err == nil:
		return ToStruct(res.Response())
	case IsInputError(err):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, subgraph.ErrNodeNotFound):
		return nil, status.Error(codes.NotFound, err.Error())
	default:
		return nil, status.Errorf(codes.Internal, "failed to extract subgraph: %v", err)
	}
}

func (g *grpcGraphService) SearchNodes(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	limit := 0
	if v, ok := fields["limit"]; ok {
		n, err := integerValue(v)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, msgInvalidTypes)
		}
		limit = n
	}
	ids := g.gs.SearchNodes(fields["term"].GetStringValue(), limit)
	return ToStruct(map[string]any{"ids": ids})
}

func (g *grpcGraphService) Stats(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return ToStruct(g.gs.Stats())
}

func subgraphParamsFromStruct(req *structpb.Struct) (SubgraphParams, error) {
	fields := req.GetFields()
	p := SubgraphParams{StartNodeID: fields["startNodeId"].GetStringValue()}
	for name, dst := range map[string]*int{
		"forwardDepth":  &p.ForwardDepth,
		"backwardDepth": &p.BackwardDepth,
		"edgeLimit":     &p.EdgeLimit,
	} {
		v, ok := fields[name]
		if !ok {
			return SubgraphParams{}, inputError(msgInvalidTypes)
		}
		n, err := integerValue(v)
		if err != nil {
			return SubgraphParams{}, err
		}
		*dst = n
	}
	return p, nil
}

func integerValue(v *structpb.Value) (int, error) {
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || num.NumberValue != math.Trunc(num.NumberValue) || math.Abs(num.NumberValue) > math.MaxInt32 {
		return 0, inputError(msgInvalidTypes)
	}
	return int(num.NumberValue), nil
}

// ToStruct converts any JSON-encodable value into a structpb.Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal struct: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	return out, nil
}

// FromStruct decodes a structpb.Struct into dst via its JSON form.
func FromStruct(s *structpb.Struct, dst any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal struct: %w", err)
	}
	return nil
}
