package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const subgraphMethod = "/graphview.v1.GraphService/Subgraph"

// stubHandler is a no-op gRPC handler used in interceptor tests.
func stubHandler(_ context.Context, _ any) (any, error) {
	return "ok", nil
}

func TestAuthInterceptor(t *testing.T) {
	for _, tc := range []struct {
		name   string
		token  string
		method string
		md     metadata.MD // nil means no incoming metadata
		want   codes.Code
	}{
		{"disabled", "", subgraphMethod, nil, codes.OK},
		{"health exempt", "secret", "/grpc.health.v1.Health/Check", nil, codes.OK},
		{"missing metadata", "secret", subgraphMethod, nil, codes.Unauthenticated},
		{"missing header", "secret", subgraphMethod, metadata.Pairs("other", "value"), codes.Unauthenticated},
		{"wrong token", "secret", subgraphMethod, metadata.Pairs("authorization", "Bearer wrong"), codes.Unauthenticated},
		{"invalid scheme", "secret", subgraphMethod, metadata.Pairs("authorization", "Basic secret"), codes.Unauthenticated},
		{"correct token", "secret", subgraphMethod, metadata.Pairs("authorization", "Bearer secret"), codes.OK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}
			resp, err := AuthInterceptor(tc.token)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tc.method}, stubHandler)
			if got := status.Code(err); got != tc.want {
				t.Fatalf("code = %v, want %v (err=%v)", got, tc.want, err)
			}
			if tc.want == codes.OK && resp != "ok" {
				t.Fatalf("expected 'ok', got %v", resp)
			}
		})
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	panicking := func(context.Context, any) (any, error) { panic("boom") }
	_, err := RecoveryInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: subgraphMethod}, panicking)
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
}

func TestLoggingInterceptor_RequestID(t *testing.T) {
	var seen string
	capture := func(ctx context.Context, _ any) (any, error) {
		seen = RequestIDFromContext(ctx)
		return "ok", nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: subgraphMethod}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "abc-123"))
	if _, err := LoggingInterceptor(ctx, nil, info, capture); err != nil {
		t.Fatal(err)
	}
	if seen != "abc-123" {
		t.Fatalf("expected incoming id to be reused, got %q", seen)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "bad id\n"))
	if _, err := LoggingInterceptor(ctx, nil, info, capture); err != nil {
		t.Fatal(err)
	}
	if seen == "" || seen == "bad id\n" {
		t.Fatalf("expected a generated id, got %q", seen)
	}
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	failing := func(context.Context, any) (any, error) {
		return nil, status.Error(codes.NotFound, "node not found")
	}
	_, err := LoggingInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: subgraphMethod}, failing)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for _, tc := range []struct {
		name   string
		token  string
		path   string
		header string
		want   int
	}{
		{"disabled", "", "/api/init", "", http.StatusOK},
		{"no header", "secret", "/api/init", "", http.StatusUnauthorized},
		{"wrong token", "secret", "/api/init", "Bearer wrong", http.StatusUnauthorized},
		{"invalid scheme", "secret", "/api/init", "Basic secret", http.StatusUnauthorized},
		{"correct token", "secret", "/api/init", "Bearer secret", http.StatusOK},
		{"health exempt", "secret", "/v1/health", "", http.StatusOK},
		{"metrics exempt", "secret", "/metrics", "", http.StatusOK},
		{"stream query token", "secret", "/api/events/stream?access_token=secret", "", http.StatusOK},
		{"stream wrong query token", "secret", "/api/events/stream?access_token=nope", "", http.StatusUnauthorized},
		{"query token only on stream", "secret", "/api/init?access_token=secret", "", http.StatusUnauthorized},
		{"header wins over query", "secret", "/api/events/stream?access_token=secret", "Bearer wrong", http.StatusUnauthorized},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(tc.token, ok).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d; body: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}
