package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/graphview/internal/idgen"
)

const (
	healthServicePrefix = "/grpc.health.v1.Health/"
	eventStreamPath     = "/api/events/stream"

	// requestIDMetadataKey is the lower-cased gRPC form of RequestIDHeader.
	requestIDMetadataKey = "x-request-id"
)

var (
	errMissingAuth   = errors.New("missing authorization header")
	errInvalidScheme = errors.New("invalid authorization scheme")
	errInvalidToken  = errors.New("invalid token")
)

// checkBearer validates an Authorization header value against token.
func checkBearer(header, token string) error {
	if header == "" {
		return errMissingAuth
	}
	provided, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return errInvalidScheme
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
		return errInvalidToken
	}
	return nil
}

// incomingRequestID returns the caller's x-request-id metadata when valid,
// otherwise a fresh id.
func incomingRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(requestIDMetadataKey); len(vals) > 0 && idgen.ValidRequestID(vals[0]) {
			return vals[0]
		}
	}
	return idgen.RequestID()
}

// LoggingInterceptor tags each unary RPC with a request id, logs it and
// counts it in Prometheus. The id is echoed back in the response header.
func LoggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	id := incomingRequestID(ctx)
	ctx = context.WithValue(ctx, requestIDKey{}, id)
	// SetHeader fails outside a real transport stream (unit tests); ignore.
	_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, id))

	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	rpcRequestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()

	attrs := []any{"method", info.FullMethod, "request_id", id, "duration", time.Since(start)}
	switch code {
	case codes.OK:
		slog.Info("rpc", attrs...)
	case codes.Internal, codes.Unknown, codes.Unavailable:
		slog.Error("rpc", append(attrs, "code", code, "error", err)...)
	default:
		slog.Warn("rpc", append(attrs, "code", code, "error", err)...)
	}
	return resp, err
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered in gRPC handler",
				"method", info.FullMethod,
				"request_id", RequestIDFromContext(ctx),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// AuthInterceptor requires "authorization: Bearer <token>" metadata on every
// RPC except the health service. An empty token disables the check.
func AuthInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if token == "" || strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		var header string
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}
		if err := checkBearer(header, token); err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(ctx, req)
	}
}

// AuthMiddleware requires a bearer token on every request except
// GET /v1/health and GET /metrics. EventSource cannot set headers, so the
// event stream also accepts the token as ?access_token=. An empty token
// disables the check.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			switch r.URL.Path {
			case "/v1/health", "/metrics":
				next.ServeHTTP(w, r)
				return
			}
		}

		header := r.Header.Get("Authorization")
		if header == "" && r.URL.Path == eventStreamPath {
			if qt := r.URL.Query().Get("access_token"); qt != "" {
				header = "Bearer " + qt
			}
		}
		if err := checkBearer(header, token); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
