package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/graphview/internal/subgraph"
)

// HTTPOptions configures the HTTP handler.
type HTTPOptions struct {
	AuthToken string  // bearer token; empty disables auth
	StaticDir string  // served at / when set
	RateLimit float64 // requests per second on /api/; <= 0 disables
	RateBurst int
}

// NewHTTPHandler returns an http.Handler with all routes and middleware.
// GET /v1/health and GET /metrics are exempt from auth.
func (s *GraphServer) NewHTTPHandler(opts HTTPOptions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/init", s.handleInit)
	mux.HandleFunc("GET /api/node_ids", s.handleNodeIDs)
	mux.HandleFunc("GET /api/nodes/{id}", s.handleGetNode)
	mux.HandleFunc("GET /api/subgraph", s.handleSubgraph)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/reload", s.handleReload)
	mux.HandleFunc("GET /api/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	if opts.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(opts.StaticDir)))
	}

	var h http.Handler = mux
	h = RateLimitMiddleware(opts.RateLimit, opts.RateBurst, h)
	h = AuthMiddleware(opts.AuthToken, h)
	h = LoggingMiddleware(h)
	h = RecoveryMiddleware(h)
	return h
}

// handleInit handles GET /api/init.
func (s *GraphServer) handleInit(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Counts())
}

// handleNodeIDs handles GET /api/node_ids?term=&limit=.
func (s *GraphServer) handleNodeIDs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, msgInvalidTypes)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.SearchNodes(q.Get("term"), limit))
}

// handleGetNode handles GET /api/nodes/{id}.
func (s *GraphServer) handleGetNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.Node(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, subgraph.ErrNodeNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// handleSubgraph handles GET /api/subgraph.
func (s *GraphServer) handleSubgraph(w http.ResponseWriter, r *http.Request) {
	params, err := ParseSubgraphQuery(r.URL.Query().Get)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.Subgraph(params)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res.Response())
	case IsInputError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, subgraph.ErrNodeNotFound):
		writeError(w, http.StatusNotFound, subgraph.ErrNodeNotFound.Error())
	default:
		slog.Error("subgraph extraction failed", "start", params.StartNodeID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to extract subgraph")
	}
}

// handleStats handles GET /api/stats.
func (s *GraphServer) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats())
}

// handleReload handles POST /api/reload.
func (s *GraphServer) handleReload(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Reload(r.Context(), "api")
	if err != nil {
		slog.Error("reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload graph")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleHealth handles GET /v1/health.
func (s *GraphServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
