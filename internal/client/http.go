package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/graphview/internal/model"
)

const defaultHTTPTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is read into an APIError.
const maxErrorBody = 4 << 10

// HTTPClient implements GraphClient against the /api routes of a graphview
// server.
type HTTPClient struct {
	base    *url.URL
	baseErr error
	token   string
	hc      *http.Client
}

// NewHTTPClient targets baseURL, e.g. "http://localhost:8080". A non-empty
// token is sent as a bearer token.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	// A malformed URL is reported by the first request.
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	return &HTTPClient{base: base, baseErr: err, token: token, hc: &http.Client{Timeout: defaultHTTPTimeout}}
}

func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) Counts(ctx context.Context) (*model.GraphCounts, error) {
	return fetch[model.GraphCounts](ctx, c, http.MethodGet, "/api/init", nil)
}

func (c *HTTPClient) SearchNodes(ctx context.Context, term string, limit int) ([]string, error) {
	q := url.Values{"term": {term}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	ids, err := fetch[[]string](ctx, c, http.MethodGet, "/api/node_ids", q)
	if err != nil {
		return nil, err
	}
	if *ids == nil {
		return []string{}, nil
	}
	return *ids, nil
}

func (c *HTTPClient) GetNode(ctx context.Context, id string) (*model.Node, error) {
	return fetch[model.Node](ctx, c, http.MethodGet, "/api/nodes/"+url.PathEscape(id), nil)
}

func (c *HTTPClient) Subgraph(ctx context.Context, req *SubgraphRequest) (*model.SubgraphResponse, error) {
	q := url.Values{
		"startNodeId":   {req.StartNodeID},
		"forwardDepth":  {strconv.Itoa(req.ForwardDepth)},
		"backwardDepth": {strconv.Itoa(req.BackwardDepth)},
		"edgeLimit":     {strconv.Itoa(req.EdgeLimit)},
	}
	return fetch[model.SubgraphResponse](ctx, c, http.MethodGet, "/api/subgraph", q)
}

func (c *HTTPClient) Stats(ctx context.Context) (*model.GraphStats, error) {
	return fetch[model.GraphStats](ctx, c, http.MethodGet, "/api/stats", nil)
}

func (c *HTTPClient) Reload(ctx context.Context) (*model.GraphStats, error) {
	return fetch[model.GraphStats](ctx, c, http.MethodPost, "/api/reload", nil)
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	resp, err := fetch[struct {
		Status string `json:"status"`
	}](ctx, c, http.MethodGet, "/v1/health", nil)
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// newAPIError prefers the {"error": "..."} body the server writes and falls
// back to the raw text.
func newAPIError(code int, body []byte) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return &APIError{StatusCode: code, Message: payload.Error}
	}
	return &APIError{StatusCode: code, Message: strings.TrimSpace(string(body))}
}

// fetch sends a bodiless request to path?query and decodes the JSON reply
// into a T.
func fetch[T any](ctx context.Context, c *HTTPClient, method, path string, query url.Values) (*T, error) {
	if c.baseErr != nil {
		return nil, fmt.Errorf("server URL: %w", c.baseErr)
	}
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newAPIError(resp.StatusCode, body)
	}
	out := new(T)
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", path, err)
	}
	return out, nil
}
