package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every upper-cased setting name.
const envPrefix = "GRAPHVIEW_"

type Config struct {
	DatabaseURL string // GRAPHVIEW_DATABASE_URL (default "sqlite://graphview.db")
	HTTPAddr    string // GRAPHVIEW_HTTP_ADDR (default ":8080")
	GRPCAddr    string // GRAPHVIEW_GRPC_ADDR (default ":9090"; "off" disables gRPC)
	NATSURL     string // GRAPHVIEW_NATS_URL (optional, empty = no events)
	AuthToken   string // GRAPHVIEW_AUTH_TOKEN (optional, empty = auth disabled)
	StaticDir   string // GRAPHVIEW_STATIC_DIR (optional front-end directory)
	LogLevel    slog.Level

	// Query bounds
	MaxDepth     int // GRAPHVIEW_MAX_DEPTH (default 10)
	MaxEdgeLimit int // GRAPHVIEW_MAX_EDGE_LIMIT (default 100)
	SearchLimit  int // GRAPHVIEW_SEARCH_LIMIT (default 30)

	// Request throttling on /api/
	RateLimit float64 // GRAPHVIEW_RATE_LIMIT requests/second (default 50; 0 = disabled)
	RateBurst int     // GRAPHVIEW_RATE_BURST (default 100)

	// Reload when the SQLite database file changes
	Watch         bool          // GRAPHVIEW_WATCH (default true)
	WatchDebounce time.Duration // GRAPHVIEW_WATCH_DEBOUNCE (default 500ms)

	// Sync settings
	SyncInterval   time.Duration // GRAPHVIEW_SYNC_INTERVAL (default 3m; 0 = disabled)
	SyncS3Bucket   string        // GRAPHVIEW_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // GRAPHVIEW_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // GRAPHVIEW_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // GRAPHVIEW_SYNC_S3_KEY (default "graphview/graph.jsonl")
	SyncGitRepo    string        // GRAPHVIEW_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // GRAPHVIEW_SYNC_GIT_FILE (default "graph.jsonl")
	SyncGitBranch  string        // GRAPHVIEW_SYNC_GIT_BRANCH (default "main")
}

// GRPCEnabled reports whether the gRPC listener should be started.
func (c *Config) GRPCEnabled() bool {
	return c.GRPCAddr != "" && c.GRPCAddr != "off"
}

// Load reads configuration from GRAPHVIEW_* environment variables. If
// GRAPHVIEW_CONFIG names a YAML file, its keys (the variable names without
// the prefix, lower-cased, e.g. "database_url") supply values for variables
// that are not set; the environment always wins.
func Load() (*Config, error) {
	file, err := readFile(os.Getenv(envPrefix + "CONFIG"))
	if err != nil {
		return nil, err
	}
	l := &loader{file: file}

	c := &Config{
		DatabaseURL:    l.str("database_url", "sqlite://graphview.db"),
		HTTPAddr:       l.str("http_addr", ":8080"),
		GRPCAddr:       l.str("grpc_addr", ":9090"),
		NATSURL:        l.str("nats_url", ""),
		AuthToken:      l.str("auth_token", ""),
		StaticDir:      l.str("static_dir", ""),
		MaxDepth:       l.integer("max_depth", 10),
		MaxEdgeLimit:   l.integer("max_edge_limit", 100),
		SearchLimit:    l.integer("search_limit", 30),
		RateLimit:      l.number("rate_limit", 50),
		RateBurst:      l.integer("rate_burst", 100),
		Watch:          l.flag("watch", true),
		WatchDebounce:  l.duration("watch_debounce", 500*time.Millisecond),
		SyncInterval:   l.duration("sync_interval", 3*time.Minute),
		SyncS3Bucket:   l.str("sync_s3_bucket", ""),
		SyncS3Endpoint: l.str("sync_s3_endpoint", ""),
		SyncS3Region:   l.str("sync_s3_region", "us-east-1"),
		SyncS3Key:      l.str("sync_s3_key", "graphview/graph.jsonl"),
		SyncGitRepo:    l.str("sync_git_repo", ""),
		SyncGitFile:    l.str("sync_git_file", "graph.jsonl"),
		SyncGitBranch:  l.str("sync_git_branch", "main"),
	}
	if lvl := l.str("log_level", "info"); lvl != "" {
		if err := c.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			l.fail("log_level", err)
		}
	}
	if l.err != nil {
		return nil, l.err
	}

	if c.MaxDepth < 0 {
		return nil, fmt.Errorf("%sMAX_DEPTH must not be negative", envPrefix)
	}
	if c.MaxEdgeLimit < 1 {
		return nil, fmt.Errorf("%sMAX_EDGE_LIMIT must be at least 1", envPrefix)
	}
	if c.SearchLimit < 1 {
		return nil, fmt.Errorf("%sSEARCH_LIMIT must be at least 1", envPrefix)
	}
	return c, nil
}

func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return m, nil
}

// loader resolves settings from the environment, then the file, then the
// default, remembering the first parse error.
type loader struct {
	file map[string]string
	err  error
}

func (l *loader) str(key, fallback string) string {
	if v := l.file[key]; v != "" {
		fallback = v
	}
	return envOrDefault(envPrefix+strings.ToUpper(key), fallback)
}

func (l *loader) fail(key string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("%s%s: %w", envPrefix, strings.ToUpper(key), err)
	}
}

func (l *loader) integer(key string, fallback int) int {
	s := l.str(key, "")
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.fail(key, err)
		return fallback
	}
	return n
}

func (l *loader) number(key string, fallback float64) float64 {
	s := l.str(key, "")
	if s == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		l.fail(key, err)
		return fallback
	}
	return f
}

func (l *loader) flag(key string, fallback bool) bool {
	s := l.str(key, "")
	if s == "" {
		return fallback
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		l.fail(key, err)
		return fallback
	}
	return b
}

func (l *loader) duration(key string, fallback time.Duration) time.Duration {
	s := l.str(key, "")
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		l.fail(key, err)
		return fallback
	}
	return d
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
