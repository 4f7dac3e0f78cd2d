package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/graphview/internal/config"
	"github.com/alfredjeanlab/graphview/internal/events"
	"github.com/alfredjeanlab/graphview/internal/store"
	"github.com/alfredjeanlab/graphview/internal/store/memory"
	"github.com/alfredjeanlab/graphview/internal/store/postgres"
	"github.com/alfredjeanlab/graphview/internal/store/sqlite"
	gvsync "github.com/alfredjeanlab/graphview/internal/sync"
)

// newLogger returns the text logger used by every local command.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStore opens the backend named by databaseURL. For SQLite the
// database file path is also returned so it can be watched.
func openStore(databaseURL string) (store.Store, string, error) {
	backend, dsn, err := store.ParseURL(databaseURL)
	if err != nil {
		return nil, "", err
	}
	switch backend {
	case store.BackendPostgres:
		s, err := postgres.New(dsn)
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	case store.BackendSQLite:
		s, err := sqlite.New(dsn)
		if err != nil {
			return nil, "", err
		}
		return s, s.FilePath(), nil
	case store.BackendMemory:
		return memory.New(), "", nil
	}
	return nil, "", fmt.Errorf("unsupported backend %q", backend)
}

// backendName names the storage backend without exposing credentials.
func backendName(databaseURL string) string {
	backend, _, err := store.ParseURL(databaseURL)
	if err != nil {
		return "unknown"
	}
	return string(backend)
}

// openPublisher connects to NATS when natsURL is set and falls back to a
// no-op publisher otherwise.
func openPublisher(natsURL string, logger *slog.Logger) (events.Publisher, error) {
	if natsURL == "" {
		logger.Info("events disabled (GRAPHVIEW_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(natsURL)
	if err != nil {
		return nil, err
	}
	logger.Info("events enabled", "nats_url", natsURL)
	return pub, nil
}

// announceChange tells subscribed servers that the stored graph changed.
// Publishing is best effort: the write has already been committed.
func announceChange(natsURL, source string, nodes, edges int, logger *slog.Logger) {
	if natsURL == "" {
		return
	}
	pub, err := events.NewNATSPublisher(natsURL)
	if err != nil {
		logger.Warn("change event not published", "err", err)
		return
	}
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	evt := events.GraphChanged{Source: source, Nodes: nodes, Edges: edges, ChangedAt: time.Now().UTC()}
	if err := pub.Publish(ctx, events.TopicGraphChanged, evt); err != nil {
		logger.Warn("change event not published", "err", err)
		return
	}
	if err := pub.Flush(ctx); err != nil {
		logger.Warn("change event not flushed", "err", err)
	}
}

// syncDestinations builds the configured export destinations. A destination
// that cannot be created is logged and skipped.
func syncDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []gvsync.Destination {
	var dests []gvsync.Destination
	if cfg.SyncS3Bucket != "" {
		s3Dest, err := gvsync.NewS3Destination(ctx, cfg.SyncS3Bucket, cfg.SyncS3Key, cfg.SyncS3Region, cfg.SyncS3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 sync destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
		}
	}
	if cfg.SyncGitRepo != "" {
		dests = append(dests, gvsync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch))
		logger.Info("sync git destination enabled", "repo", cfg.SyncGitRepo, "file", cfg.SyncGitFile)
	}
	return dests
}

// localFlags are shared by commands that open the database directly.
// The database URL comes from the root --db flag.
type localFlags struct {
	natsURL string
}

func (f *localFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.natsURL, "nats", "", "NATS URL to announce changes on (default GRAPHVIEW_NATS_URL or the active remote)")
}

// resolve loads the configuration and applies flag overrides.
func (f *localFlags) resolve() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	switch {
	case f.natsURL != "":
		cfg.NATSURL = f.natsURL
	case cfg.NATSURL == "":
		cfg.NATSURL = activeRemoteNATSURL()
	}
	return cfg, nil
}
