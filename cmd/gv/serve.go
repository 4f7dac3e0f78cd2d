package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/alfredjeanlab/graphview/internal/config"
	"github.com/alfredjeanlab/graphview/internal/events"
	"github.com/alfredjeanlab/graphview/internal/hooks"
	"github.com/alfredjeanlab/graphview/internal/loader"
	"github.com/alfredjeanlab/graphview/internal/server"
	gvsync "github.com/alfredjeanlab/graphview/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Start the graphview HTTP and gRPC servers",
	GroupID:           "system",
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if databaseURL != "" {
			cfg.DatabaseURL = databaseURL
		}
		logger := newLogger(cfg.LogLevel)
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

// serve runs every configured component until ctx is cancelled or one of
// them fails, then shuts the rest down.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, dbPath, err := openStore(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}
	}()

	publisher, err := openPublisher(cfg.NATSURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
	}()

	gs := server.NewGraphServer(st, publisher, server.Limits{
		MaxDepth:     cfg.MaxDepth,
		MaxEdgeLimit: cfg.MaxEdgeLimit,
		SearchLimit:  cfg.SearchLimit,
	})
	if _, err := gs.Reload(ctx, "startup"); err != nil {
		return err
	}

	var lis net.Listener
	if cfg.GRPCEnabled() {
		if lis, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: gs.NewHTTPHandler(server.HTTPOptions{
			AuthToken: cfg.AuthToken,
			StaticDir: cfg.StaticDir,
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})

	if lis != nil {
		grpcServer := server.NewGRPCServer(gs, cfg.AuthToken)
		g.Go(func() error {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			grpcServer.GracefulStop()
			logger.Info("gRPC server stopped")
			return nil
		})
	}

	if cfg.Watch && dbPath != "" {
		w := loader.NewWatcher(dbPath, cfg.WatchDebounce, func(ctx context.Context) {
			if _, err := gs.Reload(ctx, "watch"); err != nil {
				logger.Error("reload after file change failed", "err", err)
			}
		}, logger)
		g.Go(func() error { return w.Run(ctx) })
	}

	if cfg.NATSURL != "" {
		sub, err := events.NewNATSSubscriber(cfg.NATSURL)
		if err != nil {
			logger.Error("failed to create change subscriber", "err", err)
		} else {
			handler := hooks.NewHandler(gs, logger)
			g.Go(func() error {
				defer sub.Close()
				return handler.StartSubscriber(ctx, sub)
			})
		}
	}

	if cfg.SyncInterval > 0 {
		if dests := syncDestinations(ctx, cfg, logger); len(dests) > 0 {
			scheduler := gvsync.NewScheduler(st, dests, cfg.SyncInterval, logger)
			scheduler.Start(ctx)
			logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
			g.Go(func() error {
				<-ctx.Done()
				scheduler.Stop()
				logger.Info("sync scheduler stopped")
				return nil
			})
		}
	}

	logger.Info("graphview server started",
		"http_addr", cfg.HTTPAddr,
		"grpc_addr", cfg.GRPCAddr,
		"store", backendName(cfg.DatabaseURL),
	)

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}
