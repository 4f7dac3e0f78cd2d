// Command gv serves a graph over HTTP, gRPC and MCP, and queries a running
// server from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/graphview/internal/client"
	"github.com/alfredjeanlab/graphview/internal/config"
	"github.com/alfredjeanlab/graphview/internal/server"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	serverAddr string
	httpURL    string
	transport   string
	token       string
	databaseURL string
	jsonOutput bool

	graphClient client.GraphClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("GRAPHVIEW_HTTP_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func defaultServer() string {
	if s := os.Getenv("GRAPHVIEW_SERVER"); s != "" {
		return s
	}
	if a := activeRemoteGRPCAddr(); a != "" {
		return a
	}
	return "localhost:9090"
}

func defaultToken() string {
	if s := os.Getenv("GRAPHVIEW_TOKEN"); s != "" {
		return s
	}
	return activeRemoteToken()
}

// newClient builds the client for the selected transport.
func newClient() (client.GraphClient, error) {
	switch transport {
	case "http":
		return client.NewHTTPClient(httpURL, token), nil
	case "grpc":
		c, err := client.NewGRPCClient(serverAddr, token)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
		return c, nil
	case "local":
		return newLocalClient()
	default:
		return nil, fmt.Errorf("unknown transport %q (must be http, grpc or local)", transport)
	}
}

// newLocalClient opens the configured database in process.
func newLocalClient() (client.GraphClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	slog.SetDefault(newLogger(cfg.LogLevel))
	st, _, err := openStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", backendName(cfg.DatabaseURL), err)
	}
	return client.NewLocalClient(st, server.Limits{
		MaxDepth:     cfg.MaxDepth,
		MaxEdgeLimit: cfg.MaxEdgeLimit,
		SearchLimit:  cfg.SearchLimit,
	}), nil
}

// noClient overrides the root PersistentPreRunE for commands that work
// locally instead of talking to a server.
func noClient(*cobra.Command, []string) error { return nil }

var rootCmd = &cobra.Command{
	Use:           "gv <command>",
	Short:         "Explore bounded neighborhoods of a directed graph",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		graphClient = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if graphClient != nil {
			graphClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "transport protocol (http, grpc or local)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "db", "", "database URL for local commands and --transport local (default GRAPHVIEW_DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", defaultToken(), "bearer token sent to the server")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "query", Title: "Queries:"},
		&cobra.Group{ID: "data", Title: "Data:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Queries
	rootCmd.AddCommand(subgraphCmd)
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(statsCmd)

	// Data
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reloadCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}
