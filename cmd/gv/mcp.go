package main

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	gvmcp "github.com/alfredjeanlab/graphview/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve graph queries as MCP tools over stdio",
	Long: `Serve graph queries as Model Context Protocol tools over stdio.

Tool calls are forwarded to the server selected by --transport, --http-url
and --server.`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := gvmcp.NewMCPServer(graphClient, version)
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		return s.Run(cmd.Context(), &mcp.StdioTransport{})
	},
}
