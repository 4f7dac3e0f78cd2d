// Package mcp exposes graph queries as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alfredjeanlab/graphview/internal/client"
)

// SchemaURIPrefix prefixes the per-tool argument schema resources.
const SchemaURIPrefix = "graphview://schemas/"

// NewMCPServer returns an MCP server whose tools query c.
func NewMCPServer(c client.GraphClient, version string) (*mcp.Server, error) {
	service := NewService(c)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "graphview",
		Version: version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolExploreSubgraph,
		Description: "Return the bounded neighborhood of a node: nodes reachable by following outgoing links up to forward_depth hops and incoming links up to backward_depth hops, with at most edge_limit links followed per node and direction.",
	}, service.ExploreSubgraph)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolSearchNodes,
		Description: "Find node ids containing a search term (case-insensitive).",
	}, service.SearchNodes)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolGraphStats,
		Description: "Summarize the loaded graph: node and link counts by kind.",
	}, service.GraphStats)

	schemas, err := buildSchemaMap()
	if err != nil {
		return nil, err
	}
	s.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: SchemaURIPrefix + "{tool_name}",
		Name:        "Tool Schema",
		Description: "JSON schema for the named tool's arguments",
		MIMEType:    "application/schema+json",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		schema, ok := schemas[strings.TrimPrefix(uri, SchemaURIPrefix)]
		if !ok {
			return nil, fmt.Errorf("unknown tool schema: %q", uri)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "application/schema+json", Text: schema}},
		}, nil
	})

	return s, nil
}

// buildSchemaMap maps each tool name to the JSON schema of its arguments.
func buildSchemaMap() (map[string]string, error) {
	m := make(map[string]string)
	if err := addSchema[ExploreSubgraphArgs](m, ToolExploreSubgraph); err != nil {
		return nil, err
	}
	if err := addSchema[SearchNodesArgs](m, ToolSearchNodes); err != nil {
		return nil, err
	}
	if err := addSchema[GraphStatsArgs](m, ToolGraphStats); err != nil {
		return nil, err
	}
	return m, nil
}

func addSchema[T any](m map[string]string, name string) error {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return fmt.Errorf("infer %s schema: %w", name, err)
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s schema: %w", name, err)
	}
	m[name] = string(data)
	return nil
}
