package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alfredjeanlab/graphview/internal/client"
)

// Service answers tool calls by querying a graphview server.
type Service struct {
	client client.GraphClient
}

func NewService(c client.GraphClient) *Service {
	return &Service{client: c}
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func (s *Service) ExploreSubgraph(ctx context.Context, _ *mcp.CallToolRequest, args ExploreSubgraphArgs) (*mcp.CallToolResult, ExploreSubgraphResult, error) {
	if strings.TrimSpace(args.StartNodeID) == "" {
		return nil, ExploreSubgraphResult{}, fmt.Errorf("start_node_id is required")
	}
	req := &client.SubgraphRequest{
		StartNodeID:   args.StartNodeID,
		ForwardDepth:  intOr(args.ForwardDepth, defaultDepth),
		BackwardDepth: intOr(args.BackwardDepth, defaultDepth),
		EdgeLimit:     intOr(args.EdgeLimit, defaultEdgeLimit),
	}
	resp, err := s.client.Subgraph(ctx, req)
	if err != nil {
		return nil, ExploreSubgraphResult{}, fmt.Errorf("explore %q: %w", args.StartNodeID, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Neighborhood of %s (forward %d, backward %d, edge limit %d): %d nodes, %d links\n",
		req.StartNodeID, req.ForwardDepth, req.BackwardDepth, req.EdgeLimit, len(resp.Nodes), len(resp.Links))
	for _, e := range resp.Links {
		fmt.Fprintf(&sb, "- %s --(%s)--> %s\n", e.Source, e.Kind, e.Target)
	}
	if len(resp.Nodes) > 0 {
		sb.WriteString("\nNodes:\n")
		for _, n := range resp.Nodes {
			fmt.Fprintf(&sb, "- %s [%s] %s\n", n.ID, n.Kind, n.Description)
		}
	}

	return textResult(sb.String()), ExploreSubgraphResult{
		StartNodeID: req.StartNodeID,
		Nodes:       resp.Nodes,
		Links:       resp.Links,
	}, nil
}

func (s *Service) SearchNodes(ctx context.Context, _ *mcp.CallToolRequest, args SearchNodesArgs) (*mcp.CallToolResult, SearchNodesResult, error) {
	ids, err := s.client.SearchNodes(ctx, args.Term, args.Limit)
	if err != nil {
		return nil, SearchNodesResult{}, fmt.Errorf("search nodes: %w", err)
	}
	text := fmt.Sprintf("No node ids match %q", args.Term)
	if len(ids) > 0 {
		text = fmt.Sprintf("%d matching ids: %s", len(ids), strings.Join(ids, ", "))
	}
	return textResult(text), SearchNodesResult{IDs: ids}, nil
}

func (s *Service) GraphStats(ctx context.Context, _ *mcp.CallToolRequest, _ GraphStatsArgs) (*mcp.CallToolResult, GraphStatsResult, error) {
	stats, err := s.client.Stats(ctx)
	if err != nil {
		return nil, GraphStatsResult{}, fmt.Errorf("graph stats: %w", err)
	}
	res := GraphStatsResult{
		NodeCount:    stats.NodeCount,
		LinkCount:    stats.LinkCount,
		DroppedLinks: stats.DroppedLinks,
		NodeKinds:    make(map[string]int, len(stats.NodeKinds)),
		LinkKinds:    make(map[string]int, len(stats.LinkKinds)),
	}
	for k, n := range stats.NodeKinds {
		res.NodeKinds[string(k)] = n
	}
	for k, n := range stats.LinkKinds {
		res.LinkKinds[string(k)] = n
	}

	text := fmt.Sprintf("%d nodes (%s), %d links (%s)",
		res.NodeCount, formatCounts(res.NodeKinds), res.LinkCount, formatCounts(res.LinkKinds))
	return textResult(text), res, nil
}

func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", k, m[k])
	}
	return strings.Join(parts, ", ")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
