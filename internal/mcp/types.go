package mcp

import "github.com/alfredjeanlab/graphview/internal/model"

// Tool names.
const (
	ToolExploreSubgraph = "explore_subgraph"
	ToolSearchNodes     = "search_nodes"
	ToolGraphStats      = "graph_stats"
)

// Defaults applied when an explore_subgraph argument is omitted.
const (
	defaultDepth     = 2
	defaultEdgeLimit = 10
)

type ExploreSubgraphArgs struct {
	StartNodeID   string `json:"start_node_id" jsonschema:"Id of the node to explore around"`
	ForwardDepth  *int   `json:"forward_depth,omitempty" jsonschema:"How many hops to follow outgoing links (default 2)"`
	BackwardDepth *int   `json:"backward_depth,omitempty" jsonschema:"How many hops to follow incoming links (default 2)"`
	EdgeLimit     *int   `json:"edge_limit,omitempty" jsonschema:"Maximum links followed from each node per direction (default 10)"`
}

type ExploreSubgraphResult struct {
	StartNodeID string       `json:"start_node_id"`
	Nodes       []model.Node `json:"nodes"`
	Links       []model.Edge `json:"links"`
}

type SearchNodesArgs struct {
	Term  string `json:"term" jsonschema:"Case-insensitive substring of the node id"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of ids to return (server default when 0)"`
}

type SearchNodesResult struct {
	IDs []string `json:"ids"`
}

type GraphStatsArgs struct{}

type GraphStatsResult struct {
	NodeCount    int            `json:"node_count"`
	LinkCount    int            `json:"link_count"`
	DroppedLinks int            `json:"dropped_links"`
	NodeKinds    map[string]int `json:"node_kinds"`
	LinkKinds    map[string]int `json:"link_kinds"`
}
