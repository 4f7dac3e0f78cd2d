package model

import "time"

// DefaultSearchLimit is the number of ids a node search returns when no
// limit is given.
const DefaultSearchLimit = 30

// GraphCounts is the response for the graph init endpoint.
type GraphCounts struct {
	NodeCount int `json:"nodeCount"`
	LinkCount int `json:"linkCount"`
}

// GraphStats holds aggregate counts for a loaded graph snapshot.
type GraphStats struct {
	NodeCount    int              `json:"nodeCount"`
	LinkCount    int              `json:"linkCount"`
	DroppedLinks int              `json:"droppedLinks"`
	NodeKinds    map[NodeKind]int `json:"nodeKinds"`
	LinkKinds    map[EdgeKind]int `json:"linkKinds"`
	LoadedAt     time.Time        `json:"loadedAt"`
}

// SubgraphResponse is the wire form of an extracted neighborhood.
type SubgraphResponse struct {
	Nodes []Node `json:"nodes"`
	Links []Edge `json:"links"`
}
