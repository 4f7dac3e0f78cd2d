package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/graphview/internal/model"
)

func node(id string, kind model.NodeKind) model.Node {
	return model.Node{ID: id, Kind: kind, Description: "node " + id}
}

func edge(src, dst string, kind model.EdgeKind) model.Edge {
	return model.Edge{Source: src, Target: dst, Kind: kind}
}

func TestNew_AdjacencyPreservesStorageOrder(t *testing.T) {
	g := New(
		[]model.Node{node("A", model.NodeRule), node("B", model.NodeData), node("C", model.NodeData)},
		[]model.Edge{
			edge("A", "C", model.EdgeOutput),
			edge("A", "B", model.EdgeInput),
			edge("B", "C", model.EdgeContains),
			edge("A", "B", model.EdgeOutput),
		},
	)

	require.Equal(t, 3, g.NodeCount())
	require.Equal(t, 4, g.EdgeCount())
	assert.Equal(t, []model.Edge{
		edge("A", "C", model.EdgeOutput),
		edge("A", "B", model.EdgeInput),
		edge("A", "B", model.EdgeOutput),
	}, g.Outgoing("A"))
	assert.Equal(t, []model.Edge{
		edge("A", "B", model.EdgeInput),
		edge("A", "B", model.EdgeOutput),
	}, g.Incoming("B"))
	assert.Empty(t, g.Outgoing("C"))
	assert.Empty(t, g.Incoming("A"))
	assert.Nil(t, g.Outgoing("missing"))
}

func TestNew_DuplicateNodeReplacesAttributesKeepsPosition(t *testing.T) {
	g := New(
		[]model.Node{
			node("A", model.NodeRule),
			node("B", model.NodeData),
			{ID: "A", Kind: model.NodeData, Description: "replaced"},
		},
		nil,
	)

	require.Equal(t, 2, g.NodeCount())
	assert.Equal(t, "A", g.Nodes()[0].ID)
	n, ok := g.Node("A")
	require.True(t, ok)
	assert.Equal(t, model.NodeData, n.Kind)
	assert.Equal(t, "replaced", n.Description)
}

func TestNew_DropsDanglingEdges(t *testing.T) {
	g := New(
		[]model.Node{node("A", model.NodeRule)},
		[]model.Edge{
			edge("A", "ghost", model.EdgeOutput),
			edge("ghost", "A", model.EdgeOutput),
			edge("A", "A", model.EdgeOutput),
		},
	)

	assert.Equal(t, 2, g.Dropped())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []model.Edge{edge("A", "A", model.EdgeOutput)}, g.Outgoing("A"))
	assert.Equal(t, []model.Edge{edge("A", "A", model.EdgeOutput)}, g.Incoming("A"))
}

func TestNode_Lookup(t *testing.T) {
	g := New([]model.Node{node("A", model.NodeRule)}, nil)

	n, ok := g.Node("A")
	require.True(t, ok)
	assert.Equal(t, "node A", n.Description)
	assert.True(t, g.Has("A"))

	_, ok = g.Node("zzz")
	assert.False(t, ok)
	assert.False(t, g.Has("zzz"))
}

func TestSearchIDs(t *testing.T) {
	g := New([]model.Node{
		node("node_12", model.NodeRule),
		node("Node_2", model.NodeData),
		node("node_1", model.NodeRule),
		node("other_node_1", model.NodeData),
		node("x1", model.NodeData),
	}, nil)

	for _, tc := range []struct {
		name  string
		term  string
		limit int
		want  []string
	}{
		{"EmptyTermListsAll", "", 0, []string{"node_1", "node_12", "Node_2", "other_node_1", "x1"}},
		{"PrefixBeforeSubstring", "node_1", 0, []string{"node_1", "node_12", "other_node_1"}},
		{"CaseInsensitive", "NODE_2", 0, []string{"Node_2"}},
		{"SubstringOnly", "1", 0, []string{"node_1", "node_12", "other_node_1", "x1"}},
		{"Limit", "node", 2, []string{"node_1", "node_12"}},
		{"NoMatch", "zzz", 0, []string{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, g.SearchIDs(tc.term, tc.limit))
		})
	}
}

func TestSearchIDs_DefaultLimit(t *testing.T) {
	var nodes []model.Node
	for i := 0; i < 50; i++ {
		nodes = append(nodes, node(string(rune('a'+i%26))+string(rune('a'+i/26)), model.NodeData))
	}
	g := New(nodes, nil)
	assert.Len(t, g.SearchIDs("", 0), DefaultSearchLimit)
}

func TestStats(t *testing.T) {
	g := New(
		[]model.Node{node("A", model.NodeRule), node("B", model.NodeData), node("C", model.NodeData)},
		[]model.Edge{
			edge("A", "B", model.EdgeOutput),
			edge("B", "C", model.EdgeOutput),
			edge("C", "A", model.EdgeInput),
			edge("C", "nope", model.EdgeInput),
		},
	)

	stats := g.Stats()
	assert.Equal(t, 3, stats.NodeCount)
	assert.Equal(t, 3, stats.LinkCount)
	assert.Equal(t, 1, stats.DroppedLinks)
	assert.Equal(t, map[model.NodeKind]int{model.NodeRule: 1, model.NodeData: 2}, stats.NodeKinds)
	assert.Equal(t, map[model.EdgeKind]int{model.EdgeOutput: 2, model.EdgeInput: 1}, stats.LinkKinds)
	assert.False(t, stats.LoadedAt.IsZero())
}
