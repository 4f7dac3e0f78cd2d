package model

// NodeKind categorizes a node. The set is small and closed in practice, but
// any non-empty value of at most 50 characters is accepted.
type NodeKind string

const (
	NodeRule NodeKind = "rule"
	NodeData NodeKind = "data"
)

// IsValid reports whether the node kind is a non-empty string of at most 50 characters.
func (k NodeKind) IsValid() bool {
	return len(k) > 0 && len(k) <= 50
}

func (k NodeKind) String() string { return string(k) }

// Node is an immutable vertex of the full graph.
type Node struct {
	ID          string   `json:"id"`
	Kind        NodeKind `json:"type"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description"`
}

// DisplayLabel returns the label, falling back to the id when no label is set.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}
