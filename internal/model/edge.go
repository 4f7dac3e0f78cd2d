package model

// EdgeKind categorizes an edge. It is used only for presentation.
type EdgeKind string

const (
	EdgeOutput   EdgeKind = "output"
	EdgeInput    EdgeKind = "input"
	EdgeContains EdgeKind = "contains"
)

// IsValid reports whether the edge kind is a non-empty string of at most 50 characters.
func (k EdgeKind) IsValid() bool {
	return len(k) > 0 && len(k) <= 50
}

func (k EdgeKind) String() string { return string(k) }

// Edge is a directed, typed link between two nodes.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"type"`
}

// EdgeKey identifies an edge by (source, target, kind).
type EdgeKey struct {
	Source string
	Target string
	Kind   EdgeKind
}

// Key returns the identity of the edge.
func (e Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Kind: e.Kind}
}
