package postgres

import (
	"database/sql"

	"github.com/alfredjeanlab/graphview/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanNode scans a single row into a model.Node.
// The row must contain columns in the order defined by nodeColumns.
func scanNode(row scannable) (*model.Node, error) {
	var n model.Node
	var label sql.NullString

	if err := row.Scan(&n.ID, &n.Kind, &label, &n.Description); err != nil {
		return nil, err
	}
	n.Label = label.String
	return &n, nil
}

// scanEdge scans a single row into a model.Edge.
// The row must contain columns in the order defined by edgeColumns.
func scanEdge(row scannable) (*model.Edge, error) {
	var e model.Edge
	if err := row.Scan(&e.Source, &e.Target, &e.Kind); err != nil {
		return nil, err
	}
	return &e, nil
}

// nullString converts a string to sql.NullString; empty strings become NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
