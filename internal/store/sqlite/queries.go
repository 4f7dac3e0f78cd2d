package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/store"
)

const nodeColumns = `id, kind, label, description`

const edgeColumns = `source, target, kind`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func queryUpsertNode(ctx context.Context, db executor, n *model.Node) error {
	var label sql.NullString
	if n.Label != "" {
		label = sql.NullString{String: n.Label, Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO nodes (id, kind, label, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			label = excluded.label,
			description = excluded.description`,
		n.ID, string(n.Kind), label, n.Description,
	)
	return err
}

func queryGetNode(ctx context.Context, db executor, id string) (*model.Node, error) {
	return scanNode(db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id))
}

func queryListNodes(ctx context.Context, db executor) ([]*model.Node, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// querySearchNodeIDs relies on SQLite's LIKE being case-insensitive for ASCII.
// Ids starting with term come first; each group is ordered by lower(id), then id.
func querySearchNodeIDs(ctx context.Context, db executor, term string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = model.DefaultSearchLimit
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id FROM nodes WHERE id LIKE ? ESCAPE '\'
		 ORDER BY id LIKE ? ESCAPE '\' DESC, lower(id), id
		 LIMIT ?`,
		store.LikePattern(term), store.PrefixPattern(term), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search node ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan node id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate node ids: %w", err)
	}
	return ids, nil
}

func queryAddEdge(ctx context.Context, db executor, e *model.Edge) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO edges (source, target, kind) VALUES (?, ?, ?)`,
		e.Source, e.Target, string(e.Kind),
	)
	return err
}

func queryListEdges(ctx context.Context, db executor) ([]*model.Edge, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+edgeColumns+` FROM edges ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		var e model.Edge
		if err := rows.Scan(&e.Source, &e.Target, &e.Kind); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

func queryCount(ctx context.Context, db executor, table string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// queryTruncate deletes every row and resets the AUTOINCREMENT counters so
// a re-import starts storage order from 1.
func queryTruncate(ctx context.Context, db executor) error {
	for _, stmt := range []string{
		`DELETE FROM edges`,
		`DELETE FROM nodes`,
		`DELETE FROM sqlite_sequence WHERE name IN ('nodes', 'edges')`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate graph: %w", err)
		}
	}
	return nil
}

func scanNode(row scannable) (*model.Node, error) {
	var n model.Node
	var label sql.NullString
	if err := row.Scan(&n.ID, &n.Kind, &label, &n.Description); err != nil {
		return nil, err
	}
	n.Label = label.String
	return &n, nil
}
