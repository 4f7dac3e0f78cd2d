package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/store"
)

// nodeColumns is the column list used for SELECT statements on the nodes table.
const nodeColumns = `id, kind, label, description`

// edgeColumns is the column list used for SELECT statements on the edges table.
const edgeColumns = `source, target, kind`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queryUpsertNode inserts a node or replaces the attributes of an existing
// one. The seq column is left untouched on conflict so the node keeps its
// position in storage order.
func queryUpsertNode(ctx context.Context, db executor, n *model.Node) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO nodes (id, kind, label, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			label = EXCLUDED.label,
			description = EXCLUDED.description`,
		n.ID,
		string(n.Kind),
		nullString(n.Label),
		n.Description,
	)
	return err
}

func queryGetNode(ctx context.Context, db executor, id string) (*model.Node, error) {
	row := db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = $1`, id)
	return scanNode(row)
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

// querySearchNodeIDs returns up to limit ids containing term, ignoring case.
// Ids starting with term come first; each group is ordered by lower(id), then
// id, bytewise.
func querySearchNodeIDs(ctx context.Context, db executor, term string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = model.DefaultSearchLimit
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id FROM nodes WHERE id ILIKE $1 ESCAPE '\'
		 ORDER BY id ILIKE $2 ESCAPE '\' DESC, lower(id) COLLATE "C", id COLLATE "C"
		 LIMIT $3`,
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
		`INSERT INTO edges (source, target, kind) VALUES ($1, $2, $3)`,
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
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

// queryCount returns the row count of a table. table is always a constant
// supplied by this package.
func queryCount(ctx context.Context, db executor, table string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func queryTruncate(ctx context.Context, db executor) error {
	if _, err := db.ExecContext(ctx, `TRUNCATE edges, nodes RESTART IDENTITY`); err != nil {
		return fmt.Errorf("truncate graph: %w", err)
	}
	return nil
}
