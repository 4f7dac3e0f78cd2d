// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Pool settings for the server's read-mostly workload.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
)

// PostgresStore is a store.Store on a PostgreSQL database.
type PostgresStore struct {
	graphQueries
	db *sql.DB
}

var _ store.Store = (*PostgresStore)(nil)

// New connects to databaseURL and applies pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return wrap(db), nil
}

func wrap(db *sql.DB) *PostgresStore {
	return &PostgresStore{graphQueries: graphQueries{db}, db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// RunInTransaction runs fn against a store bound to one transaction. fn's
// error rolls the transaction back and is returned unwrapped.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&txStore{graphQueries{tx}}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore is bound to an open transaction. Nested transactions reuse it and
// Close leaves the connection to the parent store.
type txStore struct {
	graphQueries
}

var _ store.Store = (*txStore)(nil)

func (s *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *txStore) Close() error { return nil }

// graphQueries implements the data methods of store.Store on either a
// *sql.DB or a *sql.Tx.
type graphQueries struct {
	ex executor
}

func (q graphQueries) UpsertNode(ctx context.Context, n *model.Node) error {
	return queryUpsertNode(ctx, q.ex, n)
}

func (q graphQueries) GetNode(ctx context.Context, id string) (*model.Node, error) {
	return queryGetNode(ctx, q.ex, id)
}

func (q graphQueries) ListNodes(ctx context.Context) ([]*model.Node, error) {
	return queryListNodes(ctx, q.ex)
}

func (q graphQueries) SearchNodeIDs(ctx context.Context, term string, limit int) ([]string, error) {
	return querySearchNodeIDs(ctx, q.ex, term, limit)
}

func (q graphQueries) CountNodes(ctx context.Context) (int, error) {
	return queryCount(ctx, q.ex, "nodes")
}

func (q graphQueries) AddEdge(ctx context.Context, e *model.Edge) error {
	return queryAddEdge(ctx, q.ex, e)
}

func (q graphQueries) ListEdges(ctx context.Context) ([]*model.Edge, error) {
	return queryListEdges(ctx, q.ex)
}

func (q graphQueries) CountEdges(ctx context.Context) (int, error) {
	return queryCount(ctx, q.ex, "edges")
}

func (q graphQueries) Truncate(ctx context.Context) error {
	return queryTruncate(ctx, q.ex)
}
