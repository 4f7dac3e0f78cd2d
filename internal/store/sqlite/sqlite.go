// Package sqlite implements the store.Store interface backed by an embedded
// SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dsnOptions are appended to every data source name.
const dsnOptions = "_journal_mode=WAL&_busy_timeout=5000"

// SQLiteStore implements store.Store backed by a SQLite database.
type SQLiteStore struct {
	graphQueries
	db   *sql.DB
	path string
}

// Compile-time check that SQLiteStore implements store.Store.
var _ store.Store = (*SQLiteStore)(nil)

// New opens (or creates) the SQLite database at dsn and runs any pending
// migrations. dsn is a file path or a "file:" URI.
func New(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", withOptions(dsn))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single writer connection avoids SQLITE_BUSY under concurrent
	// transactions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{graphQueries: graphQueries{db}, db: db, path: Path(dsn)}, nil
}

// Path returns the filesystem path of a data source name, without any
// "file:" prefix or query options.
func Path(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

func withOptions(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + dsnOptions
	}
	return dsn + "?" + dsnOptions
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// FilePath returns the database file path, for watching it for changes.
func (s *SQLiteStore) FilePath() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RunInTransaction runs fn against a store bound to one transaction. fn's
// error rolls the transaction back and is returned unwrapped.
func (s *SQLiteStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
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
