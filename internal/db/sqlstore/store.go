package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"Ballot/internal/core/votes"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQL-backed votes.Store
type Store struct {
	*voteRepo
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
	owned  bool
}

var _ votes.Store = (*Store)(nil)

// Open connects to the database described by cfg and verifies the connection.
// The returned Store owns the connection pool; call Close when done.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("database DSN is required")
	}

	dsn := cfg.DSN
	if cfg.Driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := New(db, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.owned = true
	return store, nil
}

// New wraps an existing connection pool. The caller keeps ownership of db.
func New(db *sql.DB, cfg Config, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("sql db is required")
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := dialectFor(cfg.Driver)
	return &Store{
		voteRepo: &voteRepo{q: db, d: d, table: cfg.Table, idStrategy: cfg.IDStrategy},
		db:       db,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// sqliteDSN adds the pragmas the store relies on to a SQLite path or URI.
// Write transactions start IMMEDIATE so the find-then-write sequence of a
// vote cannot interleave with another writer.
func sqliteDSN(dsn string) string {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dsn = filepath.Clean(dsn)
	}
	params := []string{}
	if !strings.Contains(dsn, "_txlock=") {
		params = append(params, "_txlock=immediate")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, "_pragma=busy_timeout(5000)")
	}
	if !strings.Contains(dsn, "journal_mode") && dsn != ":memory:" {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// DB exposes the underlying connection pool
func (s *Store) DB() *sql.DB {
	return s.db
}

// Table returns the vote table name
func (s *Store) Table() string {
	return s.cfg.Table
}

// Dialect returns "postgres" or "sqlite"
func (s *Store) Dialect() string {
	return s.d.name()
}

// Rebind rewrites ? placeholders in query into the store's dialect
func (s *Store) Rebind(query string) string {
	return s.d.rebind(query)
}

// Close releases the connection pool if the store opened it
func (s *Store) Close() error {
	if s == nil || s.db == nil || !s.owned {
		return nil
	}
	return s.db.Close()
}

// WithTx runs fn inside a database transaction
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx votes.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	repo := &voteRepo{q: tx, d: s.d, table: s.cfg.Table, idStrategy: s.cfg.IDStrategy}
	if err := fn(ctx, repo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		if s.d.isUniqueViolation(err) {
			return votes.ErrVoteAlreadyExists
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
