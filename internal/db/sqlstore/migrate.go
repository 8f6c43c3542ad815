package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// migrations renders the schema history of the vote table for this store's
// dialect, table name and id strategy
func (s *Store) migrations() []*goose.Migration {
	create := s.d.createTable(s.cfg.Table, s.cfg.IDStrategy)
	drop := s.d.dropTable(s.cfg.Table)

	return []*goose.Migration{
		goose.NewGoMigration(1,
			&goose.GoFunc{RunTx: execAll(create)},
			&goose.GoFunc{RunTx: execAll(drop)},
		),
	}
}

func execAll(statements []string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

func (s *Store) provider() (*goose.Provider, error) {
	// Version bookkeeping is kept per vote table so several configured
	// tables can share one database
	versions, err := database.NewStore(s.d.gooseDialect(), s.cfg.Table+"_goose_version")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration store: %w", err)
	}

	provider, err := goose.NewProvider("", s.db, nil,
		goose.WithStore(versions),
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(s.migrations()...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// Migrate brings the vote table up to date
func (s *Store) Migrate(ctx context.Context) error {
	provider, err := s.provider()
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, result := range results {
		s.logger.Info("migration applied",
			"table", s.cfg.Table,
			"version", result.Source.Version,
			"duration", result.Duration)
	}
	return nil
}

// Rollback drops the vote table by migrating down to version zero
func (s *Store) Rollback(ctx context.Context) error {
	provider, err := s.provider()
	if err != nil {
		return err
	}

	if _, err := provider.DownTo(ctx, 0); err != nil {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}
