package sqlstore

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3/database"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

// dialect isolates the SQL differences between Postgres and SQLite
type dialect interface {
	name() string
	gooseDialect() database.Dialect
	// rebind rewrites ? placeholders into the dialect's form
	rebind(query string) string
	// lockSuffix is appended to a single-row SELECT to lock the row
	lockSuffix() string
	// timeValue converts a timestamp into the form stored in the table
	timeValue(t time.Time) any
	isUniqueViolation(err error) bool
	createTable(table, idStrategy string) []string
	dropTable(table string) []string
}

func dialectFor(driver string) dialect {
	if driver == DriverSQLite {
		return sqliteDialect{}
	}
	return postgresDialect{}
}

type postgresDialect struct{}

func (postgresDialect) name() string { return "postgres" }

func (postgresDialect) gooseDialect() database.Dialect { return database.DialectPostgres }

func (postgresDialect) rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgresDialect) lockSuffix() string { return " FOR UPDATE" }

func (postgresDialect) timeValue(t time.Time) any { return t }

func (postgresDialect) isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

func (postgresDialect) createTable(table, idStrategy string) []string {
	idColumn := "id BIGSERIAL PRIMARY KEY"
	if idStrategy == IDUUID {
		idColumn = "id UUID PRIMARY KEY"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			` + idColumn + `,
			voter_type TEXT NOT NULL,
			voter_id TEXT NOT NULL,
			subject_type TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			magnitude BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT ` + table + `_magnitude_nonzero CHECK (magnitude <> 0)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ` + table + `_voter_subject_unique
			ON ` + table + ` (voter_id, voter_type, subject_id, subject_type)`,
		`CREATE INDEX IF NOT EXISTS ` + table + `_subject_idx
			ON ` + table + ` (subject_type, subject_id)`,
	}
}

func (postgresDialect) dropTable(table string) []string {
	return []string{`DROP TABLE IF EXISTS ` + table}
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite" }

func (sqliteDialect) gooseDialect() database.Dialect { return database.DialectSQLite3 }

func (sqliteDialect) rebind(query string) string { return query }

// SQLite has no row locks; write transactions are opened IMMEDIATE instead
// (see sqliteDSN), which serializes them.
func (sqliteDialect) lockSuffix() string { return "" }

// Timestamps are stored as unix microseconds so they sort numerically
func (sqliteDialect) timeValue(t time.Time) any { return t.UTC().UnixMicro() }

func (sqliteDialect) isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func (sqliteDialect) createTable(table, idStrategy string) []string {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if idStrategy == IDUUID {
		idColumn = "id TEXT PRIMARY KEY"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			` + idColumn + `,
			voter_type TEXT NOT NULL,
			voter_id TEXT NOT NULL,
			subject_type TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			magnitude INTEGER NOT NULL CHECK (magnitude <> 0),
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ` + table + `_voter_subject_unique
			ON ` + table + ` (voter_id, voter_type, subject_id, subject_type)`,
		`CREATE INDEX IF NOT EXISTS ` + table + `_subject_idx
			ON ` + table + ` (subject_type, subject_id)`,
	}
}

func (sqliteDialect) dropTable(table string) []string {
	return []string{`DROP TABLE IF EXISTS ` + table}
}
