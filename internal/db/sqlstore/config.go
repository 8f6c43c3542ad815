package sqlstore

import (
	"fmt"
	"regexp"
	"strings"
)

// Driver names accepted by Open
const (
	DriverPostgres = "postgres" // github.com/lib/pq
	DriverPgx      = "pgx"      // github.com/jackc/pgx/v5/stdlib
	DriverSQLite   = "sqlite"   // modernc.org/sqlite
)

// ID strategies for the vote table's primary key
const (
	IDSerial = "serial"
	IDUUID   = "uuid"
)

const DefaultTable = "votes"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config locates the vote table and fixes its shape
type Config struct {
	Driver string
	DSN    string
	// Table is the vote table name
	Table string
	// IDStrategy is IDSerial (database sequence) or IDUUID (time-ordered
	// UUIDv7 generated by the store)
	IDStrategy string
}

func (c *Config) normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	switch c.Driver {
	case DriverPostgres, DriverPgx, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}

	c.Table = strings.TrimSpace(c.Table)
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if !tableNamePattern.MatchString(c.Table) {
		return fmt.Errorf("invalid vote table name %q", c.Table)
	}

	c.IDStrategy = strings.ToLower(strings.TrimSpace(c.IDStrategy))
	if c.IDStrategy == "" {
		c.IDStrategy = IDSerial
	}
	if c.IDStrategy != IDSerial && c.IDStrategy != IDUUID {
		return fmt.Errorf("invalid id strategy %q: must be %q or %q", c.IDStrategy, IDSerial, IDUUID)
	}
	return nil
}
