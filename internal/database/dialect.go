package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/schemadigest/internal/errs"
)

// Dialect identifies the SQL flavour spoken by a DB.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect maps a user-supplied name onto a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported dialect %q", name)
	}
}

func (d Dialect) String() string { return string(d) }

// Quote wraps an identifier in the dialect's quote characters, doubling any
// embedded quote character.
func (d Dialect) Quote(name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholder returns the positional parameter marker for argument idx (1-based).
// Postgres: $1, $2, …   MySQL and SQLite: ?
func (d Dialect) Placeholder(idx int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", idx)
	}
	return "?"
}

// IsInternalTable reports whether name is reserved for the engine's own
// bookkeeping and should never be described to a caller.
func (d Dialect) IsInternalTable(name string) bool {
	return d == DialectSQLite && strings.HasPrefix(name, "sqlite_")
}
