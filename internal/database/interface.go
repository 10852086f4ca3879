package database

import "context"

// DB is the central contract for all database operations.
// Layers above this package talk only to this interface and never import
// the postgres, mysql or sqlite packages directly.
type DB interface {
	Inspector

	// Dialect reports the SQL flavour of the connection.
	Dialect() Dialect

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) (Row, error)
}

// Inspector reads the structure of a database. Each driver implements the
// catalog queries; Reflect orchestrates them.
//
// An empty schema means the connection's default schema (public for
// Postgres, DATABASE() for MySQL, main for SQLite).
type Inspector interface {
	// ListTables returns the names of all base tables in schema.
	ListTables(ctx context.Context, schema string) ([]string, error)

	// ListViews returns the names of all views in schema.
	ListViews(ctx context.Context, schema string) ([]string, error)

	// InspectTable returns columns, keys, constraints and indexes of one
	// table or view.
	InspectTable(ctx context.Context, schema, table string) (*TableInfo, error)
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}
