package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/schemadigest/internal/database"
	"github.com/koustreak/schemadigest/internal/errs"
)

// Driver is a MySQL implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *sql.DB
}

// New opens a MySQL connection pool using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// --- database.DB implementation ---

func (d *Driver) Dialect() database.Dialect { return database.DialectMySQL }

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &mysqlRows{rows: rows}, nil
}

func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) (database.Row, error) {
	return &mysqlRow{row: d.db.QueryRowContext(ctx, query, args...)}, nil
}

// --- database.Inspector implementation ---

// An empty schema argument falls back to the connection's DATABASE().
const schemaArg = `COALESCE(NULLIF(?, ''), DATABASE())`

func (d *Driver) ListTables(ctx context.Context, schema string) ([]string, error) {
	q := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ` + schemaArg + `
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	return d.fetchStringList(ctx, q, "failed to list tables", schema)
}

func (d *Driver) ListViews(ctx context.Context, schema string) ([]string, error) {
	q := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ` + schemaArg + `
		  AND table_type   = 'VIEW'
		ORDER BY table_name`

	return d.fetchStringList(ctx, q, "failed to list views", schema)
}

func (d *Driver) InspectTable(ctx context.Context, schema, table string) (*database.TableInfo, error) {
	columns, err := d.fetchColumns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found or has no columns", table)
	}

	pks, err := d.fetchStringList(ctx, `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema    = `+schemaArg+`
		  AND table_name      = ?
		  AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`, "failed to fetch primary key", schema, table)
	if err != nil {
		return nil, err
	}

	fks, err := d.fetchForeignKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	indexes, err := d.fetchIndexes(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	// Unique keys are plain indexes in MySQL; they surface through Indexes
	// and the per-column IsUnique flag rather than as constraints.
	return &database.TableInfo{
		Schema:      schema,
		Name:        table,
		Columns:     columns,
		PrimaryKey:  pks,
		ForeignKeys: fks,
		Indexes:     indexes,
	}, nil
}

func (d *Driver) fetchColumns(ctx context.Context, schema, table string) ([]*database.ColumnInfo, error) {
	q := `
		SELECT column_name,
		       column_type,
		       is_nullable = 'YES',
		       column_default,
		       column_key
		FROM information_schema.columns
		WHERE table_schema = ` + schemaArg + `
		  AND table_name   = ?
		ORDER BY ordinal_position`

	rows, err := d.db.QueryContext(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch columns")
	}
	defer rows.Close()

	var cols []*database.ColumnInfo
	for rows.Next() {
		var c database.ColumnInfo
		var columnKey string
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Default, &columnKey); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		c.IsPrimary = columnKey == "PRI"
		c.IsUnique = columnKey == "UNI"
		cols = append(cols, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating columns")
	}
	return cols, nil
}

func (d *Driver) fetchForeignKeys(ctx context.Context, schema, table string) ([]*database.ForeignKey, error) {
	q := `
		SELECT constraint_name,
		       column_name,
		       referenced_table_name,
		       referenced_column_name,
		       ordinal_position - 1
		FROM information_schema.key_column_usage
		WHERE table_schema           = ` + schemaArg + `
		  AND table_name             = ?
		  AND referenced_table_name IS NOT NULL
		ORDER BY constraint_name, ordinal_position`

	rows, err := d.db.QueryContext(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch foreign keys")
	}
	defer rows.Close()

	var fks []*database.ForeignKey
	for rows.Next() {
		fk := &database.ForeignKey{}
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.RefTable, &fk.RefColumn, &fk.Seq); err != nil {
			return nil, mapError(err, "failed to scan foreign key")
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating foreign keys")
	}
	return fks, nil
}

func (d *Driver) fetchIndexes(ctx context.Context, schema, table string) ([]database.IndexInfo, error) {
	q := `
		SELECT index_name,
		       non_unique = 0,
		       column_name
		FROM information_schema.statistics
		WHERE table_schema = ` + schemaArg + `
		  AND table_name   = ?
		  AND index_name  <> 'PRIMARY'
		ORDER BY index_name, seq_in_index`

	rows, err := d.db.QueryContext(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch indexes")
	}
	defer rows.Close()

	var out []database.IndexInfo
	for rows.Next() {
		var name, col string
		var unique bool
		if err := rows.Scan(&name, &unique, &col); err != nil {
			return nil, mapError(err, "failed to scan index")
		}
		if n := len(out); n > 0 && out[n-1].Name == name {
			out[n-1].Columns = append(out[n-1].Columns, col)
			continue
		}
		out = append(out, database.IndexInfo{Name: name, Unique: unique, Columns: []string{col}})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating indexes")
	}
	return out, nil
}

func (d *Driver) fetchStringList(ctx context.Context, q, errMsg string, args ...any) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, errMsg)
	}
	defer rows.Close()

	var list []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, mapError(err, errMsg)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, errMsg)
	}
	return list, nil
}

// --- sql.DB type wrappers ---

type mysqlRows struct {
	rows *sql.Rows
}

func (r *mysqlRows) Next() bool                 { return r.rows.Next() }
func (r *mysqlRows) Scan(dest ...any) error     { return r.rows.Scan(dest...) }
func (r *mysqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *mysqlRows) Close()                     { _ = r.rows.Close() }
func (r *mysqlRows) Err() error                 { return r.rows.Err() }

type mysqlRow struct {
	row *sql.Row
}

func (r *mysqlRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapError(err, "scan failed")
	}
	return nil
}

// --- error mapping ---

// mapError translates go-sql-driver/mysql errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case 1044, 1045, 1046, 1049, 1040, 1203:
		return errs.ErrKindConnectionFailed
	case 1142, 1143:
		return errs.ErrKindPermissionDenied
	case 1146:
		return errs.ErrKindNotFound
	default:
		return errs.ErrKindQueryFailed
	}
}
