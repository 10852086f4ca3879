package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/schemadigest/internal/database"
	"github.com/koustreak/schemadigest/internal/errs"
)

// pool is the subset of *pgxpool.Pool the driver uses.
type pool interface {
	Ping(ctx context.Context) error
	Close()
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Driver is a PostgreSQL implementation of database.DB backed by pgxpool.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	pool pool
}

// New connects to PostgreSQL using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create connection pool", err)
	}

	d := &Driver{pool: p}

	if err := d.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}

	return d, nil
}

// --- database.DB implementation ---

// Dialect reports DialectPostgres.
func (d *Driver) Dialect() database.Dialect { return database.DialectPostgres }

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool.
func (d *Driver) Close() {
	d.pool.Close()
}

// Query executes a SQL statement that returns multiple rows.
func (d *Driver) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &pgxRows{rows: rows}, nil
}

// QueryRow executes a SQL statement expected to return at most one row.
func (d *Driver) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	return &pgxRow{row: d.pool.QueryRow(ctx, sql, args...)}, nil
}

// --- database.Inspector implementation ---

// An empty schema argument falls back to current_schema().
const schemaArg = `COALESCE(NULLIF($1, ''), current_schema())`

// ListTables returns all base tables in schema.
func (d *Driver) ListTables(ctx context.Context, schema string) ([]string, error) {
	q := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ` + schemaArg + `
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	return d.fetchStringList(ctx, q, "failed to list tables", schema)
}

// ListViews returns all views in schema.
func (d *Driver) ListViews(ctx context.Context, schema string) ([]string, error) {
	q := `
		SELECT table_name
		FROM information_schema.views
		WHERE table_schema = ` + schemaArg + `
		ORDER BY table_name`

	return d.fetchStringList(ctx, q, "failed to list views", schema)
}

// InspectTable fetches columns, primary key, unique constraints, foreign keys
// and secondary indexes of one table or view.
func (d *Driver) InspectTable(ctx context.Context, schema, table string) (*database.TableInfo, error) {
	columns, err := d.fetchColumns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found or has no columns", table)
	}

	pks, err := d.fetchPrimaryKey(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	uniques, err := d.fetchUniqueConstraints(ctx, schema, table)
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

	pkSet := toSet(pks)
	for _, col := range columns {
		col.IsPrimary = pkSet[col.Name]
	}
	for _, u := range uniques {
		if len(u.Columns) == 1 {
			for _, col := range columns {
				if col.Name == u.Columns[0] {
					col.IsUnique = true
				}
			}
		}
	}

	return &database.TableInfo{
		Schema:      schema,
		Name:        table,
		Columns:     columns,
		PrimaryKey:  pks,
		Unique:      uniques,
		ForeignKeys: fks,
		Indexes:     indexes,
	}, nil
}

func (d *Driver) fetchColumns(ctx context.Context, schema, table string) ([]*database.ColumnInfo, error) {
	q := `
		SELECT a.attname,
		       pg_catalog.format_type(a.atttypid, a.atttypmod),
		       NOT a.attnotnull,
		       pg_catalog.pg_get_expr(ad.adbin, ad.adrelid)
		FROM pg_catalog.pg_attribute a
		JOIN pg_catalog.pg_class c     ON c.oid = a.attrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_catalog.pg_attrdef ad
		       ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum
		WHERE n.nspname = ` + schemaArg + `
		  AND c.relname = $2
		  AND a.attnum  > 0
		  AND NOT a.attisdropped
		ORDER BY a.attnum`

	rows, err := d.pool.Query(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch columns")
	}
	defer rows.Close()

	var cols []*database.ColumnInfo
	for rows.Next() {
		var c database.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Default); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		cols = append(cols, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating columns")
	}
	return cols, nil
}

func (d *Driver) fetchPrimaryKey(ctx context.Context, schema, table string) ([]string, error) {
	q := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema    = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema    = ` + schemaArg + `
		  AND tc.table_name      = $2
		ORDER BY kcu.ordinal_position`

	return d.fetchStringList(ctx, q, "failed to fetch primary key", schema, table)
}

func (d *Driver) fetchUniqueConstraints(ctx context.Context, schema, table string) ([]database.UniqueConstraint, error) {
	q := `
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema    = kcu.table_schema
		WHERE tc.constraint_type = 'UNIQUE'
		  AND tc.table_schema    = ` + schemaArg + `
		  AND tc.table_name      = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position`

	rows, err := d.pool.Query(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch unique constraints")
	}
	defer rows.Close()

	var out []database.UniqueConstraint
	for rows.Next() {
		var name, col string
		if err := rows.Scan(&name, &col); err != nil {
			return nil, mapError(err, "failed to scan unique constraint")
		}
		if n := len(out); n > 0 && out[n-1].Name == name {
			out[n-1].Columns = append(out[n-1].Columns, col)
			continue
		}
		out = append(out, database.UniqueConstraint{Name: name, Columns: []string{col}})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating unique constraints")
	}
	return out, nil
}

func (d *Driver) fetchForeignKeys(ctx context.Context, schema, table string) ([]*database.ForeignKey, error) {
	q := `
		SELECT con.conname,
		       a.attname,
		       rc.relname,
		       ra.attname,
		       k.ord - 1
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class c     ON c.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_catalog.pg_class rc    ON rc.oid = con.confrelid
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refnum, ord)
		JOIN pg_catalog.pg_attribute a  ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		JOIN pg_catalog.pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refnum
		WHERE con.contype = 'f'
		  AND n.nspname   = ` + schemaArg + `
		  AND c.relname   = $2
		ORDER BY con.conname, k.ord`

	rows, err := d.pool.Query(ctx, q, schema, table)
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
		SELECT i.relname,
		       ix.indisunique,
		       array_agg(a.attname ORDER BY k.ord)::text[]
		FROM pg_catalog.pg_index ix
		JOIN pg_catalog.pg_class t     ON t.oid = ix.indrelid
		JOIN pg_catalog.pg_class i     ON i.oid = ix.indexrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
		CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_catalog.pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = ` + schemaArg + `
		  AND t.relname = $2
		  AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname`

	rows, err := d.pool.Query(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch indexes")
	}
	defer rows.Close()

	var out []database.IndexInfo
	for rows.Next() {
		var idx database.IndexInfo
		if err := rows.Scan(&idx.Name, &idx.Unique, &idx.Columns); err != nil {
			return nil, mapError(err, "failed to scan index")
		}
		out = append(out, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating indexes")
	}
	return out, nil
}

// fetchStringList is a helper for queries that return a single text column.
func (d *Driver) fetchStringList(ctx context.Context, q, errMsg string, args ...any) ([]string, error) {
	rows, err := d.pool.Query(ctx, q, args...)
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

// --- pgx type wrappers ---

// pgxRows wraps pgx.Rows to satisfy database.Rows.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgxRows) Close()                 { r.rows.Close() }
func (r *pgxRows) Err() error             { return r.rows.Err() }

func (r *pgxRows) Columns() ([]string, error) {
	descs := r.rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	return cols, nil
}

// pgxRow wraps pgx.Row to satisfy database.Row.
type pgxRow struct {
	row pgx.Row
}

func (r *pgxRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapError(err, "scan failed")
	}
	return nil
}

// --- error mapping ---

// PostgreSQL SQLSTATE codes with a dedicated mapping.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrInsufficientPrivilege = "42501"
	pgErrUndefinedTable        = "42P01"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindQueryFailed
		switch {
		case pgErr.Code == pgErrInsufficientPrivilege:
			kind = errs.ErrKindPermissionDenied
		case pgErr.Code == pgErrUndefinedTable:
			kind = errs.ErrKindNotFound
		// Class 08 — connection exceptions, class 28 — invalid authorization
		case len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "28"):
			kind = errs.ErrKindConnectionFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// --- helpers ---

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
