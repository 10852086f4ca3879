// Package sqlite implements database.DB on top of modernc.org/sqlite, a pure
// Go SQLite engine. The catalog is read from sqlite_master and the
// table-valued PRAGMA functions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/koustreak/schemadigest/internal/database"
	"github.com/koustreak/schemadigest/internal/errs"
	msqlite "modernc.org/sqlite"
)

const defaultSchema = "main"

// Driver is a SQLite implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *sql.DB
}

// New opens the SQLite database named by cfg.DSN (a file path or a
// "file:" URI) and pings it.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	if cfg.DSN == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "sqlite: DSN is required")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
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

func (d *Driver) Dialect() database.Dialect { return database.DialectSQLite }

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
	return &sqlRows{rows: rows}, nil
}

func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) (database.Row, error) {
	return &sqlRow{row: d.db.QueryRowContext(ctx, query, args...)}, nil
}

// --- database.Inspector implementation ---

// ListTables returns every table in sqlite_master, including the engine's
// own sqlite_ tables. Callers filter those with Dialect.IsInternalTable.
func (d *Driver) ListTables(ctx context.Context, schema string) ([]string, error) {
	return d.listByType(ctx, schema, "table", "failed to list tables")
}

func (d *Driver) ListViews(ctx context.Context, schema string) ([]string, error) {
	return d.listByType(ctx, schema, "view", "failed to list views")
}

func (d *Driver) listByType(ctx context.Context, schema, kind, errMsg string) ([]string, error) {
	q := fmt.Sprintf(
		`SELECT name FROM %s.sqlite_master WHERE type = ? ORDER BY name`,
		database.DialectSQLite.Quote(schemaOrDefault(schema)),
	)

	rows, err := d.db.QueryContext(ctx, q, kind)
	if err != nil {
		return nil, mapError(err, errMsg)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, errMsg)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, errMsg)
	}
	return names, nil
}

func (d *Driver) InspectTable(ctx context.Context, schema, table string) (*database.TableInfo, error) {
	s := schemaOrDefault(schema)

	columns, pks, err := d.fetchColumns(ctx, s, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found or has no columns", table)
	}

	uniques, indexes, err := d.fetchIndexes(ctx, s, table)
	if err != nil {
		return nil, err
	}

	fks, err := d.fetchForeignKeys(ctx, s, table)
	if err != nil {
		return nil, err
	}

	for _, u := range uniques {
		if len(u.Columns) != 1 {
			continue
		}
		for _, col := range columns {
			if col.Name == u.Columns[0] {
				col.IsUnique = true
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

func (d *Driver) fetchColumns(ctx context.Context, schema, table string) ([]*database.ColumnInfo, []string, error) {
	rows, err := d.pragma(ctx, "table_info", table, schema)
	if err != nil {
		return nil, nil, mapError(err, "failed to fetch columns")
	}

	type pkCol struct {
		name string
		pos  int64
	}
	var cols []*database.ColumnInfo
	var pkCols []pkCol
	for _, r := range rows {
		c := &database.ColumnInfo{
			Name:     asString(r["name"]),
			DataType: asString(r["type"]),
			Nullable: asInt(r["notnull"]) == 0,
		}
		if r["dflt_value"] != nil {
			def := asString(r["dflt_value"])
			c.Default = &def
		}
		if pos := asInt(r["pk"]); pos > 0 {
			c.IsPrimary = true
			pkCols = append(pkCols, pkCol{name: c.Name, pos: pos})
		}
		cols = append(cols, c)
	}

	sort.Slice(pkCols, func(i, j int) bool { return pkCols[i].pos < pkCols[j].pos })
	var pks []string
	for _, p := range pkCols {
		pks = append(pks, p.name)
	}
	return cols, pks, nil
}

// fetchIndexes splits index_list into UNIQUE constraints (origin "u") and
// secondary indexes. Primary key indexes and the automatic indexes SQLite
// creates to back UNIQUE constraints are not listed as indexes.
func (d *Driver) fetchIndexes(ctx context.Context, schema, table string) ([]database.UniqueConstraint, []database.IndexInfo, error) {
	list, err := d.pragma(ctx, "index_list", table, schema)
	if err != nil {
		return nil, nil, mapError(err, "failed to fetch indexes")
	}
	sort.Slice(list, func(i, j int) bool { return asString(list[i]["name"]) < asString(list[j]["name"]) })

	var uniques []database.UniqueConstraint
	var indexes []database.IndexInfo
	for _, r := range list {
		name := asString(r["name"])
		origin := asString(r["origin"])
		if origin == "pk" {
			continue
		}

		info, err := d.pragma(ctx, "index_info", name, schema)
		if err != nil {
			return nil, nil, mapError(err, "failed to fetch index columns")
		}
		sort.Slice(info, func(i, j int) bool { return asInt(info[i]["seqno"]) < asInt(info[j]["seqno"]) })
		cols := make([]string, 0, len(info))
		for _, c := range info {
			cols = append(cols, asString(c["name"]))
		}

		if origin == "u" {
			uniques = append(uniques, database.UniqueConstraint{Columns: cols})
		}
		if strings.HasPrefix(name, "sqlite_autoindex_") {
			continue
		}
		indexes = append(indexes, database.IndexInfo{
			Name:    name,
			Unique:  asInt(r["unique"]) == 1,
			Columns: cols,
		})
	}

	return uniques, indexes, nil
}

func (d *Driver) fetchForeignKeys(ctx context.Context, schema, table string) ([]*database.ForeignKey, error) {
	list, err := d.pragma(ctx, "foreign_key_list", table, schema)
	if err != nil {
		return nil, mapError(err, "failed to fetch foreign keys")
	}

	sort.SliceStable(list, func(i, j int) bool {
		if a, b := asInt(list[i]["id"]), asInt(list[j]["id"]); a != b {
			return a < b
		}
		return asInt(list[i]["seq"]) < asInt(list[j]["seq"])
	})

	fks := make([]*database.ForeignKey, 0, len(list))
	for _, r := range list {
		fks = append(fks, &database.ForeignKey{
			Column:    asString(r["from"]),
			RefTable:  asString(r["table"]),
			RefColumn: asString(r["to"]),
			Seq:       int(asInt(r["seq"])),
		})
	}
	return fks, nil
}

// pragma runs a table-valued PRAGMA function with bound arguments and
// returns its rows keyed by column name.
func (d *Driver) pragma(ctx context.Context, name, arg, schema string) ([]map[string]any, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT * FROM pragma_"+name+"(?, ?)", arg, schema)
	if err != nil {
		return nil, err
	}
	return database.ScanRows(&sqlRows{rows: rows})
}

func schemaOrDefault(schema string) string {
	if schema == "" {
		return defaultSchema
	}
	return schema
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asInt(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case bool:
		if x {
			return 1
		}
	}
	return 0
}

// --- sql.DB type wrappers ---

type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool                 { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error     { return r.rows.Scan(dest...) }
func (r *sqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *sqlRows) Close()                     { _ = r.rows.Close() }
func (r *sqlRows) Err() error                 { return r.rows.Err() }

type sqlRow struct {
	row *sql.Row
}

func (r *sqlRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapError(err, "scan failed")
	}
	return nil
}

// --- error mapping ---

// Primary result codes, see https://www.sqlite.org/rescode.html.
const (
	codePerm     = 3
	codeBusy     = 5
	codeLocked   = 6
	codeReadOnly = 8
	codeCantOpen = 14
	codeAuth     = 23
	codeNotADB   = 26
)

// mapError translates modernc.org/sqlite errors into *errs.Error.
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

	var sqlErr *msqlite.Error
	if errors.As(err, &sqlErr) {
		full := fmt.Sprintf("%s: %s", msg, sqlErr.Error())
		switch sqlErr.Code() & 0xff {
		case codePerm, codeAuth, codeReadOnly:
			return errs.Wrap(errs.ErrKindPermissionDenied, full, err)
		case codeCantOpen, codeNotADB:
			return errs.Wrap(errs.ErrKindConnectionFailed, full, err)
		case codeBusy, codeLocked:
			return errs.Wrap(errs.ErrKindTimeout, full, err)
		}
		if strings.Contains(sqlErr.Error(), "no such table") {
			return errs.Wrap(errs.ErrKindNotFound, full, err)
		}
		return errs.Wrap(errs.ErrKindQueryFailed, full, err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}
