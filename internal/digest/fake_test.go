package digest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/koustreak/schemadigest/internal/database"
	"github.com/koustreak/schemadigest/internal/errs"
)

// fakeDB is an in-memory database.DB. Query resolves the target table by
// looking for its quoted name in the SQL text.
type fakeDB struct {
	dialect database.Dialect
	tables  []string
	views   []string
	infos   map[string]*database.TableInfo
	rows    map[string][][]any
	failing map[string]error

	mu        sync.Mutex
	inspected []string
	queries   []string
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		dialect: database.DialectPostgres,
		infos:   make(map[string]*database.TableInfo),
		rows:    make(map[string][][]any),
		failing: make(map[string]error),
	}
}

// addTable registers a table with text columns and the given rows.
func (f *fakeDB) addTable(name string, cols []string, rows ...[]any) {
	f.tables = append(f.tables, name)
	f.infos[name] = tableWith(name, cols...)
	f.rows[name] = rows
}

func (f *fakeDB) addView(name string, cols []string, rows ...[]any) {
	f.views = append(f.views, name)
	f.infos[name] = tableWith(name, cols...)
	f.rows[name] = rows
}

func tableWith(name string, cols ...string) *database.TableInfo {
	ti := &database.TableInfo{Name: name}
	for _, c := range cols {
		ti.Columns = append(ti.Columns, &database.ColumnInfo{Name: c, DataType: "text", Nullable: true})
	}
	return ti
}

func (f *fakeDB) Dialect() database.Dialect      { return f.dialect }
func (f *fakeDB) Ping(ctx context.Context) error { return nil }
func (f *fakeDB) Close()                         {}

func (f *fakeDB) ListTables(ctx context.Context, schema string) ([]string, error) {
	return f.tables, nil
}

func (f *fakeDB) ListViews(ctx context.Context, schema string) ([]string, error) {
	return f.views, nil
}

func (f *fakeDB) InspectTable(ctx context.Context, schema, table string) (*database.TableInfo, error) {
	f.mu.Lock()
	f.inspected = append(f.inspected, table)
	f.mu.Unlock()

	ti, ok := f.infos[table]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found", table)
	}
	cp := *ti
	cp.Schema = schema
	return &cp, nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	f.mu.Lock()
	f.queries = append(f.queries, sql)
	f.mu.Unlock()

	for name, ti := range f.infos {
		if !strings.Contains(sql, f.dialect.Quote(name)) {
			continue
		}
		if err := f.failing[name]; err != nil {
			return nil, err
		}
		return &fakeRows{cols: ti.ColumnNames(), data: f.rows[name]}, nil
	}
	return nil, errs.New(errs.ErrKindNotFound, "no such table")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	return nil, errors.New("not supported")
}

type fakeRows struct {
	cols []string
	data [][]any
	pos  int
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	for i, d := range dest {
		*(d.(*any)) = row[i]
	}
	return nil
}

func (r *fakeRows) Columns() ([]string, error) { return r.cols, nil }
func (r *fakeRows) Close()                     {}
func (r *fakeRows) Err() error                 { return nil }
