package database

import (
	"strings"

	"github.com/koustreak/schemadigest/internal/errs"
)

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Identifiers are always quoted for the target dialect and values are never
// interpolated into the SQL string.
//
// Usage:
//
//	sql, args, err := Select("users", DialectPostgres).
//	    In("public").
//	    Columns("id", "status").
//	    Limit(200).
//	    Build()
//	// SELECT "id", "status" FROM "public"."users" LIMIT $1   [200]
type SelectBuilder struct {
	table   string
	schema  string
	dialect Dialect
	columns []string
	limit   *int
}

// Select starts a new SelectBuilder for the given table and dialect.
func Select(table string, d Dialect) *SelectBuilder {
	return &SelectBuilder{table: table, dialect: d}
}

// In qualifies the table with a schema. An empty schema leaves it unqualified.
func (b *SelectBuilder) In(schema string) *SelectBuilder {
	b.schema = schema
	return b
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Build produces the final SQL string and argument slice.
func (b *SelectBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "select: table name is required")
	}
	if b.limit != nil && *b.limit < 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "select: limit must not be negative")
	}

	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = b.dialect.Quote(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	if b.schema != "" {
		sb.WriteString(b.dialect.Quote(b.schema))
		sb.WriteString(".")
	}
	sb.WriteString(b.dialect.Quote(b.table))

	var args []any
	if b.limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.dialect.Placeholder(1))
		args = append(args, *b.limit)
	}

	return sb.String(), args, nil
}
