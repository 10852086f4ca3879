package database

import (
	"testing"

	"github.com/koustreak/schemadigest/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBuilder_Build(t *testing.T) {
	tests := []struct {
		name     string
		builder  *SelectBuilder
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "postgres sample query",
			builder:  Select("users", DialectPostgres).Columns("id", "status").Limit(200),
			wantSQL:  `SELECT "id", "status" FROM "users" LIMIT $1`,
			wantArgs: []any{200},
		},
		{
			name:     "mysql uses backticks and question marks",
			builder:  Select("users", DialectMySQL).Columns("id").Limit(5),
			wantSQL:  "SELECT `id` FROM `users` LIMIT ?",
			wantArgs: []any{5},
		},
		{
			name:     "sqlite with schema qualifier",
			builder:  Select("users", DialectSQLite).In("main").Limit(1),
			wantSQL:  `SELECT * FROM "main"."users" LIMIT ?`,
			wantArgs: []any{1},
		},
		{
			name:    "no limit",
			builder: Select("orders", DialectPostgres).In("sales"),
			wantSQL: `SELECT * FROM "sales"."orders"`,
		},
		{
			name:     "embedded quotes are doubled",
			builder:  Select(`we"ird`, DialectPostgres).Columns(`a"b`).Limit(1),
			wantSQL:  `SELECT "a""b" FROM "we""ird" LIMIT $1`,
			wantArgs: []any{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.builder.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSelectBuilder_Invalid(t *testing.T) {
	_, _, err := Select("", DialectPostgres).Build()
	assert.True(t, errs.IsInvalidInput(err))

	_, _, err = Select("users", DialectPostgres).Limit(-1).Build()
	assert.True(t, errs.IsInvalidInput(err))
}
