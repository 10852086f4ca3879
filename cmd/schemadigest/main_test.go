package main

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/koustreak/schemadigest/internal/config"
	"github.com/koustreak/schemadigest/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func shopDB(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvDSN, "")
	t.Setenv(config.EnvDialect, "")

	path := filepath.Join(t.TempDir(), "shop.db")
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer raw.Close()

	for _, stmt := range []string{
		`CREATE TABLE users (id INT, status VARCHAR)`,
		`INSERT INTO users VALUES (1, 'active'), (2, 'active'), (3, 'banned')`,
		`CREATE TABLE orders (id INT)`,
		`CREATE TABLE schema_migrations (version INT)`,
	} {
		_, err := raw.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTablesCmd(t *testing.T) {
	path := shopDB(t)

	out, err := run(t, "--dialect", "sqlite", "--dsn", path, "tables")
	require.NoError(t, err)
	assert.Equal(t, "orders\nschema_migrations\nusers\n", out)
}

func TestTablesCmd_ConfigFile(t *testing.T) {
	path := shopDB(t)
	cfgPath := filepath.Join(t.TempDir(), "schemadigest.yaml")
	yaml := "database:\n  dialect: sqlite\n  dsn: " + path + "\n" +
		"digest:\n  ignore_tables: [schema_migrations]\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	out, err := run(t, "--config", cfgPath, "tables")
	require.NoError(t, err)
	assert.Equal(t, "orders\nusers\n", out)
}

func TestInfoCmd(t *testing.T) {
	path := shopDB(t)

	out, err := run(t, "--dialect", "sqlite", "--dsn", path, "info", "users")
	require.NoError(t, err)

	want := "CREATE TABLE users (\n" +
		"\tid INT,\n" +
		"\tstatus VARCHAR\n" +
		")\n" +
		"/*\nColumns in users and all categories for low cardinality columns :" +
		"\nid : 1, 2, 3" +
		"\nstatus : active, banned" +
		"\n*/\n"
	assert.Equal(t, want, out)
}

func TestInfoCmd_CustomTableInfo(t *testing.T) {
	path := shopDB(t)
	notes := filepath.Join(t.TempDir(), "notes.yaml")
	require.NoError(t, os.WriteFile(notes, []byte("orders: One row per checkout.\n"), 0o600))

	cfgPath := filepath.Join(t.TempDir(), "schemadigest.yaml")
	yaml := "database: {dialect: sqlite, dsn: '" + path + "'}\n" +
		"digest: {custom_table_info_source: '" + notes + "'}\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	out, err := run(t, "--config", cfgPath, "info", "orders")
	require.NoError(t, err)
	assert.Equal(t, "One row per checkout.\n", out)
}

func TestInfoCmd_UnknownTable(t *testing.T) {
	path := shopDB(t)

	_, err := run(t, "--dialect", "sqlite", "--dsn", path, "info", "ghosts")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err), err.Error())
}

func TestCmd_MissingDSN(t *testing.T) {
	t.Setenv(config.EnvDSN, "")
	t.Setenv(config.EnvDialect, "")

	_, err := run(t, "--dialect", "sqlite", "tables")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err), err.Error())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(errs.New(errs.ErrKindInvalidInput, "bad")))
	assert.Equal(t, 3, exitCode(errs.New(errs.ErrKindNotFound, "gone")))
	assert.Equal(t, 4, exitCode(errs.New(errs.ErrKindTimeout, "slow")))
	assert.Equal(t, 5, exitCode(errs.New(errs.ErrKindPermissionDenied, "no")))
	assert.Equal(t, 1, exitCode(io.EOF))
}

func TestWriteLine(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, writeLine(buf, ""))
	require.NoError(t, writeLine(buf, "a"))
	require.NoError(t, writeLine(buf, "b\n"))
	assert.Equal(t, "a\nb\n", buf.String())
}
