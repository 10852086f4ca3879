package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/koustreak/schemadigest/internal/database"
	"github.com/koustreak/schemadigest/internal/database/connect"
	"github.com/koustreak/schemadigest/internal/digest"
	"github.com/koustreak/schemadigest/internal/errs"
	"github.com/koustreak/schemadigest/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type downDB struct{}

func (downDB) Ping(ctx context.Context) error {
	return errs.New(errs.ErrKindConnectionFailed, "connection refused")
}

type stubDigester struct {
	err error
}

func (s stubDigester) UsableTableNames() []string { return nil }

func (s stubDigester) TableInfo(ctx context.Context, names ...string) (string, error) {
	return "", s.err
}

func newShop(t *testing.T) (*digest.Builder, database.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE users (id INT, status VARCHAR)`,
		`INSERT INTO users VALUES (1, 'active'), (2, 'banned')`,
		`CREATE TABLE orders (id INT, user_id INT)`,
	} {
		_, err := raw.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	require.NoError(t, raw.Close())

	cfg := database.DefaultConfig(path)
	cfg.Dialect = database.DialectSQLite
	db, err := connect.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	b, err := digest.New(context.Background(), db)
	require.NoError(t, err)
	return b, db
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	b, db := newShop(t)

	rec := get(t, New(b, db, nil, time.Second).Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(t, New(b, downDB{}, nil, 0).Handler(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection_failed")
}

func TestTables(t *testing.T) {
	b, db := newShop(t)

	rec := get(t, New(b, db, nil, 0).Handler(), "/tables")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body TablesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, []string{"orders", "users"}, body.Tables)
}

func TestTableInfo(t *testing.T) {
	b, db := newShop(t)
	h := New(b, db, nil, time.Second).Handler()

	want, err := b.TableInfo(context.Background(), "users")
	require.NoError(t, err)

	rec := get(t, h, "/table-info?table=users")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, want, rec.Body.String())

	rec = get(t, h, "/tables/users")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, rec.Body.String())
}

func TestTableInfo_AllTables(t *testing.T) {
	b, db := newShop(t)

	want, err := b.TableInfo(context.Background())
	require.NoError(t, err)

	rec := get(t, New(b, db, nil, 0).Handler(), "/table-info")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, rec.Body.String())
	assert.Contains(t, want, "CREATE TABLE orders")
	assert.Contains(t, want, "CREATE TABLE users")
}

func TestTableInfo_UnknownTable(t *testing.T) {
	b, db := newShop(t)
	h := New(b, db, nil, 0).Handler()

	for _, target := range []string{"/table-info?table=users&table=ghosts", "/tables/ghosts"} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "not_found", body["error"])
		assert.Contains(t, body["message"], "ghosts")
	}
}

func TestTableInfo_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.New(errs.ErrKindInvalidInput, "bad"), http.StatusBadRequest},
		{errs.New(errs.ErrKindPermissionDenied, "denied"), http.StatusForbidden},
		{errs.New(errs.ErrKindTimeout, "slow"), http.StatusGatewayTimeout},
		{errs.New(errs.ErrKindConnectionFailed, "down"), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := get(t, New(stubDigester{err: tt.err}, downDB{}, nil, 0).Handler(), "/table-info")
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

func TestRequestLogging(t *testing.T) {
	b, db := newShop(t)
	buf := &bytes.Buffer{}
	log := logger.New(&logger.Config{Level: "info", Format: "json", Output: buf})

	get(t, New(b, db, log, 0).Handler(), "/tables/ghosts")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http request", entry["message"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/tables/ghosts", entry["path"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestRun_StopsOnCancel(t *testing.T) {
	b, db := newShop(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- New(b, db, nil, 0).Run(ctx, "127.0.0.1:0")
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_AddressInUse(t *testing.T) {
	b, db := newShop(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	err = New(b, db, nil, 0).Run(context.Background(), l.Addr().String())
	assert.True(t, errs.IsConnectionFailed(err), err)
}
