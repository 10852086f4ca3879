package database

import (
	"errors"
	"testing"

	"github.com/koustreak/schemadigest/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceRows is an in-memory Rows used to exercise the scanners.
type sliceRows struct {
	cols    []string
	data    [][]any
	pos     int
	closed  bool
	iterErr error
}

func (r *sliceRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *sliceRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		*(d.(*any)) = row[i]
	}
	return nil
}

func (r *sliceRows) Columns() ([]string, error) { return r.cols, nil }
func (r *sliceRows) Close()                     { r.closed = true }
func (r *sliceRows) Err() error                 { return r.iterErr }

func TestScanValues(t *testing.T) {
	rows := &sliceRows{
		cols: []string{"id", "status"},
		data: [][]any{{int64(1), "active"}, {int64(2), nil}},
	}

	cols, values, err := ScanValues(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "status"}, cols)
	assert.Equal(t, [][]any{{int64(1), "active"}, {int64(2), nil}}, values)
	assert.True(t, rows.closed)
}

func TestScanValues_Empty(t *testing.T) {
	rows := &sliceRows{cols: []string{"id"}}

	_, values, err := ScanValues(rows)
	require.NoError(t, err)
	assert.NotNil(t, values)
	assert.Empty(t, values)
}

func TestScanValues_IterationError(t *testing.T) {
	rows := &sliceRows{cols: []string{"id"}, iterErr: errors.New("connection reset")}

	_, _, err := ScanValues(rows)
	assert.True(t, errs.IsQueryFailed(err))
	assert.True(t, rows.closed)
}

func TestScanRows(t *testing.T) {
	rows := &sliceRows{
		cols: []string{"name", "unique"},
		data: [][]any{{"idx_users_email", int64(1)}},
	}

	got, err := ScanRows(rows)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "idx_users_email", "unique": int64(1)}}, got)
}
