package minio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/koustreak/schemadigest/internal/errs"
	"github.com/koustreak/schemadigest/internal/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notes = "users: Everyone who can sign in.\n"

// fakeS3 answers the handful of requests the driver sends. listCode, when
// set, is returned as the S3 error code of ListBuckets.
func fakeS3(t *testing.T, listCode string) *filestore.Config {
	t.Helper()
	modified := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/" && listCode != "":
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>` + listCode + `</Code><Message>denied</Message></Error>`))
		case r.URL.Path == "/":
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><ListAllMyBucketsResult><Owner><ID>owner</ID></Owner><Buckets></Buckets></ListAllMyBucketsResult>`))
		case r.URL.Path == "/notes/shop.yaml":
			w.Header().Set("Content-Type", "application/yaml")
			w.Header().Set("Content-Length", strconv.Itoa(len(notes)))
			w.Header().Set("ETag", `"5d41402abc4b2a76b9719d911017c592"`)
			w.Header().Set("Last-Modified", modified)
			if r.Method == http.MethodGet {
				_, _ = w.Write([]byte(notes))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := filestore.DefaultConfig(strings.TrimPrefix(srv.URL, "http://"), "reader", "secret")
	cfg.Region = "us-east-1"
	return cfg
}

func TestDriver_ReadObject(t *testing.T) {
	ctx := context.Background()
	d, err := New(ctx, fakeS3(t, ""))
	require.NoError(t, err)
	defer d.Close()

	info, err := d.StatObject(ctx, "notes", "shop.yaml")
	require.NoError(t, err)
	assert.Equal(t, int64(len(notes)), info.Size)
	assert.Equal(t, "shop.yaml", info.Key)
	assert.Equal(t, 2026, info.LastModified.Year())

	data, err := filestore.ReadObject(ctx, d, filestore.Location{Bucket: "notes", Key: "shop.yaml"}, 1024)
	require.NoError(t, err)
	assert.Equal(t, notes, string(data))
}

func TestDriver_MissingObject(t *testing.T) {
	ctx := context.Background()
	d, err := New(ctx, fakeS3(t, ""))
	require.NoError(t, err)

	_, err = d.StatObject(ctx, "notes", "gone.yaml")
	assert.True(t, errs.IsNotFound(err), err)
	assert.Contains(t, err.Error(), "s3://notes/gone.yaml")
}

func TestNew_ScopedCredentials(t *testing.T) {
	_, err := New(context.Background(), fakeS3(t, "AccessDenied"))
	assert.NoError(t, err)
}

func TestNew_BadCredentials(t *testing.T) {
	_, err := New(context.Background(), fakeS3(t, "InvalidAccessKeyId"))
	assert.True(t, errs.IsPermissionDenied(err), err)
}
