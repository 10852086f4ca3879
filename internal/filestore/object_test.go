package filestore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/koustreak/schemadigest/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObject struct {
	io.Reader
	info   *ObjectInfo
	closed *bool
}

func (o memObject) Info() *ObjectInfo { return o.info }

func (o memObject) Close() error {
	*o.closed = true
	return nil
}

// memStore serves objects from a map keyed by "bucket/key".
type memStore struct {
	objects map[string][]byte
	closed  bool
	gets    int
}

func (m *memStore) Ping(ctx context.Context) error { return nil }
func (m *memStore) Close() error                   { return nil }

func (m *memStore) GetObject(ctx context.Context, bucket, key string) (Object, error) {
	m.gets++
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key")
	}
	return memObject{
		Reader: bytes.NewReader(data),
		info:   &ObjectInfo{Key: key, Size: int64(len(data))},
		closed: &m.closed,
	}, nil
}

func (m *memStore) StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key")
	}
	return &ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    Location
		wantErr bool
	}{
		{in: "s3://notes/shop.yaml", want: Location{Bucket: "notes", Key: "shop.yaml"}},
		{in: "s3://notes/dir/shop.yaml", want: Location{Bucket: "notes", Key: "dir/shop.yaml"}},
		{in: "s3://notes", wantErr: true},
		{in: "s3://notes/", wantErr: true},
		{in: "s3:///shop.yaml", wantErr: true},
		{in: "/etc/shop.yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocation(tt.in)
			if tt.wantErr {
				assert.True(t, errs.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("s3://b/k"))
	assert.False(t, IsRemote("notes/shop.yaml"))
}

func TestReadObject(t *testing.T) {
	store := &memStore{objects: map[string][]byte{"notes/shop.yaml": []byte("users: people")}}
	loc := Location{Bucket: "notes", Key: "shop.yaml"}

	data, err := ReadObject(context.Background(), store, loc, 1024)
	require.NoError(t, err)
	assert.Equal(t, "users: people", string(data))
	assert.True(t, store.closed)
}

func TestReadObject_TooLarge(t *testing.T) {
	store := &memStore{objects: map[string][]byte{"notes/big.yaml": bytes.Repeat([]byte("x"), 64)}}

	_, err := ReadObject(context.Background(), store, Location{Bucket: "notes", Key: "big.yaml"}, 16)
	assert.True(t, errs.IsInvalidInput(err))
	assert.Zero(t, store.gets, "content must not be fetched")
}

func TestReadObject_Missing(t *testing.T) {
	store := &memStore{objects: map[string][]byte{}}

	_, err := ReadObject(context.Background(), store, Location{Bucket: "notes", Key: "gone.yaml"}, 0)
	assert.True(t, errs.IsNotFound(err))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig("localhost:9000", "a", "b").Validate())
	assert.True(t, errs.IsInvalidInput(DefaultConfig("", "a", "b").Validate()))
	assert.True(t, errs.IsInvalidInput((&Config{Provider: "gcs", Endpoint: "x"}).Validate()))
}
