// Package minio reads custom table descriptions from MinIO or any
// S3-compatible object store.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	obj, err := store.GetObject(ctx, "schema-notes", "shop.yaml")
package minio

import (
	"context"
	"io"

	"github.com/koustreak/schemadigest/internal/errs"
	"github.com/koustreak/schemadigest/internal/filestore"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Driver is a read-only filestore.Store backed by the MinIO SDK.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
}

// New creates a client for cfg and pings the server before returning.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	if cfg == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "filestore config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid filestore endpoint "+cfg.Endpoint, err)
	}

	d := &Driver{client: client}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Ping checks that the server answers and accepts the credentials. Keys
// scoped to a single bucket may not list buckets; an AccessDenied answer
// still proves both, so it counts as success.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.client.ListBuckets(ctx)
	if err == nil || miniogo.ToErrorResponse(err).Code == "AccessDenied" {
		return nil
	}
	return mapError(err, "ping "+d.client.EndpointURL().Host)
}

// Close is a no-op; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// GetObject opens the object and reads its metadata. The caller must close
// the returned Object.
func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	loc := filestore.Location{Bucket: bucket, Key: key}

	obj, err := d.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "get "+loc.String())
	}

	// The SDK is lazy: Stat sends the request and surfaces a missing key.
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, mapError(err, "get "+loc.String())
	}
	return &object{ReadCloser: obj, info: toObjectInfo(key, stat)}, nil
}

// StatObject returns the metadata of an object without reading it.
func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	stat, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "stat "+filestore.Location{Bucket: bucket, Key: key}.String())
	}
	return toObjectInfo(key, stat), nil
}

func toObjectInfo(key string, stat miniogo.ObjectInfo) *filestore.ObjectInfo {
	return &filestore.ObjectInfo{
		Key:          key,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		ETag:         stat.ETag,
		LastModified: stat.LastModified,
	}
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo { return o.info }
