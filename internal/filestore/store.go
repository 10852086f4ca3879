// Package filestore defines read access to object storage. Custom table
// descriptions may live in a bucket instead of on local disk; the tableinfo
// package fetches them through Store.
//
// Callers depend only on this package, never on a provider package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	loc, _ := filestore.ParseLocation("s3://schema-notes/shop.yaml")
//	data, err := filestore.ReadObject(ctx, store, loc, 1<<20)
package filestore

import "context"

// Store is implemented by every object storage provider. It is read-only.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// GetObject opens a streaming handle to the object at key inside bucket.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// StatObject returns metadata for the object at key inside bucket
	// without downloading its content.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)
}
