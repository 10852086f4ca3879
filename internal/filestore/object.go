package filestore

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/koustreak/schemadigest/internal/errs"
)

// Scheme prefixes locations that are read through a Store.
const Scheme = "s3://"

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	// Key is the full object path within the bucket (e.g. "notes/shop.yaml").
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	ContentType  string
	ETag         string
	LastModified time.Time
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading to avoid resource leaks.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}

// Location addresses one object.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return Scheme + l.Bucket + "/" + l.Key
}

// IsRemote reports whether src names an object rather than a local path.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, Scheme)
}

// ParseLocation parses "s3://bucket/key".
func ParseLocation(src string) (Location, error) {
	if !IsRemote(src) {
		return Location{}, errs.Newf(errs.ErrKindInvalidInput, "object location %q must start with %s", src, Scheme)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(src, Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return Location{}, errs.Newf(errs.ErrKindInvalidInput, "object location %q must be %sbucket/key", src, Scheme)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// ReadObject downloads the object at loc. Objects larger than maxBytes are
// rejected before any content is read; maxBytes <= 0 disables the check.
func ReadObject(ctx context.Context, s Store, loc Location, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 {
		info, err := s.StatObject(ctx, loc.Bucket, loc.Key)
		if err != nil {
			return nil, err
		}
		if info.Size > maxBytes {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "object %s is %d bytes, limit is %d", loc, info.Size, maxBytes)
		}
	}

	obj, err := s.GetObject(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to read object "+loc.String(), err)
	}
	return data, nil
}
