// Package tableinfo loads custom table descriptions. A description replaces
// the whole rendered block of its table in a digest.
//
// Sources are YAML documents mapping table names to text:
//
//	users: |
//	  Everyone who can sign in. status is one of active, banned.
//	orders: Purchases, one row per checkout.
//
// A source is either a local path or an object location ("s3://bucket/key")
// read through a filestore.Store.
package tableinfo

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/koustreak/schemadigest/internal/errs"
	"github.com/koustreak/schemadigest/internal/filestore"
	"go.yaml.in/yaml/v3"
)

// MaxSourceBytes bounds the size of a description document.
const MaxSourceBytes = 1 << 20

// Info maps table names to their descriptions.
type Info map[string]string

// UnmarshalYAML accepts only a mapping of names to string scalars.
func (i *Info) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return errs.Newf(errs.ErrKindInvalidInput,
			"custom table info must be a mapping of table names to text (line %d)", value.Line)
	}

	out := make(Info, len(value.Content)/2)
	for k := 0; k+1 < len(value.Content); k += 2 {
		key, val := value.Content[k], value.Content[k+1]
		if key.Kind != yaml.ScalarNode {
			return errs.Newf(errs.ErrKindInvalidInput, "custom table info: table name must be a string (line %d)", key.Line)
		}
		if val.Kind != yaml.ScalarNode || val.ShortTag() != "!!str" {
			return errs.Newf(errs.ErrKindInvalidInput,
				"custom table info for %q must be a string (line %d)", key.Value, val.Line)
		}
		out[key.Value] = val.Value
	}
	*i = out
	return nil
}

// Parse decodes a description document.
func Parse(data []byte) (Info, error) {
	var info Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return nil, e
		}
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid custom table info", err)
	}
	if info == nil {
		info = Info{}
	}
	return info, nil
}

// Load reads and parses the document at src. Object locations need a
// non-nil store; local paths ignore it. An empty src yields no descriptions.
func Load(ctx context.Context, src string, store filestore.Store) (Info, error) {
	if src == "" {
		return Info{}, nil
	}

	data, err := read(ctx, src, store)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func read(ctx context.Context, src string, store filestore.Store) ([]byte, error) {
	if filestore.IsRemote(src) {
		loc, err := filestore.ParseLocation(src)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "custom table info %s needs a configured filestore", src)
		}
		return filestore.ReadObject(ctx, store, loc, MaxSourceBytes)
	}

	data, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Wrap(errs.ErrKindNotFound, "custom table info file not found: "+src, err)
	}
	if errors.Is(err, fs.ErrPermission) {
		return nil, errs.Wrap(errs.ErrKindPermissionDenied, "cannot read custom table info file "+src, err)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "cannot read custom table info file "+src, err)
	}
	if len(data) > MaxSourceBytes {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "custom table info file %s exceeds %d bytes", src, MaxSourceBytes)
	}
	return data, nil
}
