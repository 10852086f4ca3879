package database

import (
	"context"
	"fmt"
	"sort"
)

// ColumnInfo describes a single column in a table.
type ColumnInfo struct {
	Name      string
	DataType  string  // as reported by the catalog, e.g. "character varying", "int unsigned"
	MaxLength *int    // nil for non-character types
	Nullable  bool
	Default   *string // nil if no default
	IsPrimary bool
	IsUnique  bool
}

// UniqueConstraint is a named UNIQUE constraint over one or more columns.
type UniqueConstraint struct {
	Name    string
	Columns []string
}

// ForeignKey describes one column of a foreign key. Multi-column keys are
// reported as consecutive entries in key order; Seq is the position of Column
// inside its key, so a zero Seq starts a new key. Name may be empty on
// engines that do not name foreign keys.
type ForeignKey struct {
	Name      string
	Column    string
	RefTable  string
	RefColumn string
	Seq       int
}

// IndexInfo describes a secondary index. Primary key indexes are not listed.
type IndexInfo struct {
	Name    string
	Unique  bool
	Columns []string
}

// TableInfo is the reflected structure of a table or view.
type TableInfo struct {
	Schema      string
	Name        string
	IsView      bool
	Columns     []*ColumnInfo
	PrimaryKey  []string
	Unique      []UniqueConstraint
	ForeignKeys []*ForeignKey
	Indexes     []IndexInfo
}

// ColumnNames returns the column names in ordinal order.
func (t *TableInfo) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Schema is a set of reflected tables keyed by name.
type Schema struct {
	Tables map[string]*TableInfo
}

// NewSchema returns an empty Schema ready to be filled by Reflect.
func NewSchema() *Schema {
	return &Schema{Tables: make(map[string]*TableInfo)}
}

// Table looks up a reflected table by name.
func (s *Schema) Table(name string) (*TableInfo, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

// Names returns the reflected table names in ascending order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Tables))
	for n := range s.Tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ReflectRequest scopes a reflection pass.
type ReflectRequest struct {
	Schema string
	Tables []string        // names to reflect; tables and views alike
	Views  map[string]bool // names in Tables that are views
}

// Reflect populates into with every requested table that it does not already
// hold, and returns it. A nil into starts from an empty Schema. Tables already
// present are kept as they are.
//
// This is the only place the catalog is read; callers are expected to keep the
// result for their lifetime.
func Reflect(ctx context.Context, i Inspector, req ReflectRequest, into *Schema) (*Schema, error) {
	if into == nil {
		into = NewSchema()
	}
	if into.Tables == nil {
		into.Tables = make(map[string]*TableInfo)
	}

	for _, name := range req.Tables {
		if _, ok := into.Tables[name]; ok {
			continue
		}
		ti, err := i.InspectTable(ctx, req.Schema, name)
		if err != nil {
			return nil, fmt.Errorf("inspecting table %q: %w", name, err)
		}
		ti.IsView = req.Views[name]
		into.Tables[name] = ti
	}
	return into, nil
}
