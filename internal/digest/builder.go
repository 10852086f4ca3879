// Package digest builds a textual digest of a database schema: one block per
// table holding its CREATE TABLE statement, an optional index listing and an
// optional summary of sampled values split by cardinality.
//
// A Builder discovers and reflects the schema once in New. Later calls only
// read that state, so a Builder may be shared by concurrent callers as long
// as the underlying database.DB is safe for concurrent use.
package digest

import (
	"context"
	"sort"
	"strings"

	"github.com/koustreak/schemadigest/internal/database"
	"github.com/koustreak/schemadigest/internal/ddl"
	"github.com/koustreak/schemadigest/internal/errs"
	"github.com/koustreak/schemadigest/internal/logger"
)

// Builder renders schema digests for a fixed set of usable tables.
type Builder struct {
	db   database.DB
	opts options
	log  *logger.Logger

	all    map[string]bool // discovered tables, plus views when enabled
	usable []string        // sorted
	custom map[string]string
	meta   *database.Schema
}

// TableBlock is the rendered digest of one table.
type TableBlock struct {
	Name string

	// Custom is set when Text came verbatim from custom table info. DDL,
	// Indexes and Sample are left empty in that case.
	Custom bool

	DDL     string
	Indexes string // "" unless indexes are enabled
	Sample  SampleResult

	// Text is the full block as it appears in TableInfo.
	Text string
}

// New validates the options, discovers the tables (and views, when enabled)
// in the configured schema and reflects the usable ones.
func New(ctx context.Context, db database.DB, opts ...Option) (*Builder, error) {
	if db == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "database is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.includeTables) > 0 && len(o.ignoreTables) > 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "include tables and ignore tables are mutually exclusive")
	}
	if o.sampleRows < 0 {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "sample rows must not be negative, got %d", o.sampleRows)
	}
	if o.threshold < 0 {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "low cardinality threshold must not be negative, got %d", o.threshold)
	}

	b := &Builder{db: db, opts: o, log: o.log}

	all, views, err := b.discover(ctx)
	if err != nil {
		return nil, err
	}
	b.all = all

	if missing := missingFrom(all, o.includeTables); len(missing) > 0 {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "include tables %s not found in database", formatNames(missing))
	}
	if missing := missingFrom(all, o.ignoreTables); len(missing) > 0 {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "ignore tables %s not found in database", formatNames(missing))
	}

	b.usable = usableTables(all, o.includeTables, o.ignoreTables)

	b.custom = make(map[string]string, len(o.customInfo))
	for name, text := range o.customInfo {
		if all[name] {
			b.custom[name] = text
		}
	}

	viewSet := make(map[string]bool, len(views))
	for _, v := range views {
		viewSet[v] = true
	}

	meta, err := database.Reflect(ctx, db, database.ReflectRequest{
		Schema: o.schema,
		Tables: b.usable,
		Views:  viewSet,
	}, o.metadata)
	if err != nil {
		return nil, err
	}
	b.meta = meta

	b.log.With().
		Str("dialect", db.Dialect().String()).
		Str("schema", o.schema).
		Int("usable_tables", len(b.usable)).
		Logger().
		Debug("schema reflected")

	return b, nil
}

func (b *Builder) discover(ctx context.Context) (map[string]bool, []string, error) {
	tables, err := b.db.ListTables(ctx, b.opts.schema)
	if err != nil {
		return nil, nil, err
	}

	all := make(map[string]bool, len(tables))
	for _, t := range tables {
		all[t] = true
	}

	if !b.opts.viewSupport {
		return all, nil, nil
	}

	views, err := b.db.ListViews(ctx, b.opts.schema)
	if err != nil {
		return nil, nil, err
	}
	for _, v := range views {
		all[v] = true
	}
	return all, views, nil
}

// Dialect reports the dialect of the underlying connection.
func (b *Builder) Dialect() database.Dialect {
	return b.db.Dialect()
}

// MaxStringLength returns the configured maximum string length.
func (b *Builder) MaxStringLength() int {
	return b.opts.maxStringLength
}

// UsableTableNames returns, in ascending order, the include list when one was
// given and otherwise every discovered table minus the ignore list.
func (b *Builder) UsableTableNames() []string {
	out := make([]string, len(b.usable))
	copy(out, b.usable)
	return out
}

// TableInfo renders the digest for names, or for every usable table when
// names is empty. A nil and an empty non-nil slice are treated alike, so
// there is no way to ask for zero tables. Blocks are sorted by their content
// and separated by a blank line.
//
// It fails only when a requested name is not usable. Sample query failures
// are logged and leave the sample section out of the affected block.
func (b *Builder) TableInfo(ctx context.Context, names ...string) (string, error) {
	blocks, err := b.Tables(ctx, names...)
	if err != nil {
		return "", err
	}

	texts := make([]string, len(blocks))
	for i, blk := range blocks {
		texts[i] = blk.Text
	}
	sort.Strings(texts)
	return strings.Join(texts, "\n\n"), nil
}

// Tables renders one TableBlock per requested table, in table-name order.
func (b *Builder) Tables(ctx context.Context, names ...string) ([]TableBlock, error) {
	wanted, err := b.resolve(names)
	if err != nil {
		return nil, err
	}

	dialect := b.db.Dialect()
	var blocks []TableBlock
	for _, name := range b.meta.Names() {
		if !wanted[name] || dialect.IsInternalTable(name) {
			continue
		}
		t, _ := b.meta.Table(name)
		blocks = append(blocks, b.render(ctx, t))
	}
	return blocks, nil
}

func (b *Builder) resolve(names []string) (map[string]bool, error) {
	wanted := make(map[string]bool)
	if len(names) == 0 {
		for _, n := range b.usable {
			wanted[n] = true
		}
		return wanted, nil
	}

	usable := make(map[string]bool, len(b.usable))
	for _, n := range b.usable {
		usable[n] = true
	}
	if missing := missingFrom(usable, names); len(missing) > 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table names %s not found in database", formatNames(missing))
	}
	for _, n := range names {
		wanted[n] = true
	}
	return wanted, nil
}

func (b *Builder) render(ctx context.Context, t *database.TableInfo) TableBlock {
	if text, ok := b.custom[t.Name]; ok {
		return TableBlock{Name: t.Name, Custom: true, Text: text}
	}

	blk := TableBlock{
		Name: t.Name,
		DDL:  strings.TrimRight(ddl.CreateTable(b.db.Dialect(), t), " \t\r\n"),
	}

	var sb strings.Builder
	sb.WriteString(blk.DDL)

	if b.opts.indexes {
		blk.Indexes = formatIndexes(t.Indexes)
		sb.WriteString("\n")
		sb.WriteString(blk.Indexes)
		sb.WriteString("\n")
	}

	blk.Sample = b.sample(ctx, t)
	if blk.Sample.Status == SampleOK && blk.Sample.Text != "" {
		sb.WriteString("\n")
		sb.WriteString(blk.Sample.Text)
		sb.WriteString("\n")
	}

	blk.Text = sb.String()
	return blk
}

func usableTables(all map[string]bool, include, ignore []string) []string {
	set := make(map[string]bool)
	if len(include) > 0 {
		for _, n := range include {
			set[n] = true
		}
	} else {
		skip := make(map[string]bool, len(ignore))
		for _, n := range ignore {
			skip[n] = true
		}
		for n := range all {
			if !skip[n] {
				set[n] = true
			}
		}
	}

	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// missingFrom returns the sorted, de-duplicated names absent from set.
func missingFrom(set map[string]bool, names []string) []string {
	seen := make(map[string]bool)
	var missing []string
	for _, n := range names {
		if !set[n] && !seen[n] {
			seen[n] = true
			missing = append(missing, n)
		}
	}
	sort.Strings(missing)
	return missing
}

func formatNames(names []string) string {
	return "[" + strings.Join(names, ", ") + "]"
}
