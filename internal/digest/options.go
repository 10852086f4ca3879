package digest

import (
	"github.com/koustreak/schemadigest/internal/database"
	"github.com/koustreak/schemadigest/internal/logger"
)

const (
	DefaultSampleRows              = 3
	DefaultLowCardinalityThreshold = 10
	DefaultMaxStringLength         = 300

	// sampleLimit caps the rows fetched per table for the cardinality summary.
	sampleLimit = 200
)

// Option configures a Builder.
type Option func(*options)

type options struct {
	schema          string
	metadata        *database.Schema
	ignoreTables    []string
	includeTables   []string
	sampleRows      int
	threshold       int
	indexes         bool
	viewSupport     bool
	customInfo      map[string]string
	maxStringLength int
	log             *logger.Logger
}

func defaultOptions() options {
	return options{
		sampleRows:      DefaultSampleRows,
		threshold:       DefaultLowCardinalityThreshold,
		maxStringLength: DefaultMaxStringLength,
		log:             logger.Nop(),
	}
}

// WithSchema scopes discovery, reflection and sampling to schema.
func WithSchema(schema string) Option {
	return func(o *options) { o.schema = schema }
}

// WithMetadata supplies a pre-built Schema. Tables it already holds are kept
// as they are; the rest of the usable set is reflected into it.
func WithMetadata(s *database.Schema) Option {
	return func(o *options) { o.metadata = s }
}

// WithIgnoreTables excludes tables from the usable set.
// It cannot be combined with WithIncludeTables.
func WithIgnoreTables(names ...string) Option {
	return func(o *options) { o.ignoreTables = append(o.ignoreTables, names...) }
}

// WithIncludeTables restricts the usable set to names.
// It cannot be combined with WithIgnoreTables.
func WithIncludeTables(names ...string) Option {
	return func(o *options) { o.includeTables = append(o.includeTables, names...) }
}

// WithSampleRows sets how many example values are shown per high-cardinality
// column. Zero disables the sample summary.
func WithSampleRows(n int) Option {
	return func(o *options) { o.sampleRows = n }
}

// WithLowCardinalityThreshold sets the largest distinct-value count that is
// still listed in full.
func WithLowCardinalityThreshold(n int) Option {
	return func(o *options) { o.threshold = n }
}

// WithIndexes appends a "Table Indexes:" listing to every table.
func WithIndexes(enabled bool) Option {
	return func(o *options) { o.indexes = enabled }
}

// WithViewSupport adds views to the discovered set.
func WithViewSupport(enabled bool) Option {
	return func(o *options) { o.viewSupport = enabled }
}

// WithCustomTableInfo replaces the rendered block of each named table with
// the given text. Names that do not exist in the database are dropped.
func WithCustomTableInfo(info map[string]string) Option {
	return func(o *options) { o.customInfo = info }
}

// WithMaxStringLength is stored on the Builder and reported by
// MaxStringLength. Values are not truncated.
func WithMaxStringLength(n int) Option {
	return func(o *options) { o.maxStringLength = n }
}

// WithLogger sets the logger used for sample failures and reflection
// progress. A nil logger is ignored.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
