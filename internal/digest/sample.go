package digest

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/schemadigest/internal/database"
	"github.com/koustreak/schemadigest/internal/errs"
)

// SampleStatus tells apart the outcomes of a sample-row summary.
type SampleStatus int

const (
	// SampleSkipped means sampling is disabled (zero sample rows).
	SampleSkipped SampleStatus = iota
	// SampleOK means the query ran. Text is empty when the table has no rows.
	SampleOK
	// SampleFailed means the query or the scan failed; Err holds the cause.
	SampleFailed
)

func (s SampleStatus) String() string {
	switch s {
	case SampleSkipped:
		return "skipped"
	case SampleOK:
		return "ok"
	case SampleFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SampleResult is the outcome of summarising one table's sampled values.
type SampleResult struct {
	Status SampleStatus
	Text   string
	Err    error
}

// SampleRows summarises up to 200 rows of a usable table. Columns with more
// distinct values than the low-cardinality threshold show the first N values
// seen (N being the sample-row count); the others list every distinct value.
func (b *Builder) SampleRows(ctx context.Context, table string) SampleResult {
	t, ok := b.meta.Table(table)
	if !ok {
		return SampleResult{
			Status: SampleFailed,
			Err:    errs.Newf(errs.ErrKindNotFound, "table %q is not reflected", table),
		}
	}
	return b.sample(ctx, t)
}

func (b *Builder) sample(ctx context.Context, t *database.TableInfo) SampleResult {
	if b.opts.sampleRows == 0 {
		return SampleResult{Status: SampleSkipped}
	}

	text, err := b.summarise(ctx, t)
	if err != nil {
		b.log.WarnWith("sample rows query failed", err, map[string]interface{}{
			"table":  t.Name,
			"schema": b.opts.schema,
		})
		return SampleResult{Status: SampleFailed, Err: err}
	}
	return SampleResult{Status: SampleOK, Text: text}
}

func (b *Builder) summarise(ctx context.Context, t *database.TableInfo) (string, error) {
	q, args, err := database.Select(t.Name, b.db.Dialect()).
		In(b.opts.schema).
		Columns(t.ColumnNames()...).
		Limit(sampleLimit).
		Build()
	if err != nil {
		return "", err
	}

	rows, err := b.db.Query(ctx, q, args...)
	if err != nil {
		return "", err
	}
	columns, values, err := database.ScanValues(rows)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", nil
	}

	var high, low strings.Builder
	for i, col := range columns {
		distinct := distinctValues(values, i)
		if len(distinct) > b.opts.threshold {
			shown := distinct
			if len(shown) > b.opts.sampleRows {
				shown = shown[:b.opts.sampleRows]
			}
			fmt.Fprintf(&high, "\n%s : %s", col, strings.Join(shown, ", "))
		} else {
			fmt.Fprintf(&low, "\n%s : %s", col, strings.Join(distinct, ", "))
		}
	}

	var sb strings.Builder
	if high.Len() > 0 {
		fmt.Fprintf(&sb, "/*\nColumns in %s and %d examples in each column for high cardinality columns :", t.Name, b.opts.sampleRows)
		sb.WriteString(high.String())
		sb.WriteString("\n*/\n")
	}
	if low.Len() > 0 {
		fmt.Fprintf(&sb, "/*\nColumns in %s and all categories for low cardinality columns :", t.Name)
		sb.WriteString(low.String())
		sb.WriteString("\n*/")
	}
	return sb.String(), nil
}

// distinctValues returns the stringified values of column i in first-seen
// order.
func distinctValues(rows [][]any, i int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range rows {
		s := formatValue(row[i])
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(x)
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return fmt.Sprint(x)
		}
		return formatValue(dv)
	default:
		return fmt.Sprint(x)
	}
}
