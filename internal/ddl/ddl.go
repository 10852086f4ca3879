// Package ddl renders reflected tables back into CREATE TABLE statements for
// a given dialect.
//
// The output is meant to be read, not executed: defaults and types are
// echoed as the catalog reported them and views are rendered as tables.
package ddl

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/koustreak/schemadigest/internal/database"
)

var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// reserved holds words that are always quoted even when lower-case.
var reserved = map[string]bool{
	"all": true, "and": true, "as": true, "by": true, "check": true,
	"column": true, "constraint": true, "create": true, "default": true,
	"desc": true, "distinct": true, "from": true, "group": true,
	"having": true, "in": true, "index": true, "key": true, "limit": true,
	"not": true, "null": true, "on": true, "or": true, "order": true,
	"primary": true, "references": true, "select": true, "table": true,
	"to": true, "union": true, "unique": true, "user": true, "where": true,
}

// pgTypeAliases shortens the long type names format_type reports.
var pgTypeAliases = []struct{ long, short string }{
	{"character varying", "VARCHAR"},
	{"character", "CHAR"},
}

// Ident quotes name for d only when it is not a plain lower-case identifier.
func Ident(d database.Dialect, name string) string {
	if plainIdent.MatchString(name) && !reserved[name] {
		return name
	}
	return d.Quote(name)
}

// CreateTable renders t as a CREATE TABLE statement in dialect d. The result
// carries no trailing newline.
func CreateTable(d database.Dialect, t *database.TableInfo) string {
	var lines []string

	for _, c := range t.Columns {
		lines = append(lines, column(d, c))
	}

	if len(t.PrimaryKey) > 0 {
		lines = append(lines, "PRIMARY KEY ("+identList(d, t.PrimaryKey)+")")
	}

	for _, u := range t.Unique {
		lines = append(lines, constraintPrefix(d, u.Name)+"UNIQUE ("+identList(d, u.Columns)+")")
	}

	for _, fk := range groupForeignKeys(t.ForeignKeys) {
		lines = append(lines, constraintPrefix(d, fk.name)+
			"FOREIGN KEY("+identList(d, fk.cols)+") REFERENCES "+
			Ident(d, fk.refTable)+" ("+identList(d, fk.refCols)+")")
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(tableName(d, t))
	sb.WriteString(" (\n\t")
	sb.WriteString(strings.Join(lines, ",\n\t"))
	sb.WriteString("\n)")
	return sb.String()
}

func tableName(d database.Dialect, t *database.TableInfo) string {
	if t.Schema == "" {
		return Ident(d, t.Name)
	}
	return Ident(d, t.Schema) + "." + Ident(d, t.Name)
}

func column(d database.Dialect, c *database.ColumnInfo) string {
	var sb strings.Builder
	sb.WriteString(Ident(d, c.Name))
	if typ := typeName(d, c); typ != "" {
		sb.WriteString(" ")
		sb.WriteString(typ)
	}
	if !c.Nullable {
		sb.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(*c.Default)
	}
	return sb.String()
}

func typeName(d database.Dialect, c *database.ColumnInfo) string {
	typ := strings.TrimSpace(c.DataType)
	if d == database.DialectPostgres {
		lower := strings.ToLower(typ)
		for _, a := range pgTypeAliases {
			if lower == a.long || strings.HasPrefix(lower, a.long+"(") {
				typ = a.short + typ[len(a.long):]
				break
			}
		}
	}
	typ = strings.ToUpper(typ)
	if c.MaxLength != nil && typ != "" && !strings.Contains(typ, "(") {
		typ += "(" + strconv.Itoa(*c.MaxLength) + ")"
	}
	return typ
}

func constraintPrefix(d database.Dialect, name string) string {
	if name == "" {
		return ""
	}
	return "CONSTRAINT " + Ident(d, name) + " "
}

func identList(d database.Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = Ident(d, n)
	}
	return strings.Join(quoted, ", ")
}

type foreignKey struct {
	name     string
	refTable string
	cols     []string
	refCols  []string
}

func groupForeignKeys(fks []*database.ForeignKey) []*foreignKey {
	var out []*foreignKey
	for _, fk := range fks {
		if n := len(out); n > 0 && fk.Seq > 0 && out[n-1].name == fk.Name {
			out[n-1].cols = append(out[n-1].cols, fk.Column)
			out[n-1].refCols = append(out[n-1].refCols, fk.RefColumn)
			continue
		}
		out = append(out, &foreignKey{
			name:     fk.Name,
			refTable: fk.RefTable,
			cols:     []string{fk.Column},
			refCols:  []string{fk.RefColumn},
		})
	}
	return out
}
