package digest

import (
	"fmt"
	"strings"

	"github.com/koustreak/schemadigest/internal/database"
)

// formatIndexes renders the "Table Indexes:" listing, one index per line.
func formatIndexes(indexes []database.IndexInfo) string {
	lines := make([]string, len(indexes))
	for i, idx := range indexes {
		lines[i] = fmt.Sprintf("Name: %s, Unique: %t, Columns: [%s]",
			idx.Name, idx.Unique, strings.Join(idx.Columns, ", "))
	}
	return "Table Indexes:\n" + strings.Join(lines, "\n")
}
