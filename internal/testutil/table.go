package testutil

import "github.com/ryabkov82/template-merger/internal/table"

// Source builds a source table from string cells. Empty strings become
// Missing, the way blank cells are ingested.
func Source(name string, columns []string, rows ...[]string) *table.Source {
	src := &table.Source{Name: name, Columns: columns}
	for _, r := range rows {
		row := make([]table.Value, len(columns))
		for i := range columns {
			if i < len(r) && r[i] != "" {
				row[i] = table.TextValue(r[i])
			}
		}
		src.Rows = append(src.Rows, row)
	}
	return src
}
