package table

import "errors"

// ErrInvalidSelection is returned when a user choice names no existing
// column or menu entry.
var ErrInvalidSelection = errors.New("invalid selection")

// Source is one ingested file or remote sheet.
type Source struct {
	Name    string
	Columns []string
	Rows    [][]Value
}

// Merged is the row-wise concatenation of all sources with the column union
// taken by name.
type Merged struct {
	Columns []string
	Rows    [][]Value
	index   map[string]int
}

// Merge concatenates sources in order. Columns keep their first-appearance
// order; cells of columns a source does not have are Missing.
func Merge(sources []*Source) *Merged {
	m := &Merged{index: make(map[string]int)}

	for _, src := range sources {
		for _, col := range src.Columns {
			if _, ok := m.index[col]; !ok {
				m.index[col] = len(m.Columns)
				m.Columns = append(m.Columns, col)
			}
		}
	}

	for _, src := range sources {
		pos := make([]int, len(src.Columns))
		for i, col := range src.Columns {
			pos[i] = m.index[col]
		}
		for _, row := range src.Rows {
			out := make([]Value, len(m.Columns))
			for i, v := range row {
				if i < len(pos) {
					out[pos[i]] = v
				}
			}
			m.Rows = append(m.Rows, out)
		}
	}

	return m
}

// ColumnIndex returns the position of a column or -1.
func (m *Merged) ColumnIndex(name string) int {
	if i, ok := m.index[name]; ok {
		return i
	}
	return -1
}

// Len returns the number of rows.
func (m *Merged) Len() int { return len(m.Rows) }

// Cell returns the value at row/column position, Missing when out of range.
func (m *Merged) Cell(row, col int) Value {
	if col < 0 || row < 0 || row >= len(m.Rows) || col >= len(m.Rows[row]) {
		return Value{}
	}
	return m.Rows[row][col]
}
