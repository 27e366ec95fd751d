package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryabkov82/template-merger/internal/table"
)

func src(name string, cols ...string) *table.Source {
	return &table.Source{Name: name, Columns: cols}
}

func TestBuild_NumbersAreContiguous(t *testing.T) {
	sources := []*table.Source{
		src("a.csv", "name", "phone"),
		src("b.xlsx", "phone", "email", "name"),
		src("c.csv"),
		src("d.csv", "city"),
	}

	r := Build(sources)

	require.Len(t, r.Entries, 6)
	for i, e := range r.Entries {
		assert.Equal(t, i+1, e.Number)
		assert.Equal(t, e.Column, r.Index[e.Number])
	}
	assert.Equal(t, "b.xlsx", r.Entries[2].Source)
	assert.Equal(t, []string{"name", "phone", "email", "city"}, r.Unique)
	assert.Equal(t, []Ref{{"a.csv", 2}, {"b.xlsx", 3}}, r.Provenance["phone"])

	n, ok := r.FirstNumber("name")
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	n, ok = r.FirstNumber("email")
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	_, ok = r.FirstNumber("zip")
	assert.False(t, ok)
}

func TestBuild_Empty(t *testing.T) {
	r := Build(nil)
	assert.Empty(t, r.Index)
	assert.Empty(t, r.Unique)
	assert.Empty(t, r.Entries)
	assert.Empty(t, r.Rows())
}

func TestRows_FoundIn(t *testing.T) {
	r := Build([]*table.Source{
		src("a.csv", "name", "x", "x.1"),
		src("a.csv", "name", "y"),
		src("a-very-long-file-name-indeed.csv", "y", "z"),
	})

	rows := r.Rows()
	require.Len(t, rows, 5)

	assert.Equal(t, Row{Number: 1, Column: "name", FoundIn: "a.csv (2 times)"}, rows[0])
	assert.Equal(t, Row{Number: 2, Column: "x", FoundIn: "a.csv"}, rows[1])
	assert.Equal(t, Row{Number: 5, Column: "y", FoundIn: "a.csv, a-very-long-file-nam"}, rows[3])
	assert.Equal(t, Row{Number: 7, Column: "z", FoundIn: "a-very-long-file-nam"}, rows[4])
}
