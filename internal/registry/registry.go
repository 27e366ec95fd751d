// Package registry numbers every column of every loaded source and collapses
// same-named columns into one user-facing entry.
package registry

import (
	"fmt"
	"strings"

	"github.com/ryabkov82/template-merger/internal/table"
)

// Entry is one (source, column) occurrence.
type Entry struct {
	Number int
	Column string
	Source string
}

// Ref points at the occurrence of a column in a source.
type Ref struct {
	Source string
	Number int
}

// Registry is built once per run and passed explicitly to resolution and
// evaluation.
type Registry struct {
	// Index maps a global number to its column name.
	Index map[int]string
	// Entries lists every occurrence in assignment order.
	Entries []Entry
	// Unique holds each distinct column name once, in first-appearance order.
	Unique []string
	// Provenance lists every occurrence of a name in encounter order.
	Provenance map[string][]Ref
}

// Build walks sources in order and each source's columns in native order,
// assigning 1, 2, ... to every occurrence, repeated names included.
func Build(sources []*table.Source) *Registry {
	r := &Registry{
		Index:      make(map[int]string),
		Provenance: make(map[string][]Ref),
	}

	next := 1
	for _, src := range sources {
		for _, col := range src.Columns {
			r.Index[next] = col
			r.Entries = append(r.Entries, Entry{Number: next, Column: col, Source: src.Name})
			if _, seen := r.Provenance[col]; !seen {
				r.Unique = append(r.Unique, col)
			}
			r.Provenance[col] = append(r.Provenance[col], Ref{Source: src.Name, Number: next})
			next++
		}
	}

	return r
}

// FirstNumber returns the canonical number shown for a column name.
func (r *Registry) FirstNumber(name string) (int, bool) {
	refs := r.Provenance[name]
	if len(refs) == 0 {
		return 0, false
	}
	return refs[0].Number, true
}

// Has reports whether name is one of the unique columns.
func (r *Registry) Has(name string) bool {
	_, ok := r.Provenance[name]
	return ok
}

// Row is one line of the unique-column listing.
type Row struct {
	Number  int
	Column  string
	FoundIn string
}

// maxSourceLabel truncates source names in the listing.
const maxSourceLabel = 20

// Rows builds the unique-column listing with the first number of each name.
func (r *Registry) Rows() []Row {
	rows := make([]Row, 0, len(r.Unique))
	for _, name := range r.Unique {
		refs := r.Provenance[name]

		var files []string
		seen := make(map[string]bool)
		for _, ref := range refs {
			label := ref.Source
			if len([]rune(label)) > maxSourceLabel {
				label = string([]rune(label)[:maxSourceLabel])
			}
			if !seen[label] {
				seen[label] = true
				files = append(files, label)
			}
		}

		var foundIn string
		switch {
		case len(refs) == 1:
			foundIn = files[0]
		case len(files) == 1:
			foundIn = fmt.Sprintf("%s (%d times)", files[0], len(refs))
		default:
			foundIn = strings.Join(files, ", ")
		}

		rows = append(rows, Row{Number: refs[0].Number, Column: name, FoundIn: foundIn})
	}
	return rows
}
