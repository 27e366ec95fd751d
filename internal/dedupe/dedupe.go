// Package dedupe splits output rows into unique and duplicate partitions.
package dedupe

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/ryabkov82/template-merger/internal/engine"
	"github.com/ryabkov82/template-merger/internal/table"
)

// ErrInvalidSelection is returned for empty or unknown key columns.
var ErrInvalidSelection = table.ErrInvalidSelection

// Split keeps the first row of every key in unique and moves later rows
// with identical values in all key columns to dups. Both partitions keep
// the original relative order.
func Split(out *engine.Output, keys []string) (unique, dups *engine.Output, err error) {
	if len(keys) == 0 {
		return nil, nil, fmt.Errorf("%w: no key columns", ErrInvalidSelection)
	}

	cols := make([]int, 0, len(keys))
	for _, k := range keys {
		i := out.ColumnIndex(k)
		if i < 0 {
			return nil, nil, fmt.Errorf("%w: unknown column %q", ErrInvalidSelection, k)
		}
		cols = append(cols, i)
	}

	seen := make(map[uint64][]int)
	var keep, moved []int
	var buf []byte

	for row := 0; row < out.Len(); row++ {
		buf = encodeKey(buf[:0], out, row, cols)
		h := xxh3.Hash(buf)

		dup := false
		for _, prev := range seen[h] {
			if sameKey(out, prev, row, cols) {
				dup = true
				break
			}
		}
		if dup {
			moved = append(moved, row)
			continue
		}
		seen[h] = append(seen[h], row)
		keep = append(keep, row)
	}

	return pick(out, keep), pick(out, moved), nil
}

// encodeKey writes kind and length-prefixed rendering of every key cell so
// that distinct keys never share an encoding.
func encodeKey(buf []byte, out *engine.Output, row int, cols []int) []byte {
	for _, c := range cols {
		v := out.Columns[c].Values[row]
		s := v.String()
		buf = append(buf, byte(v.Kind))
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	return buf
}

func sameKey(out *engine.Output, a, b int, cols []int) bool {
	for _, c := range cols {
		if !out.Columns[c].Values[a].Equal(out.Columns[c].Values[b]) {
			return false
		}
	}
	return true
}

func pick(out *engine.Output, rows []int) *engine.Output {
	res := &engine.Output{Columns: make([]engine.Column, len(out.Columns))}
	for i, c := range out.Columns {
		vals := make([]table.Value, len(rows))
		for j, r := range rows {
			vals[j] = c.Values[r]
		}
		res.Columns[i] = engine.Column{Name: c.Name, Align: c.Align, Values: vals}
	}
	return res
}
