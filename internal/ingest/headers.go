package ingest

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const bom = "\uFEFF"

// NormalizeHeaders strips byte-order marks, trims, NFC-normalises and
// lower-cases column names. Empty names become "unnamed: <i>" and repeated
// names within one source get ".1", ".2", ... suffixes.
func NormalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	counts := make(map[string]int, len(raw))

	for i, h := range raw {
		h = strings.ReplaceAll(h, bom, "")
		h = norm.NFC.String(strings.ToLower(strings.TrimSpace(h)))
		if h == "" {
			h = fmt.Sprintf("unnamed: %d", i)
		}

		name := h
		for used[name] {
			counts[h]++
			name = fmt.Sprintf("%s.%d", h, counts[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// fitRowToWidth truncates or pads a record to exactly n fields.
func fitRowToWidth(row []string, n int) []string {
	if len(row) == n {
		return row
	}
	cp := make([]string, n)
	copy(cp, row)
	return cp
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
