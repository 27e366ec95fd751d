package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ryabkov82/template-merger/internal/table"
)

// readXLSX loads the first sheet of a workbook. The first row is the
// header. Numeric cells that are not date formatted become numbers; all
// other cells keep their formatted text.
func readXLSX(path string) ([]string, [][]table.Value, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrNoHeader
	}
	sheet := sheets[0]

	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("reading rows of %s: %w", sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("reading raw rows of %s: %w", sheet, err)
	}
	if len(formatted) == 0 {
		return nil, nil, ErrNoHeader
	}

	width := 0
	for _, r := range formatted {
		if len(r) > width {
			width = len(r)
		}
	}
	header := NormalizeHeaders(fitRowToWidth(formatted[0], width))

	styles := newStyleCache(f)
	var rows [][]table.Value

	for ri := 1; ri < len(formatted); ri++ {
		rec := formatted[ri]
		if blankRow(rec) {
			continue
		}
		row := make([]table.Value, width)
		for ci, cell := range rec {
			if cell == "" {
				continue
			}
			var rawCell string
			if ri < len(raw) && ci < len(raw[ri]) {
				rawCell = raw[ri][ci]
			}
			row[ci] = cellValue(f, sheet, styles, ci+1, ri+1, cell, rawCell)
		}
		rows = append(rows, row)
	}

	return header, rows, nil
}

func cellValue(f *excelize.File, sheet string, styles *styleCache, col, row int, formatted, raw string) table.Value {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return table.TextValue(formatted)
	}

	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return table.TextValue(formatted)
	}

	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if styles.isDate(sheet, ref) {
			return table.TextValue(formatted)
		}
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return table.FloatValue(n)
		}
	}
	return table.TextValue(formatted)
}

// styleCache memoises the number format of each style id.
type styleCache struct {
	f     *excelize.File
	dates map[int]bool
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, dates: make(map[int]bool)}
}

func (c *styleCache) isDate(sheet, ref string) bool {
	id, err := c.f.GetCellStyle(sheet, ref)
	if err != nil {
		return false
	}
	if v, ok := c.dates[id]; ok {
		return v
	}
	style, err := c.f.GetStyle(id)
	v := err == nil && style != nil &&
		(isDateFormat(style.NumFmt) || (style.CustomNumFmt != nil && isDatePattern(*style.CustomNumFmt)))
	c.dates[id] = v
	return v
}

func isDatePattern(pattern string) bool {
	p := strings.ToLower(pattern)
	for _, marker := range []string{"yy", "dd", "mmm", "h:", ":ss"} {
		if strings.Contains(p, marker) {
			return true
		}
	}
	return false
}

func isDateFormat(fmtID int) bool {
	switch fmtID {
	case 14, 15, 16, 17, 18, 19, 20, 21, 22, 27, 30, 36, 45, 46, 47:
		return true
	}
	return false
}
