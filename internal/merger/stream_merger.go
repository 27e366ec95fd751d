package merger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/ryabkov82/template-merger/internal/engine"
	"github.com/ryabkov82/template-merger/internal/format"
	"github.com/ryabkov82/template-merger/internal/table"
)

const (
	sheetName = "Sheet1"
	// maxColWidth is the widest column excel accepts.
	maxColWidth = 255
)

// StreamWriter persists an output table as xlsx through excelize's stream
// writer. The header row is bold, every cell is aligned per its column and
// vertically centred, and columns are sized to their widest cell plus
// Padding.
type StreamWriter struct {
	Padding int
	// MaxRowsPerFile splits the output into <name>_partN.xlsx files holding
	// at most this many data rows each. Zero disables splitting.
	MaxRowsPerFile int64
}

// partWriter is one open workbook.
type partWriter struct {
	file        *excelize.File
	sw          *excelize.StreamWriter
	cellStyles  map[string]int
	rowsWritten int64
}

// Write saves out to path (an .xlsx path) and returns the files written.
func (w *StreamWriter) Write(path string, out *engine.Output) ([]string, error) {
	if out == nil || len(out.Columns) == 0 {
		return nil, fmt.Errorf("writing %s: output has no columns", path)
	}

	if err := removeExistingPartFiles(path); err != nil {
		return nil, err
	}

	widths := columnWidths(out, w.Padding)
	rows := int64(out.Len())
	split := w.MaxRowsPerFile > 0 && rows > w.MaxRowsPerFile

	part, err := newPart(out, widths)
	if err != nil {
		return nil, err
	}

	var files []string
	partNo := 1
	for row := 0; row < out.Len(); row++ {
		if split && part.rowsWritten == w.MaxRowsPerFile {
			name := partPath(path, partNo)
			if err := part.save(name); err != nil {
				return files, err
			}
			files = append(files, name)
			partNo++

			if part, err = newPart(out, widths); err != nil {
				return files, err
			}
		}
		if err := part.writeRow(out, row); err != nil {
			part.close()
			return files, err
		}
	}

	name := path
	if split {
		name = partPath(path, partNo)
	}
	if err := part.save(name); err != nil {
		return files, err
	}
	return append(files, name), nil
}

func newPart(out *engine.Output, widths []float64) (*partWriter, error) {
	f := excelize.NewFile()
	p := &partWriter{file: f, cellStyles: make(map[string]int)}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		p.close()
		return nil, fmt.Errorf("creating stream writer: %w", err)
	}
	p.sw = sw

	// Column widths must be set before the first row.
	for i, width := range widths {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			p.close()
			return nil, fmt.Errorf("setting width of column %d: %w", i+1, err)
		}
	}

	header := make([]interface{}, len(out.Columns))
	for i, c := range out.Columns {
		styleID, err := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Alignment: alignment(c.Align),
		})
		if err != nil {
			p.close()
			return nil, fmt.Errorf("creating header style: %w", err)
		}
		header[i] = excelize.Cell{Value: c.Name, StyleID: styleID}
	}
	if err := sw.SetRow("A1", header); err != nil {
		p.close()
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return p, nil
}

func (p *partWriter) writeRow(out *engine.Output, row int) error {
	cells := make([]interface{}, len(out.Columns))
	for i, c := range out.Columns {
		styleID, err := p.cellStyle(c.Align)
		if err != nil {
			return err
		}
		cells[i] = excelize.Cell{Value: cellValue(c.Values[row]), StyleID: styleID}
	}

	// Row 1 is the header.
	cell, err := excelize.CoordinatesToCellName(1, int(p.rowsWritten)+2)
	if err != nil {
		return err
	}
	if err := p.sw.SetRow(cell, cells); err != nil {
		return fmt.Errorf("writing row %d: %w", row+1, err)
	}
	p.rowsWritten++
	return nil
}

func (p *partWriter) cellStyle(align string) (int, error) {
	if id, ok := p.cellStyles[align]; ok {
		return id, nil
	}
	id, err := p.file.NewStyle(&excelize.Style{Alignment: alignment(align)})
	if err != nil {
		return 0, fmt.Errorf("creating cell style: %w", err)
	}
	p.cellStyles[align] = id
	return id, nil
}

func (p *partWriter) save(path string) error {
	defer p.close()
	if err := p.sw.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := p.file.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func (p *partWriter) close() { _ = p.file.Close() }

func alignment(align string) *excelize.Alignment {
	h := align
	switch align {
	case format.AlignLeft, format.AlignRight, format.AlignCenter:
	default:
		h = format.AlignCenter
	}
	return &excelize.Alignment{Horizontal: h, Vertical: "center"}
}

// cellValue keeps numbers numeric in the workbook.
func cellValue(v table.Value) interface{} {
	if v.IsMissing() {
		return ""
	}
	return v.Interface()
}

// columnWidths sizes each column to its widest rendered cell, header
// included, plus padding.
func columnWidths(out *engine.Output, padding int) []float64 {
	widths := make([]float64, len(out.Columns))
	for i, c := range out.Columns {
		widest := utf8.RuneCountInString(c.Name)
		for _, v := range c.Values {
			if n := utf8.RuneCountInString(v.String()); n > widest {
				widest = n
			}
		}
		widths[i] = float64(min(widest+padding, maxColWidth))
	}
	return widths
}

func partPath(path string, n int) string {
	return fmt.Sprintf("%s_part%d.xlsx", strings.TrimSuffix(path, ".xlsx"), n)
}

// removeExistingPartFiles deletes parts left by an earlier run so a shorter
// output does not leave stale files behind.
func removeExistingPartFiles(path string) error {
	pattern := fmt.Sprintf("%s_part*.xlsx", strings.TrimSuffix(path, ".xlsx"))
	files, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("matching %s: %w", pattern, err)
	}
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			return fmt.Errorf("removing %s: %w", file, err)
		}
	}
	return nil
}
