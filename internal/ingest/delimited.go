package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ryabkov82/template-merger/internal/table"
)

// Encoding names the decoding chosen for a delimited source.
type Encoding string

const (
	UTF16  Encoding = "utf-16"
	UTF8   Encoding = "utf-8"
	Latin1 Encoding = "latin-1"
)

// detect picks the decoding and delimiter: UTF-16 (byte-order mark) is tab
// separated, otherwise the text is comma separated UTF-8 when valid and
// Latin-1 when not.
func detect(data []byte) (Encoding, rune) {
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		return UTF16, '\t'
	}
	if utf8.Valid(data) {
		return UTF8, ','
	}
	return Latin1, ','
}

func decode(data []byte, enc Encoding) ([]byte, error) {
	var t transform.Transformer
	switch enc {
	case UTF16:
		t = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case Latin1:
		t = charmap.ISO8859_1.NewDecoder()
	default:
		return bytes.TrimPrefix(data, []byte(bom)), nil
	}
	out, _, err := transform.Bytes(t, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", enc, err)
	}
	return bytes.TrimPrefix(out, []byte(bom)), nil
}

// parseDelimited reads text into a source. Blank lines are skipped and
// rows are padded or truncated to the header width.
func parseDelimited(data []byte, comma rune) ([]string, [][]table.Value, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var header []string
	var rows [][]table.Value

	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		if header == nil {
			if blankRow(rec) {
				continue
			}
			header = NormalizeHeaders(rec)
			continue
		}
		if blankRow(rec) {
			continue
		}

		rec = fitRowToWidth(rec, len(header))
		row := make([]table.Value, len(rec))
		for i, cell := range rec {
			if cell != "" {
				row[i] = table.TextValue(cell)
			}
		}
		rows = append(rows, row)
	}

	if header == nil {
		return nil, nil, ErrNoHeader
	}
	return header, rows, nil
}
