package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ryabkov82/template-merger/internal/table"
	"github.com/ryabkov82/template-merger/internal/testutil"
)

func newTestReader(t *testing.T) *Reader {
	return NewReader(5*time.Second, testutil.NewTestLogger(t))
}

func strs(row []table.Value) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = v.String()
	}
	return out
}

func TestNormalizeHeaders(t *testing.T) {
	got := NormalizeHeaders([]string{"\uFEFFName", "  PHONE ", "", "name", "Name", "Café"})
	assert.Equal(t, []string{"name", "phone", "unnamed: 2", "name.1", "name.2", "café"}, got)
}

func TestExportURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "with tab id",
			in:   "https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=123",
			want: "https://docs.google.com/spreadsheets/d/1AbC-d_9/export?format=csv&gid=123",
		},
		{
			name: "without tab id",
			in:   "https://docs.google.com/spreadsheets/d/1AbC-d_9/edit?usp=sharing",
			want: "https://docs.google.com/spreadsheets/d/1AbC-d_9/export?format=csv",
		},
		{
			name: "query gid",
			in:   "https://docs.google.com/spreadsheets/d/xyz/edit?usp=sharing&gid=7",
			want: "https://docs.google.com/spreadsheets/d/xyz/export?format=csv&gid=7",
		},
		{
			name: "other url unchanged",
			in:   "https://example.com/data.csv",
			want: "https://example.com/data.csv",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExportURL(tt.in))
		})
	}
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "GoogleSheet_3", SourceName("https://docs.google.com/spreadsheets/d/abc/edit", 3))
	assert.Equal(t, "leads.csv", SourceName("/tmp/in/leads.csv", 1))
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRead_UTF16TabSeparated(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, _, err := transform.String(enc, "Name\tPhone\r\nRavi\t98765 43210\r\n")
	require.NoError(t, err)

	path := writeFile(t, t.TempDir(), "export.csv", []byte(data))
	src, err := newTestReader(t).Read(context.Background(), path, "export.csv")
	require.NoError(t, err)

	assert.Equal(t, "export.csv", src.Name)
	assert.Equal(t, []string{"name", "phone"}, src.Columns)
	require.Len(t, src.Rows, 1)
	assert.Equal(t, []string{"Ravi", "98765 43210"}, strs(src.Rows[0]))
}

func TestRead_Latin1Fallback(t *testing.T) {
	path := writeFile(t, t.TempDir(), "legacy.csv", []byte("name,city\nJos\xe9,Z\xfcrich\n"))

	src, err := newTestReader(t).Read(context.Background(), path, "legacy.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"José", "Zürich"}, strs(src.Rows[0]))
}

func TestRead_UTF8WithBOMAndRaggedRows(t *testing.T) {
	body := "\uFEFFName, Email ,Phone\n\nann,a@x\nbob,b@x,2,extra\n,,\n"
	path := writeFile(t, t.TempDir(), "web.csv", []byte(body))

	src, err := newTestReader(t).Read(context.Background(), path, "web.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "email", "phone"}, src.Columns)
	require.Len(t, src.Rows, 2)
	assert.Equal(t, []string{"ann", "a@x", ""}, strs(src.Rows[0]))
	assert.True(t, src.Rows[0][2].IsMissing())
	assert.Equal(t, []string{"bob", "b@x", "2"}, strs(src.Rows[1]))
}

func TestRead_EmptyFileIsError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.csv", nil)

	_, err := newTestReader(t).Read(context.Background(), path, "empty.csv")
	require.Error(t, err)

	var ingestErr *Error
	require.True(t, errors.As(err, &ingestErr))
	assert.Equal(t, path, ingestErr.Source)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := newTestReader(t).Read(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "nope.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRead_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Name"))
	require.NoError(t, f.SetCellValue(sheet, "B1", " Phone "))
	require.NoError(t, f.SetCellValue(sheet, "C1", "Joined"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "ann"))
	require.NoError(t, f.SetCellValue(sheet, "B2", 9876543210))
	require.NoError(t, f.SetCellValue(sheet, "C2", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellValue(sheet, "B3", 1.5))
	require.NoError(t, f.SetCellValue(sheet, "A5", "eve"))

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src, err := newTestReader(t).Read(context.Background(), path, "book.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "phone", "joined"}, src.Columns)
	require.Len(t, src.Rows, 3)

	assert.Equal(t, table.TextValue("ann"), src.Rows[0][0])
	assert.Equal(t, table.IntValue(9876543210), src.Rows[0][1])
	assert.Equal(t, table.Text, src.Rows[0][2].Kind)
	assert.NotEmpty(t, src.Rows[0][2].String())

	assert.True(t, src.Rows[1][0].IsMissing())
	assert.Equal(t, table.Float, src.Rows[1][1].Kind)
	assert.Equal(t, "1.5", src.Rows[1][1].String())

	assert.Equal(t, "eve", src.Rows[2][0].String())
	assert.True(t, src.Rows[2][2].IsMissing())
}

func TestRead_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/leads.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("Name,Email\nann,a@x\n"))
	}))
	defer srv.Close()

	reader := newTestReader(t)
	src, err := reader.Read(context.Background(), srv.URL+"/leads.csv", "leads.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "email"}, src.Columns)
	assert.Equal(t, []string{"ann", "a@x"}, strs(src.Rows[0]))

	_, err = reader.Read(context.Background(), srv.URL+"/missing.csv", "missing.csv")
	var ingestErr *Error
	require.True(t, errors.As(err, &ingestErr))
	assert.Contains(t, err.Error(), "404")
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.xlsx", []byte("x"))
	writeFile(t, dir, "a.csv", []byte("x"))
	writeFile(t, dir, "notes.txt", []byte("x"))
	writeFile(t, dir, "C.CSV", []byte("x"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "C.CSV"),
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "b.xlsx"),
	}, files)

	_, err = Discover(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
