// Package ingest reads delimited text, xlsx workbooks and remote sheet
// exports into source tables with normalised column names.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ryabkov82/template-merger/internal/table"
)

// ErrNoHeader is returned for a source without a header row.
var ErrNoHeader = errors.New("no header row")

// Error wraps any failure to read one source.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// DefaultTimeout bounds a remote fetch when the reader has no client.
const DefaultTimeout = 60 * time.Second

// maxRemoteBytes caps the size of a remote export.
const maxRemoteBytes = 256 << 20

// Reader loads sources. The zero value is usable.
type Reader struct {
	Client *http.Client
	Logger *slog.Logger
}

func NewReader(timeout time.Duration, logger *slog.Logger) *Reader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Reader{Client: &http.Client{Timeout: timeout}, Logger: logger}
}

// Read loads location (a file path, an http(s) URL or a Google Sheets link)
// as a source called name. Failures are returned as *Error.
func (r *Reader) Read(ctx context.Context, location, name string) (*table.Source, error) {
	src, err := r.read(ctx, location, name)
	if err != nil {
		return nil, &Error{Source: location, Err: err}
	}
	r.logger().Debug("source loaded",
		"source", name,
		"rows", len(src.Rows),
		"columns", len(src.Columns),
	)
	return src, nil
}

func (r *Reader) read(ctx context.Context, location, name string) (*table.Source, error) {
	var (
		header []string
		rows   [][]table.Value
		err    error
	)

	switch {
	case IsSheetURL(location) || isRemote(location):
		url := ExportURL(location)
		if url != location {
			r.logger().Info("converted sheet link to export url", "url", url)
		}
		var data []byte
		if data, err = r.fetch(ctx, url); err != nil {
			return nil, err
		}
		header, rows, err = parseText(data)

	case strings.EqualFold(filepath.Ext(location), ".xlsx"):
		header, rows, err = readXLSX(location)

	default:
		var data []byte
		if data, err = os.ReadFile(location); err != nil {
			return nil, err
		}
		header, rows, err = parseText(data)
	}
	if err != nil {
		return nil, err
	}

	return &table.Source{Name: name, Columns: header, Rows: rows}, nil
}

func parseText(data []byte) ([]string, [][]table.Value, error) {
	enc, comma := detect(data)
	text, err := decode(data, enc)
	if err != nil {
		return nil, nil, err
	}
	return parseDelimited(text, comma)
}

func (r *Reader) fetch(ctx context.Context, url string) ([]byte, error) {
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes))
}

func (r *Reader) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// SourceName names the n-th (1-based) externally supplied source: sheet
// links become GoogleSheet_<n>, everything else its base name.
func SourceName(location string, n int) string {
	if IsSheetURL(location) {
		return fmt.Sprintf("GoogleSheet_%d", n)
	}
	return filepath.Base(location)
}

// Discover lists the .csv and .xlsx files of dir sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".xlsx":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
