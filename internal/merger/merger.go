// Package merger runs the merge pipeline: sources are ingested, numbered
// and concatenated, the template is validated and evaluated, rows are
// optionally deduplicated and the result is written as xlsx.
package merger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ryabkov82/template-merger/internal/config"
	"github.com/ryabkov82/template-merger/internal/dedupe"
	"github.com/ryabkov82/template-merger/internal/engine"
	"github.com/ryabkov82/template-merger/internal/ingest"
	"github.com/ryabkov82/template-merger/internal/logging"
	"github.com/ryabkov82/template-merger/internal/registry"
	"github.com/ryabkov82/template-merger/internal/table"
	"github.com/ryabkov82/template-merger/internal/template"
)

// ErrNoInputFiles is returned when the input folder holds no sources.
var ErrNoInputFiles = errors.New("no input files found")

type FileMerger interface {
	MergeFiles(ctx context.Context, req Request) (*Result, error)
}

var _ FileMerger = (*Merger)(nil)

// Request describes one batch merge.
type Request struct {
	// Locations are files, URLs or sheet links. Empty means every .csv and
	// .xlsx file of the input folder.
	Locations  []string
	Template   *template.Template
	OutputName string
	// DedupeKeys are output column names; empty disables deduplication.
	DedupeKeys []string
}

// Result summarises a finished merge.
type Result struct {
	RunID         string
	OutputFiles   []string
	DuplicateFile string
	RowsBefore    int
	RowsKept      int
	Duplicates    int
	Faults        int
}

// Dataset is the ingested side of a run.
type Dataset struct {
	Sources  []*table.Source
	Registry *registry.Registry
	Merged   *table.Merged
}

// NewDataset numbers the columns of sources and concatenates their rows.
func NewDataset(sources []*table.Source) *Dataset {
	return &Dataset{
		Sources:  sources,
		Registry: registry.Build(sources),
		Merged:   table.Merge(sources),
	}
}

type Merger struct {
	Reader       *ingest.Reader
	Engine       *engine.Engine
	Writer       *StreamWriter
	InputDir     string
	OutputDir    string
	DuplicateDir string
	// Logger is used when set; otherwise the default logger tagged with
	// the run id.
	Logger *slog.Logger
}

// New wires a merger from the run configuration.
func New(cfg *config.Config, logger *slog.Logger) *Merger {
	return &Merger{
		Reader:       ingest.NewReader(cfg.HTTPTimeout, logger),
		Engine:       engine.New(engine.Options{Parallel: cfg.Parallel, Logger: logger}),
		Writer:       &StreamWriter{Padding: cfg.ColumnPadding, MaxRowsPerFile: cfg.MaxRowsPerFile},
		InputDir:     cfg.InputDir,
		OutputDir:    cfg.OutputDir,
		DuplicateDir: cfg.DuplicateDir,
		Logger:       logger,
	}
}

// MergeFiles runs the whole pipeline. Ingestion failures, template
// mismatches and bad key selections abort before any row is evaluated and
// before anything is written.
func (m *Merger) MergeFiles(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	logger := m.runLogger(runID)

	if req.Template == nil {
		return nil, template.ErrNoRules
	}
	name := req.OutputName
	if name == "" {
		name = config.DefaultOutputName
	}
	if err := config.ValidateOutputName(name); err != nil {
		return nil, err
	}

	locations := req.Locations
	if len(locations) == 0 {
		files, err := ingest.Discover(m.InputDir)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%w in %s", ErrNoInputFiles, m.InputDir)
		}
		locations = files
	}

	ds, err := m.Load(ctx, locations)
	if err != nil {
		return nil, err
	}
	logger.Info("sources loaded",
		"sources", len(ds.Sources),
		"rows", ds.Merged.Len(),
		"unique_columns", len(ds.Registry.Unique),
	)

	if err := template.Validate(req.Template, ds.Registry.Unique); err != nil {
		return nil, err
	}
	if err := checkKeys(req.Template, req.DedupeKeys); err != nil {
		return nil, err
	}

	out, err := m.Engine.Evaluate(ctx, req.Template, ds.Merged)
	if err != nil {
		return nil, fmt.Errorf("evaluating template: %w", err)
	}

	res, err := m.Save(out, name, req.DedupeKeys)
	if err != nil {
		return nil, err
	}
	res.RunID = runID

	logger.Info("merge finished",
		"output_files", res.OutputFiles,
		"rows_before", res.RowsBefore,
		"rows_kept", res.RowsKept,
		"duplicates", res.Duplicates,
		"faults", res.Faults,
	)
	return res, nil
}

// Load reads every location in order and stops at the first failure.
func (m *Merger) Load(ctx context.Context, locations []string) (*Dataset, error) {
	sources := make([]*table.Source, 0, len(locations))
	for i, loc := range locations {
		src, err := m.Reader.Read(ctx, loc, ingest.SourceName(loc, i+1))
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return NewDataset(sources), nil
}

// Save deduplicates out when keys are given and writes the merged workbook
// to the output folder and, when rows were removed, the duplicates
// workbook to the duplicates folder.
func (m *Merger) Save(out *engine.Output, name string, keys []string) (*Result, error) {
	res := &Result{
		RowsBefore: out.Len(),
		Faults:     out.Faults(),
	}

	kept, dups := out, (*engine.Output)(nil)
	if len(keys) > 0 {
		var err error
		if kept, dups, err = dedupe.Split(out, keys); err != nil {
			return nil, err
		}
	}
	res.RowsKept = kept.Len()
	res.Duplicates = dups.Len()

	files, err := m.Writer.Write(OutputPath(m.OutputDir, name), kept)
	if err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	res.OutputFiles = files

	if dups.Len() > 0 {
		path := DuplicatePath(m.DuplicateDir, name)
		if _, err := m.Writer.Write(path, dups); err != nil {
			return nil, fmt.Errorf("writing duplicates: %w", err)
		}
		res.DuplicateFile = path
	}
	return res, nil
}

// OutputPath is the merged workbook path for name.
func OutputPath(dir, name string) string {
	return filepath.Join(dir, name+".xlsx")
}

// DuplicatePath is the duplicates workbook path for name.
func DuplicatePath(dir, name string) string {
	return filepath.Join(dir, name+"_DUPLICATES.xlsx")
}

// checkKeys rejects key columns that no rule produces.
func checkKeys(t *template.Template, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	outputs := make(map[string]bool, len(t.Rules))
	for _, r := range t.Rules {
		outputs[r.Output] = true
	}
	for _, k := range keys {
		if !outputs[k] {
			return fmt.Errorf("%w: unknown column %q", dedupe.ErrInvalidSelection, k)
		}
	}
	return nil
}

func (m *Merger) runLogger(runID string) *slog.Logger {
	if m.Logger != nil {
		return m.Logger.With("run_id", runID)
	}
	return logging.WithRun(runID)
}
