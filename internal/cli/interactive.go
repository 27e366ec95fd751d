package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ryabkov82/template-merger/internal/config"
	"github.com/ryabkov82/template-merger/internal/engine"
	"github.com/ryabkov82/template-merger/internal/format"
	"github.com/ryabkov82/template-merger/internal/ingest"
	"github.com/ryabkov82/template-merger/internal/logging"
	"github.com/ryabkov82/template-merger/internal/merger"
	"github.com/ryabkov82/template-merger/internal/prompt"
	"github.com/ryabkov82/template-merger/internal/registry"
	"github.com/ryabkov82/template-merger/internal/table"
	"github.com/ryabkov82/template-merger/internal/template"
)

var (
	errNoFilesLoaded = errors.New("no files loaded")
	errNoTemplates   = errors.New("no templates found")
)

const separatorWidth = 50

func runInteractive(cmd *cobra.Command) error {
	cfg := GetConfig(cmd.Context())
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	p, err := prompt.New(cmd.InOrStdin(), cmd.OutOrStdout(), "")
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	runID := uuid.NewString()
	logger := logging.WithRun(runID)

	s := &session{
		cfg:     cfg,
		prompt:  p,
		console: prompt.NewConsole(cmd.OutOrStdout()),
		merger:  merger.New(cfg, logger),
		store:   template.NewStore(cfg.TemplateDir),
		logger:  logger,
	}
	return s.run(cmd.Context())
}

// session is one interactive merge.
type session struct {
	cfg     *config.Config
	prompt  prompt.Prompter
	console *prompt.Console
	merger  *merger.Merger
	store   *template.Store
	logger  *slog.Logger
}

func (s *session) run(ctx context.Context) error {
	s.console.Banner("   ADVANCED DATA MERGER")
	s.console.Println()
	s.console.List([]string{"Use existing template", "Create new template", "Exit"})

	answer, err := s.ask("\nSelect option: ")
	if err != nil {
		return err
	}
	choice, err := prompt.ParseChoice(answer, 3)
	if err != nil {
		return err
	}
	if choice == 3 {
		return nil
	}

	var templates []string
	if choice == 1 {
		if templates, err = s.store.List(); err != nil {
			return err
		}
		if len(templates) == 0 {
			s.console.Fail("No templates found in templates folder!")
			s.console.Println("Please create a template first using option 2.")
			return fmt.Errorf("%w in %s", errNoTemplates, s.store.Dir)
		}
	}

	sources, err := s.loadSources(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		s.console.Fail("No files loaded. Exiting.")
		return errNoFilesLoaded
	}

	ds := merger.NewDataset(sources)
	s.console.Println()
	s.console.Success("Total rows merged: %d", ds.Merged.Len())
	s.console.Success("Total unique columns: %d", len(ds.Registry.Unique))
	s.console.Println()
	s.console.Columns(ds.Registry.Rows())
	s.console.Hint("\n💡 Tip: Use the column number shown above - it will access data from all occurrences\n")

	var tmpl *template.Template
	if choice == 1 {
		tmpl, err = s.pickTemplate(templates, ds.Registry)
	} else {
		tmpl, err = s.buildTemplate(ds.Registry)
	}
	if err != nil {
		return err
	}

	name, err := s.ask("\nEnter output file name (without .xlsx): ")
	if err != nil {
		return err
	}
	name = strings.TrimSuffix(name, ".xlsx")
	if name == "" {
		name = s.cfg.OutputName
	}
	if err := config.ValidateOutputName(name); err != nil {
		return err
	}

	s.console.Println("\n⚙ Processing data...")
	out, err := s.merger.Engine.Evaluate(ctx, tmpl, ds.Merged)
	if err != nil {
		return err
	}
	s.console.Success("Processed %d rows", out.Len())
	if n := out.Faults(); n > 0 {
		s.console.Warn("%d cells could not be formatted and were left empty", n)
	}

	keys, err := s.pickKeys(out)
	if err != nil {
		return err
	}

	s.console.Println("\n⚙ Formatting output file...")
	res, err := s.merger.Save(out, name, keys)
	if err != nil {
		return err
	}
	if res.DuplicateFile != "" {
		s.console.Success("Duplicates saved: %s", res.DuplicateFile)
	}

	s.summary(res)
	s.logger.Info("interactive merge finished", "output_files", res.OutputFiles, "rows", res.RowsKept)
	return nil
}

// loadSources reads the input folder or a list of paths and URLs typed by
// the user. Typed sources that fail can be retried or skipped; a folder
// source that fails aborts the run.
func (s *session) loadSources(ctx context.Context) ([]*table.Source, error) {
	s.console.Println("\nSelect input source:")
	s.console.List([]string{"Use input folder", "Use external Excel/CSV/Google Sheets file(s)"})

	answer, err := s.ask("Choose (1/2): ")
	if err != nil {
		return nil, err
	}
	if answer == "2" {
		return s.loadExternal(ctx)
	}

	files, err := ingest.Discover(s.cfg.InputDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		s.console.Println()
		s.console.Fail("No CSV or Excel files found in '%s' folder!", s.cfg.InputDir)
		return nil, fmt.Errorf("%w in %s", merger.ErrNoInputFiles, s.cfg.InputDir)
	}

	sources := make([]*table.Source, 0, len(files))
	for i, path := range files {
		name := ingest.SourceName(path, i+1)
		src, err := s.merger.Reader.Read(ctx, path, name)
		if err != nil {
			s.console.Fail("Error loading file: %v", err)
			return nil, err
		}
		s.console.Success("Loaded: %s (%d rows, %d columns)", name, len(src.Rows), len(src.Columns))
		sources = append(sources, src)
	}
	return sources, nil
}

func (s *session) loadExternal(ctx context.Context) ([]*table.Source, error) {
	s.console.Println("\nEnter file paths or Google Sheets URLs (press ENTER without typing to finish):")
	s.console.Hint("Tip: For Google Sheets, paste the sharing link directly")

	var sources []*table.Source
	for n := 1; ; {
		location, err := s.ask(fmt.Sprintf("File %d path: ", n))
		if errors.Is(err, io.EOF) || (err == nil && location == "") {
			return sources, nil
		}
		if err != nil {
			return nil, err
		}

		src, err := s.merger.Reader.Read(ctx, location, ingest.SourceName(location, n))
		if err != nil {
			s.console.Fail("Error loading file: %v", err)
			s.console.Hint("  Please check the URL/path and try again, or press ENTER to skip")
			continue
		}
		if ingest.IsSheetURL(location) {
			s.console.Println("  → Converted to export URL")
		}
		s.console.Success("Loaded: %d rows, %d columns", len(src.Rows), len(src.Columns))
		sources = append(sources, src)
		n++
	}
}

func (s *session) pickTemplate(names []string, reg *registry.Registry) (*template.Template, error) {
	s.console.Banner("AVAILABLE TEMPLATES")
	s.console.List(names)
	s.console.Ruler()

	answer, err := s.ask("\nSelect template number: ")
	if err != nil {
		return nil, err
	}
	i, err := prompt.ParseChoice(answer, len(names))
	if err != nil {
		return nil, err
	}

	tmpl, err := s.store.Load(names[i-1])
	if err != nil {
		return nil, err
	}
	s.console.Println()
	s.console.Success("Template loaded: %s", names[i-1])

	if err := s.check(tmpl, reg); err != nil {
		return nil, err
	}
	s.console.Success("All template columns found in data")
	return tmpl, nil
}

// check validates tmpl against the data and explains a mismatch.
func (s *session) check(tmpl *template.Template, reg *registry.Registry) error {
	err := template.Validate(tmpl, reg.Unique)

	var mismatch *template.ColumnMismatchError
	if errors.As(err, &mismatch) {
		s.console.Banner("❌ FAILED TO APPLY TEMPLATE")
		s.console.Println("Reason: Column mismatch detected")
		s.console.Println("\nMissing columns in your data:")
		for _, c := range mismatch.Missing {
			s.console.Fail(" %s", c)
		}
		s.console.Println("\nPossible causes:")
		s.console.Println("  - Wrong Excel/CSV file selected")
		s.console.Println("  - Columns have been renamed or deleted")
		s.console.Println("  - Template was created for different data")
		s.console.Ruler()
	}
	return err
}

func (s *session) buildTemplate(reg *registry.Registry) (*template.Template, error) {
	s.codeHelp()

	var rules []template.Rule
	for {
		s.console.Println("\n" + strings.Repeat("-", separatorWidth))
		name, err := s.ask("Output column name (ENTER to finish): ")
		if errors.Is(err, io.EOF) || (err == nil && name == "") {
			break
		}
		if err != nil {
			return nil, err
		}

		s.mappingHelp()
		mapping, err := s.ask("\nMapping: ")
		if err != nil {
			return nil, err
		}

		tokens, notes := template.Resolve(strings.Fields(mapping), reg.Index)
		for _, n := range notes {
			var unresolved *template.UnresolvedColumnError
			var dup *template.DuplicateColumnNote
			switch {
			case errors.As(n, &unresolved):
				s.console.Warn("Warning: Column number %s not found, skipping", unresolved.Token)
			case errors.As(n, &dup):
				s.console.Note("Note: Column '%s' already added (skipping duplicate)", dup.Column)
			}
		}

		rule := template.Rule{Output: name, Tokens: tokens}
		if rule.UsesLookup() {
			if rule.Dictionary, err = s.readDictionary(); err != nil {
				return nil, err
			}
		}
		rules = append(rules, rule)
		s.console.Success("Added column: %s", name)
	}

	if len(rules) == 0 {
		s.console.Println()
		s.console.Fail("No columns added. Exiting.")
		return nil, template.ErrNoRules
	}

	tmpl := &template.Template{Rules: rules}
	if err := s.check(tmpl, reg); err != nil {
		return nil, err
	}

	name, err := s.ask("\nSave template as (name.json): ")
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "template"
	}
	if _, err := s.store.Save(name, tmpl); err != nil {
		return nil, err
	}
	s.console.Println()
	s.console.Success("Template saved: %s", tmpl.Name)
	return tmpl, nil
}

func (s *session) readDictionary() (*template.Dictionary, error) {
	s.console.Println("\nEnter dictionary mapping (ENTER key to stop)")
	d := template.NewDictionary()
	for {
		key, err := s.ask("Key: ")
		if errors.Is(err, io.EOF) || (err == nil && key == "") {
			return d, nil
		}
		if err != nil {
			return nil, err
		}
		key = strings.ToLower(key)

		value, err := s.ask(fmt.Sprintf("Value for '%s': ", key))
		if err != nil {
			return nil, err
		}
		d.Set(key, value)
	}
}

func (s *session) pickKeys(out *engine.Output) ([]string, error) {
	unique, err := prompt.Confirm(s.prompt, "\nDo you need unique records? (y/n): ")
	if err != nil || !unique {
		return nil, err
	}

	names := out.Names()
	s.console.Println("\nSelect columns for duplicate check:")
	s.console.List(names)

	answer, err := s.ask("\nEnter column numbers (comma-separated): ")
	if err != nil {
		return nil, err
	}
	picked, err := prompt.ParseSelection(answer, len(names))
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(picked))
	for i, n := range picked {
		keys[i] = names[n-1]
	}
	return keys, nil
}

func (s *session) codeHelp() {
	s.console.Banner("FORMAT CODES")
	for _, c := range format.Codes() {
		s.console.Printf("  %s → %s\n", c.Code, c.Label)
	}
	s.console.Println("\nALIGNMENT CODES")
	s.console.Println("  l → left,  r → right")
	s.console.Ruler()
}

func (s *session) mappingHelp() {
	s.console.Println("\nMapping format:")
	s.console.Println("  - Use 0 for blank/empty column")
	s.console.Println("  - Enter column number(s) from the list above")
	s.console.Println("  - Or use [col1,col2,col3] for multiple columns")
	s.console.Println("  - Add format codes (a,b,c,d,e,f,g,h,i,j,u,x,k)")
	s.console.Println("  - Add alignment (l or r)")
	s.console.Println("Example 1: 0  (blank column)")
	s.console.Println("Example 2: 5 d e  (column 5, last 10 digits, add +91)")
	s.console.Println("Example 3: 0 a  (blank column with today's date)")
}

func (s *session) summary(res *merger.Result) {
	s.console.Banner("📊 MERGE SUMMARY")
	s.console.Printf("Total rows before dedupe : %d\n", res.RowsBefore)
	s.console.Printf("Unique rows kept         : %d\n", res.RowsKept)
	s.console.Printf("Duplicates removed       : %d\n", res.Duplicates)
	for _, f := range res.OutputFiles {
		s.console.Printf("\n✅ Final output created: %s\n", f)
	}
	s.console.Ruler()
}

// ask wraps end of input so the caller sees which question was cut off.
func (s *session) ask(question string) (string, error) {
	answer, err := s.prompt.Ask(question)
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("input ended at %q: %w", strings.TrimSpace(question), io.EOF)
	}
	return answer, err
}
