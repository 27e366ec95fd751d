package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryabkov82/template-merger/internal/merger"
	"github.com/ryabkov82/template-merger/internal/template"
)

// Output is the JSON document printed by the run command.
type Output struct {
	Success       bool     `json:"success"`
	RunID         string   `json:"run_id,omitempty"`
	OutputFiles   []string `json:"output_files,omitempty"`
	DuplicateFile string   `json:"duplicate_file,omitempty"`
	Error         string   `json:"error,omitempty"`
	Duration      string   `json:"duration"`
	RowsBefore    int      `json:"rows_before,omitempty"`
	RowCount      int      `json:"row_count,omitempty"`
	Duplicates    int      `json:"duplicates,omitempty"`
	Faults        int      `json:"faults,omitempty"`
}

// errReported marks a failure already described in the JSON document.
var errReported = errors.New("merge failed")

// NewRunCommand creates the non-interactive merge command.
func NewRunCommand() *cobra.Command {
	var (
		templateName string
		sources      []string
		dedupeKeys   []string
		outputName   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply a saved template without prompts",
		Long: `Apply a saved template to the given sources, or to every .csv and .xlsx file
of the input folder, and print the result as a JSON document.`,
		Example: `  template-merger run --template contacts
  template-merger run -t contacts -s leads.csv -s "https://docs.google.com/spreadsheets/d/<id>/edit#gid=0" --dedupe Mobile`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now()
			cfg := GetConfig(cmd.Context())

			fail := func(stage string, err error) error {
				emitJSON(cmd.OutOrStdout(), Output{
					Success:  false,
					Error:    fmt.Sprintf("%s: %v", stage, err),
					Duration: time.Since(start).String(),
				})
				return fmt.Errorf("%w: %w", errReported, err)
			}

			tmpl, err := template.NewStore(cfg.TemplateDir).Load(templateName)
			if err != nil {
				return fail("template error", err)
			}

			name := cfg.OutputName
			if outputName != "" {
				name = outputName
			}

			res, err := merger.New(cfg, nil).MergeFiles(cmd.Context(), merger.Request{
				Locations:  sources,
				Template:   tmpl,
				OutputName: name,
				DedupeKeys: dedupeKeys,
			})
			if err != nil {
				return fail("merge error", err)
			}

			emitJSON(cmd.OutOrStdout(), Output{
				Success:       true,
				RunID:         res.RunID,
				OutputFiles:   res.OutputFiles,
				DuplicateFile: res.DuplicateFile,
				Duration:      time.Since(start).String(),
				RowsBefore:    res.RowsBefore,
				RowCount:      res.RowsKept,
				Duplicates:    res.Duplicates,
				Faults:        res.Faults,
			})
			return nil
		},
	}

	cmd.Flags().StringVarP(&templateName, "template", "t", "", "saved template name or path")
	cmd.Flags().StringArrayVarP(&sources, "source", "s", nil, "file, URL or Google Sheets link (repeatable; default: input folder)")
	cmd.Flags().StringSliceVar(&dedupeKeys, "dedupe", nil, "output columns that identify duplicate rows")
	cmd.Flags().StringVarP(&outputName, "output", "o", "", "merged workbook name without extension (default: output_name)")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func emitJSON(w io.Writer, out Output) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
