package cli

import (
	"github.com/spf13/cobra"

	"github.com/ryabkov82/template-merger/internal/ingest"
	"github.com/ryabkov82/template-merger/internal/merger"
	"github.com/ryabkov82/template-merger/internal/prompt"
)

// NewColumnsCommand prints the numbered unique-column list of sources.
func NewColumnsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "columns [source...]",
		Short: "Show the numbered column list of sources",
		Long: `Load the given sources, or every .csv and .xlsx file of the input folder,
and print each distinct column with the number used to reference it in rules.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())

			locations := args
			if len(locations) == 0 {
				files, err := ingest.Discover(cfg.InputDir)
				if err != nil {
					return err
				}
				if len(files) == 0 {
					return merger.ErrNoInputFiles
				}
				locations = files
			}

			ds, err := merger.New(cfg, nil).Load(cmd.Context(), locations)
			if err != nil {
				return err
			}

			console := prompt.NewConsole(cmd.OutOrStdout())
			console.Success("Total rows merged: %d", ds.Merged.Len())
			console.Success("Total unique columns: %d", len(ds.Registry.Unique))
			console.Columns(ds.Registry.Rows())
			return nil
		},
	}
}
