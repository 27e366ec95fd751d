package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ryabkov82/template-merger/internal/template"
)

// NewTemplatesCommand lists saved templates.
func NewTemplatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "templates",
		Aliases: []string{"ls"},
		Short:   "List saved templates",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := template.NewStore(GetConfig(cmd.Context()).TemplateDir)
			names, err := store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No templates found in %s\n", store.Dir)
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "Template", "Output Columns"})
			for i, name := range names {
				columns := ""
				if tmpl, err := store.Load(name); err != nil {
					columns = fmt.Sprintf("(unreadable: %v)", err)
				} else {
					outputs := make([]string, len(tmpl.Rules))
					for j, r := range tmpl.Rules {
						outputs[j] = r.Output
					}
					columns = strings.Join(outputs, ", ")
				}
				t.AppendRow(table.Row{i + 1, name, columns})
			}
			t.Render()
			return nil
		},
	}
}
