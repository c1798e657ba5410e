package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/simonhull/roost/internal/output"
	"github.com/simonhull/roost/internal/templates"
	"github.com/spf13/cobra"
)

// TemplatesCmd lists the template catalog
func TemplatesCmd() *cobra.Command {
	var templatesPath string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List available templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd, nil)
			if err != nil {
				return err
			}

			dir := ws.templatesDir(templatesPath)
			catalog, err := templates.LoadCatalog(dir)
			if err != nil {
				return err
			}

			list := catalog.List()
			if len(list) == 0 {
				output.Info("No templates found in " + dir)
				return nil
			}

			tbl := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
				Headers("IDENTITY", "NAME", "TYPE", "DESCRIPTION")
			for _, t := range list {
				tbl.Row(t.Identity, t.Name, t.TemplateType().String(), t.Description)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
			return err
		},
	}

	cmd.Flags().StringVar(&templatesPath, "templates", "", "Template catalog directory (default: templates.path)")
	return cmd
}
