package commands

import (
	"github.com/simonhull/roost/internal/output"
	"github.com/simonhull/roost/internal/report"
	"github.com/spf13/cobra"
)

// ReportCmd renders summary markdown files as standalone HTML pages
func ReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <summary.md>...",
		Short: "Render generation summaries as HTML",
		Long: `Render one or more generation summaries as HTML pages written next to
the markdown source.

Example:
  roost report /tmp/roost/roost-1234/GenerationSummary.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				html, err := report.RenderHTML(p)
				if err != nil {
					return err
				}
				output.Success("Wrote " + html)
			}
			return nil
		},
	}
}
