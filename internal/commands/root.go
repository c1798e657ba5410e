// Package commands implements the roost CLI.
package commands

import (
	"fmt"

	"github.com/simonhull/roost"
	"github.com/simonhull/roost/internal/logger"
	"github.com/simonhull/roost/internal/output"
	"github.com/spf13/cobra"
)

// RootCmd creates and returns the root command for the roost CLI
func RootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "roost",
		Short: "Generate new items into an existing project",
		Long: `Roost renders item templates into a scratch directory, merges fragments
into the files they extend and then either applies the result to your project
or writes the manual steps needed to apply it yourself.

Every run writes a markdown summary of what changed:
• New files created in the project
• Modified files, with the merged code for each change
• Conflicting files that already existed`,
		Version:       roost.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			output.SetVerbose(verbose)
			if verbose {
				logger.Default().SetLevel(logger.LevelDebug)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging")
	cmd.PersistentFlags().String("config", "", "Path to roost.yml (default: <project>/roost.yml)")
	cmd.PersistentFlags().StringP("project", "p", ".", "Target project directory")

	return cmd
}

// VersionCmd prints the roost version
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "roost v%s\n", roost.Version)
		},
	}
}
