package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/simonhull/roost/internal/fsutil"
	"github.com/simonhull/roost/internal/input"
	"github.com/simonhull/roost/internal/output"
	"github.com/spf13/cobra"
)

// scratchPrefix names per-cycle scratch directories
const scratchPrefix = "roost-"

// CleanCmd removes scratch directories left behind by --output-only or
// --keep-output runs
func CleanCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove leftover scratch directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd, nil)
			if err != nil {
				return err
			}

			root := ws.Config.ScratchRoot()
			dirs, err := scratchDirs(root)
			if err != nil {
				return err
			}
			if len(dirs) == 0 {
				output.Info("Nothing to clean in " + root)
				return nil
			}

			output.Info(fmt.Sprintf("Found %d scratch director%s in %s", len(dirs), plural(len(dirs), "y", "ies"), root))
			for _, d := range dirs {
				output.Step(filepath.Base(d))
			}

			if !yes && !input.ConfirmFrom(cmd.InOrStdin(), cmd.OutOrStdout(), "Delete them?", false) {
				output.Info("Aborted")
				return nil
			}

			removed := 0
			for _, d := range dirs {
				if err := fsutil.SafeDeleteDirectory(d, os.TempDir()); err != nil {
					output.Warn(err.Error())
					continue
				}
				removed++
			}
			output.Success(fmt.Sprintf("Removed %d scratch director%s", removed, plural(removed, "y", "ies")))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

func scratchDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scratch root %s: %w", root, err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), scratchPrefix) {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
