package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/simonhull/roost/internal/apply"
	"github.com/simonhull/roost/internal/exec"
	"github.com/simonhull/roost/internal/genctx"
	"github.com/simonhull/roost/internal/orchestrator"
	"github.com/simonhull/roost/internal/output"
	"github.com/simonhull/roost/internal/postaction"
	"github.com/simonhull/roost/internal/telemetry"
	"github.com/simonhull/roost/internal/templates"
	"github.com/spf13/cobra"
)

// GenerateCmd creates and returns the 'generate' command
func GenerateCmd() *cobra.Command {
	var outputOnly, dryRun, keepOutput bool
	var conflicts, templatesPath string
	var sets, params []string

	cmd := &cobra.Command{
		Use:   "generate <template>[:name]...",
		Short: "Generate items and apply them to the project",
		Long: `Render one or more templates and apply the result to the project.

Each argument selects a template from the catalog, optionally followed by
an instance name. Files that do not exist yet are created, files extended by
merge fragments are updated and files that already exist without a merge
are resolved with the conflict strategy.

Conflict strategies (--conflicts or sync.conflicts in roost.yml):
  overwrite  - replace existing files (default)
  skip       - keep existing files
  prompt     - ask for each file
  diff       - show the diff, then ask

Examples:
  roost generate page:Settings
  roost generate page:Settings feature:Auth --conflicts prompt
  roost generate page:Settings --output-only
  roost generate page:Settings --dry-run --set report.html=true`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := append([]string(nil), sets...)
			if cmd.Flags().Changed("conflicts") {
				overrides = append(overrides, "sync.conflicts="+conflicts)
			}
			if cmd.Flags().Changed("dry-run") {
				overrides = append(overrides, fmt.Sprintf("sync.dry_run=%t", dryRun))
			}
			if cmd.Flags().Changed("keep-output") {
				overrides = append(overrides, fmt.Sprintf("scratch.keep=%t", keepOutput))
			}

			ws, err := loadWorkspace(cmd, overrides)
			if err != nil {
				return err
			}

			sel, err := selection(ws, args, params)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runGenerate(ctx, cmd, ws, sel, templatesPath, outputOnly)
		},
	}

	cmd.Flags().BoolVar(&outputOnly, "output-only", false, "Write the manual steps report instead of changing the project")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be copied without writing to the project")
	cmd.Flags().BoolVar(&keepOutput, "keep-output", false, "Keep the scratch directory after a sync")
	cmd.Flags().StringVar(&conflicts, "conflicts", "", "Conflict strategy: overwrite, skip, prompt or diff")
	cmd.Flags().StringVar(&templatesPath, "templates", "", "Template catalog directory (default: templates.path)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a config value, e.g. --set report.html=true")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Template parameter, e.g. --param route=/settings")

	return cmd
}

func selection(ws *workspace, args, params []string) (templates.UserSelection, error) {
	sel := templates.UserSelection{
		ProjectType: ws.Project.Type,
		Framework:   ws.Project.Framework,
		Parameters:  map[string]string{},
	}

	for _, a := range args {
		item, err := templates.ParseItem(a)
		if err != nil {
			return sel, err
		}
		sel.Items = append(sel.Items, item)
	}

	for _, p := range params {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return sel, fmt.Errorf("invalid parameter %q, expected key=value", p)
		}
		sel.Parameters[strings.TrimSpace(k)] = v
	}

	return sel, nil
}

func runGenerate(ctx context.Context, cmd *cobra.Command, ws *workspace, sel templates.UserSelection, templatesPath string, outputOnly bool) error {
	cfg := ws.Config

	catalog, err := templates.LoadCatalog(ws.templatesDir(templatesPath))
	if err != nil {
		return err
	}

	strategy, err := apply.NewStrategy(cfg.Sync.Conflicts, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	commands := make([]postaction.Command, 0, len(cfg.Finish.Commands))
	for _, c := range cfg.Finish.Commands {
		commands = append(commands, postaction.Command{Name: c.Name, Run: c.Run})
	}

	var runner exec.Runner
	if !cfg.Sync.DryRun {
		verbose, _ := cmd.Flags().GetBool("verbose")
		runner = exec.NewExecutor(&exec.Options{
			Stdout:  cmd.OutOrStdout(),
			Stderr:  cmd.ErrOrStderr(),
			Prefix:  "  │ ",
			Spinner: !verbose,
		})
	}

	ctrl := &orchestrator.Controller{
		Catalog: catalog,
		Engine:  templates.NewDirEngine(ws.Project.Module, ws.Project.Type, ws.Project.Framework),
		Registry: &postaction.Registry{
			Commands: commands,
			Runner:   runner,
			Opener:   cliOpener{},
			Logger:   ws.Logger,
		},
		Executor: &postaction.Executor{Logger: ws.Logger},
		Tracker:  telemetry.NewLogTracker(ws.Logger),
		Host:     cliHost{},
		Logger:   ws.Logger,
		Options: orchestrator.Options{
			DryRun:        cfg.Sync.DryRun,
			Strategy:      strategy,
			Progress:      cmd.OutOrStdout(),
			ConflictDiffs: cfg.Report.ConflictDiffs,
			HTML:          cfg.Report.HTML,
			ReportDir:     cfg.ReportDir(ws.Project.Root),
		},
	}

	gctx, err := genctx.Begin(ws.Project.Root, cfg.ScratchRoot())
	if err != nil {
		return err
	}
	output.Verbose("Scratch directory: " + gctx.OutputPath)

	keep := outputOnly || cfg.Scratch.Keep
	defer func() {
		if keep {
			return
		}
		for _, w := range ctrl.Cleanup(gctx) {
			output.Warn(w)
		}
	}()

	out := ctrl.GenerateNewItem(ctx, gctx, sel)
	if !out.OK() {
		return cycleError(out)
	}
	output.Step(fmt.Sprintf("Generated %d item(s) into %s", len(sel.Items), gctx.OutputPath))

	if outputOnly {
		out = ctrl.OutputNewItem(ctx, gctx)
	} else {
		out = ctrl.SyncNewItem(ctx, gctx)
	}

	for _, w := range out.Warnings {
		output.Warn(w)
	}
	if !out.OK() {
		return cycleError(out)
	}

	switch {
	case outputOnly:
		output.Success("Output written to " + gctx.OutputPath)
	case out.Copy != nil && out.Copy.DryRun:
		output.Success(fmt.Sprintf("[DRY RUN] %d file(s) would be written to %s", len(out.Copy.Copied), ws.Project.Root))
	case out.Copy != nil:
		output.Success(fmt.Sprintf("Synced %d file(s) into %s", len(out.Copy.Copied), ws.Project.Root))
	}
	return nil
}

// cycleError converts a failed outcome into the command error. A user
// cancellation is not an error.
func cycleError(out *orchestrator.Outcome) error {
	if out.Failure != nil && out.Failure.Kind == orchestrator.Cancelled {
		output.Warn("Generation cancelled, nothing was copied")
		return nil
	}
	return out.Err()
}
