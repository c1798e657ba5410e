package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/simonhull/roost/internal/config"
	"github.com/simonhull/roost/internal/logger"
	"github.com/simonhull/roost/internal/output"
	"github.com/simonhull/roost/internal/project"
	"github.com/spf13/cobra"
)

// workspace is the resolved project and configuration a command runs against
type workspace struct {
	Project *project.Info
	Config  *config.Config
	Logger  logger.Logger
}

// loadWorkspace resolves --project and --config, applies --set overrides and
// configures the default logger from log.level.
func loadWorkspace(cmd *cobra.Command, overrides []string) (*workspace, error) {
	dir, _ := cmd.Flags().GetString("project")
	cfgPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	info, err := project.Detect(dir)
	if err != nil {
		return nil, fmt.Errorf("detecting project: %w", err)
	}

	cfg, err := config.Load(info.Root, cfgPath, overrides...)
	if err != nil {
		return nil, err
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if verbose {
		level = logger.LevelDebug
	}
	log := logger.NewLogger(level, cmd.ErrOrStderr())
	logger.SetDefault(log)

	// roost.yml project settings win over detection
	if cfg.Project.Type != "" {
		info.Type = cfg.Project.Type
	}
	if cfg.Project.Framework != "" {
		info.Framework = cfg.Project.Framework
	}

	output.Verbose(fmt.Sprintf("Project: %s (type=%q framework=%q module=%q)", info.Root, info.Type, info.Framework, info.Module))

	return &workspace{Project: info, Config: cfg, Logger: log}, nil
}

// templatesDir resolves the catalog path relative to the project root
func (w *workspace) templatesDir(flag string) string {
	p := w.Config.Templates.Path
	if flag != "" {
		p = flag
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.Project.Root, p)
}

// cliHost reports orchestrator failures on the terminal
type cliHost struct{}

func (cliHost) ShowError(err error) {
	output.Error(err.Error())
}

func (cliHost) CancelWizard(bool) {
	output.Verbose("generation cycle abandoned")
}

// cliOpener lists the files a user should review once a cycle completes
type cliOpener struct{}

func (cliOpener) OpenFiles(_ context.Context, paths []string) error {
	output.Info("Review:")
	for _, p := range paths {
		output.Step(p)
	}
	return nil
}
