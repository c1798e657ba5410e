// Package apply copies reconciled output into the project tree. It is the
// only stage that writes to the project; output-only cycles never call it.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/simonhull/roost/internal/logger"
	"github.com/simonhull/roost/internal/reconcile"
)

// ErrCancelled is returned when the user cancels while resolving conflicts.
// Nothing has been copied when it is returned.
var ErrCancelled = errors.New("sync cancelled")

// Options configures Apply
type Options struct {
	DryRun   bool
	Strategy Strategy  // nil overwrites every conflicting file
	Writer   io.Writer // progress lines, defaults to os.Stdout
	Logger   logger.Logger
}

// Failure is one file that could not be copied
type Failure struct {
	File string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.File, f.Err)
}

// Report is the outcome of an apply pass
type Report struct {
	Copied  []string // project-relative names written (or that would be, on a dry run)
	Skipped []string // conflicting files kept by the conflict strategy
	Failed  []Failure
	DryRun  bool
}

// OK reports whether every selected file was copied
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// IsSkipped reports whether name was kept by the conflict strategy
func (r *Report) IsSkipped(name string) bool {
	for _, s := range r.Skipped {
		if s == name {
			return true
		}
	}
	return false
}

// Apply copies Modified, then Conflicting, then New files into the project.
// Conflicts are resolved before anything is copied. Copying is best-effort:
// a failed file is recorded and the remaining files are still copied.
func Apply(ctx context.Context, result *reconcile.Result, opts Options) (*Report, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.Strategy == nil {
		opts.Strategy = OverwriteStrategy{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}

	report := &Report{DryRun: opts.DryRun}

	// Phase 1: resolve every conflict up front so cancelling leaves the project untouched
	var conflicting []reconcile.FileInfo
	for _, f := range result.Conflicting {
		res, err := resolve(f, opts.Strategy)
		if err != nil {
			return nil, err
		}
		switch res {
		case Cancel:
			return nil, ErrCancelled
		case Skip:
			report.Skipped = append(report.Skipped, f.Name)
			log.Info("keeping project file", logger.F("file", f.Name))
		default:
			conflicting = append(conflicting, f)
		}
	}

	// Phase 2: copy
	var ops []*CopyFileOp
	for _, f := range result.Modified {
		ops = append(ops, &CopyFileOp{Name: f.Name, Source: f.OutputPath, Dest: f.ProjectPath, Verb: "Update"})
	}
	for _, f := range conflicting {
		ops = append(ops, &CopyFileOp{Name: f.Name, Source: f.OutputPath, Dest: f.ProjectPath, Verb: "Overwrite"})
	}
	for _, f := range result.New {
		ops = append(ops, &CopyFileOp{Name: f.Name, Source: f.OutputPath, Dest: f.ProjectPath, Verb: "Create"})
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, Failure{File: op.Name, Err: err})
			continue
		}

		if err := op.Validate(ctx); err != nil {
			report.Failed = append(report.Failed, Failure{File: op.Name, Err: err})
			fmt.Fprintf(opts.Writer, "✗ %s: %v\n", op.Description(), err)
			continue
		}

		if opts.DryRun {
			fmt.Fprintf(opts.Writer, "✓ [DRY RUN] %s\n", op.Description())
			report.Copied = append(report.Copied, op.Name)
			continue
		}

		if err := op.Execute(ctx); err != nil {
			report.Failed = append(report.Failed, Failure{File: op.Name, Err: err})
			fmt.Fprintf(opts.Writer, "✗ %s: %v\n", op.Description(), err)
			log.Warn("copy failed", logger.F("file", op.Name), logger.Err(err))
			continue
		}
		fmt.Fprintf(opts.Writer, "✓ %s\n", op.Description())
		report.Copied = append(report.Copied, op.Name)
	}

	return report, nil
}

func resolve(f reconcile.FileInfo, s Strategy) (Resolution, error) {
	if _, ok := s.(OverwriteStrategy); ok {
		return Overwrite, nil
	}
	if _, ok := s.(SkipStrategy); ok {
		return Skip, nil
	}

	existing, err := os.ReadFile(f.ProjectPath)
	if err != nil {
		return Cancel, fmt.Errorf("read %s: %w", f.ProjectPath, err)
	}
	newer, err := os.ReadFile(f.OutputPath)
	if err != nil {
		return Cancel, fmt.Errorf("read %s: %w", f.OutputPath, err)
	}
	return s.Resolve(Conflict{Name: f.Name, Path: f.ProjectPath, Existing: existing, Newer: newer})
}
