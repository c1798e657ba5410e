// Package orchestrator sequences a generation cycle: generate items, run
// merge post-actions, then either sync the result into the project or write
// an output-only report. Each public operation is a failure boundary that
// returns a typed Outcome.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/simonhull/roost/internal/apply"
	"github.com/simonhull/roost/internal/genctx"
	"github.com/simonhull/roost/internal/logger"
	"github.com/simonhull/roost/internal/postaction"
	"github.com/simonhull/roost/internal/reconcile"
	"github.com/simonhull/roost/internal/report"
	"github.com/simonhull/roost/internal/telemetry"
	"github.com/simonhull/roost/internal/templates"
)

// Host is the wizard surface the orchestrator reports failures to
type Host interface {
	ShowError(err error)
	CancelWizard(back bool)
}

// Options tune sync and report behaviour
type Options struct {
	DryRun        bool
	Strategy      apply.Strategy // conflict resolution, nil overwrites
	Progress      io.Writer      // copy progress lines
	ConflictDiffs bool
	HTML          bool
	ReportDir     string // keeps sync summaries; empty writes them to scratch
}

// Controller drives generation cycles. It holds no cycle state; everything
// cycle-scoped lives in the *genctx.Context passed to each call.
type Controller struct {
	Catalog  *templates.Catalog
	Engine   templates.Engine
	Registry *postaction.Registry
	Executor *postaction.Executor
	Tracker  telemetry.Tracker
	Host     Host
	Logger   logger.Logger
	Options  Options
}

func (c *Controller) log() logger.Logger {
	if c.Logger == nil {
		return logger.Default()
	}
	return c.Logger
}

// GenerateNewItem composes the selection, generates every item concurrently,
// tracks telemetry and runs the generation-phase post-actions.
func (c *Controller) GenerateNewItem(ctx context.Context, gctx *genctx.Context, sel templates.UserSelection) *Outcome {
	return c.boundary(gctx, func(o *Outcome) error {
		return c.generate(ctx, gctx, sel)
	})
}

// SyncNewItem reconciles the scratch tree with the project, copies files,
// writes the sync summary and runs the finish post-actions. Files already
// copied stay copied if a later stage fails.
func (c *Controller) SyncNewItem(ctx context.Context, gctx *genctx.Context) *Outcome {
	return c.boundary(gctx, func(o *Outcome) error {
		result, err := reconcile.Reconcile(gctx)
		if err != nil {
			return fail(ReconcileFailure, "reconcile", err)
		}

		copied, err := apply.Apply(ctx, result, apply.Options{
			DryRun:   c.Options.DryRun,
			Strategy: c.Options.Strategy,
			Writer:   c.Options.Progress,
			Logger:   c.log(),
		})
		if err != nil {
			return fail(GenerationFailure, "copy", err)
		}
		o.Copy = copied
		for _, f := range copied.Failed {
			gctx.Warn("could not copy %s: %v", f.File, f.Err)
		}

		written, err := c.reports().WriteSync(gctx, result, copied)
		if err != nil {
			return fail(ReportFailure, "sync summary", err)
		}
		o.Reports = written

		return c.finish(ctx, gctx, postaction.ModeSync)
	})
}

// OutputNewItem reconciles, writes the manual steps report and runs the
// finish post-actions. The project tree is never written.
func (c *Controller) OutputNewItem(ctx context.Context, gctx *genctx.Context) *Outcome {
	return c.boundary(gctx, func(o *Outcome) error {
		result, err := reconcile.Reconcile(gctx)
		if err != nil {
			return fail(ReconcileFailure, "reconcile", err)
		}

		written, err := c.reports().WriteOutput(gctx, result)
		if err != nil {
			return fail(ReportFailure, "output summary", err)
		}
		o.Reports = written

		return c.finish(ctx, gctx, postaction.ModeOutput)
	})
}

// Cleanup ends the cycle. A refused or failed scratch deletion is tracked and
// returned as a warning.
func (c *Controller) Cleanup(gctx *genctx.Context) []string {
	if err := gctx.End(); err != nil {
		c.log().Warn("cleanup incomplete", logger.Err(err))
		if c.Tracker != nil {
			c.Tracker.TrackException(err, "Cleanup of temporary generation output")
		}
		return []string{err.Error()}
	}
	return nil
}

func (c *Controller) generate(ctx context.Context, gctx *genctx.Context, sel templates.UserSelection) error {
	if c.Catalog == nil || c.Engine == nil {
		return fail(GenerationFailure, "generate", fmt.Errorf("no template engine configured"))
	}

	items, err := templates.Compose(c.Catalog, sel)
	if err != nil {
		return fail(GenerationFailure, "compose", err)
	}

	start := time.Now()
	results, err := templates.GenerateAll(ctx, c.Engine, gctx, items)
	elapsed := time.Since(start)

	telemetry.Track(c.Tracker, telemetry.Cycle{
		Items:       items,
		Results:     results,
		Seconds:     elapsed.Seconds(),
		ProjectType: sel.ProjectType,
		Framework:   sel.Framework,
	})
	if err != nil {
		return fail(GenerationFailure, "generate", err)
	}

	c.log().Info("items generated",
		logger.F("count", len(items)),
		logger.F("elapsed", elapsed.Round(time.Millisecond)))

	actions := c.registry().Resolve(postaction.PhaseGeneration, postaction.ModeSync)
	if err := c.executor().Run(ctx, gctx, actions); err != nil {
		return fail(PostActionFailure, "generation post-actions", err)
	}
	return nil
}

func (c *Controller) finish(ctx context.Context, gctx *genctx.Context, mode postaction.Mode) error {
	actions := c.registry().Resolve(postaction.PhaseFinish, mode)
	if err := c.executor().Run(ctx, gctx, actions); err != nil {
		return fail(PostActionFailure, "finish post-actions", err)
	}
	return nil
}

// boundary runs fn and converts any error or panic into a Failed outcome,
// reporting it to the host and telemetry exactly once.
func (c *Controller) boundary(gctx *genctx.Context, fn func(o *Outcome) error) *Outcome {
	o := &Outcome{Status: Succeeded}
	err := guard(o, fn)
	o.Warnings = gctx.Warnings()
	if err == nil {
		return o
	}

	o.Status = Failed
	o.Failure = toFailure(err)
	o.Reports = nil

	c.log().Error("generation cycle abandoned",
		logger.F("stage", o.Failure.Stage),
		logger.F("kind", o.Failure.Kind.String()),
		logger.Err(o.Failure.Err))

	if o.Failure.Kind != Cancelled {
		if c.Tracker != nil {
			c.Tracker.TrackException(o.Failure.Err, "Exception in "+o.Failure.Stage)
		}
		if c.Host != nil {
			c.Host.ShowError(o.Failure)
		}
	}
	if c.Host != nil {
		c.Host.CancelWizard(false)
	}
	return o
}

func guard(o *Outcome, fn func(o *Outcome) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fail(InternalFailure, "cycle", fmt.Errorf("panic: %v", r))
		}
	}()
	return fn(o)
}

func (c *Controller) registry() *postaction.Registry {
	if c.Registry == nil {
		return &postaction.Registry{Logger: c.log()}
	}
	return c.Registry
}

func (c *Controller) executor() *postaction.Executor {
	if c.Executor == nil {
		return &postaction.Executor{Logger: c.log()}
	}
	return c.Executor
}

func (c *Controller) reports() *report.Builder {
	return &report.Builder{
		ConflictDiffs: c.Options.ConflictDiffs,
		HTML:          c.Options.HTML,
		SyncDir:       c.Options.ReportDir,
		Logger:        c.log(),
	}
}
