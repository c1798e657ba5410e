// Package telemetry reports what a generation cycle produced. Tracking is
// best effort: a failure while reporting never affects the cycle.
package telemetry

import (
	"fmt"

	"github.com/simonhull/roost/internal/logger"
	"github.com/simonhull/roost/internal/templates"
)

// ExceptionMessage tags failures raised while tracking a cycle
const ExceptionMessage = "Exception tracking telemetry for Template Generation."

// ProjectGen describes a generated project template
type ProjectGen struct {
	Template      string
	ProjectType   string
	Framework     string
	Status        templates.ResultStatus
	PagesAdded    int
	FeaturesAdded int
	Seconds       float64
}

// ItemGen describes a generated page, feature or other item template
type ItemGen struct {
	Template    string
	Type        templates.TemplateType
	ProjectType string
	Framework   string
	Status      templates.ResultStatus
}

// Tracker receives telemetry events
type Tracker interface {
	TrackProjectGen(ev ProjectGen) error
	TrackItemGen(ev ItemGen) error
	TrackException(err error, msg string)
}

// Cycle groups what Track needs about one generation cycle
type Cycle struct {
	Items       []templates.GenInfo
	Results     map[string]templates.Result
	Seconds     float64
	ProjectType string
	Framework   string
}

// Track emits one event per generated item. Project templates carry the
// cycle's page and feature counts and elapsed time. Any error or panic is
// reported through TrackException and swallowed.
func Track(t Tracker, c Cycle) {
	if t == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			t.TrackException(fmt.Errorf("panic: %v", r), ExceptionMessage)
		}
	}()

	if err := track(t, c); err != nil {
		t.TrackException(err, ExceptionMessage)
	}
}

func track(t Tracker, c Cycle) error {
	pages, features := 0, 0
	for _, it := range c.Items {
		if it.Template == nil {
			continue
		}
		switch it.Template.TemplateType() {
		case templates.TypePage:
			pages++
		case templates.TypeFeature:
			features++
		}
	}

	for _, it := range c.Items {
		if it.Template == nil {
			continue
		}

		res, ok := c.Results[it.Key()]
		if !ok {
			return fmt.Errorf("no generation result for %s", it.Key())
		}

		var err error
		if it.Template.TemplateType() == templates.TypeProject {
			err = t.TrackProjectGen(ProjectGen{
				Template:      it.Template.Identity,
				ProjectType:   c.ProjectType,
				Framework:     c.Framework,
				Status:        res.Status,
				PagesAdded:    pages,
				FeaturesAdded: features,
				Seconds:       c.Seconds,
			})
		} else {
			err = t.TrackItemGen(ItemGen{
				Template:    it.Template.Identity,
				Type:        it.Template.TemplateType(),
				ProjectType: c.ProjectType,
				Framework:   c.Framework,
				Status:      res.Status,
			})
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// LogTracker writes events to a logger at debug level and exceptions as warnings
type LogTracker struct {
	Logger logger.Logger
}

// NewLogTracker returns a tracker writing to log, or to the default logger when nil
func NewLogTracker(log logger.Logger) *LogTracker {
	if log == nil {
		log = logger.Default()
	}
	return &LogTracker{Logger: log}
}

func (l *LogTracker) TrackProjectGen(ev ProjectGen) error {
	l.Logger.Debug("project generated",
		logger.F("template", ev.Template),
		logger.F("project_type", ev.ProjectType),
		logger.F("framework", ev.Framework),
		logger.F("status", ev.Status.String()),
		logger.F("pages", ev.PagesAdded),
		logger.F("features", ev.FeaturesAdded),
		logger.F("seconds", ev.Seconds),
	)
	return nil
}

func (l *LogTracker) TrackItemGen(ev ItemGen) error {
	l.Logger.Debug("item generated",
		logger.F("template", ev.Template),
		logger.F("type", ev.Type.String()),
		logger.F("project_type", ev.ProjectType),
		logger.F("framework", ev.Framework),
		logger.F("status", ev.Status.String()),
	)
	return nil
}

func (l *LogTracker) TrackException(err error, msg string) {
	l.Logger.Warn(msg, logger.Err(err))
}

// Nop discards everything
type Nop struct{}

func (Nop) TrackProjectGen(ProjectGen) error { return nil }
func (Nop) TrackItemGen(ItemGen) error { return nil }
func (Nop) TrackException(error, string) {}
