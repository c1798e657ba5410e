package orchestrator

import (
	"errors"
	"fmt"

	"github.com/simonhull/roost/internal/apply"
)

// Status is the overall result of an orchestrator operation
type Status int

const (
	Succeeded Status = iota
	Failed
)

func (s Status) String() string {
	if s == Succeeded {
		return "succeeded"
	}
	return "failed"
}

// FailureKind classifies why a cycle was abandoned
type FailureKind int

const (
	GenerationFailure FailureKind = iota
	PostActionFailure
	ReconcileFailure
	ReportFailure
	Cancelled
	InternalFailure // a stage panicked
)

func (k FailureKind) String() string {
	switch k {
	case GenerationFailure:
		return "generation"
	case PostActionFailure:
		return "post-action"
	case ReconcileFailure:
		return "reconcile"
	case ReportFailure:
		return "report"
	case Cancelled:
		return "cancelled"
	case InternalFailure:
		return "internal"
	default:
		return "unknown"
	}
}

// Failure is the single error that ended a cycle
type Failure struct {
	Kind  FailureKind
	Stage string
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Outcome is what every orchestrator operation returns. A Failed outcome
// carries no reports: the cycle either completes with a report reflecting the
// true state or is abandoned.
type Outcome struct {
	Status   Status
	Failure  *Failure
	Warnings []string
	Reports  []string
	Copy     *apply.Report
}

// OK reports whether the operation succeeded
func (o *Outcome) OK() bool {
	return o.Status == Succeeded
}

// Err returns the failure as an error, or nil
func (o *Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

// stageError tags an error with the stage and kind it came from
type stageError struct {
	kind  FailureKind
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func fail(kind FailureKind, stage string, err error) error {
	if errors.Is(err, apply.ErrCancelled) {
		kind = Cancelled
	}
	return &stageError{kind: kind, stage: stage, err: err}
}

func toFailure(err error) *Failure {
	var se *stageError
	if errors.As(err, &se) {
		return &Failure{Kind: se.kind, Stage: se.stage, Err: se.err}
	}
	return &Failure{Kind: GenerationFailure, Stage: "generate", Err: err}
}
