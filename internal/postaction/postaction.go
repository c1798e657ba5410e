// Package postaction implements the post-actions that run after templates
// render: merging recorded fragments into generated or project files,
// running configured commands against the project and handing files to the
// host to open. Actions form a closed set identified by Kind and always run
// sequentially in the order the Registry resolves them.
package postaction

import (
	"context"
	"fmt"

	"github.com/simonhull/roost/internal/genctx"
)

// Kind identifies a post-action variant
type Kind int

const (
	KindMergeFile Kind = iota
	KindRunCommand
	KindOpenFiles
)

func (k Kind) String() string {
	switch k {
	case KindMergeFile:
		return "merge-file"
	case KindRunCommand:
		return "run-command"
	case KindOpenFiles:
		return "open-files"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Phase selects when a post-action runs
type Phase int

const (
	// PhaseGeneration runs after templates render and before reconciliation
	PhaseGeneration Phase = iota
	// PhaseFinish runs at the end of a sync or output cycle
	PhaseFinish
)

func (p Phase) String() string {
	if p == PhaseGeneration {
		return "generation"
	}
	return "finish"
}

// Mode selects between applying output to the project and only documenting it
type Mode int

const (
	ModeSync Mode = iota
	ModeOutput
)

func (m Mode) String() string {
	if m == ModeOutput {
		return "output"
	}
	return "sync"
}

// Action is one executable post-action
type Action interface {
	Kind() Kind
	Description() string
	Execute(ctx context.Context, gctx *genctx.Context) error
}

// Error reports which action in a sequence failed
type Error struct {
	Index       int
	Kind        Kind
	Description string
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("post-action %d (%s: %s) failed: %v", e.Index+1, e.Kind, e.Description, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
