package postaction

import (
	"context"

	"github.com/simonhull/roost/internal/exec"
	"github.com/simonhull/roost/internal/genctx"
	"github.com/simonhull/roost/internal/logger"
)

// Command is a configured finish command, e.g. {Name: "gofmt", Run: ["gofmt", "-w", "."]}
type Command struct {
	Name string
	Run  []string
}

// Registry resolves the post-actions for a phase. It holds no cycle state.
type Registry struct {
	Commands []Command
	Runner   exec.Runner
	Opener   Opener
	Logger   logger.Logger
}

// Resolve returns the ordered post-actions for phase in mode. Commands only
// run in sync mode; output mode never touches the project.
func (r *Registry) Resolve(phase Phase, mode Mode) []Action {
	if phase == PhaseGeneration {
		return []Action{&MergeFile{Logger: r.Logger}}
	}

	var actions []Action
	if mode == ModeSync && r.Runner != nil {
		for _, c := range r.Commands {
			if len(c.Run) == 0 {
				continue
			}
			actions = append(actions, &RunCommand{Label: c.Name, Name: c.Run[0], Args: c.Run[1:], Runner: r.Runner})
		}
	}
	return append(actions, &OpenFiles{Opener: r.Opener})
}

// Executor runs post-actions one at a time
type Executor struct {
	Logger logger.Logger
}

// Run executes actions in order. The first failure stops the sequence and is
// returned as *Error; actions that already ran are not undone.
func (e *Executor) Run(ctx context.Context, gctx *genctx.Context, actions []Action) error {
	log := e.Logger
	if log == nil {
		log = logger.Default()
	}

	for i, a := range actions {
		log.Debug("running post-action",
			logger.F("index", i+1),
			logger.F("kind", a.Kind().String()),
			logger.F("action", a.Description()))

		if err := a.Execute(ctx, gctx); err != nil {
			log.Error("post-action failed", logger.F("kind", a.Kind().String()), logger.Err(err))
			return &Error{Index: i, Kind: a.Kind(), Description: a.Description(), Err: err}
		}
	}
	return nil
}
