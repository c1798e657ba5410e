package postaction

import (
	"context"
	"strings"

	"github.com/simonhull/roost/internal/exec"
	"github.com/simonhull/roost/internal/genctx"
)

// Opener is the host collaborator that shows files to the user
type Opener interface {
	OpenFiles(ctx context.Context, paths []string) error
}

// OpenFiles hands the cycle's files-to-open to the host
type OpenFiles struct {
	Opener Opener
}

func (o *OpenFiles) Kind() Kind { return KindOpenFiles }

func (o *OpenFiles) Description() string { return "open generated files" }

func (o *OpenFiles) Execute(ctx context.Context, gctx *genctx.Context) error {
	files := gctx.FilesToOpen()
	if len(files) == 0 || o.Opener == nil {
		return nil
	}
	return o.Opener.OpenFiles(ctx, files)
}

// RunCommand runs an external command in the project root. Label is the
// configured command name shown in logs and errors.
type RunCommand struct {
	Label  string
	Name   string
	Args   []string
	Runner exec.Runner
}

func (r *RunCommand) Kind() Kind { return KindRunCommand }

func (r *RunCommand) Description() string {
	argv := strings.Join(append([]string{r.Name}, r.Args...), " ")
	if r.Label == "" || r.Label == argv {
		return argv
	}
	return r.Label + " (" + argv + ")"
}

func (r *RunCommand) Execute(ctx context.Context, gctx *genctx.Context) error {
	return r.Runner.Run(ctx, gctx.ProjectPath, r.Name, r.Args...)
}
