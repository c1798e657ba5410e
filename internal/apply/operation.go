package apply

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/simonhull/roost/internal/fsutil"
)

// Operation is a project-tree mutation that can be checked before it runs.
// Description is a one-line summary for output, e.g. "Create views/settings.go".
type Operation interface {
	Validate(ctx context.Context) error
	Execute(ctx context.Context) error
	Description() string
}

// CopyFileOp copies one generated file over its project destination.
//
// Validation checks the source is a readable regular file and the destination
// is not a directory. Execution creates parent directories, then replaces the
// destination atomically.
type CopyFileOp struct {
	Name   string      // project-relative name for output
	Source string      // scratch path
	Dest   string      // project path
	Mode   fs.FileMode // permission override; zero keeps the source's
	Verb   string      // "Create", "Update" or "Overwrite"
}

func (op *CopyFileOp) Validate(ctx context.Context) error {
	info, err := os.Stat(op.Source)
	if err != nil {
		return fmt.Errorf("generated file %s: %w", op.Name, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("generated file %s is not a regular file", op.Name)
	}

	if info, err := os.Stat(op.Dest); err == nil && info.IsDir() {
		return fmt.Errorf("destination %s is a directory", op.Dest)
	}

	return nil
}

func (op *CopyFileOp) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fsutil.CopyFile(op.Source, op.Dest); err != nil {
		return err
	}
	if op.Mode != 0 {
		return os.Chmod(op.Dest, op.Mode)
	}
	return nil
}

func (op *CopyFileOp) Description() string {
	verb := op.Verb
	if verb == "" {
		verb = "Copy"
	}
	return fmt.Sprintf("%s %s", verb, op.Name)
}
