// Package genctx holds the state of one generation cycle: where output is
// staged, which project it targets and the merge intents recorded while
// generating. A Context is created by Begin and torn down by End; nothing in
// the pipeline reads cycle state from globals.
package genctx

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/simonhull/roost/internal/fsutil"
)

// Context is the per-cycle generation state passed to every stage.
type Context struct {
	ID          string
	ProjectName string
	ProjectPath string // absolute target project root
	OutputPath  string // absolute scratch output root
	Ledger      *Ledger

	// TempRoot bounds cleanup: the scratch tree is deleted only below it.
	TempRoot string

	mu           sync.Mutex
	filesToOpen  []string
	warnings     []string
	projectItems []string
	failedMerges map[string]bool
}

// Begin starts a cycle targeting projectPath with a fresh scratch directory
// created below scratchRoot.
func Begin(projectPath, scratchRoot string) (*Context, error) {
	absProject, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	info, err := os.Stat(absProject)
	if err != nil {
		return nil, fmt.Errorf("project path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path %s is not a directory", absProject)
	}

	if err := fsutil.EnsureDir(scratchRoot); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	out := filepath.Join(scratchRoot, "roost-"+id)
	if err := os.Mkdir(out, 0755); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return nil, fmt.Errorf("resolve scratch path: %w", err)
	}

	return &Context{
		ID:          id,
		ProjectName: filepath.Base(absProject),
		ProjectPath: absProject,
		OutputPath:  absOut,
		Ledger:      NewLedger(),
		TempRoot:    os.TempDir(),
	}, nil
}

// ProjectFile maps a slash-separated project-relative name into the project tree
func (c *Context) ProjectFile(rel string) string {
	return filepath.Join(c.ProjectPath, filepath.FromSlash(rel))
}

// OutputFile maps a slash-separated project-relative name into the scratch tree
func (c *Context) OutputFile(rel string) string {
	return filepath.Join(c.OutputPath, filepath.FromSlash(rel))
}

// AddFileToOpen registers a file the host should open once the cycle completes
func (c *Context) AddFileToOpen(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filesToOpen = append(c.filesToOpen, path)
}

// FilesToOpen returns the registered files in order
func (c *Context) FilesToOpen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.filesToOpen...)
}

// Warn records a non-fatal problem for the cycle
func (c *Context) Warn(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// Warnings returns the recorded warnings
func (c *Context) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.warnings...)
}

// AddProjectItem records a generated item name (template identity + instance)
func (c *Context) AddProjectItem(item string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projectItems = append(c.projectItems, item)
}

// ProjectItems returns the generated item names
func (c *Context) ProjectItems() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.projectItems...)
}

// MarkMergeFailed records that a merge into the project-relative target did
// not complete, so its scratch copy must not be treated as merged.
func (c *Context) MarkMergeFailed(rel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failedMerges == nil {
		c.failedMerges = map[string]bool{}
	}
	c.failedMerges[NormalizeKey(rel)] = true
}

// MergeFailed reports whether any merge into rel failed this cycle
func (c *Context) MergeFailed(rel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failedMerges[NormalizeKey(rel)]
}

// End clears the cycle's collections and deletes the scratch tree when it
// lives below TempRoot. It returns the deletion error, if any; the caller
// decides whether to surface it. Collections are cleared regardless.
func (c *Context) End() error {
	c.Ledger.Clear()

	c.mu.Lock()
	c.warnings = nil
	c.projectItems = nil
	c.filesToOpen = nil
	c.failedMerges = nil
	c.mu.Unlock()

	if err := fsutil.SafeDeleteDirectory(c.OutputPath, c.TempRoot); err != nil {
		return fmt.Errorf("the folder %s can't be deleted: %w", c.OutputPath, err)
	}
	return nil
}
