// Package exec runs external commands for finish-phase post-actions, with
// optional spinner feedback and prefixed output streaming.
package exec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Runner runs a command in a working directory
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// Executor runs external commands
type Executor struct {
	stdout  io.Writer
	stderr  io.Writer
	env     []string
	spinner bool

	// For mocking in tests
	commandFunc func(name string, args ...string) *exec.Cmd
}

// Options configures command execution
type Options struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Env     []string // Additional environment variables
	Prefix  string   // Prefix for every streamed output line, e.g. "  │ "
	Spinner bool     // Show a spinner instead of streaming output
}

// NewExecutor creates an executor with sensible defaults
func NewExecutor(opts *Options) *Executor {
	if opts == nil {
		opts = &Options{}
	}

	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if opts.Prefix != "" {
		stdout = NewPrefixWriter(stdout, opts.Prefix)
		stderr = NewPrefixWriter(stderr, opts.Prefix)
	}

	return &Executor{
		stdout:      stdout,
		stderr:      stderr,
		env:         opts.Env,
		spinner:     opts.Spinner,
		commandFunc: exec.Command,
	}
}

// Run executes name with args in dir. With the spinner enabled the command
// output is discarded and a one-line progress indicator is shown instead.
func (e *Executor) Run(ctx context.Context, dir, name string, args ...string) error {
	if e.spinner {
		return e.runWithSpinner(ctx, dir, name, args...)
	}
	return e.run(ctx, dir, e.stdout, e.stderr, name, args...)
}

func (e *Executor) run(ctx context.Context, dir string, stdout, stderr io.Writer, name string, args ...string) error {
	cmd := e.commandFunc(name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		if isCommandNotFound(err) {
			return enhanceError(err, name)
		}
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		<-errCh
		return fmt.Errorf("%s cancelled: %w", name, ctx.Err())
	case err := <-errCh:
		if err != nil {
			if isCommandNotFound(err) {
				return enhanceError(err, name)
			}
			return fmt.Errorf("%s failed: %w", name, err)
		}
		flush(stdout)
		flush(stderr)
		return nil
	}
}

func (e *Executor) runWithSpinner(ctx context.Context, dir, name string, args ...string) error {
	message := strings.Join(append([]string{name}, args...), " ")

	done := make(chan error, 1)
	go func() {
		done <- e.run(ctx, dir, io.Discard, io.Discard, name, args...)
	}()

	p := tea.NewProgram(newSpinnerModel(message), tea.WithOutput(e.stderr), tea.WithInput(nil))
	finished := make(chan struct{})
	go func() {
		_, _ = p.Run()
		close(finished)
	}()

	err := <-done
	p.Send(spinnerDoneMsg{err: err})

	select {
	case <-finished:
	case <-time.After(200 * time.Millisecond):
		p.Quit()
		<-finished
	}

	return err
}

func flush(w io.Writer) {
	if f, ok := w.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
}

func isCommandNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		strings.Contains(err.Error(), "executable file not found") ||
		strings.Contains(err.Error(), "command not found")
}

// enhanceError adds a hint for missing commands
func enhanceError(err error, cmd string) error {
	return fmt.Errorf("%w\n💡 Command '%s' not found. Please install it and try again", err, cmd)
}
