// Package toolchain runs external build tools and checks that they are installed.
//
// Every external invocation made by pithos (cmake, cargo, go, uv, npm, the
// proto generator) goes through a Runner so that handlers can be exercised
// in tests with a recording fake instead of real child processes.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Command describes a single child process invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is the complete child environment in KEY=VALUE form.
	// A nil Env inherits the parent environment.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for log output.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes external commands.
type Runner interface {
	// Run executes the command and blocks until it exits.
	// A non-zero exit status is returned as *ExitError.
	Run(ctx context.Context, c Command) error
	// Output executes the command and returns its standard output.
	Output(ctx context.Context, c Command) ([]byte, error)
}

// ExitError reports a child process that exited with a non-zero status.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates a Runner backed by real child processes.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ExecRunner{logger: logger}
}

// Run executes c with stdio defaulting to the parent's streams.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := r.command(ctx, c)
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	r.logger.Info("running", slog.String("cmd", c.String()), slog.String("dir", displayDir(c.Dir)))
	return wrapExit(c, cmd.Run())
}

// Output executes c and captures stdout. Stderr is captured into the
// returned error message when the command fails.
func (r *ExecRunner) Output(ctx context.Context, c Command) ([]byte, error) {
	cmd := r.command(ctx, c)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if c.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, c.Stderr)
	}

	r.logger.Debug("capturing", slog.String("cmd", c.String()), slog.String("dir", displayDir(c.Dir)))
	out, err := cmd.Output()
	if err != nil {
		return out, wrapExit(c, err)
	}
	return out, nil
}

func (r *ExecRunner) command(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...) // #nosec G204 -- commands come from handler tables
	cmd.Dir = c.Dir
	if c.Env != nil {
		cmd.Env = c.Env
	}
	return cmd
}

func wrapExit(c Command, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal.
			code = 1
		}
		return &ExitError{Command: c.String(), Code: code}
	}
	return fmt.Errorf("failed to start %s: %w", c.Name, err)
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

// ExitCode maps an error returned by pithos to a process exit status.
// Delegated tool failures keep the child's code; everything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}
