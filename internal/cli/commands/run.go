package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pithos/internal/handler"
	"github.com/leapstack-labs/pithos/internal/state"
	"github.com/leapstack-labs/pithos/internal/target"
	"github.com/leapstack-labs/pithos/internal/toolchain"
)

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	return newDelegateCommand(handler.Build,
		"Build a target with its native toolchain",
		`Build a project, example or script with the toolchain its marker file
selects: CMake for C++, cargo for Rust, go for Go and npm for Node.

Go targets regenerate stale protobuf bindings before building. Python
targets have no build step.`,
		`  # Build a project by name (resolved under projects/, examples/, scripts/)
  pithos build engine

  # Build by path
  pithos build ./projects/api`)
}

// NewTestCommand creates the test command.
func NewTestCommand() *cobra.Command {
	return newDelegateCommand(handler.Test,
		"Run a target's test suite",
		`Run the test suite of a target with its native test driver.

C++ targets must be built first; their tests run through ctest inside
the build directory.`,
		`  # Test a Rust crate
  pithos test parser

  # Test a Python library with the composed environment
  pithos test libs/python/core`)
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return newDelegateCommand(handler.Run,
		"Run a target's entry point",
		`Run a target's entry point. C++ targets are configured and built
first, then the first executable found in build/ is started. Python
targets run main.py, or the script itself when a .py file is given.

The exit code of the delegated process is returned unchanged.`,
		`  # Run a C++ example
  pithos run hello

  # Run a single script
  pithos run scripts/report.py`)
}

func newDelegateCommand(op handler.Command, short, long, example string) *cobra.Command {
	return &cobra.Command{
		Use:     string(op) + " <target>",
		Short:   short,
		Long:    long,
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelegate(cmd, op, args[0])
		},
	}
}

func runDelegate(cmd *cobra.Command, op handler.Command, name string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	inv := &state.Invocation{
		Command:   string(op),
		Target:    name,
		StartedAt: time.Now(),
	}

	t, err := target.ResolveAndDetect(cmdCtx.Cwd, name)
	if err == nil {
		inv.Path = t.Path
		inv.Ecosystem = string(t.Ecosystem)
		root := cmdCtx.RootFor(t)
		cmdCtx.Logger.Debug("dispatching",
			"command", op, "target", t.Name, "ecosystem", t.Ecosystem, "root", root)
		err = handler.Dispatch(ctx, cmdCtx.HandlerDeps(root), op, t)
	}
	cmdCtx.recordInvocation(ctx, inv, err)
	return err
}

// recordInvocation writes inv to the history store. Failures are logged
// and never change the outcome of the command.
func (c *CommandContext) recordInvocation(ctx context.Context, inv *state.Invocation, runErr error) {
	if !c.Cfg.History {
		return
	}
	inv.Duration = time.Since(inv.StartedAt)
	inv.ExitCode = toolchain.ExitCode(runErr)
	if runErr != nil {
		inv.Error = runErr.Error()
	}

	store, err := c.OpenHistory()
	if err != nil {
		c.Logger.Warn("history unavailable", "path", c.Cfg.StatePath, "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	if err := store.RecordInvocation(context.WithoutCancel(ctx), inv); err != nil {
		c.Logger.Warn("failed to record invocation", "error", err)
	}
}
