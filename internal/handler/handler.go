// Package handler delegates build, test and run to each ecosystem's native
// tool.
//
// Handlers are a closed table keyed by target.Ecosystem; each entry holds
// the three actions for that ecosystem. Every action is a one-shot pipeline:
// tool availability check, optional proto sync, environment composition,
// child execution, exit-code propagation.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/leapstack-labs/pithos/internal/envcompose"
	"github.com/leapstack-labs/pithos/internal/protosync"
	"github.com/leapstack-labs/pithos/internal/target"
	"github.com/leapstack-labs/pithos/internal/toolchain"
)

// Command is one of the orchestrator's verbs.
type Command string

// Supported commands.
const (
	Build Command = "build"
	Test  Command = "test"
	Run   Command = "run"
)

// Commands lists every command.
var Commands = []Command{Build, Test, Run}

// Precondition and lookup failures surfaced by handlers.
var (
	ErrBuildFirst   = errors.New("build directory not found, run build first")
	ErrNoExecutable = errors.New("no executable found in build directory")
	ErrNoEntryPoint = errors.New("no main.py found, point to a specific script file to run it")
)

// UnsupportedError is returned for a command an ecosystem does not implement.
type UnsupportedError struct {
	Ecosystem target.Ecosystem
	Command   Command
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s command not implemented for %s targets", e.Command, e.Ecosystem.DisplayName())
}

// Deps are the collaborators shared by every handler.
type Deps struct {
	Runner   toolchain.Runner
	Tools    *toolchain.Tools
	Syncer   *protosync.Syncer
	Composer *envcompose.Composer
	// SDK locates the platform SDK for build-system sysroot flags.
	SDK    func(ctx context.Context) (string, bool)
	Logger *slog.Logger

	// Stdout and Stderr receive child output; nil inherits the parent's.
	Stdout io.Writer
	Stderr io.Writer
}

// Action performs one command for a target.
type Action func(ctx context.Context, d *Deps, t target.Target) error

// Handler is the behaviour table for one ecosystem.
type Handler struct {
	Ecosystem target.Ecosystem
	Build     Action
	Test      Action
	Run       Action
}

var handlers = map[target.Ecosystem]Handler{
	target.Cpp:    {Ecosystem: target.Cpp, Build: cppBuild, Test: cppTest, Run: cppRun},
	target.Rust:   {Ecosystem: target.Rust, Build: cargo("build"), Test: cargo("test"), Run: cargo("run")},
	target.Go:     {Ecosystem: target.Go, Build: goBuild, Test: goTest, Run: goRun},
	target.Python: {Ecosystem: target.Python, Build: unsupported(target.Python, Build), Test: pythonTest, Run: pythonRun},
	target.Node:   {Ecosystem: target.Node, Build: npm("install"), Test: npm("test"), Run: npm("start")},
}

// For returns the handler for an ecosystem.
func For(eco target.Ecosystem) (Handler, bool) {
	h, ok := handlers[eco]
	return h, ok
}

// Action returns the action implementing cmd.
func (h Handler) Action(cmd Command) (Action, error) {
	switch cmd {
	case Build:
		return h.Build, nil
	case Test:
		return h.Test, nil
	case Run:
		return h.Run, nil
	default:
		return nil, fmt.Errorf("unknown command %q (expected build, test or run)", cmd)
	}
}

// Dispatch runs cmd for a detected target.
func Dispatch(ctx context.Context, d *Deps, cmd Command, t target.Target) error {
	h, ok := For(t.Ecosystem)
	if !ok {
		return &target.NoHandlerError{Path: t.Path}
	}
	action, err := h.Action(cmd)
	if err != nil {
		return err
	}
	d.logger().Debug("dispatching",
		slog.String("command", string(cmd)),
		slog.String("ecosystem", string(t.Ecosystem)),
		slog.String("path", t.Path))
	return action(ctx, d, t)
}

func unsupported(eco target.Ecosystem, cmd Command) Action {
	return func(context.Context, *Deps, target.Target) error {
		return &UnsupportedError{Ecosystem: eco, Command: cmd}
	}
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// syncProtos runs the staleness check for lang. Failures are warnings.
func (d *Deps) syncProtos(ctx context.Context, lang string) {
	if d.Syncer == nil {
		return
	}
	res, err := d.Syncer.Sync(ctx, lang)
	if err != nil {
		d.logger().Warn("proto sync skipped", slog.String("lang", lang), slog.String("error", err.Error()))
		return
	}
	if res.Warning != nil {
		d.logger().Warn(res.Warning.Error(), slog.String("lang", lang))
	}
}

// exec composes the environment for t and runs name in dir.
func (d *Deps) exec(ctx context.Context, t target.Target, dir, name string, args ...string) error {
	env, err := d.Composer.Compose(ctx, t)
	if err != nil {
		return err
	}
	return d.Runner.Run(ctx, toolchain.Command{
		Name:   name,
		Args:   args,
		Dir:    dir,
		Env:    env.Environ(),
		Stdout: d.Stdout,
		Stderr: d.Stderr,
	})
}

// simple returns an action that requires tool and runs it with args in the
// target directory.
func simple(tool string, args ...string) Action {
	return func(ctx context.Context, d *Deps, t target.Target) error {
		if err := d.Tools.Require(tool); err != nil {
			return err
		}
		return d.exec(ctx, t, t.Dir(), tool, args...)
	}
}

func cargo(sub string) Action {
	return simple("cargo", sub)
}

func npm(sub string) Action {
	return simple("npm", sub)
}
