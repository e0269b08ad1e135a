package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pithos/internal/cli/config"
	"github.com/leapstack-labs/pithos/internal/cli/output"
	"github.com/leapstack-labs/pithos/internal/envcompose"
	"github.com/leapstack-labs/pithos/internal/handler"
	"github.com/leapstack-labs/pithos/internal/protosync"
	"github.com/leapstack-labs/pithos/internal/repo"
	"github.com/leapstack-labs/pithos/internal/state"
	"github.com/leapstack-labs/pithos/internal/target"
	"github.com/leapstack-labs/pithos/internal/toolchain"
)

// Toolbox replaces the process-level collaborators of a command. Zero
// fields fall back to the real implementation.
type Toolbox struct {
	Runner   toolchain.Runner
	LookPath toolchain.LookPathFunc
	// Cwd is where target names are resolved from.
	Cwd string
	// Environ is the inherited child environment.
	Environ []string
	GOOS    string
}

type toolboxKey struct{}

// WithToolbox stores tb in ctx for NewCommandContext.
func WithToolbox(ctx context.Context, tb *Toolbox) context.Context {
	return context.WithValue(ctx, toolboxKey{}, tb)
}

func toolboxFrom(ctx context.Context) *Toolbox {
	if tb, ok := ctx.Value(toolboxKey{}).(*Toolbox); ok && tb != nil {
		return tb
	}
	return &Toolbox{}
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Runner   toolchain.Runner
	Tools    *toolchain.Tools
	Cwd      string
	GOOS     string

	environ []string
	cmd     *cobra.Command
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	tb := toolboxFrom(ctx)
	logger := config.GetLogger(ctx)

	cwd := tb.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cwd = wd
	}

	cfg := config.FromContext(ctx)
	if cfg == nil {
		loaded, err := config.LoadConfigFrom(cwd, "", nil)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}

	runner := tb.Runner
	if runner == nil {
		runner = toolchain.NewExecRunner(logger)
	}
	goos := tb.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
		Runner:   runner,
		Tools:    toolchain.NewTools(tb.LookPath, cfg.Hints),
		Cwd:      cwd,
		GOOS:     goos,
		environ:  tb.Environ,
		cmd:      cmd,
	}, nil
}

// RootFor returns the monorepo root owning t: the configured root when one
// was given, otherwise the nearest ancestor of t holding the sentinel.
func (c *CommandContext) RootFor(t target.Target) string {
	if c.Cfg.Root != "" {
		return c.Cfg.ProjectRoot
	}
	return repo.FindRoot(t.Dir(), c.Cfg.Sentinel)
}

// SDK returns the platform SDK locator.
func (c *CommandContext) SDK() func(ctx context.Context) (string, bool) {
	return envcompose.SDKLocator{GOOS: c.GOOS, Runner: c.Runner}.Locate
}

// Syncer creates a proto syncer for root.
func (c *CommandContext) Syncer(root string) *protosync.Syncer {
	return protosync.New(protosync.Options{
		Root:      root,
		IDLDir:    c.Cfg.IDLDir,
		GenDir:    c.Cfg.GenDir,
		Generator: c.Cfg.Generator,
		Runner:    c.Runner,
		Logger:    c.Logger,
	})
}

// HandlerDeps wires the handler collaborators for root.
func (c *CommandContext) HandlerDeps(root string) *handler.Deps {
	sdk := c.SDK()
	return &handler.Deps{
		Runner: c.Runner,
		Tools:  c.Tools,
		Syncer: c.Syncer(root),
		Composer: envcompose.New(envcompose.Options{
			Root:    root,
			LibsDir: c.Cfg.LibsDir,
			GenDir:  c.Cfg.GenDir,
			VenvDir: c.Cfg.VenvDir,
			Base:    c.environ,
			GOOS:    c.GOOS,
			SDK:     sdk,
			Logger:  c.Logger,
		}),
		SDK:    sdk,
		Logger: c.Logger,
		Stdout: c.cmd.OutOrStdout(),
		Stderr: c.cmd.ErrOrStderr(),
	}
}

// OpenHistory opens the invocation store at the configured path.
func (c *CommandContext) OpenHistory() (*state.SQLiteStore, error) {
	return state.OpenStore(c.Cfg.StatePath, c.Logger)
}
