package envcompose

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"

	"github.com/leapstack-labs/pithos/internal/target"
)

// Well-known variables and files.
const (
	PathVar        = "PATH"
	VirtualEnvVar  = "VIRTUAL_ENV"
	ProjectEnvFile = ".env"

	DefaultLibsDir = "libs"
	DefaultGenDir  = "gen"
	DefaultVenvDir = ".venv"
)

// Rules are the per-ecosystem environment conventions.
type Rules struct {
	// Lang names the libs/<lang> and gen/<lang> subdirectories.
	Lang string
	// SearchVar is the module search-path variable, empty when the
	// ecosystem has none.
	SearchVar string
	// ProjectConfig is the file whose presence means the project manages
	// its own isolation.
	ProjectConfig string
	// Venv enables monorepo virtual-environment activation.
	Venv bool
}

// RulesFor returns the rules for an ecosystem.
func RulesFor(eco target.Ecosystem) Rules {
	switch eco {
	case target.Python:
		return Rules{Lang: "python", SearchVar: "PYTHONPATH", ProjectConfig: "pyproject.toml", Venv: true}
	case target.Node:
		return Rules{Lang: "node", SearchVar: "NODE_PATH"}
	default:
		return Rules{Lang: string(eco)}
	}
}

// Options configures a Composer.
type Options struct {
	Root    string
	LibsDir string
	GenDir  string
	VenvDir string
	// Base is the inherited environment. Nil means os.Environ().
	Base []string
	// GOOS selects platform behaviour. Empty means runtime.GOOS.
	GOOS string
	// SDK locates the platform SDK root; nil disables the lookup.
	SDK    func(ctx context.Context) (string, bool)
	Logger *slog.Logger
}

// Composer builds process environments for targets.
type Composer struct {
	root    string
	libsDir string
	genDir  string
	venvDir string
	base    []string
	goos    string
	sdk     func(ctx context.Context) (string, bool)
	logger  *slog.Logger
}

// New creates a Composer.
func New(opts Options) *Composer {
	c := &Composer{
		root:    opts.Root,
		libsDir: opts.LibsDir,
		genDir:  opts.GenDir,
		venvDir: opts.VenvDir,
		base:    opts.Base,
		goos:    opts.GOOS,
		sdk:     opts.SDK,
		logger:  opts.Logger,
	}
	if c.libsDir == "" {
		c.libsDir = DefaultLibsDir
	}
	if c.genDir == "" {
		c.genDir = DefaultGenDir
	}
	if c.venvDir == "" {
		c.venvDir = DefaultVenvDir
	}
	if c.base == nil {
		c.base = os.Environ()
	}
	if c.goos == "" {
		c.goos = runtime.GOOS
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Compose layers, lowest precedence first: the inherited environment, the
// platform SDK root, monorepo search paths, virtual-environment activation
// and finally the target's own .env file.
func (c *Composer) Compose(ctx context.Context, t target.Target) (Env, error) {
	rules := RulesFor(t.Ecosystem)

	env := FromEnviron(c.base)
	env = c.withSDKRoot(ctx, env)
	env = c.withSearchPaths(env, rules)
	env = c.withVirtualEnv(env, rules, t)

	env, err := c.withProjectOverrides(env, t)
	if err != nil {
		return Env{}, err
	}
	return env, nil
}

func (c *Composer) withSDKRoot(ctx context.Context, env Env) Env {
	if c.goos != "darwin" || c.sdk == nil {
		return env
	}
	if _, ok := env.Lookup(SDKRootVar); ok {
		return env
	}
	path, ok := c.sdk(ctx)
	if !ok {
		return env
	}
	c.logger.Debug("injecting SDK root", slog.String("path", path))
	return env.With(SDKRootVar, path)
}

func (c *Composer) withSearchPaths(env Env, rules Rules) Env {
	if rules.SearchVar == "" {
		return env
	}

	var paths []string
	for _, dir := range []string{
		filepath.Join(c.root, c.libsDir, rules.Lang),
		filepath.Join(c.root, c.genDir, rules.Lang),
	} {
		if isDir(dir) {
			paths = append(paths, dir)
		}
	}
	return env.Prepend(rules.SearchVar, paths...)
}

func (c *Composer) withVirtualEnv(env Env, rules Rules, t target.Target) Env {
	if !rules.Venv {
		return env
	}
	if rules.ProjectConfig != "" && fileExists(filepath.Join(t.Dir(), rules.ProjectConfig)) {
		c.logger.Debug("project config present, skipping monorepo venv", slog.String("file", rules.ProjectConfig))
		return env.Without(VirtualEnvVar)
	}

	venv := filepath.Join(c.root, c.venvDir)
	if !isDir(venv) {
		return env
	}

	binDir := "bin"
	if c.goos == "windows" {
		binDir = "Scripts"
	}
	return env.With(VirtualEnvVar, venv).Prepend(PathVar, filepath.Join(venv, binDir))
}

func (c *Composer) withProjectOverrides(env Env, t target.Target) (Env, error) {
	path := filepath.Join(t.Dir(), ProjectEnvFile)
	overrides, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return env, nil
	}
	if err != nil {
		return Env{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	c.logger.Debug("applying project overrides", slog.String("file", path), slog.Int("vars", len(overrides)))
	return env.Merge(overrides), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
