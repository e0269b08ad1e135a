package handler

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/pithos/internal/target"
)

// Native build layout.
const (
	BuildDir            = "build"
	CompileCommandsFile = "compile_commands.json"
)

// ConfigureArgs returns the cmake configure arguments, adding the macOS
// sysroot when an SDK path is known.
func ConfigureArgs(sdkPath string) []string {
	args := []string{"-S", ".", "-B", BuildDir, "-DCMAKE_EXPORT_COMPILE_COMMANDS=ON"}
	if sdkPath != "" {
		args = append(args, "-DCMAKE_OSX_SYSROOT="+sdkPath)
	}
	return args
}

func cppBuild(ctx context.Context, d *Deps, t target.Target) error {
	if err := d.Tools.Require("cmake"); err != nil {
		return err
	}

	dir := t.Dir()
	if err := os.MkdirAll(filepath.Join(dir, BuildDir), 0o755); err != nil {
		return err
	}

	var sdkPath string
	if d.SDK != nil {
		if p, ok := d.SDK(ctx); ok {
			sdkPath = p
		}
	}

	if err := d.exec(ctx, t, dir, "cmake", ConfigureArgs(sdkPath)...); err != nil {
		return err
	}

	linkCompileCommands(d.logger(), dir)

	return d.exec(ctx, t, dir, "cmake", "--build", BuildDir)
}

func cppTest(ctx context.Context, d *Deps, t target.Target) error {
	if err := d.Tools.Require("ctest"); err != nil {
		return err
	}

	buildDir := filepath.Join(t.Dir(), BuildDir)
	if info, err := os.Stat(buildDir); err != nil || !info.IsDir() {
		return ErrBuildFirst
	}
	return d.exec(ctx, t, buildDir, "ctest", "--output-on-failure")
}

// cppRun always builds first so the artifact is never stale, then runs the
// first executable found in the build tree.
func cppRun(ctx context.Context, d *Deps, t target.Target) error {
	if err := cppBuild(ctx, d, t); err != nil {
		return err
	}

	exe, err := FindExecutable(filepath.Join(t.Dir(), BuildDir))
	if err != nil {
		return err
	}
	d.logger().Info("running executable", slog.String("path", exe))
	return d.exec(ctx, t, t.Dir(), exe)
}

// linkCompileCommands points <target>/compile_commands.json at the build
// tree's copy for editor tooling. Failure only warns.
func linkCompileCommands(logger *slog.Logger, dir string) {
	src := filepath.Join(dir, BuildDir, CompileCommandsFile)
	if _, err := os.Stat(src); err != nil {
		return
	}

	link := filepath.Join(dir, CompileCommandsFile)
	if _, err := os.Lstat(link); err == nil {
		if err := os.Remove(link); err != nil {
			logger.Warn("failed to replace compile_commands.json", slog.String("error", err.Error()))
			return
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to inspect compile_commands.json", slog.String("error", err.Error()))
		return
	}

	if err := os.Symlink(src, link); err != nil {
		logger.Warn("failed to symlink compile_commands.json", slog.String("error", err.Error()))
		return
	}
	logger.Debug("symlinked compile commands", slog.String("from", src), slog.String("to", link))
}
