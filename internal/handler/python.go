package handler

import (
	"context"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/pithos/internal/protosync"
	"github.com/leapstack-labs/pithos/internal/target"
)

const pythonEntryPoint = "main.py"

// launcher prefers `uv run`, which resolves dependencies itself, and falls
// back to a bare python3.
func launcher(d *Deps) ([]string, error) {
	if d.Tools.Has("uv") {
		return []string{"uv", "run"}, nil
	}
	if err := d.Tools.Require("python3"); err != nil {
		return nil, err
	}
	return []string{"python3"}, nil
}

func pythonRun(ctx context.Context, d *Deps, t target.Target) error {
	prefix, err := launcher(d)
	if err != nil {
		return err
	}
	d.syncProtos(ctx, protosync.LangPython)

	var script string
	switch {
	case t.IsFile:
		script = filepath.Base(t.Path)
	case fileExists(filepath.Join(t.Path, pythonEntryPoint)):
		script = pythonEntryPoint
	default:
		return ErrNoEntryPoint
	}

	args := append(append([]string{}, prefix[1:]...), script)
	return d.exec(ctx, t, t.Dir(), prefix[0], args...)
}

func pythonTest(ctx context.Context, d *Deps, t target.Target) error {
	prefix, err := launcher(d)
	if err != nil {
		return err
	}
	d.syncProtos(ctx, protosync.LangPython)

	args := append(append([]string{}, prefix[1:]...), "-m", "unittest", "discover")
	return d.exec(ctx, t, t.Dir(), prefix[0], args...)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
