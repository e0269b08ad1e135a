// Package compdb builds a monorepo-wide compile_commands.json by configuring
// every CMake project and concatenating the per-project databases.
package compdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/pithos/internal/handler"
	"github.com/leapstack-labs/pithos/internal/toolchain"
)

// SearchDirs are the root-relative directories scanned for CMake projects.
var SearchDirs = []string{"projects", filepath.Join("libs", "cpp"), filepath.Join("examples", "cpp")}

// excludedParts are path components that mark generated trees.
var excludedParts = map[string]bool{"build": true, "gen": true}

// Options configures a Merger.
type Options struct {
	Root   string
	Runner toolchain.Runner
	// SDK returns the platform sysroot, if any.
	SDK    func(ctx context.Context) (string, bool)
	Logger *slog.Logger
	// Jobs limits concurrent configures. Defaults to runtime.NumCPU().
	Jobs int
}

// Merger configures CMake projects and merges their databases.
type Merger struct {
	root   string
	runner toolchain.Runner
	sdk    func(ctx context.Context) (string, bool)
	logger *slog.Logger
	jobs   int
}

// Failure is a project whose configure step failed.
type Failure struct {
	Dir    string
	Output string
	Err    error
}

// Report summarizes a merge.
type Report struct {
	Projects []string
	Merged   []string
	Failed   []Failure
	Entries  int
	Output   string
}

// New creates a Merger.
func New(opts Options) *Merger {
	m := &Merger{
		root:   opts.Root,
		runner: opts.Runner,
		sdk:    opts.SDK,
		logger: opts.Logger,
		jobs:   opts.Jobs,
	}
	if m.jobs <= 0 {
		m.jobs = runtime.NumCPU()
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	return m
}

// Scan returns the sorted, deduplicated directories holding a CMakeLists.txt.
func (m *Merger) Scan() ([]string, error) {
	seen := make(map[string]bool)

	for _, rel := range SearchDirs {
		base := filepath.Join(m.root, rel)
		if info, err := os.Stat(base); err != nil || !info.IsDir() {
			continue
		}
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != base && excludedParts[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name() == "CMakeLists.txt" {
				seen[filepath.Dir(path)] = true
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", rel, err)
		}
	}

	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Merge configures every scanned project in parallel and writes the merged
// database to <root>/compile_commands.json. Individual failures are recorded
// in the report and do not stop the others.
func (m *Merger) Merge(ctx context.Context) (*Report, error) {
	dirs, err := m.Scan()
	if err != nil {
		return nil, err
	}
	m.logger.Info("found cmake projects", slog.Int("count", len(dirs)))

	var sdkPath string
	if m.sdk != nil {
		if p, ok := m.sdk(ctx); ok {
			sdkPath = p
		}
	}

	type outcome struct {
		db      string
		failure *Failure
	}
	outcomes := make([]outcome, len(dirs))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(m.jobs)

	for i, dir := range dirs {
		eg.Go(func() error {
			db, failure := m.configure(egctx, dir, sdkPath)
			outcomes[i] = outcome{db: db, failure: failure}
			return egctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Projects: dirs, Output: filepath.Join(m.root, handler.CompileCommandsFile)}
	entries := []json.RawMessage{}

	for _, o := range outcomes {
		if o.failure != nil {
			report.Failed = append(report.Failed, *o.failure)
			continue
		}
		if o.db == "" {
			continue
		}
		loaded, err := readDatabase(o.db)
		if err != nil {
			m.logger.Warn("failed to read compilation database", slog.String("path", o.db), slog.String("error", err.Error()))
			continue
		}
		entries = append(entries, loaded...)
		report.Merged = append(report.Merged, o.db)
	}
	report.Entries = len(entries)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode compilation database: %w", err)
	}
	if err := os.WriteFile(report.Output, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", report.Output, err)
	}

	m.logger.Info("wrote compilation database",
		slog.String("path", report.Output),
		slog.Int("entries", report.Entries),
		slog.Int("failed", len(report.Failed)))
	return report, nil
}

// configure runs cmake for dir with output captured. It returns the path of
// the exported database, or "" when cmake produced none.
func (m *Merger) configure(ctx context.Context, dir, sdkPath string) (string, *Failure) {
	var out bytes.Buffer
	err := m.runner.Run(ctx, toolchain.Command{
		Name:   "cmake",
		Args:   handler.ConfigureArgs(sdkPath),
		Dir:    dir,
		Stdout: &out,
		Stderr: &out,
	})
	if err != nil {
		m.logger.Debug("configure failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return "", &Failure{Dir: dir, Output: out.String(), Err: err}
	}

	db := filepath.Join(dir, handler.BuildDir, handler.CompileCommandsFile)
	if _, err := os.Stat(db); err != nil {
		return "", nil
	}
	return db, nil
}

func readDatabase(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid compilation database: %w", err)
	}
	return entries, nil
}
