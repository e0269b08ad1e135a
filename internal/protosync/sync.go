// Package protosync keeps generated protobuf bindings fresh relative to the
// .proto sources under the monorepo's idl/ directory.
//
// Freshness is decided per language from timestamps alone: the generated
// output root gen/<lang> is stale when it is missing or when any .proto file
// is newer than the directory itself. A stale language gets a full sweep,
// one generator call per .proto file, never an incremental per-file diff.
// Generation is best-effort: the first generator failure abandons the sweep
// and is reported as a warning so the requested build can still proceed.
package protosync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/pithos/internal/toolchain"
)

// Defaults mirror the monorepo layout.
const (
	DefaultIDLDir = "idl"
	DefaultGenDir = "gen"
	ProtoSuffix   = ".proto"
)

// Generated binding languages, named after their output directory under GenDir.
const (
	LangGo     = "go"
	LangPython = "python"
)

// Langs lists every generated language.
var Langs = []string{LangGo, LangPython}

// DefaultGenerator is invoked as `just gen-proto <file>` from the repo root.
var DefaultGenerator = []string{"just", "gen-proto"}

// Options configures a Syncer.
type Options struct {
	// Root is the monorepo root; IDLDir and GenDir are relative to it.
	Root   string
	IDLDir string
	GenDir string
	// Generator is the command prefix; the proto path relative to IDLDir is appended.
	Generator []string
	Runner    toolchain.Runner
	Logger    *slog.Logger
	// Now is used to stamp the output root after a sweep. Defaults to time.Now.
	Now func() time.Time
}

// Syncer checks and regenerates bindings.
type Syncer struct {
	root      string
	idlDir    string
	genDir    string
	generator []string
	runner    toolchain.Runner
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Syncer, applying defaults for unset options.
func New(opts Options) *Syncer {
	s := &Syncer{
		root:      opts.Root,
		idlDir:    opts.IDLDir,
		genDir:    opts.GenDir,
		generator: opts.Generator,
		runner:    opts.Runner,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if s.idlDir == "" {
		s.idlDir = DefaultIDLDir
	}
	if s.genDir == "" {
		s.genDir = DefaultGenDir
	}
	if len(s.generator) == 0 {
		s.generator = DefaultGenerator
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// IDLRoot returns the absolute specification-source root.
func (s *Syncer) IDLRoot() string {
	return filepath.Join(s.root, s.idlDir)
}

// OutputRoot returns the absolute generated-output root for lang.
func (s *Syncer) OutputRoot(lang string) string {
	return filepath.Join(s.root, s.genDir, lang)
}

// Status is the outcome of a staleness check.
type Status struct {
	Lang string
	// Protos are the .proto paths relative to the IDL root, slash-separated and sorted.
	Protos []string
	// Stale is true when regeneration is required.
	Stale bool
	// Reason explains the decision for logs.
	Reason string
	// NewestSource is the maximum .proto modification time.
	NewestSource time.Time
	// OutputTime is the output root's modification time (zero when missing).
	OutputTime time.Time
}

// Check decides whether lang's bindings are stale without regenerating.
func (s *Syncer) Check(lang string) (*Status, error) {
	st := &Status{Lang: lang}

	idlRoot := s.IDLRoot()
	if info, err := os.Stat(idlRoot); err != nil || !info.IsDir() {
		st.Reason = "no idl directory"
		return st, nil
	}

	protos, newest, err := collectProtos(idlRoot)
	if err != nil {
		return nil, err
	}
	if len(protos) == 0 {
		st.Reason = "no .proto files"
		return st, nil
	}
	st.Protos = protos
	st.NewestSource = newest

	info, err := os.Stat(s.OutputRoot(lang))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		st.Stale = true
		st.Reason = "output directory missing"
		return st, nil
	case err != nil:
		return nil, fmt.Errorf("failed to stat %s: %w", s.OutputRoot(lang), err)
	}

	st.OutputTime = info.ModTime()
	if newest.After(st.OutputTime) {
		st.Stale = true
		st.Reason = "sources newer than output"
		return st, nil
	}

	st.Reason = "up to date"
	return st, nil
}

// Result is the outcome of a sync.
type Result struct {
	Status
	// Generated counts successful generator invocations.
	Generated int
	// Warning is set when the sweep was abandoned after a generator failure.
	Warning error
}

// Sync regenerates lang's bindings when they are stale.
// The returned error is reserved for filesystem failures while checking;
// generator failures are reported through Result.Warning.
func (s *Syncer) Sync(ctx context.Context, lang string) (*Result, error) {
	st, err := s.Check(lang)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("proto staleness check",
		slog.String("lang", lang),
		slog.Bool("stale", st.Stale),
		slog.String("reason", st.Reason),
		slog.Int("protos", len(st.Protos)))

	if !st.Stale {
		return &Result{Status: *st}, nil
	}
	return s.regenerate(ctx, st), nil
}

// Force regenerates every .proto for lang regardless of timestamps.
func (s *Syncer) Force(ctx context.Context, lang string) (*Result, error) {
	st, err := s.Check(lang)
	if err != nil {
		return nil, err
	}
	if len(st.Protos) == 0 {
		return &Result{Status: *st}, nil
	}
	st.Stale = true
	st.Reason = "forced"
	return s.regenerate(ctx, st), nil
}

func (s *Syncer) regenerate(ctx context.Context, st *Status) *Result {
	res := &Result{Status: *st}
	started := s.now()
	s.logger.Info("IDLs changed, regenerating code", slog.String("lang", st.Lang), slog.Int("protos", len(st.Protos)))

	for _, rel := range st.Protos {
		args := append(append([]string{}, s.generator[1:]...), rel)
		err := s.runner.Run(ctx, toolchain.Command{
			Name:   s.generator[0],
			Args:   args,
			Dir:    s.root,
			Stdout: io.Discard,
		})
		if err != nil {
			res.Warning = fmt.Errorf("could not auto-generate protos (ensure '%s' is in PATH): %w", s.generator[0], err)
			s.logger.Warn("proto generation abandoned",
				slog.String("lang", st.Lang),
				slog.String("proto", rel),
				slog.String("error", err.Error()))
			return res
		}
		res.Generated++
	}

	if err := s.stamp(st.Lang, started, st.NewestSource); err != nil {
		s.logger.Warn("failed to stamp generated output", slog.String("lang", st.Lang), slog.String("error", err.Error()))
	}
	return res
}

// stamp marks the output root as fresh as of the start of the sweep. The
// generator may only rewrite nested files, which leaves the root's own mtime
// untouched. Sources edited while the sweep ran stay newer than the stamp.
func (s *Syncer) stamp(lang string, started, newest time.Time) error {
	out := s.OutputRoot(lang)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	at := started
	if newest.After(at) {
		at = newest
	}
	return os.Chtimes(out, at, at)
}

func collectProtos(idlRoot string) ([]string, time.Time, error) {
	var protos []string
	var newest time.Time

	err := filepath.WalkDir(idlRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ProtoSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		rel, err := filepath.Rel(idlRoot, path)
		if err != nil {
			return err
		}
		protos = append(protos, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to scan %s: %w", idlRoot, err)
	}

	sort.Strings(protos)
	return protos, newest, nil
}
