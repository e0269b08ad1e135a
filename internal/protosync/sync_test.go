package protosync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pithos/internal/testutil"
	"github.com/leapstack-labs/pithos/internal/toolchain"
)

var (
	past   = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	later  = past.Add(time.Hour)
	latest = past.Add(2 * time.Hour)
)

// setupIDL creates a monorepo with three protos, all stamped at past.
func setupIDL(t *testing.T) string {
	t.Helper()
	root := testutil.SetupMonorepo(t)
	for _, rel := range []string{"idl/common/user.proto", "idl/common/types.proto", "idl/billing/invoice.proto"} {
		testutil.WriteFile(t, root, rel, "syntax = \"proto3\";\n")
		testutil.SetMtime(t, root, rel, past)
	}
	return root
}

func newTestSyncer(t *testing.T, root string, runner toolchain.Runner) *Syncer {
	t.Helper()
	return New(Options{
		Root:   root,
		Runner: runner,
		Logger: testutil.NewTestLogger(t),
		Now:    func() time.Time { return latest },
	})
}

func TestCheck_NoIDL(t *testing.T) {
	root := testutil.SetupMonorepo(t)
	runner := testutil.NewFakeRunner()
	s := newTestSyncer(t, root, runner)

	res, err := s.Sync(context.Background(), "go")
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Equal(t, "no idl directory", res.Reason)
	assert.Empty(t, runner.Commands())
}

func TestCheck_NoProtos(t *testing.T) {
	root := testutil.SetupMonorepo(t)
	testutil.WriteFile(t, root, "idl/README.md", "")
	runner := testutil.NewFakeRunner()
	s := newTestSyncer(t, root, runner)

	res, err := s.Sync(context.Background(), "python")
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Empty(t, runner.Commands())
}

func TestCheck_MissingOutputIsAlwaysStale(t *testing.T) {
	root := setupIDL(t)
	s := newTestSyncer(t, root, testutil.NewFakeRunner())

	for _, lang := range []string{"go", "python"} {
		st, err := s.Check(lang)
		require.NoError(t, err)
		assert.True(t, st.Stale, lang)
		assert.Equal(t, "output directory missing", st.Reason)
		assert.True(t, st.OutputTime.IsZero())
	}
}

func TestCheck_Timestamps(t *testing.T) {
	tests := []struct {
		name      string
		genMtime  time.Time
		wantStale bool
	}{
		{name: "output older than sources", genMtime: past.Add(-time.Minute), wantStale: true},
		{name: "output same age as sources", genMtime: past, wantStale: false},
		{name: "output newer than sources", genMtime: later, wantStale: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := setupIDL(t)
			testutil.Mkdir(t, root, "gen/go")
			testutil.SetMtime(t, root, "gen/go", tt.genMtime)

			st, err := newTestSyncer(t, root, testutil.NewFakeRunner()).Check("go")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStale, st.Stale)
			assert.True(t, past.Equal(st.NewestSource), "newest source mtime")
		})
	}
}

func TestSync_TouchingOneProtoRegeneratesAll(t *testing.T) {
	root := setupIDL(t)
	testutil.Mkdir(t, root, "gen/go")
	testutil.SetMtime(t, root, "gen/go", later)

	// Only user.proto becomes newer than gen/go.
	testutil.SetMtime(t, root, "idl/common/user.proto", latest)

	runner := testutil.NewFakeRunner()
	res, err := newTestSyncer(t, root, runner).Sync(context.Background(), "go")
	require.NoError(t, err)
	require.True(t, res.Stale)
	assert.NoError(t, res.Warning)
	assert.Equal(t, 3, res.Generated)

	assert.Equal(t, []string{
		"just gen-proto billing/invoice.proto",
		"just gen-proto common/types.proto",
		"just gen-proto common/user.proto",
	}, runner.Lines())

	for _, c := range runner.Commands() {
		assert.Equal(t, root, c.Dir, "generator runs from the repo root")
	}
}

func TestSync_Idempotent(t *testing.T) {
	root := setupIDL(t)
	runner := testutil.NewFakeRunner()
	s := newTestSyncer(t, root, runner)

	first, err := s.Sync(context.Background(), "go")
	require.NoError(t, err)
	assert.True(t, first.Stale)
	assert.Equal(t, 3, first.Generated)

	info, err := os.Stat(filepath.Join(root, "gen", "go"))
	require.NoError(t, err, "output root exists after a successful sweep")
	assert.True(t, info.IsDir())

	runner.Reset()
	second, err := s.Sync(context.Background(), "go")
	require.NoError(t, err)
	assert.False(t, second.Stale)
	assert.Zero(t, second.Generated)
	assert.Empty(t, runner.Commands())
}

func TestSync_FailureAbandonsSweep(t *testing.T) {
	root := setupIDL(t)
	runner := testutil.NewFakeRunner()
	runner.OnRun = func(c toolchain.Command) error {
		return &toolchain.ExitError{Command: c.String(), Code: 2}
	}

	res, err := newTestSyncer(t, root, runner).Sync(context.Background(), "python")
	require.NoError(t, err, "generator failures are not fatal")
	require.Error(t, res.Warning)
	assert.Contains(t, res.Warning.Error(), "could not auto-generate protos")
	assert.Zero(t, res.Generated)
	assert.Len(t, runner.Commands(), 1, "no retry after the first failure")

	_, statErr := os.Stat(filepath.Join(root, "gen", "python"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "a failed sweep does not mark output fresh")
}

func TestSync_CustomGenerator(t *testing.T) {
	root := setupIDL(t)
	runner := testutil.NewFakeRunner()
	s := New(Options{
		Root:      root,
		IDLDir:    "idl",
		GenDir:    "generated",
		Generator: []string{"buf", "generate", "--path"},
		Runner:    runner,
	})

	res, err := s.Sync(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Generated)
	assert.Equal(t, "buf generate --path billing/invoice.proto", runner.Lines()[0])
	assert.DirExists(t, filepath.Join(root, "generated", "go"))
}

func TestForce(t *testing.T) {
	root := setupIDL(t)
	testutil.Mkdir(t, root, "gen/go")
	testutil.SetMtime(t, root, "gen/go", latest)

	runner := testutil.NewFakeRunner()
	s := newTestSyncer(t, root, runner)

	st, err := s.Check("go")
	require.NoError(t, err)
	require.False(t, st.Stale)

	res, err := s.Force(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "forced", res.Reason)
	assert.Equal(t, 3, res.Generated)
}

func TestSync_StampNeverPrecedesSources(t *testing.T) {
	root := setupIDL(t)
	future := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	testutil.SetMtime(t, root, "idl/billing/invoice.proto", future)

	s := New(Options{Root: root, Runner: testutil.NewFakeRunner(), Now: func() time.Time { return past }})
	_, err := s.Sync(context.Background(), "go")
	require.NoError(t, err)

	st, err := s.Check("go")
	require.NoError(t, err)
	assert.False(t, st.Stale)
}

func TestSync_SourceEditedDuringSweepStaysStale(t *testing.T) {
	root := setupIDL(t)
	clock := latest
	runner := testutil.NewFakeRunner()
	runner.OnRun = func(c toolchain.Command) error {
		if c.Args[len(c.Args)-1] == "billing/invoice.proto" {
			testutil.SetMtime(t, root, "idl/common/user.proto", latest.Add(time.Hour))
			clock = latest.Add(2 * time.Hour)
		}
		return nil
	}
	s := New(Options{
		Root:   root,
		Runner: runner,
		Logger: testutil.NewTestLogger(t),
		Now:    func() time.Time { return clock },
	})

	res, err := s.Sync(context.Background(), "go")
	require.NoError(t, err)
	require.NoError(t, res.Warning)
	assert.Equal(t, 3, res.Generated)

	st, err := s.Check("go")
	require.NoError(t, err)
	assert.True(t, st.Stale)
}
