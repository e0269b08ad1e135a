package commands

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pithos/internal/cli/config"
	clitest "github.com/leapstack-labs/pithos/internal/cli/testutil"
	"github.com/leapstack-labs/pithos/internal/state"
	"github.com/leapstack-labs/pithos/internal/target"
	"github.com/leapstack-labs/pithos/internal/testutil"
	"github.com/leapstack-labs/pithos/internal/toolchain"
)

// harness runs commands against a temporary monorepo with a fake runner.
type harness struct {
	root   string
	runner *testutil.FakeRunner
	tb     *Toolbox
}

func newHarness(t *testing.T, tools ...string) *harness {
	t.Helper()
	config.ResetConfig()
	root := testutil.SetupMonorepo(t)
	runner := testutil.NewFakeRunner()
	return &harness{
		root:   root,
		runner: runner,
		tb: &Toolbox{
			Runner:   runner,
			LookPath: testutil.LookPath(tools...),
			Cwd:      root,
			Environ:  []string{"PATH=/usr/bin"},
			GOOS:     "linux",
		},
	}
}

func (h *harness) execute(t *testing.T, cmd *cobra.Command, args ...string) clitest.Result {
	t.Helper()
	ctx := context.WithValue(context.Background(), config.LoggerKey(), testutil.NewTestLogger(t))
	return clitest.Execute(WithToolbox(ctx, h.tb), cmd, args...)
}

func (h *harness) useJSON(t *testing.T) {
	t.Helper()
	testutil.WriteFile(t, h.root, "pithos.yaml", "output: json\n")
}

func (h *harness) history(t *testing.T) []*state.Invocation {
	t.Helper()
	store, err := state.OpenStore(filepath.Join(h.root, state.DefaultPath), testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	invs, err := store.ListInvocations(context.Background(), state.Filter{})
	require.NoError(t, err)
	return invs
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewBuildCommand(), "build <target>", nil},
		{NewTestCommand(), "test <target>", nil},
		{NewRunCommand(), "run <target>", nil},
		{NewDetectCommand(), "detect <target>", nil},
		{NewListCommand(), "list", []string{"ecosystem"}},
		{NewSyncCommand(), "sync [go|python|all]", []string{"force", "watch"}},
		{NewCompdbCommand(), "compdb", []string{"jobs"}},
		{NewHistoryCommand(), "history", []string{"limit", "target", "command"}},
		{NewDoctorCommand(), "doctor", nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestDelegateCommands_RequireOneTarget(t *testing.T) {
	h := newHarness(t)
	for _, cmd := range []*cobra.Command{NewBuildCommand(), NewTestCommand(), NewRunCommand()} {
		res := h.execute(t, cmd)
		assert.Error(t, res.Err, cmd.Name())

		res = h.execute(t, cmd, "a", "b")
		assert.Error(t, res.Err, cmd.Name())
	}
	assert.Empty(t, h.runner.Commands())
}

func TestBuild_GoTarget(t *testing.T) {
	h := newHarness(t, "go")
	testutil.WriteFile(t, h.root, "projects/api/go.mod", "module api\n")

	res := h.execute(t, NewBuildCommand(), "api")
	require.NoError(t, res.Err)

	require.Len(t, h.runner.Commands(), 1)
	c := h.runner.Commands()[0]
	assert.Equal(t, "go build .", c.String())
	assert.Equal(t, filepath.Join(h.root, "projects", "api"), c.Dir)

	invs := h.history(t)
	require.Len(t, invs, 1)
	assert.Equal(t, "build", invs[0].Command)
	assert.Equal(t, "api", invs[0].Target)
	assert.Equal(t, "go", invs[0].Ecosystem)
	assert.Equal(t, c.Dir, invs[0].Path)
	assert.True(t, invs[0].Succeeded())
}

func TestRun_PropagatesChildExitCode(t *testing.T) {
	h := newHarness(t, "cargo")
	testutil.WriteFile(t, h.root, "examples/parser/Cargo.toml", "")
	h.runner.OnRun = func(toolchain.Command) error {
		return &toolchain.ExitError{Command: "cargo run", Code: 101}
	}

	res := h.execute(t, NewRunCommand(), "parser")
	require.Error(t, res.Err)
	assert.Equal(t, 101, toolchain.ExitCode(res.Err))
	assert.Equal(t, []string{"cargo run"}, h.runner.Lines())

	invs := h.history(t)
	require.Len(t, invs, 1)
	assert.Equal(t, 101, invs[0].ExitCode)
	assert.NotEmpty(t, invs[0].Error)
}

func TestTest_TargetNotFound(t *testing.T) {
	h := newHarness(t, "go")

	res := h.execute(t, NewTestCommand(), "ghost")
	require.Error(t, res.Err)

	var notFound *target.NotFoundError
	require.True(t, errors.As(res.Err, &notFound))
	assert.Equal(t, "target 'ghost' not found", res.Err.Error())
	assert.Equal(t, 1, toolchain.ExitCode(res.Err))
	assert.Empty(t, h.runner.Commands())

	invs := h.history(t)
	require.Len(t, invs, 1)
	assert.Equal(t, "test", invs[0].Command)
	assert.Empty(t, invs[0].Ecosystem)
	assert.Equal(t, 1, invs[0].ExitCode)
}

func TestBuild_MissingToolExitsOne(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.root, "projects/web/package.json", "{}")

	res := h.execute(t, NewBuildCommand(), "web")
	require.Error(t, res.Err)

	var missing *toolchain.MissingToolError
	require.True(t, errors.As(res.Err, &missing))
	assert.Equal(t, "npm", missing.Tool)
	assert.Equal(t, 1, toolchain.ExitCode(res.Err))
	assert.Empty(t, h.runner.Commands())
}

func TestBuild_HistoryDisabled(t *testing.T) {
	h := newHarness(t, "go")
	testutil.WriteFile(t, h.root, "pithos.yaml", "history: false\n")
	testutil.WriteFile(t, h.root, "projects/api/go.mod", "module api\n")

	res := h.execute(t, NewBuildCommand(), "api")
	require.NoError(t, res.Err)

	_, err := os.Stat(filepath.Join(h.root, state.DefaultPath))
	assert.True(t, os.IsNotExist(err), "no history database should be created")
}

func TestBuild_HistoryFailureDoesNotChangeOutcome(t *testing.T) {
	h := newHarness(t, "go")
	// A regular file where the state directory should be.
	testutil.WriteFile(t, h.root, ".pithos", "")
	testutil.WriteFile(t, h.root, "projects/api/go.mod", "module api\n")

	res := h.execute(t, NewBuildCommand(), "api")
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"go build ."}, h.runner.Lines())
}

func TestDetect(t *testing.T) {
	h := newHarness(t)
	h.useJSON(t)
	path := testutil.WriteFile(t, h.root, "scripts/report.py", "print('hi')\n")

	res := h.execute(t, NewDetectCommand(), "report.py")
	require.NoError(t, res.Err)

	var got DetectOutput
	require.NoError(t, json.Unmarshal([]byte(res.Out), &got))
	assert.Equal(t, path, got.Path)
	assert.Equal(t, "python", got.Ecosystem)
	assert.True(t, got.IsFile)
	assert.Equal(t, h.root, got.Root)
}

func TestDetect_Markdown(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.root, "projects/engine/CMakeLists.txt", "")

	res := h.execute(t, NewDetectCommand(), "engine")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "- **Ecosystem**: C++ (CMake)")
	clitest.AssertNoANSI(t, res.Out)
	clitest.AssertValidMarkdown(t, res.Out)
}

func TestDetect_UnknownProjectType(t *testing.T) {
	h := newHarness(t)
	testutil.Mkdir(t, h.root, "projects/docs")

	res := h.execute(t, NewDetectCommand(), "docs")
	var noHandler *target.NoHandlerError
	require.True(t, errors.As(res.Err, &noHandler))
}

func setupListRepo(t *testing.T, h *harness) {
	t.Helper()
	testutil.WriteFile(t, h.root, "projects/engine/CMakeLists.txt", "")
	testutil.WriteFile(t, h.root, "projects/api/go.mod", "module api\n")
	testutil.Mkdir(t, h.root, "projects/empty")
	testutil.WriteFile(t, h.root, "examples/hello/Cargo.toml", "")
	testutil.WriteFile(t, h.root, "scripts/report.py", "")
	testutil.WriteFile(t, h.root, "scripts/README.md", "")
	testutil.Mkdir(t, h.root, "scripts/.cache")
}

func TestDiscoverTargets(t *testing.T) {
	h := newHarness(t)
	setupListRepo(t, h)

	targets, err := DiscoverTargets(h.root)
	require.NoError(t, err)

	var got []string
	for _, tg := range targets {
		got = append(got, tg.Group+"/"+tg.Name+":"+tg.Ecosystem)
	}
	assert.Equal(t, []string{
		"projects/api:go",
		"projects/empty:",
		"projects/engine:cpp",
		"examples/hello:rust",
		"scripts/report.py:python",
	}, got)
}

func TestList(t *testing.T) {
	t.Run("json with filter", func(t *testing.T) {
		h := newHarness(t)
		h.useJSON(t)
		setupListRepo(t, h)

		res := h.execute(t, NewListCommand(), "--ecosystem", "rust")
		require.NoError(t, res.Err)

		var got []TargetInfo
		require.NoError(t, json.Unmarshal([]byte(res.Out), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "hello", got[0].Name)
		assert.Equal(t, filepath.Join(h.root, "examples", "hello"), got[0].Path)
	})

	t.Run("markdown table", func(t *testing.T) {
		h := newHarness(t)
		setupListRepo(t, h)

		res := h.execute(t, NewListCommand())
		require.NoError(t, res.Err)
		assert.Contains(t, res.Out, "# Targets (5)")
		assert.Contains(t, res.Out, "| engine | Projects | C++ (CMake) |")
		assert.Contains(t, res.Out, "| empty | Projects | - |")
		clitest.AssertNoANSI(t, res.Out)
	})

	t.Run("unknown ecosystem", func(t *testing.T) {
		h := newHarness(t)
		res := h.execute(t, NewListCommand(), "-e", "haskell")
		assert.ErrorContains(t, res.Err, "unknown ecosystem")
	})

	t.Run("empty repo", func(t *testing.T) {
		h := newHarness(t)
		h.useJSON(t)
		res := h.execute(t, NewListCommand())
		require.NoError(t, res.Err)
		assert.Equal(t, "[]\n", res.Out)
	})
}

func TestSyncLangs(t *testing.T) {
	tests := []struct {
		arg     string
		want    []string
		wantErr bool
	}{
		{"", []string{"go", "python"}, false},
		{"all", []string{"go", "python"}, false},
		{"go", []string{"go"}, false},
		{"python", []string{"python"}, false},
		{"rust", nil, true},
	}
	for _, tt := range tests {
		got, err := SyncLangs(tt.arg)
		if tt.wantErr {
			assert.Error(t, err, tt.arg)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSync(t *testing.T) {
	t.Run("stale output regenerates", func(t *testing.T) {
		h := newHarness(t, "just")
		h.useJSON(t)
		testutil.WriteFile(t, h.root, "idl/orders/v1/orders.proto", "syntax = \"proto3\";\n")
		testutil.WriteFile(t, h.root, "idl/common.proto", "syntax = \"proto3\";\n")

		res := h.execute(t, NewSyncCommand(), "go")
		require.NoError(t, res.Err)
		assert.Equal(t, []string{
			"just gen-proto common.proto",
			"just gen-proto orders/v1/orders.proto",
		}, h.runner.Lines())
		for _, c := range h.runner.Commands() {
			assert.Equal(t, h.root, c.Dir)
		}

		var got []SyncOutput
		require.NoError(t, json.Unmarshal([]byte(res.Out), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "go", got[0].Lang)
		assert.True(t, got[0].Stale)
		assert.Equal(t, 2, got[0].Generated)
	})

	t.Run("force regenerates fresh output", func(t *testing.T) {
		h := newHarness(t, "just")
		testutil.WriteFile(t, h.root, "idl/a.proto", "")
		testutil.Mkdir(t, h.root, "gen/python")

		res := h.execute(t, NewSyncCommand(), "python")
		require.NoError(t, res.Err)
		assert.Empty(t, h.runner.Commands(), "fresh output needs no generation")
		assert.Contains(t, res.Out, "up to date")

		res = h.execute(t, NewSyncCommand(), "python", "--force")
		require.NoError(t, res.Err)
		assert.Equal(t, []string{"just gen-proto a.proto"}, h.runner.Lines())
	})

	t.Run("generator failure", func(t *testing.T) {
		h := newHarness(t, "just")
		testutil.WriteFile(t, h.root, "idl/a.proto", "")
		h.runner.OnRun = func(toolchain.Command) error { return &toolchain.ExitError{Code: 2} }

		res := h.execute(t, NewSyncCommand())
		require.Error(t, res.Err)
		assert.Equal(t, 1, toolchain.ExitCode(res.Err))
		assert.Contains(t, res.Out, "[FAILED] go")
	})

	t.Run("generator missing", func(t *testing.T) {
		h := newHarness(t)
		res := h.execute(t, NewSyncCommand())
		var missing *toolchain.MissingToolError
		require.True(t, errors.As(res.Err, &missing))
		assert.Equal(t, "just", missing.Tool)
	})

	t.Run("unknown language", func(t *testing.T) {
		h := newHarness(t, "just")
		res := h.execute(t, NewSyncCommand(), "rust")
		assert.ErrorContains(t, res.Err, "unknown language")
	})
}

func TestCompdb(t *testing.T) {
	h := newHarness(t, "cmake")
	h.useJSON(t)
	testutil.WriteFile(t, h.root, "projects/engine/CMakeLists.txt", "")
	testutil.WriteFile(t, h.root, "libs/cpp/broken/CMakeLists.txt", "")
	h.runner.OnRun = func(c toolchain.Command) error {
		if filepath.Base(c.Dir) == "broken" {
			_, _ = c.Stdout.Write([]byte("CMake Error: boom\n"))
			return &toolchain.ExitError{Code: 1}
		}
		testutil.WriteFile(t, c.Dir, "build/compile_commands.json",
			`[{"directory":"`+c.Dir+`","file":"main.cpp","command":"c++ main.cpp"}]`)
		return nil
	}

	res := h.execute(t, NewCompdbCommand(), "--jobs", "2")
	require.NoError(t, res.Err)

	var got CompdbOutput
	require.NoError(t, json.Unmarshal([]byte(res.Out), &got))
	assert.Equal(t, filepath.Join(h.root, "compile_commands.json"), got.Output)
	assert.Equal(t, 2, got.Projects)
	assert.Equal(t, 1, got.Merged)
	assert.Equal(t, 1, got.Entries)
	require.Len(t, got.Failed, 1)
	assert.Equal(t, "libs/cpp/broken", got.Failed[0].Dir)
	assert.Contains(t, got.Failed[0].Output, "CMake Error: boom")
}

func TestCompdb_RequiresCMake(t *testing.T) {
	h := newHarness(t)
	res := h.execute(t, NewCompdbCommand())
	var missing *toolchain.MissingToolError
	require.True(t, errors.As(res.Err, &missing))
	assert.Equal(t, "cmake", missing.Tool)
}

func TestHistory(t *testing.T) {
	t.Run("no database yet", func(t *testing.T) {
		h := newHarness(t)
		res := h.execute(t, NewHistoryCommand())
		require.NoError(t, res.Err)
		assert.Contains(t, res.ErrOut, "No invocations recorded")
		_, err := os.Stat(filepath.Join(h.root, state.DefaultPath))
		assert.True(t, os.IsNotExist(err), "listing must not create the database")
	})

	t.Run("lists recorded invocations", func(t *testing.T) {
		h := newHarness(t, "go", "cargo")
		testutil.WriteFile(t, h.root, "projects/api/go.mod", "module api\n")
		testutil.WriteFile(t, h.root, "projects/parser/Cargo.toml", "")

		require.NoError(t, h.execute(t, NewBuildCommand(), "api").Err)
		require.NoError(t, h.execute(t, NewTestCommand(), "api").Err)
		require.NoError(t, h.execute(t, NewTestCommand(), "parser").Err)

		h.useJSON(t)
		res := h.execute(t, NewHistoryCommand(), "--command", "test")
		require.NoError(t, res.Err)

		var got []HistoryEntry
		require.NoError(t, json.Unmarshal([]byte(res.Out), &got))
		require.Len(t, got, 2)
		for _, e := range got {
			assert.Equal(t, "test", e.Command)
		}

		res = h.execute(t, NewHistoryCommand(), "--target", "api", "--limit", "1")
		require.NoError(t, res.Err)
		require.NoError(t, json.Unmarshal([]byte(res.Out), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "api", got[0].Target)
	})
}
