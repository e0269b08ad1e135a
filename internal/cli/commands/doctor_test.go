package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pithos/internal/cli/config"
	clitest "github.com/leapstack-labs/pithos/internal/cli/testutil"
	"github.com/leapstack-labs/pithos/internal/testutil"
	"github.com/leapstack-labs/pithos/internal/toolchain"
)

func checkByName(out *DoctorOutput, name string) (HealthCheck, bool) {
	for _, c := range out.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return HealthCheck{}, false
}

func TestBuildDoctorOutput(t *testing.T) {
	root := testutil.SetupMonorepo(t)
	testutil.Mkdir(t, root, "idl")
	cfg := &config.Config{
		Sentinel:    "Justfile",
		IDLDir:      "idl",
		Generator:   []string{"just", "gen-proto"},
		ProjectRoot: root,
	}

	tests := []struct {
		name      string
		tools     []string
		goos      string
		ready     []string
		issues    int
		wantCheck map[string]string
	}{
		{
			name:   "everything installed",
			tools:  []string{"cmake", "ctest", "cargo", "go", "uv", "python3", "npm", "just"},
			goos:   "linux",
			ready:  []string{"cpp", "rust", "go", "python", "node", "protos"},
			issues: 0,
		},
		{
			name:   "uv is optional",
			tools:  []string{"cmake", "ctest", "cargo", "go", "python3", "npm", "just"},
			goos:   "linux",
			ready:  []string{"cpp", "rust", "go", "python", "node", "protos"},
			issues: 1,
			wantCheck: map[string]string{
				"uv": StatusWarn,
			},
		},
		{
			name:   "missing required tools block their group",
			tools:  []string{"cmake", "go", "python3"},
			goos:   "linux",
			ready:  []string{"go", "python"},
			issues: 5,
			wantCheck: map[string]string{
				"ctest": StatusError,
				"cargo": StatusError,
				"just":  StatusError,
				"cmake": StatusPass,
			},
		},
		{
			name:   "darwin checks xcrun",
			tools:  []string{"cmake", "ctest", "cargo", "go", "uv", "python3", "npm", "just", "xcrun"},
			goos:   "darwin",
			ready:  []string{"cpp", "rust", "go", "python", "node", "protos"},
			issues: 0,
			wantCheck: map[string]string{
				"xcrun": StatusPass,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tools := toolchain.NewTools(testutil.LookPath(tt.tools...), nil)
			out := buildDoctorOutput(cfg, tools, tt.goos)

			assert.Equal(t, root, out.Root)
			assert.Equal(t, tt.ready, out.Ready)
			assert.Equal(t, tt.issues, out.IssueCount)
			for name, status := range tt.wantCheck {
				check, ok := checkByName(out, name)
				require.True(t, ok, name)
				assert.Equal(t, status, check.Status, name)
			}
		})
	}
}

func TestBuildDoctorOutput_HintsAndLayout(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		Sentinel:    "Justfile",
		IDLDir:      "idl",
		Generator:   []string{"buf", "generate"},
		ProjectRoot: root,
	}
	tools := toolchain.NewTools(testutil.LookPath(), map[string]string{"buf": "go install github.com/bufbuild/buf/cmd/buf@latest"})

	out := buildDoctorOutput(cfg, tools, "linux")

	buf, ok := checkByName(out, "buf")
	require.True(t, ok)
	assert.Equal(t, StatusError, buf.Status)
	assert.Equal(t, "go install github.com/bufbuild/buf/cmd/buf@latest", buf.Hint)

	cmake, _ := checkByName(out, "cmake")
	assert.Equal(t, toolchain.DefaultHints["cmake"], cmake.Hint)

	sentinel, ok := checkByName(out, "Justfile")
	require.True(t, ok)
	assert.Equal(t, StatusWarn, sentinel.Status)

	idl, ok := checkByName(out, "idl/")
	require.True(t, ok)
	assert.Equal(t, StatusWarn, idl.Status)
	assert.Empty(t, out.Ready)
}

func TestDoctorCommand(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		h := newHarness(t, "go", "just")
		h.useJSON(t)

		res := h.execute(t, NewDoctorCommand())
		require.NoError(t, res.Err)

		var got DoctorOutput
		require.NoError(t, json.Unmarshal([]byte(res.Out), &got))
		assert.Equal(t, h.root, got.Root)
		assert.Contains(t, got.Ready, "go")
		assert.Contains(t, got.Ready, "protos")
		assert.NotContains(t, got.Ready, "cpp")
		assert.NotEmpty(t, got.ConfigFile)
	})

	t.Run("markdown", func(t *testing.T) {
		h := newHarness(t, "go")

		res := h.execute(t, NewDoctorCommand())
		require.NoError(t, res.Err)
		assert.Contains(t, res.Out, "# pithos doctor")
		assert.Contains(t, res.Out, "## Cpp")
		assert.Contains(t, res.Out, "- **[PASS]** go")
		assert.Contains(t, res.Out, "- **[ERROR]** cmake")
		assert.Contains(t, res.Out, "  - hint: `brew install cmake`")
		clitest.AssertNoANSI(t, res.Out)
		clitest.AssertValidMarkdown(t, res.Out)
	})
}
