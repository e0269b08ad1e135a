// Package main provides tests for the pithos CLI.
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/pithos/internal/cli"
	"github.com/leapstack-labs/pithos/internal/cli/config"
)

func newMonorepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"Justfile":                       "",
		"projects/engine/CMakeLists.txt": "",
		"projects/api/go.mod":            "module api\n",
		"scripts/report.py":              "",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	output, err := execute(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}
	if !strings.Contains(output, "pithos v") {
		t.Errorf("version output should contain 'pithos v', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := execute(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	expectedCommands := []string{"build", "test", "run", "detect", "list", "sync", "compdb", "history", "doctor"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestListCommandJSON(t *testing.T) {
	root := newMonorepo(t)

	output, err := execute(t, "list", "--root", root, "--output", "json")
	if err != nil {
		t.Fatalf("list command error = %v", err)
	}

	var targets []struct {
		Name      string `json:"name"`
		Ecosystem string `json:"ecosystem"`
	}
	if err := json.Unmarshal([]byte(output), &targets); err != nil {
		t.Fatalf("list output is not JSON: %v\n%s", err, output)
	}
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d: %s", len(targets), output)
	}
	if targets[0].Name != "api" || targets[0].Ecosystem != "go" {
		t.Errorf("unexpected first target: %+v", targets[0])
	}
}

func TestHistoryCommandEmpty(t *testing.T) {
	root := newMonorepo(t)

	output, err := execute(t, "history", "--root", root, "-o", "json")
	if err != nil {
		t.Fatalf("history command error = %v", err)
	}
	if strings.TrimSpace(output) != "[]" {
		t.Errorf("expected empty JSON array, got: %s", output)
	}
}

func TestInvalidOutputMode(t *testing.T) {
	root := newMonorepo(t)

	_, err := execute(t, "list", "--root", root, "--output", "yaml")
	if err == nil {
		t.Error("invalid output mode should return an error")
	}
}

func TestBuildRequiresTarget(t *testing.T) {
	_, err := execute(t, "build")
	if err == nil {
		t.Error("build without a target should return an error")
	}
}

func TestCompletionCommand(t *testing.T) {
	shells := []string{"bash", "zsh", "fish", "powershell"}

	for _, shell := range shells {
		t.Run(shell, func(t *testing.T) {
			output, err := execute(t, "completion", shell)
			if err != nil {
				t.Errorf("completion %s command error = %v", shell, err)
			}
			if !strings.Contains(output, "pithos") {
				t.Errorf("completion %s output should mention pithos", shell)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "unknown-command")
	if err == nil {
		t.Error("unknown command should return an error")
	}
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
