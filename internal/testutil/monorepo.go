package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// SetupMonorepo creates a temporary monorepo root containing the Justfile
// sentinel and returns its absolute path.
func SetupMonorepo(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	WriteFile(t, root, "Justfile", "gen-proto file:\n\tprotoc {{file}}\n")
	return root
}

// WriteFile writes content to root/rel, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
	return path
}

// WriteExecutable writes an executable file to root/rel.
func WriteExecutable(t *testing.T, root, rel string) string {
	t.Helper()

	path := WriteFile(t, root, rel, "#!/bin/sh\nexit 0\n")
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatalf("failed to chmod %s: %v", rel, err)
	}
	return path
}

// Mkdir creates root/rel and returns its path.
func Mkdir(t *testing.T, root, rel string) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", rel, err)
	}
	return path
}

// SetMtime sets both access and modification time of root/rel.
func SetMtime(t *testing.T, root, rel string, mtime time.Time) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime on %s: %v", rel, err)
	}
}
