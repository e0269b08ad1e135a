// Package repo locates the monorepo root.
package repo

import (
	"os"
	"path/filepath"
)

// DefaultSentinel is the file whose presence marks the monorepo root.
const DefaultSentinel = "Justfile"

// FindRoot walks upward from start until a directory containing sentinel is
// found. When no ancestor has the sentinel, the absolute start path is
// returned; FindRoot never fails.
func FindRoot(start, sentinel string) string {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		abs = filepath.Clean(start)
	}

	dir := abs
	for {
		if _, err := os.Stat(filepath.Join(dir, sentinel)); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return abs
		}
		dir = parent
	}
}
