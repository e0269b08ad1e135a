package handler

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// cmakeInternalDir is CMake's bookkeeping directory; never searched.
const cmakeInternalDir = "CMakeFiles"

// skippedSuffixes are build byproducts that may carry an executable bit.
var skippedSuffixes = []string{".cmake", ".txt", ".o", ".dylib", ".a"}

// FindExecutable returns the first executable regular file under root,
// pruning CMakeFiles. Each directory's own files are checked, in
// lexicographic order, before its subdirectories are descended into, so
// build/app wins over build/Testing/helper.
func FindExecutable(root string) (string, error) {
	found, err := findExecutable(root)
	switch {
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return "", err
	case found == "":
		return "", ErrNoExecutable
	default:
		return found, nil
	}
}

func findExecutable(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var subdirs []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if e.Name() != cmakeInternalDir {
				subdirs = append(subdirs, path)
			}
			continue
		}
		if !e.Type().IsRegular() || skipArtifact(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", err
		}
		if info.Mode().Perm()&0o111 != 0 {
			return path, nil
		}
	}

	for _, sub := range subdirs {
		found, err := findExecutable(sub)
		if err != nil || found != "" {
			return found, err
		}
	}
	return "", nil
}

func skipArtifact(name string) bool {
	if strings.HasSuffix(name, ".bin") {
		return true
	}
	ext := filepath.Ext(name)
	for _, s := range skippedSuffixes {
		if ext == s {
			return true
		}
	}
	return false
}
