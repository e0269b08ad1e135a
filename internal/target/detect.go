package target

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Marker files, checked for existence only.
const (
	CMakeMarker   = "CMakeLists.txt"
	CargoMarker   = "Cargo.toml"
	GoModMarker   = "go.mod"
	PackageMarker = "package.json"
	PythonPackage = "__init__.py"
	PythonSuffix  = ".py"
)

// Marker pairs a descriptor file with the ecosystem it selects.
type Marker struct {
	File      string
	Ecosystem Ecosystem
}

var markers = []Marker{
	{CMakeMarker, Cpp},
	{CargoMarker, Rust},
	{GoModMarker, Go},
	{PackageMarker, Node},
}

// Markers returns the descriptor files in detection priority order.
func Markers() []Marker {
	return append([]Marker(nil), markers...)
}

// NoHandlerError is returned when no ecosystem owns a path.
type NoHandlerError struct {
	Path string
}

func (e *NoHandlerError) Error() string {
	return fmt.Sprintf("unknown project type at %s: no CMakeLists.txt, Cargo.toml, go.mod, package.json or Python sources found", e.Path)
}

// DetectEcosystem inspects path for marker files. Descriptor files win in
// fixed priority order; Python is the catch-all for script files, package
// directories and directories holding any .py file.
func DetectEcosystem(path string) (Ecosystem, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to inspect %s: %w", path, err)
	}

	if !info.IsDir() {
		if strings.HasSuffix(path, PythonSuffix) {
			return Python, nil
		}
		return "", &NoHandlerError{Path: path}
	}

	for _, m := range markers {
		if exists(filepath.Join(path, m.File)) {
			return m.Ecosystem, nil
		}
	}

	if exists(filepath.Join(path, PythonPackage)) || hasPythonFile(path) {
		return Python, nil
	}

	return "", &NoHandlerError{Path: path}
}

// Detect fills in the ecosystem of a resolved target.
func Detect(t Target) (Target, error) {
	eco, err := DetectEcosystem(t.Path)
	if err != nil {
		return t, err
	}
	t.Ecosystem = eco
	return t, nil
}

// ResolveAndDetect resolves name under cwd and detects its ecosystem.
func ResolveAndDetect(cwd, name string) (Target, error) {
	t, err := Resolve(cwd, name)
	if err != nil {
		return t, err
	}
	return Detect(t)
}

func hasPythonFile(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+PythonSuffix))
	return err == nil && len(matches) > 0
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
