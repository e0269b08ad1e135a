// Package target resolves user-supplied target names to directories and
// detects which build ecosystem owns them.
package target

import "path/filepath"

// Ecosystem is the closed set of toolchain families pithos can drive.
type Ecosystem string

// Supported ecosystems.
const (
	// Cpp is the native-build ecosystem (CMake).
	Cpp Ecosystem = "cpp"
	// Rust is the systems package manager ecosystem (Cargo).
	Rust Ecosystem = "rust"
	// Go is the service toolchain ecosystem.
	Go Ecosystem = "go"
	// Python is the script ecosystem.
	Python Ecosystem = "python"
	// Node is the JS package manager ecosystem (npm).
	Node Ecosystem = "node"
)

// All lists every ecosystem in detection priority order, with the script
// catch-all last.
var All = []Ecosystem{Cpp, Rust, Go, Node, Python}

// DisplayName returns a human-readable name.
func (e Ecosystem) DisplayName() string {
	switch e {
	case Cpp:
		return "C++ (CMake)"
	case Rust:
		return "Rust (Cargo)"
	case Go:
		return "Go"
	case Python:
		return "Python"
	case Node:
		return "Node (npm)"
	default:
		return string(e)
	}
}

// Valid reports whether e is one of the supported ecosystems.
func (e Ecosystem) Valid() bool {
	for _, known := range All {
		if e == known {
			return true
		}
	}
	return false
}

// UsesGeneratedCode reports whether targets of this ecosystem consume
// bindings generated from interface definitions.
func (e Ecosystem) UsesGeneratedCode() bool {
	return e == Go || e == Python
}

// Target is a resolved target: an absolute path and the ecosystem owning it.
type Target struct {
	// Name is the name the user asked for.
	Name string
	// Path is the absolute resolved path, a directory or a single script.
	Path string
	// IsFile is true when Path is a single file rather than a directory.
	IsFile bool
	// Ecosystem is empty until detection has run.
	Ecosystem Ecosystem
}

// Dir returns the directory holding the target.
func (t Target) Dir() string {
	if t.IsFile {
		return filepath.Dir(t.Path)
	}
	return t.Path
}
