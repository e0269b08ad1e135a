package toolchain

import (
	"fmt"
	"os/exec"
)

// LookPathFunc resolves a tool name to an executable path.
type LookPathFunc func(name string) (string, error)

// MissingToolError is returned when a required tool is not on PATH.
type MissingToolError struct {
	Tool string
	Hint string
}

func (e *MissingToolError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("'%s' is not installed or not in PATH", e.Tool)
	}
	return fmt.Sprintf("'%s' is not installed or not in PATH\nHint: %s", e.Tool, e.Hint)
}

// DefaultHints are the install hints shown for missing tools.
var DefaultHints = map[string]string{
	"cmake":   "brew install cmake",
	"ctest":   "brew install cmake",
	"cargo":   "brew install rustup-init/rust OR curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh",
	"go":      "brew install go",
	"python3": "brew install python3",
	"uv":      "curl -LsSf https://astral.sh/uv/install.sh | sh",
	"npm":     "brew install node",
	"just":    "brew install just",
	"xcrun":   "xcode-select --install",
}

// Tools checks tool availability against a PATH lookup.
type Tools struct {
	lookPath LookPathFunc
	hints    map[string]string
}

// NewTools creates a checker. A nil lookPath uses exec.LookPath.
// Entries in hints override DefaultHints.
func NewTools(lookPath LookPathFunc, hints map[string]string) *Tools {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	merged := make(map[string]string, len(DefaultHints)+len(hints))
	for k, v := range DefaultHints {
		merged[k] = v
	}
	for k, v := range hints {
		merged[k] = v
	}
	return &Tools{lookPath: lookPath, hints: merged}
}

// Has reports whether name resolves on PATH.
func (t *Tools) Has(name string) bool {
	_, err := t.lookPath(name)
	return err == nil
}

// Path returns the resolved path for name, if any.
func (t *Tools) Path(name string) (string, bool) {
	p, err := t.lookPath(name)
	if err != nil {
		return "", false
	}
	return p, true
}

// Require fails with a *MissingToolError carrying the install hint when
// name is not available.
func (t *Tools) Require(name string) error {
	if t.Has(name) {
		return nil
	}
	return &MissingToolError{Tool: name, Hint: t.hints[name]}
}

// Hint returns the install hint for name.
func (t *Tools) Hint(name string) string {
	return t.hints[name]
}
