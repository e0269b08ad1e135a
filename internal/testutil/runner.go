package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/leapstack-labs/pithos/internal/toolchain"
)

// FakeRunner records commands instead of executing them.
type FakeRunner struct {
	mu       sync.Mutex
	commands []toolchain.Command

	// OnRun, when set, decides the result of each Run call.
	OnRun func(c toolchain.Command) error
	// Outputs maps a command line (name + args) to canned stdout for Output.
	Outputs map[string]string
	// OutputErr is returned by Output for command lines missing from Outputs.
	OutputErr error
}

// NewFakeRunner creates a runner where every command succeeds.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Outputs: map[string]string{}}
}

// Run records c and returns the OnRun result.
func (f *FakeRunner) Run(_ context.Context, c toolchain.Command) error {
	f.mu.Lock()
	f.commands = append(f.commands, c)
	hook := f.OnRun
	f.mu.Unlock()

	if hook != nil {
		return hook(c)
	}
	return nil
}

// Output records c and returns canned output.
func (f *FakeRunner) Output(_ context.Context, c toolchain.Command) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, c)

	if out, ok := f.Outputs[c.String()]; ok {
		return []byte(out), nil
	}
	if f.OutputErr != nil {
		return nil, f.OutputErr
	}
	return nil, &toolchain.ExitError{Command: c.String(), Code: 1}
}

// Commands returns a copy of every recorded command.
func (f *FakeRunner) Commands() []toolchain.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]toolchain.Command, len(f.commands))
	copy(out, f.commands)
	return out
}

// Lines returns the recorded command lines.
func (f *FakeRunner) Lines() []string {
	cmds := f.Commands()
	lines := make([]string, 0, len(cmds))
	for _, c := range cmds {
		lines = append(lines, c.String())
	}
	return lines
}

// Matching returns the recorded commands whose line starts with prefix.
func (f *FakeRunner) Matching(prefix string) []toolchain.Command {
	var out []toolchain.Command
	for _, c := range f.Commands() {
		if strings.HasPrefix(c.String(), prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets every recorded command.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = nil
}

// LookPath returns a toolchain.LookPathFunc that only finds the given tools.
func LookPath(available ...string) toolchain.LookPathFunc {
	set := make(map[string]bool, len(available))
	for _, name := range available {
		set[name] = true
	}
	return func(name string) (string, error) {
		if set[name] {
			return "/usr/bin/" + name, nil
		}
		return "", fmt.Errorf("exec: %q: %w", name, exec.ErrNotFound)
	}
}
