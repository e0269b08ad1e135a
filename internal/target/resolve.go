package target

import (
	"fmt"
	"os"
	"path/filepath"
)

// NotFoundError is returned when no candidate path exists for a name.
type NotFoundError struct {
	Name       string
	Candidates []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("target '%s' not found", e.Name)
}

// Candidates returns the paths tried for name, in resolution order:
// projects/, examples/, the bare name, scripts/, then scripts/<name>.py.
func Candidates(cwd, name string) []string {
	return []string{
		filepath.Join(cwd, "projects", name),
		filepath.Join(cwd, "examples", name),
		filepath.Join(cwd, name),
		filepath.Join(cwd, "scripts", name),
		filepath.Join(cwd, "scripts", name+".py"),
	}
}

// Resolve maps name to the first existing candidate under cwd.
// The returned Target has no ecosystem yet; see Detect.
func Resolve(cwd, name string) (Target, error) {
	if name == "" {
		return Target{}, &NotFoundError{Name: name}
	}

	absCwd, err := filepath.Abs(cwd)
	if err != nil {
		return Target{}, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	candidates := Candidates(absCwd, name)
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		return Target{
			Name:   name,
			Path:   candidate,
			IsFile: !info.IsDir(),
		}, nil
	}

	return Target{}, &NotFoundError{Name: name, Candidates: candidates}
}
