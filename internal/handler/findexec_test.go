package handler

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pithos/internal/testutil"
)

func TestFindExecutable(t *testing.T) {
	tests := []struct {
		name  string
		exes  []string
		files []string
		want  string
	}{
		{
			name:  "single executable",
			exes:  []string{"app"},
			files: []string{"Makefile", "CMakeCache.txt"},
			want:  "app",
		},
		{
			name: "prunes CMakeFiles",
			exes: []string{"CMakeFiles/3.28/CompilerIdCXX/a.out", "tools/gen"},
			want: "tools/gen",
		},
		{
			name: "skips excluded suffixes",
			exes: []string{"cmake_install.cmake", "libcore.a", "libcore.dylib", "main.o", "notes.txt", "firmware.bin", "zz-server"},
			want: "zz-server",
		},
		{
			name: "lexicographic order picks the first",
			exes: []string{"b-app", "a-app", "c/app"},
			want: "a-app",
		},
		{
			name: "files are checked before subdirectories",
			exes: []string{"bin/tool", "cli"},
			want: "cli",
		},
		{
			name: "top-level binary beats uppercase and underscore dirs",
			exes: []string{"Testing/helper", "_deps/gtest/runner", "engine"},
			want: "engine",
		},
		{
			name: "subdirectories are searched in lexicographic order",
			exes: []string{"tools/gen", "apps/server"},
			want: "apps/server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for _, e := range tt.exes {
				testutil.WriteExecutable(t, root, e)
			}
			for _, f := range tt.files {
				testutil.WriteFile(t, root, f, "")
			}

			got, err := FindExecutable(root)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(root, filepath.FromSlash(tt.want)), got)
		})
	}
}

func TestFindExecutable_None(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "README", "")
	testutil.WriteExecutable(t, root, "CMakeFiles/probe")

	_, err := FindExecutable(root)
	assert.ErrorIs(t, err, ErrNoExecutable)

	_, err = FindExecutable(filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, ErrNoExecutable)
}
