package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pithos/internal/cli/output"
	"github.com/leapstack-labs/pithos/internal/compdb"
)

// CompdbOptions holds options for the compdb command.
type CompdbOptions struct {
	Jobs int
}

// CompdbOutput is the JSON output for the compdb command.
type CompdbOutput struct {
	Output   string          `json:"output"`
	Projects int             `json:"projects"`
	Merged   int             `json:"merged"`
	Entries  int             `json:"entries"`
	Failed   []CompdbFailure `json:"failed"`
}

// CompdbFailure is one project that failed to configure.
type CompdbFailure struct {
	Dir    string `json:"dir"`
	Error  string `json:"error"`
	Output string `json:"output,omitempty"`
}

// NewCompdbCommand creates the compdb command.
func NewCompdbCommand() *cobra.Command {
	opts := &CompdbOptions{}
	cmd := &cobra.Command{
		Use:   "compdb",
		Short: "Generate a merged compile_commands.json for the monorepo",
		Long: `Configure every CMake project under projects/, libs/cpp/ and examples/cpp/
in parallel with compile-command export enabled, then merge the resulting
databases into compile_commands.json at the monorepo root for editors and
language servers.

A project that fails to configure is reported with its captured output and
does not stop the others.`,
		Example: `  pithos compdb
  pithos compdb --jobs 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompdb(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "Concurrent configures (default: number of CPUs)")

	return cmd
}

func runCompdb(cmd *cobra.Command, opts *CompdbOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if err := cmdCtx.Tools.Require("cmake"); err != nil {
		return err
	}

	root := cmdCtx.Cfg.ProjectRoot
	merger := compdb.New(compdb.Options{
		Root:   root,
		Runner: cmdCtx.Runner,
		SDK:    cmdCtx.SDK(),
		Logger: cmdCtx.Logger,
		Jobs:   opts.Jobs,
	})

	report, err := merger.Merge(cmd.Context())
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		out := CompdbOutput{
			Output:   report.Output,
			Projects: len(report.Projects),
			Merged:   len(report.Merged),
			Entries:  report.Entries,
			Failed:   []CompdbFailure{},
		}
		for _, f := range report.Failed {
			out.Failed = append(out.Failed, CompdbFailure{Dir: relTo(root, f.Dir), Error: f.Err.Error(), Output: f.Output})
		}
		return r.JSON(out)
	}

	r.Header(1, "Compilation database")
	for _, dir := range report.Projects {
		if failure := findFailure(report.Failed, dir); failure != nil {
			r.StatusLine(relTo(root, dir), "failed", failure.Err.Error())
			if captured := strings.TrimSpace(failure.Output); captured != "" {
				if r.EffectiveMode() == output.ModeMarkdown {
					r.Println(output.FormatCodeBlock("", captured))
				} else {
					r.Println(r.Styles().Muted.Render(captured))
				}
			}
			continue
		}
		r.StatusLine(relTo(root, dir), "success", "")
	}
	r.Println()
	r.Success(fmt.Sprintf("Wrote %d entries from %d of %d projects to %s",
		report.Entries, len(report.Merged), len(report.Projects), report.Output))
	if n := len(report.Failed); n > 0 {
		r.Warning(fmt.Sprintf("%d projects failed to configure", n))
	}
	return nil
}

func findFailure(failed []compdb.Failure, dir string) *compdb.Failure {
	for i := range failed {
		if failed[i].Dir == dir {
			return &failed[i]
		}
	}
	return nil
}

func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
