package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pithos/internal/cli/output"
	"github.com/leapstack-labs/pithos/internal/target"
)

// DetectOutput is the JSON output for the detect command.
type DetectOutput struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Ecosystem string `json:"ecosystem"`
	IsFile    bool   `json:"is_file"`
	Root      string `json:"root"`
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <target>",
		Short: "Show where a target resolves and which ecosystem owns it",
		Long: `Resolve a target name the same way build, test and run do, and print
the resolved path, the detected ecosystem and the monorepo root.`,
		Example: `  pithos detect engine
  pithos detect scripts/report.py -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args[0])
		},
	}
}

func runDetect(cmd *cobra.Command, name string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	t, err := target.ResolveAndDetect(cmdCtx.Cwd, name)
	if err != nil {
		return err
	}

	result := DetectOutput{
		Name:      t.Name,
		Path:      t.Path,
		Ecosystem: string(t.Ecosystem),
		IsFile:    t.IsFile,
		Root:      cmdCtx.RootFor(t),
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(result)
	case output.ModeMarkdown:
		r.Println(output.FormatKeyValue("Path", result.Path))
		r.Println(output.FormatKeyValue("Ecosystem", t.Ecosystem.DisplayName()))
		r.Println(output.FormatKeyValue("Root", result.Root))
	default:
		styles := r.Styles()
		r.Println(styles.Path.Render(result.Path))
		r.Printf("%s %s\n", styles.Muted.Render("ecosystem:"), styles.Bold.Render(t.Ecosystem.DisplayName()))
		r.Printf("%s %s\n", styles.Muted.Render("root:"), result.Root)
	}
	return nil
}
