package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/pithos/internal/cli"
	"github.com/leapstack-labs/pithos/internal/cli/config"
	"github.com/leapstack-labs/pithos/internal/target"
)

// targetArg marks commands whose single argument is a monorepo target.
const targetArg = "<target>"

// documented returns the commands that get a reference page.
func documented(root *cobra.Command) []*cobra.Command {
	var cmds []*cobra.Command
	for _, cmd := range root.Commands() {
		if cmd.Hidden || cmd.Name() == "help" {
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func takesTarget(cmd *cobra.Command) bool {
	return strings.Contains(cmd.Use, targetArg)
}

// generateCLIDocs writes index.md and one page per pithos command to outDir.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rootCmd := cli.NewRootCmd()

	if err := writePage(outDir, "index", cliIndex(rootCmd)); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}
	for _, cmd := range documented(rootCmd) {
		if err := writePage(outDir, cmd.Name(), commandPage(cmd)); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.Name(), err)
		}
	}
	return nil
}

func writePage(outDir, name string, w *MarkdownWriter) error {
	path := filepath.Join(outDir, name+".md")
	if err := os.WriteFile(path, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated %s.md", name)
	return nil
}

func cliIndex(rootCmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for pithos")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(cleanDescription(rootCmd.Long))

	var targetRows, workspaceRows [][]string
	for _, cmd := range documented(rootCmd) {
		row := []string{fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name()), cleanDescription(cmd.Short)}
		if takesTarget(cmd) {
			targetRows = append(targetRows, row)
		} else {
			workspaceRows = append(workspaceRows, row)
		}
	}

	w.Header(2, "Target Commands")
	w.Paragraph("These commands take one " + InlineCode(targetArg) + " name, resolved against the working directory.")
	w.Table([]string{"Command", "Description"}, targetRows)

	w.Header(2, "Workspace Commands")
	w.Table([]string{"Command", "Description"}, workspaceRows)

	writeTargetResolution(w)

	w.Header(2, "Global Options")
	w.BulletList(flagItems(rootCmd.PersistentFlags()))

	w.Header(2, "Environment Variables")
	w.Paragraph("Every configuration key can be set with the " + InlineCode(config.EnvPrefix) +
		" prefix. Flags win over the environment, which wins over " + InlineCode("pithos.yaml") + ".")
	var envRows [][]string
	for _, f := range configFields() {
		envRows = append(envRows, []string{InlineCode(f.EnvVar()), f.Description})
	}
	w.Table([]string{"Variable", "Description"}, envRows)

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Orchestration error: target not found, unknown project type, missing tool, build first"},
		{"other", "Exit code of the delegated tool, passed through unchanged"},
	})
	return w
}

// writeTargetResolution documents candidate order and ecosystem detection
// straight from the target package.
func writeTargetResolution(w *MarkdownWriter) {
	w.Header(2, "Target Resolution")
	w.Paragraph("The first existing path wins:")
	var candidates []string
	for i, c := range target.Candidates("", "NAME") {
		candidates = append(candidates, fmt.Sprintf("%d. %s", i+1, InlineCode(filepath.ToSlash(c))))
	}
	w.Paragraph(strings.Join(candidates, "\n"))

	w.Paragraph("The ecosystem comes from the first marker file present:")
	var rows [][]string
	for _, m := range target.Markers() {
		rows = append(rows, []string{InlineCode(m.File), m.Ecosystem.DisplayName()})
	}
	rows = append(rows, []string{
		InlineCode("*" + target.PythonSuffix) + " or " + InlineCode(target.PythonPackage),
		target.Python.DisplayName(),
	})
	w.Table([]string{"Marker", "Ecosystem"}, rows)
}

func commandPage(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, "pithos "+cmd.Name())
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	w.Paragraph(desc)

	w.Header(2, "Usage")
	w.CodeBlock("bash", "pithos "+cmd.Use)

	if takesTarget(cmd) {
		w.Paragraph(InlineCode(targetArg) + " follows the [target resolution](/cli/#target-resolution) rules.")
	}

	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		w.BulletList(flagItems(cmd.LocalFlags()))
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}

	w.Paragraph("Global options are listed in the [CLI reference](/cli/#global-options).")
	return w
}

// flagItems renders each visible flag as "`-s`, `--name` (default `x`): usage".
func flagItems(flags *pflag.FlagSet) []string {
	var items []string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			name = InlineCode("-"+f.Shorthand) + ", " + name
		}
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" {
			name += " (default " + InlineCode(f.DefValue) + ")"
		}
		items = append(items, name+": "+cleanDescription(f.Usage))
	})
	return items
}

// dedent strips the indentation shared by the first non-blank line from
// every line of an example block.
func dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	var prefix string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			prefix = line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			break
		}
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \n")
}
