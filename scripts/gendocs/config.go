package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/pithos/internal/cli/config"
	"github.com/leapstack-labs/pithos/internal/protosync"
)

// ConfigField documents one configuration key.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Flag        string
	Description string
}

// EnvVar returns the environment variable overriding the field.
func (f ConfigField) EnvVar() string {
	return config.EnvPrefix + strings.ToUpper(f.Name)
}

// configFields mirrors the keys read by internal/cli/config.
func configFields() []ConfigField {
	return []ConfigField{
		{Name: "root", Type: "string", Flag: "--root", Description: "Monorepo root; found by searching upward for the sentinel when unset"},
		{Name: "sentinel", Type: "string", Default: config.DefaultSentinel, Description: "File marking the monorepo root"},
		{Name: "idl_dir", Type: "string", Default: config.DefaultIDLDir, Description: "Interface definition directory, relative to the root"},
		{Name: "gen_dir", Type: "string", Default: config.DefaultGenDir, Description: "Generated bindings directory, relative to the root"},
		{Name: "libs_dir", Type: "string", Default: config.DefaultLibsDir, Description: "Shared libraries directory; libs/python is added to PYTHONPATH"},
		{Name: "venv_dir", Type: "string", Default: config.DefaultVenvDir, Description: "Python virtual environment activated for Python targets"},
		{Name: "generator", Type: "list", Default: strings.Join(protosync.DefaultGenerator, " "), Description: "Command run once per stale .proto, with its path appended"},
		{Name: "state_path", Type: "string", Default: config.DefaultStateFile, Flag: "--state", Description: "Invocation history database"},
		{Name: "history", Type: "bool", Default: "true", Description: "Record build, test and run invocations"},
		{Name: "output", Type: "string", Default: config.DefaultOutput, Flag: "--output", Description: "Output format: auto, text, markdown, json"},
		{Name: "log_level", Type: "string", Default: config.DefaultLogLevel, Flag: "--log-level", Description: "Log level: debug, info, warn, error"},
		{Name: "verbose", Type: "bool", Default: "false", Flag: "--verbose", Description: "Shorthand for log_level debug"},
		{Name: "hints", Type: "map[string]string", Description: "Install hints per tool, shown when the tool is missing"},
	}
}

// generateConfigDocs writes configuration.md to outDir.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating configuration docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "pithos configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("pithos reads " + InlineCode("pithos.yaml") + " (or " + InlineCode("pithos.yml") + "), searched upward from the working directory. " +
		"Values are layered: defaults, then the file, then " + InlineCode(config.EnvPrefix+"*") + " environment variables, then command-line flags.")

	var rows [][]string
	for _, f := range configFields() {
		def := "-"
		if f.Default != "" {
			def = InlineCode(f.Default)
		}
		flag := "-"
		if f.Flag != "" {
			flag = InlineCode(f.Flag)
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, def, flag, InlineCode(f.EnvVar()), f.Description})
	}
	w.Table([]string{"Key", "Type", "Default", "Flag", "Environment", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `# pithos.yaml
idl_dir: idl
gen_dir: gen
generator: [buf, generate]
history: true
hints:
  cmake: "nix profile install nixpkgs#cmake"`)

	w.Header(2, "Project Environment")
	w.Paragraph("A " + InlineCode(".env") + " file in a target's directory is loaded into that target's child environment and overrides every other variable.")

	filename := filepath.Join(outDir, "configuration.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}
