package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/pithos/internal/cli/output"
	"github.com/leapstack-labs/pithos/internal/target"
)

// ListDirs are the top-level directories whose entries are targets.
var ListDirs = []string{"projects", "examples", "scripts"}

// ListOptions holds options for the list command.
type ListOptions struct {
	Ecosystem string
}

// TargetInfo describes one discovered target.
type TargetInfo struct {
	Name      string `json:"name"`
	Group     string `json:"group"`
	Path      string `json:"path"`
	Ecosystem string `json:"ecosystem,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List targets and their ecosystems",
		Long: `List every entry under projects/, examples/ and scripts/ of the
monorepo root together with the ecosystem detected for it.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown table (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List all targets
  pithos list

  # Only Go services, as JSON
  pithos list --ecosystem go -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Ecosystem, "ecosystem", "e", "", "Only list targets of this ecosystem (cpp, rust, go, python, node)")
	_ = cmd.RegisterFlagCompletionFunc("ecosystem", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, len(target.All))
		for _, eco := range target.All {
			names = append(names, string(eco))
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	if opts.Ecosystem != "" && !target.Ecosystem(opts.Ecosystem).Valid() {
		return fmt.Errorf("unknown ecosystem %q", opts.Ecosystem)
	}

	targets, err := DiscoverTargets(cmdCtx.Cfg.ProjectRoot)
	if err != nil {
		return err
	}
	if opts.Ecosystem != "" {
		filtered := targets[:0]
		for _, t := range targets {
			if t.Ecosystem == opts.Ecosystem {
				filtered = append(filtered, t)
			}
		}
		targets = filtered
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if targets == nil {
			targets = []TargetInfo{}
		}
		return r.JSON(targets)
	}

	if len(targets) == 0 {
		r.Warning("No targets found under " + cmdCtx.Cfg.ProjectRoot)
		return nil
	}

	title := cases.Title(language.English)
	rows := make([][]string, 0, len(targets))
	for _, t := range targets {
		eco := "-"
		if t.Ecosystem != "" {
			eco = target.Ecosystem(t.Ecosystem).DisplayName()
		}
		rows = append(rows, []string{t.Name, title.String(t.Group), eco})
	}

	r.Header(1, fmt.Sprintf("Targets (%d)", len(targets)))
	r.Table([]string{"Name", "Group", "Ecosystem"}, rows)
	return nil
}

// DiscoverTargets enumerates the entries of ListDirs under root. Entries
// no ecosystem claims are reported with an empty Ecosystem.
func DiscoverTargets(root string) ([]TargetInfo, error) {
	var targets []TargetInfo
	for _, group := range ListDirs {
		dir := filepath.Join(root, group)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", dir, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				continue
			}
			path := filepath.Join(dir, name)
			if !entry.IsDir() && !strings.HasSuffix(name, target.PythonSuffix) {
				continue
			}

			info := TargetInfo{Name: name, Group: group, Path: path}
			if eco, err := target.DetectEcosystem(path); err == nil {
				info.Ecosystem = string(eco)
			}
			targets = append(targets, info)
		}
	}

	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].Group != targets[j].Group {
			return groupIndex(targets[i].Group) < groupIndex(targets[j].Group)
		}
		return targets[i].Name < targets[j].Name
	})
	return targets, nil
}

func groupIndex(group string) int {
	for i, g := range ListDirs {
		if g == group {
			return i
		}
	}
	return len(ListDirs)
}
