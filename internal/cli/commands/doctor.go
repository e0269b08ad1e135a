package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/pithos/internal/cli/config"
	"github.com/leapstack-labs/pithos/internal/cli/output"
	"github.com/leapstack-labs/pithos/internal/toolchain"
)

// Check statuses.
const (
	StatusPass  = "pass"
	StatusWarn  = "warn"
	StatusError = "error"
)

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Root       string        `json:"root"`
	ConfigFile string        `json:"config_file,omitempty"`
	Checks     []HealthCheck `json:"checks"`
	Ready      []string      `json:"ready"`
	IssueCount int           `json:"issue_count"`
}

// HealthCheck is the result of one tool or layout check.
type HealthCheck struct {
	Name   string `json:"name"`
	Group  string `json:"group"`
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Hint   string `json:"hint,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// toolRequirement is a tool some group of handlers invokes.
type toolRequirement struct {
	group    string
	tool     string
	optional bool
	detail   string
}

// requirements lists the tools pithos shells out to, per ecosystem.
func requirements(cfg *config.Config, goos string) []toolRequirement {
	reqs := []toolRequirement{
		{group: "cpp", tool: "cmake"},
		{group: "cpp", tool: "ctest"},
		{group: "rust", tool: "cargo"},
		{group: "go", tool: "go"},
		{group: "python", tool: "uv", optional: true, detail: "falls back to python3"},
		{group: "python", tool: "python3"},
		{group: "node", tool: "npm"},
		{group: "protos", tool: cfg.Generator[0], detail: "proto generator"},
	}
	if goos == "darwin" {
		reqs = append(reqs, toolRequirement{group: "cpp", tool: "xcrun", optional: true, detail: "SDK sysroot"})
	}
	return reqs
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check toolchains and monorepo layout",
		Long: `Report which of the tools pithos delegates to are available on PATH,
with install hints for the missing ones, and check the monorepo layout.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  pithos doctor

  # Output as JSON
  pithos doctor -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

func runDoctor(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	out := buildDoctorOutput(cmdCtx.Cfg, cmdCtx.Tools, cmdCtx.GOOS)
	out.ConfigFile = config.GetConfigFileUsed()

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	return nil
}

func buildDoctorOutput(cfg *config.Config, tools *toolchain.Tools, goos string) *DoctorOutput {
	out := &DoctorOutput{Root: cfg.ProjectRoot, Ready: []string{}}
	out.Checks = append(out.Checks, layoutChecks(cfg)...)

	blocked := make(map[string]bool)
	var groups []string
	for _, req := range requirements(cfg, goos) {
		if !containsString(groups, req.group) {
			groups = append(groups, req.group)
		}
		check := HealthCheck{Name: req.tool, Group: req.group, Detail: req.detail}
		if path, ok := tools.Path(req.tool); ok {
			check.Status = StatusPass
			check.Path = path
		} else {
			check.Hint = tools.Hint(req.tool)
			check.Status = StatusError
			if req.optional {
				check.Status = StatusWarn
			} else {
				blocked[req.group] = true
			}
		}
		out.Checks = append(out.Checks, check)
	}

	for _, group := range groups {
		if !blocked[group] {
			out.Ready = append(out.Ready, group)
		}
	}
	for _, check := range out.Checks {
		if check.Status != StatusPass {
			out.IssueCount++
		}
	}
	return out
}

func layoutChecks(cfg *config.Config) []HealthCheck {
	sentinel := HealthCheck{Name: cfg.Sentinel, Group: "layout", Path: filepath.Join(cfg.ProjectRoot, cfg.Sentinel)}
	if _, err := os.Stat(sentinel.Path); err == nil {
		sentinel.Status = StatusPass
	} else {
		sentinel.Status = StatusWarn
		sentinel.Detail = "root sentinel not found, using " + cfg.ProjectRoot
	}

	idl := HealthCheck{Name: cfg.IDLDir + "/", Group: "layout", Path: filepath.Join(cfg.ProjectRoot, cfg.IDLDir)}
	if info, err := os.Stat(idl.Path); err == nil && info.IsDir() {
		idl.Status = StatusPass
	} else {
		idl.Status = StatusWarn
		idl.Detail = "no interface definitions, proto sync is a no-op"
	}
	return []HealthCheck{sentinel, idl}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("pithos doctor"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Printf("   Root: %s\n", styles.Path.Render(out.Root))
	if out.ConfigFile != "" {
		r.Printf("   Config: %s\n", styles.Path.Render(out.ConfigFile))
	}
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.StatusSuccess.String()
		switch check.Status {
		case StatusWarn:
			icon = styles.Warning.Render("!")
		case StatusError:
			icon = styles.StatusFailed.String()
		}

		line := fmt.Sprintf("   %s %s", icon, check.Name)
		if check.Path != "" && check.Status == StatusPass {
			line += " " + styles.Muted.Render(check.Path)
		}
		if check.Detail != "" {
			line += " " + styles.Muted.Render("("+check.Detail+")")
		}
		r.Println(line)
		if check.Hint != "" {
			r.Println(styles.Muted.Render("       hint: " + check.Hint))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	readyStyle := styles.Success
	if out.IssueCount > 0 {
		readyStyle = styles.Warning
	}
	ready := "none"
	if len(out.Ready) > 0 {
		ready = strings.Join(out.Ready, ", ")
	}
	r.Printf("   Ready: %s\n", readyStyle.Render(ready))
	r.Println("")
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# pithos doctor")
	r.Println("")
	r.Println(output.FormatKeyValue("Root", out.Root))
	if out.ConfigFile != "" {
		r.Println(output.FormatKeyValue("Config", out.ConfigFile))
	}
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("## " + titleCaser.String(currentGroup))
			r.Println("")
		}

		r.Printf("- **[%s]** %s", strings.ToUpper(check.Status), check.Name)
		if check.Detail != "" {
			r.Printf(" (%s)", check.Detail)
		}
		r.Println("")
		if check.Hint != "" {
			r.Printf("  - hint: `%s`\n", check.Hint)
		}
	}
	r.Println("")

	r.Println("## Ready")
	r.Println("")
	if len(out.Ready) == 0 {
		r.Println("none")
	} else {
		r.Println(strings.Join(out.Ready, ", "))
	}
	r.Println("")
}
