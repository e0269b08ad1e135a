package output

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#02BA84", Dark: "#02BF87"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#C48A00", Dark: "#F5C542"}
	colorError   = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F87"}
	colorInfo    = lipgloss.AdaptiveColor{Light: "#1F6FEB", Dark: "#58A6FF"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"}
)

// Styles holds the lipgloss styles used by commands.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Path    lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

// NewStyles builds styles bound to lr's colour profile.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: lr.NewStyle().Bold(true).Foreground(colorPrimary),
		Header2: lr.NewStyle().Bold(true),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(colorMuted),
		Success: lr.NewStyle().Foreground(colorSuccess),
		Warning: lr.NewStyle().Foreground(colorWarning),
		Error:   lr.NewStyle().Foreground(colorError),
		Info:    lr.NewStyle().Foreground(colorInfo),
		Path:    lr.NewStyle().Foreground(colorPrimary),

		StatusSuccess: lr.NewStyle().Foreground(colorSuccess).SetString("✓"),
		StatusFailed:  lr.NewStyle().Foreground(colorError).SetString("✗"),
	}
}
