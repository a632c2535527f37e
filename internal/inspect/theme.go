package inspect

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme centralizes report styling. Styles are only ever applied to single-line
// fragments; lipgloss pads multi-line blocks, which would alter body text.
type Theme struct {
	Rule    lipgloss.Style
	Title   lipgloss.Style
	Section lipgloss.Style
	Label   lipgloss.Style
	Dim     lipgloss.Style

	Passed  lipgloss.Style
	Failed  lipgloss.Style
	Skipped lipgloss.Style
}

// NewTheme builds the report theme for w. color is one of auto, always or never.
func NewTheme(w io.Writer, color string) Theme {
	r := lipgloss.NewRenderer(w)
	switch color {
	case "always":
		r.SetColorProfile(termenv.ANSI256)
	case "never":
		r.SetColorProfile(termenv.Ascii)
	}

	return Theme{
		Rule:    r.NewStyle().Foreground(lipgloss.Color("#874BFD")),
		Title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")),
		Section: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#61AFEF")),
		Label:   r.NewStyle().Foreground(lipgloss.Color("#888888")),
		Dim:     r.NewStyle().Foreground(lipgloss.Color("#666666")),

		Passed:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00")),
		Failed:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000")),
		Skipped: r.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
	}
}
