// pkg/relay_cli/render.go

package relay_cli

import (
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/mirror"
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorSuccess = lipgloss.Color("#00ff00") // Green
	ColorWarning = lipgloss.Color("#ffaa00") // Orange
	ColorError   = lipgloss.Color("#ff0000") // Red
	ColorMuted   = lipgloss.Color("#666666") // Gray
)

// Styles used by the sync command output.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles creates the default palette.
func NewStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(ColorSuccess),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Error:   lipgloss.NewStyle().Foreground(ColorError),
		Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	}
}

// RenderOutcome formats a sync result for a terminal.
func RenderOutcome(s Styles, repo string, out mirror.Outcome) string {
	var b strings.Builder

	status := s.Success.Render("✓")
	if !out.Succeeded() {
		status = s.Error.Render("✗")
	}
	fmt.Fprintf(&b, "%s %s %s\n", status, s.Title.Render(repo), s.Muted.Render(fmt.Sprintf("(%d)", out.StatusCode)))

	for _, line := range strings.Split(out.Message, "\n") {
		fmt.Fprintf(&b, "  %s\n", line)
	}

	for _, r := range out.Refs {
		switch {
		case r.UpToDate:
			fmt.Fprintf(&b, "    %s %s\n", s.Muted.Render("="), s.Muted.Render(r.RefName+" (up to date)"))
		case r.Succeeded:
			fmt.Fprintf(&b, "    %s %s\n", s.Success.Render("+"), r.RefName)
		default:
			fmt.Fprintf(&b, "    %s %s\n", s.Warning.Render("!"), r.RefName)
		}
	}
	return b.String()
}
