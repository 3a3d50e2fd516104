package editor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	diffHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
	diffHunkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#874BFD"))
	diffAddStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	diffDelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94"))
	diffCtxStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// RenderDiff colors a unified diff for the terminal. Colors are dropped
// automatically when the output is not a terminal.
func RenderDiff(diff string) string {
	if diff == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = diffHeaderStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = diffHunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = diffAddStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = diffDelStyle.Render(line)
		default:
			lines[i] = diffCtxStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
