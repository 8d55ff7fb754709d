package styles

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Log is for the tool's own status lines, as opposed to relayed output.
	Log = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Dark: "#93A1A1", Light: "#586E75"}).
		Italic(true)

	Failed = Log.Copy().
		Foreground(lipgloss.Color("#DC322F"))

	Header = lipgloss.NewStyle().
		Bold(true).
		Underline(true)

	Italic = lipgloss.NewStyle().
		Italic(true)
)
