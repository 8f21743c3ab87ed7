package cli

import "github.com/charmbracelet/lipgloss"

// lipgloss drops styling on its own when output is not a terminal or
// NO_COLOR is set.
var (
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	matchStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
)
