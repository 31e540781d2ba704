package prompt

import "github.com/charmbracelet/lipgloss"

// Theme holds the styles of the terminal prompter.
type Theme struct {
	Title   lipgloss.Style
	Detail  lipgloss.Style
	Choice  lipgloss.Style
	Help    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// DefaultTheme returns the styles bound to r.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Title:   r.NewStyle().Bold(true),
		Detail:  r.NewStyle().PaddingLeft(2),
		Choice:  r.NewStyle().Foreground(lipgloss.Color("63")),
		Help:    r.NewStyle().Faint(true),
		Warning: r.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		Error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}
