package tui

import "charm.land/lipgloss/v2"

var (
	treeJobStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

func badgeStyle(color string) lipgloss.Style {
	if color == "" {
		color = "#4688F1"
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255")).
		Background(lipgloss.Color(color)).
		PaddingLeft(1).
		PaddingRight(1)
}
