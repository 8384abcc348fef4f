package report

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/marcin-skalski/jobcheck/internal/builds"
)

var (
	colorSuccess    = lipgloss.Color("46")  // green
	colorFailed     = lipgloss.Color("196") // red
	colorUnstable   = lipgloss.Color("220") // yellow
	colorInProgress = lipgloss.Color("33")  // blue
	colorOther      = lipgloss.Color("240") // gray

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			PaddingLeft(1).
			PaddingRight(1)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginTop(1)

	jobStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	linkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Underline(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	EmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)

func statusIcon(status string) string {
	switch status {
	case builds.StatusSuccess:
		return "✅"
	case builds.StatusFailed:
		return "❌"
	case builds.StatusUnstable:
		return "⚠️"
	case builds.StatusInProgress:
		return "⚙️"
	default:
		return "❓"
	}
}

// StatusColor is the colour used for a build status.
func StatusColor(status string) color.Color {
	switch status {
	case builds.StatusSuccess:
		return colorSuccess
	case builds.StatusFailed:
		return colorFailed
	case builds.StatusUnstable:
		return colorUnstable
	case builds.StatusInProgress:
		return colorInProgress
	default:
		return colorOther
	}
}

// StatusLabel renders a status with its icon and colour.
func StatusLabel(status string) string {
	return lipgloss.NewStyle().Foreground(StatusColor(status)).Render(statusIcon(status) + " " + status)
}
