package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderModalFrame wraps content in the standard modal chrome: a title, a
// bordered body and a status bar, centered on screen.
func renderModalFrame(title, content string, statusItems []string, width, height, boxWidth int) string {
	boxWidth = min(boxWidth, max(width-8, 20))

	header := lipgloss.NewStyle().
		Width(boxWidth).
		Foreground(ColorBlue).
		Bold(true).
		Render(title)

	body := lipgloss.NewStyle().
		Width(boxWidth).
		Render(content)

	statusBar := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render(strings.Join(statusItems, " | "))

	modal := lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", statusBar)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modalBorder.Render(modal))
}
