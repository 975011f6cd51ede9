package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette shared by pages and modals.
var (
	ColorNavy   = lipgloss.Color("#1B2A49")
	ColorBlue   = lipgloss.Color("#4FA3F7")
	ColorGreen  = lipgloss.Color("#35DD2F")
	ColorRed    = lipgloss.Color("#FF4444")
	ColorOrange = lipgloss.Color("#FFA500")
	ColorGray   = lipgloss.Color("#808080")
	ColorWhite  = lipgloss.Color("#FFFFFF")
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)

	statusStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)

	mutedStyle = lipgloss.NewStyle().Foreground(ColorGray)

	folderStyle = lipgloss.NewStyle().Foreground(ColorOrange).Bold(true)

	learnedStyle = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Background(ColorBlue).
			Foreground(ColorNavy).
			Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBlue).
			Padding(1, 3).
			Align(lipgloss.Center, lipgloss.Center)

	answerCardStyle = cardStyle.BorderForeground(ColorGreen)

	modalBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBlue).
			Padding(0, 1)
)

// renderBranding renders "flashdeck" with a green to light blue gradient.
func renderBranding() string {
	colors := []string{
		"#49E209", "#3FE01C", "#35DD2F", "#21D955", "#17D668",
		"#0DD47B", "#00D0A1", "#00CDB4", "#00CAC7",
	}
	var out string
	for i, ch := range "flashdeck" {
		out += lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(lipgloss.Color(colors[i%len(colors)])).
			Bold(true).
			Render(string(ch))
	}
	return out
}

// renderStatusLine lays out left and right text across the full width.
func renderStatusLine(width int, left, right string) string {
	brand := renderBranding()
	used := lipgloss.Width(brand) + lipgloss.Width(left) + lipgloss.Width(right) + 4
	gap := ""
	if width > used {
		gap = lipgloss.NewStyle().Background(ColorNavy).Render(strings.Repeat(" ", width-used))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		statusStyle.Render(brand),
		statusStyle.Render(left),
		gap,
		statusStyle.Render(right),
	)
}
