package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModal shows the key reference in a scrollable viewport.
type HelpModal struct {
	vp   viewport.Model
	keys KeyMap
}

// NewHelpModal creates the help modal.
func NewHelpModal() *HelpModal {
	return &HelpModal{vp: viewport.New(0, 0), keys: DefaultKeyMap()}
}

func (m *HelpModal) ID() string { return "help" }

func (m *HelpModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(km, m.keys.Escape) || key.Matches(km, m.keys.Help) || key.Matches(km, m.keys.Quit) {
			return true, nil
		}
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return false, cmd
}

func (m *HelpModal) View(width, height int) string {
	// Calculate dimensions
	modalWidth := width - 8   // Leave 4 chars margin on each side
	modalHeight := height - 4 // Leave 2 lines margin top and bottom

	contentWidth := max(modalWidth-4, 10)
	contentHeight := max(modalHeight-4, 3)

	m.vp.Width = contentWidth
	m.vp.Height = contentHeight
	m.vp.SetContent(lipgloss.NewStyle().Width(contentWidth).Render(helpContent))

	contentPane := lipgloss.NewStyle().
		Width(contentWidth).
		Height(contentHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		Render(m.vp.View())

	header := lipgloss.NewStyle().
		Width(contentWidth).
		Foreground(ColorBlue).
		Bold(true).
		Render("Help")

	statusBar := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render("up/down/Wheel: Scroll | PgUp/PgDn: Page | ?: Toggle Help | ESC: Close")

	modal := lipgloss.JoinVertical(lipgloss.Left, header, contentPane, statusBar)

	finalModal := lipgloss.NewStyle().
		Width(max(modalWidth, 14)).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Render(modal)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, finalModal)
}

const helpContent = `flashdeck

LIBRARY:
  up/down or k/j - Move between folders and decks
  Home/End       - Jump to the first or last row
  Enter          - Study the selected deck
  i              - Import a CSV, TSV or YAML file into Uncategorized
  n              - Create a folder
  m              - Move the selected deck to another folder
  r              - Reset the selected deck
  d              - Delete the selected deck or folder
  s              - Show daily statistics for the selected deck
  q              - Quit

STUDY:
  Space/Enter    - Reveal or hide the answer
  right or l     - I knew it
  left or h      - I didn't know it
  p/Backspace    - Go back to the previous card
  r              - Reset a finished deck
  Esc/q          - Back to the library

DECKS:
  Cards you knew move to the learned folder of the same name (Learned_...).
  Cards you didn't know go to the back of the deck and their miss counter
  goes up. In a learned deck, "knew" keeps the card there and "didn't know"
  sends it back to the front of its original deck.

IMPORT FORMATS:
  CSV/TSV with question and answer columns, or any two columns.
  YAML as a list of {question, answer} or {name, cards: [...]}.
`
