package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ConfirmModal asks a yes/no question and runs onYes when confirmed.
type ConfirmModal struct {
	id     string
	prompt string
	onYes  tea.Cmd
}

// NewConfirmModal creates a confirmation dialog.
func NewConfirmModal(id, prompt string, onYes tea.Cmd) *ConfirmModal {
	return &ConfirmModal{id: "confirm-" + id, prompt: prompt, onYes: onYes}
}

func (m *ConfirmModal) ID() string { return m.id }

func (m *ConfirmModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return false, nil
	}
	switch km.String() {
	case "y", "Y", "enter":
		return true, m.onYes
	case "n", "N", "esc", "q":
		return true, nil
	}
	return false, nil
}

func (m *ConfirmModal) View(width, height int) string {
	return renderModalFrame("Confirm", m.prompt, []string{"y/Enter: Yes", "n/ESC: No"}, width, height, 60)
}
