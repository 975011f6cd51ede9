package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// PromptModal reads one line of text and hands it to onSubmit.
type PromptModal struct {
	id       string
	title    string
	input    textinput.Model
	onSubmit func(value string) tea.Cmd
}

// NewPromptModal creates a single-line input dialog.
func NewPromptModal(id, title, placeholder string, onSubmit func(string) tea.Cmd) *PromptModal {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 512
	in.Width = 50
	in.Focus()
	return &PromptModal{id: "prompt-" + id, title: title, input: in, onSubmit: onSubmit}
}

func (m *PromptModal) ID() string { return m.id }

// Value returns the text typed so far.
func (m *PromptModal) Value() string { return m.input.Value() }

func (m *PromptModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.Type {
		case tea.KeyEsc:
			return true, nil
		case tea.KeyEnter:
			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				return true, nil
			}
			return true, m.onSubmit(value)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return false, cmd
}

func (m *PromptModal) View(width, height int) string {
	return renderModalFrame(m.title, m.input.View(), []string{"Enter: OK", "ESC: Cancel"}, width, height, 60)
}
