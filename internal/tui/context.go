package tui

import tea "github.com/charmbracelet/bubbletea"

// Action identifies what a page wants the app to do.
type Action int

const (
	ActionPushModal Action = iota
)

// ActionMsg lets pages and modals talk to the App without holding a
// reference to it.
type ActionMsg struct {
	Action  Action
	Payload any
}

// actionMsg wraps ActionMsg as a tea.Msg.
func actionMsg(a ActionMsg) tea.Cmd {
	return func() tea.Msg { return a }
}

// pushModal asks the App to show m.
func pushModal(m Modal) tea.Cmd {
	return actionMsg(ActionMsg{Action: ActionPushModal, Payload: m})
}
