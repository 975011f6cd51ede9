package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// App is the top-level Bubble Tea model that routes between pages and owns
// the modal stack.
type App struct {
	pages      map[string]Page
	activePage string
	modals     []Modal
	keys       KeyMap
	width      int
	height     int
}

// NewApp creates a new App with the given pages. The first page is the default.
func NewApp(pages ...Page) *App {
	pageMap := make(map[string]Page, len(pages))
	var firstID string
	for i, p := range pages {
		pageMap[p.ID()] = p
		if i == 0 {
			firstID = p.ID()
		}
	}
	return &App{
		pages:      pageMap,
		activePage: firstID,
		keys:       DefaultKeyMap(),
	}
}

// ActivePage returns the id of the page receiving input.
func (a *App) ActivePage() string { return a.activePage }

// TopModal returns the modal receiving input, or nil.
func (a *App) TopModal() Modal {
	if len(a.modals) == 0 {
		return nil
	}
	return a.modals[len(a.modals)-1]
}

// PushModal puts m on top of the stack unless a modal with the same id is
// already there.
func (a *App) PushModal(m Modal) {
	for _, existing := range a.modals {
		if existing.ID() == m.ID() {
			return
		}
	}
	a.modals = append(a.modals, m)
}

// PopModal removes the top modal.
func (a *App) PopModal() {
	if len(a.modals) > 0 {
		a.modals = a.modals[:len(a.modals)-1]
	}
}

func (a *App) Init() tea.Cmd {
	if p, ok := a.pages[a.activePage]; ok {
		return p.Init()
	}
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.ForceQuit) {
			return a, tea.Quit
		}
		if modal := a.TopModal(); modal != nil {
			pop, cmd := modal.Update(msg)
			if pop {
				a.PopModal()
			}
			return a, cmd
		}

	case tea.MouseMsg:
		if modal := a.TopModal(); modal != nil {
			pop, cmd := modal.Update(msg)
			if pop {
				a.PopModal()
			}
			return a, cmd
		}

	case ActionMsg:
		if msg.Action == ActionPushModal {
			if modal, ok := msg.Payload.(Modal); ok {
				a.PushModal(modal)
			}
		}
		return a, nil
	}

	p, ok := a.pages[a.activePage]
	if !ok {
		return a, nil
	}

	cmd, nav := p.Update(msg)

	if nav != nil {
		if _, exists := a.pages[nav.PageID]; exists && nav.PageID != a.activePage {
			a.activePage = nav.PageID
			initCmd := a.pages[a.activePage].Init()
			return a, tea.Batch(cmd, initCmd)
		}
	}

	return a, cmd
}

func (a *App) View() string {
	if modal := a.TopModal(); modal != nil {
		return modal.View(a.width, a.height)
	}
	if p, ok := a.pages[a.activePage]; ok {
		return p.View(a.width, a.height)
	}
	return "No active page"
}
