package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/flashdeck/internal/model"
	"github.com/tinytelemetry/flashdeck/internal/study"
)

// harness drives an App synchronously: every returned command is executed
// and its message fed back, except timers and quit.
type harness struct {
	t       *testing.T
	app     *App
	session *Session
	api     *study.Session
	quit    bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := study.NewSession(model.NewFolderTable(), nil)
	session := NewSession(api)
	h := &harness{
		t:       t,
		app:     NewApp(NewLibraryPage(session), NewStudyPage(session)),
		session: session,
		api:     api,
	}
	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})
	h.exec(h.app.Init())
	return h
}

func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	_, cmd := h.app.Update(msg)
	h.exec(cmd)
}

func (h *harness) exec(cmd tea.Cmd) {
	h.t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			h.exec(c)
		}
	case tea.QuitMsg:
		h.quit = true
	case spinnerTickMsg:
	default:
		h.send(msg)
	}
}

// press sends one key by name.
func (h *harness) press(keys ...string) {
	h.t.Helper()
	for _, k := range keys {
		h.send(keyMsg(k))
	}
}

// typeText feeds runes to the focused prompt. Cursor blink commands are
// dropped.
func (h *harness) typeText(s string) {
	h.t.Helper()
	for _, r := range s {
		_, _ = h.app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func (h *harness) importCards(name string, n int) model.Deck {
	h.t.Helper()
	cards := make([]model.CardInput, n)
	for i := range cards {
		cards[i] = model.CardInput{Question: name + " q" + string(rune('a'+i)), Answer: "a" + string(rune('a'+i))}
	}
	if _, err := h.api.Import(name, cards); err != nil {
		h.t.Fatalf("Import: %v", err)
	}
	h.exec(h.session.refresh())
	decks := h.session.state.Table.Folders[model.DefaultFolder]
	return decks[len(decks)-1]
}
