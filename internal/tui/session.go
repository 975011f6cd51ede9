package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/flashdeck/internal/cardsource"
	"github.com/tinytelemetry/flashdeck/internal/model"
)

// Session caches the last StudyState returned by the API. Pages read it and
// issue commands through it; all API calls run inside tea.Cmds.
type Session struct {
	api       model.StudyAPI
	state     model.StudyState
	err       string
	loaded    bool
	statsDays int
}

// NewSession wraps api.
func NewSession(api model.StudyAPI) *Session {
	return &Session{api: api, statsDays: model.DefaultStatsDays}
}

// SetStatsDays sets how many days the stats modal covers. Values below one
// are ignored.
func (s *Session) SetStatsDays(days int) {
	if days > 0 {
		s.statsDays = days
	}
}

// stateMsg carries the result of one StudyAPI command.
type stateMsg struct {
	op    string
	state model.StudyState
	err   error
}

// statsMsg carries the daily judgment rows for one deck.
type statsMsg struct {
	deckID int64
	name   string
	rows   []model.DailyJudgments
	err    error
}

func (s *Session) run(op string, fn func(api model.StudyAPI) (model.StudyState, error)) tea.Cmd {
	api := s.api
	return func() tea.Msg {
		st, err := fn(api)
		return stateMsg{op: op, state: st, err: err}
	}
}

// apply stores the result of a command. A failed call keeps the previous
// state on screen.
func (s *Session) apply(msg stateMsg) {
	if msg.err != nil {
		s.err = fmt.Sprintf("%s: %v", msg.op, msg.err)
		return
	}
	s.state = msg.state
	s.loaded = true
	s.err = msg.state.LastError
}

// Error returns the message to show in the status line, if any.
func (s *Session) Error() string { return s.err }

func (s *Session) refresh() tea.Cmd {
	return s.run("state", func(api model.StudyAPI) (model.StudyState, error) { return api.State() })
}

func (s *Session) open(key model.FolderKey, deckID int64) tea.Cmd {
	return s.run("open", func(api model.StudyAPI) (model.StudyState, error) { return api.Open(key, deckID) })
}

func (s *Session) closeDeck() tea.Cmd {
	return s.run("close", func(api model.StudyAPI) (model.StudyState, error) { return api.CloseDeck() })
}

func (s *Session) judge(dir model.Direction) tea.Cmd {
	return s.run("judge", func(api model.StudyAPI) (model.StudyState, error) { return api.Judge(dir) })
}

func (s *Session) previous() tea.Cmd {
	return s.run("previous", func(api model.StudyAPI) (model.StudyState, error) { return api.Previous() })
}

func (s *Session) createFolder(name string) tea.Cmd {
	return s.run("new folder", func(api model.StudyAPI) (model.StudyState, error) { return api.CreateFolder(name) })
}

func (s *Session) moveDeck(deckID int64, from, to string) tea.Cmd {
	return s.run("move", func(api model.StudyAPI) (model.StudyState, error) { return api.MoveDeck(deckID, from, to) })
}

func (s *Session) reset(deckID int64, key model.FolderKey) tea.Cmd {
	return s.run("reset", func(api model.StudyAPI) (model.StudyState, error) { return api.Reset(deckID, key) })
}

func (s *Session) deleteDeck(deckID int64, folder string) tea.Cmd {
	return s.run("delete deck", func(api model.StudyAPI) (model.StudyState, error) { return api.DeleteDeck(deckID, folder) })
}

func (s *Session) deleteFolder(name string) tea.Cmd {
	return s.run("delete folder", func(api model.StudyAPI) (model.StudyState, error) { return api.DeleteFolder(name) })
}

// importFile parses path locally and sends the rows to the service.
func (s *Session) importFile(path string) tea.Cmd {
	return s.run("import", func(api model.StudyAPI) (model.StudyState, error) {
		src, err := cardsource.ParseFile(expandHome(path))
		if err != nil {
			return model.StudyState{}, err
		}
		if len(src.Cards) == 0 {
			return model.StudyState{}, fmt.Errorf("%s has no cards with both a question and an answer", path)
		}
		return api.Import(src.Name, src.Cards)
	})
}

func (s *Session) fetchStats(deckID int64, name string) tea.Cmd {
	api, days := s.api, s.statsDays
	return func() tea.Msg {
		rows, err := api.DailyJudgments(deckID, days)
		return statsMsg{deckID: deckID, name: name, rows: rows, err: err}
	}
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
