package study

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

// Session is the single actor that owns the study state. It serializes
// commands, persists the table after every change and forwards judgments to
// the optional judgment log.
type Session struct {
	mu        sync.Mutex
	state     State
	saver     model.TableSaver
	recorder  model.JudgmentRecorder
	reader    model.JudgmentReader
	now       func() time.Time
	lastError string
}

// Option configures a Session.
type Option func(*Session)

// WithJudgmentLog records every judgment to rec and serves statistics from rd.
// Either may be nil.
func WithJudgmentLog(rec model.JudgmentRecorder, rd model.JudgmentReader) Option {
	return func(s *Session) {
		s.recorder = rec
		s.reader = rd
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession starts a session over table. saver may be nil, in which case
// nothing is persisted.
func NewSession(table model.FolderTable, saver model.TableSaver, opts ...Option) *Session {
	s := &Session{
		state: NewState(table),
		saver: saver,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ model.StudyAPI = (*Session)(nil)

// Snapshot returns the current core state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) State() (model.StudyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

func (s *Session) Open(folder model.FolderKey, deckID int64) (model.StudyState, error) {
	return s.apply("open", false, func(st State) (State, bool) { return Open(st, folder, deckID) })
}

func (s *Session) CloseDeck() (model.StudyState, error) {
	return s.apply("close", false, Close)
}

func (s *Session) Judge(dir model.Direction) (model.StudyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.state
	next, ok := ApplyJudgment(before, dir)
	if !ok {
		return s.view(), nil
	}
	s.commit("judge", next)

	if s.recorder != nil {
		if d, found := before.ActiveDeck(); found {
			if c, has := d.Current(); has {
				s.recorder.Add(&model.JudgmentEvent{
					At:        s.now(),
					Folder:    before.View.Folder,
					DeckID:    before.View.DeckID,
					CardID:    c.ID,
					Direction: dir,
				})
			}
		}
	}
	return s.view(), nil
}

func (s *Session) Previous() (model.StudyState, error) {
	return s.apply("previous", true, GoPrevious)
}

func (s *Session) Import(name string, cards []model.CardInput) (model.StudyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, id, ok := Import(s.state, name, cards, s.now())
	if !ok {
		return s.view(), nil
	}
	if d, found := next.Table.FindDeck(model.Original(model.DefaultFolder), id); found {
		log.Printf("study: imported deck %q (id %d, %d cards)", d.Name, id, len(d.Cards))
	}
	s.commit("import", next)
	return s.view(), nil
}

func (s *Session) CreateFolder(name string) (model.StudyState, error) {
	return s.apply("create folder", true, func(st State) (State, bool) { return CreateFolder(st, name) })
}

func (s *Session) MoveDeck(deckID int64, from, to string) (model.StudyState, error) {
	return s.apply("move deck", true, func(st State) (State, bool) { return MoveDeck(st, deckID, from, to) })
}

func (s *Session) Reset(deckID int64, folder model.FolderKey) (model.StudyState, error) {
	return s.apply("reset", true, func(st State) (State, bool) { return Reset(st, deckID, folder) })
}

func (s *Session) DeleteDeck(deckID int64, folder string) (model.StudyState, error) {
	return s.apply("delete deck", true, func(st State) (State, bool) { return DeleteDeck(st, deckID, folder) })
}

func (s *Session) DeleteFolder(name string) (model.StudyState, error) {
	return s.apply("delete folder", true, func(st State) (State, bool) { return DeleteFolder(st, name) })
}

// DailyJudgments reads per-day judgment counts for a deck. Without a
// judgment log it returns an empty slice.
func (s *Session) DailyJudgments(deckID int64, days int) ([]model.DailyJudgments, error) {
	if s.reader == nil {
		return []model.DailyJudgments{}, nil
	}
	if days <= 0 {
		days = model.DefaultStatsDays
	}
	rows, err := s.reader.DailyJudgments(deckID, days)
	if err != nil {
		return nil, fmt.Errorf("study: daily judgments: %w", err)
	}
	return rows, nil
}

func (s *Session) apply(op string, persist bool, fn func(State) (State, bool)) (model.StudyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := fn(s.state)
	if !ok {
		return s.view(), nil
	}
	if persist {
		s.commit(op, next)
	} else {
		s.state = next
	}
	return s.view(), nil
}

// commit installs next and saves its table. A failed save is reported
// through lastError; the in-memory state is kept either way.
func (s *Session) commit(op string, next State) {
	if err := CheckInvariants(next.Table); err != nil {
		log.Printf("study: %s left the table inconsistent: %v", op, err)
	}
	s.state = next
	if s.saver == nil {
		return
	}
	if err := s.saver.SaveTable(next.Table); err != nil {
		log.Printf("study: save after %s failed: %v", op, err)
		s.lastError = fmt.Sprintf("save failed: %v", err)
		return
	}
	s.lastError = ""
}

func (s *Session) view() model.StudyState {
	out := model.StudyState{
		Table:         s.state.Table,
		View:          s.state.View,
		CanGoPrevious: s.state.History.CanGoPrevious(),
		LastError:     s.lastError,
	}
	if d, ok := s.state.ActiveDeck(); ok {
		out.Deck = &d
		if c, ok := d.Current(); ok {
			out.Current = &c
		}
	}
	return out
}
