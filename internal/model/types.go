package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LearnedPrefix is prepended to a folder name when a learned folder is shown
// to the user. It is display-only and never parsed back into a FolderKey.
const LearnedPrefix = "Learned_"

// DefaultFolder receives every imported deck.
const DefaultFolder = "Uncategorized"

// Card is one question/answer pair. Cards are matched across decks by ID,
// never by question text.
type Card struct {
	ID         string `json:"id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	WrongCount int    `json:"wrong_count"`
}

// CardInput is a parsed row handed to the core by the card source.
type CardInput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Stats accumulates per-deck judgment counts.
type Stats struct {
	Total     int `json:"total"` // card count at import or last reset
	Swipes    int `json:"swipes"`
	Knew      int `json:"knew"`
	DidntKnow int `json:"didnt_know"`
}

// Deck is an ordered pool of cards with a cursor. A learned (shadow) deck has
// the same shape and shares the ID of the deck its cards came from.
type Deck struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Cards        []Card `json:"cards"`
	CurrentIndex int    `json:"current_index"`
	Stats        Stats  `json:"stats"`
	Finished     bool   `json:"finished"`
}

// Current returns the card under the cursor.
func (d Deck) Current() (Card, bool) {
	if len(d.Cards) == 0 {
		return Card{}, false
	}
	return d.Cards[d.Cursor()], true
}

// Cursor returns CurrentIndex folded into range modulo the card count, or 0
// for an empty deck.
func (d Deck) Cursor() int {
	n := len(d.Cards)
	if n == 0 {
		return 0
	}
	idx := d.CurrentIndex % n
	if idx < 0 {
		idx += n
	}
	return idx
}

// IndexOf returns the position of the card with the given id, or -1.
func (d Deck) IndexOf(cardID string) int {
	for i, c := range d.Cards {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// FolderKind distinguishes user folders from their learned counterparts.
type FolderKind int

const (
	KindOriginal FolderKind = iota
	KindLearned
)

func (k FolderKind) String() string {
	if k == KindLearned {
		return "learned"
	}
	return "original"
}

// MarshalText implements encoding.TextMarshaler.
func (k FolderKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FolderKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "original":
		*k = KindOriginal
	case "learned":
		*k = KindLearned
	default:
		return fmt.Errorf("unknown folder kind %q", string(b))
	}
	return nil
}

// FolderKey addresses one list of decks in a FolderTable.
type FolderKey struct {
	Kind FolderKind `json:"kind"`
	Name string     `json:"name"`
}

// Original addresses a user folder.
func Original(name string) FolderKey { return FolderKey{Kind: KindOriginal, Name: name} }

// Learned addresses the learned counterpart of a user folder.
func Learned(name string) FolderKey { return FolderKey{Kind: KindLearned, Name: name} }

func (k FolderKey) IsLearned() bool { return k.Kind == KindLearned }

// Counterpart flips between a folder and its learned sibling.
func (k FolderKey) Counterpart() FolderKey {
	if k.IsLearned() {
		return Original(k.Name)
	}
	return Learned(k.Name)
}

func (k FolderKey) String() string {
	if k.IsLearned() {
		return LearnedPrefix + k.Name
	}
	return k.Name
}

// FolderTable holds every deck. Folders and Learned are keyed by the user
// folder name; Learned entries are created lazily.
type FolderTable struct {
	Folders map[string][]Deck `json:"folders"`
	Learned map[string][]Deck `json:"learned"`
}

// NewFolderTable returns an empty table with initialized maps.
func NewFolderTable() FolderTable {
	return FolderTable{
		Folders: map[string][]Deck{},
		Learned: map[string][]Deck{},
	}
}

// Decks returns the deck list stored under key.
func (t FolderTable) Decks(key FolderKey) ([]Deck, bool) {
	m := t.Folders
	if key.IsLearned() {
		m = t.Learned
	}
	decks, ok := m[key.Name]
	return decks, ok
}

// HasFolder reports whether key exists, even with an empty list.
func (t FolderTable) HasFolder(key FolderKey) bool {
	_, ok := t.Decks(key)
	return ok
}

// FindDeck looks up a deck by id under key.
func (t FolderTable) FindDeck(key FolderKey, deckID int64) (Deck, bool) {
	decks, ok := t.Decks(key)
	if !ok {
		return Deck{}, false
	}
	for _, d := range decks {
		if d.ID == deckID {
			return d, true
		}
	}
	return Deck{}, false
}

// FolderNames returns user folder names in sorted order.
func (t FolderTable) FolderNames() []string {
	names := make([]string, 0, len(t.Folders))
	for name := range t.Folders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LearnedNames returns learned folder names in sorted order.
func (t FolderTable) LearnedNames() []string {
	names := make([]string, 0, len(t.Learned))
	for name := range t.Learned {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActiveView points at the deck currently open for study.
type ActiveView struct {
	Folder FolderKey `json:"folder"`
	DeckID int64     `json:"deck_id"`
}

// Direction is the user's verdict on the current card.
type Direction int

const (
	DirectionNone Direction = iota
	Knew
	DidntKnow
)

func (d Direction) String() string {
	switch d {
	case Knew:
		return "knew"
	case DidntKnow:
		return "didnt_know"
	default:
		return "none"
	}
}

// ParseDirection accepts the canonical names plus the swipe aliases
// "right" (knew) and "left" (didn't know).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "knew", "right", "known":
		return Knew, nil
	case "didnt_know", "didntknow", "didnt-know", "left", "wrong":
		return DidntKnow, nil
	}
	return DirectionNone, fmt.Errorf("unknown direction %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	if string(b) == "none" || len(b) == 0 {
		*d = DirectionNone
		return nil
	}
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// HistoryEntry records the card presented after an open or a judgment.
// A zero Card marks a deck with nothing left to present.
type HistoryEntry struct {
	Folder    FolderKey `json:"folder"`
	DeckID    int64     `json:"deck_id"`
	Card      Card      `json:"card"`
	Direction Direction `json:"direction"`
}

// IsEndMarker reports whether the entry carries no card.
func (e HistoryEntry) IsEndMarker() bool { return e.Card.ID == "" }

// StudyState is everything a renderer needs to draw one frame.
type StudyState struct {
	Table         FolderTable `json:"table"`
	View          *ActiveView `json:"view,omitempty"`
	Deck          *Deck       `json:"deck,omitempty"`
	Current       *Card       `json:"current,omitempty"`
	CanGoPrevious bool        `json:"can_go_previous"`
	LastError     string      `json:"last_error,omitempty"`
}

// JudgmentEvent is one row of the judgment log.
type JudgmentEvent struct {
	At        time.Time
	Folder    FolderKey
	DeckID    int64
	CardID    string
	Direction Direction
}

// DailyJudgments aggregates the judgment log per calendar day.
type DailyJudgments struct {
	Day       time.Time `json:"day"`
	Knew      int64     `json:"knew"`
	DidntKnow int64     `json:"didnt_know"`
}
