package study

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tinytelemetry/flashdeck/internal/model"
)

// newCardID generates card identities.
var newCardID = func() string { return uuid.NewString() }

// Import builds a deck from parsed rows and appends it to the default
// folder. Rows missing a question or an answer are dropped; when nothing is
// left no deck is created.
func Import(s State, name string, rows []model.CardInput, now time.Time) (State, int64, bool) {
	cards := make([]model.Card, 0, len(rows))
	for _, r := range rows {
		q := strings.TrimSpace(r.Question)
		a := strings.TrimSpace(r.Answer)
		if q == "" || a == "" {
			continue
		}
		cards = append(cards, model.Card{ID: newCardID(), Question: q, Answer: a})
	}
	if len(cards) == 0 {
		return s, 0, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled"
	}

	t := cloneTable(s.Table)
	id := nextDeckID(t, now)
	d := model.Deck{
		ID:    id,
		Name:  name,
		Cards: cards,
		Stats: model.Stats{Total: len(cards)},
	}
	t.Folders[model.DefaultFolder] = appendDeck(t.Folders[model.DefaultFolder], d)
	if _, ok := t.Learned[model.DefaultFolder]; !ok {
		t.Learned[model.DefaultFolder] = []model.Deck{}
	}

	return State{Table: t, View: s.View, History: s.History}, id, true
}

// nextDeckID uses the creation time in milliseconds, bumped past any id
// already in the table.
func nextDeckID(t model.FolderTable, now time.Time) int64 {
	id := now.UnixMilli()
	var maxID int64
	for _, m := range []map[string][]model.Deck{t.Folders, t.Learned} {
		for _, decks := range m {
			for _, d := range decks {
				if d.ID > maxID {
					maxID = d.ID
				}
			}
		}
	}
	if id <= maxID {
		id = maxID + 1
	}
	return id
}

// CreateFolder adds an empty folder and its learned counterpart.
func CreateFolder(s State, name string) (State, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s, false
	}
	if _, exists := s.Table.Folders[name]; exists {
		return s, false
	}
	t := cloneTable(s.Table)
	t.Folders[name] = []model.Deck{}
	if _, ok := t.Learned[name]; !ok {
		t.Learned[name] = []model.Deck{}
	}
	return State{Table: t, View: s.View, History: s.History}, true
}

// MoveDeck relocates a deck, and its learned counterpart when present,
// between two existing folders.
func MoveDeck(s State, deckID int64, from, to string) (State, bool) {
	to = strings.TrimSpace(to)
	if to == "" || to == from {
		return s, false
	}
	fromDecks, ok := s.Table.Folders[from]
	if !ok {
		return s, false
	}
	i := deckIndex(fromDecks, deckID)
	if i < 0 {
		return s, false
	}
	toDecks, ok := s.Table.Folders[to]
	if !ok {
		return s, false
	}

	t := cloneTable(s.Table)
	t.Folders[from] = removeDeck(fromDecks, i)
	t.Folders[to] = appendDeck(toDecks, fromDecks[i])

	if learned, ok := t.Learned[from]; ok {
		if j := deckIndex(learned, deckID); j >= 0 {
			sd := learned[j]
			setDecks(t, model.Learned(from), removeDeck(learned, j))
			t.Learned[to] = appendDeck(t.Learned[to], sd)
		}
	}

	view := s.View
	if view != nil && view.DeckID == deckID && view.Folder.Name == from {
		view = viewOf(model.FolderKey{Kind: view.Folder.Kind, Name: to}, deckID)
	}
	return State{Table: t, View: view, History: s.History}, true
}

// Reset folds learned cards back into their original deck.
//
// With a learned key only the learned deck is merged back. With an original
// key the learned deck (if any) is merged and the deck's statistics and
// cursor start over.
func Reset(s State, deckID int64, key model.FolderKey) (State, bool) {
	if key.IsLearned() {
		return resetLearned(s, deckID, key)
	}

	decks, ok := s.Table.Folders[key.Name]
	if !ok {
		return s, false
	}
	i := deckIndex(decks, deckID)
	if i < 0 {
		return s, false
	}

	t := cloneTable(s.Table)
	d := decks[i]
	learnedKey := key.Counterpart()
	if learned, ok := t.Learned[key.Name]; ok {
		if j := deckIndex(learned, deckID); j >= 0 {
			d.Cards = concatCards(d.Cards, learned[j].Cards)
			setDecks(t, learnedKey, removeDeck(learned, j))
		}
	}
	d.Stats = model.Stats{Total: len(d.Cards)}
	d.CurrentIndex = 0
	settle(&d)
	t.Folders[key.Name] = replaceDeck(decks, i, d)

	return State{Table: t, View: dropView(s.View, learnedKey, deckID), History: s.History}, true
}

func resetLearned(s State, deckID int64, key model.FolderKey) (State, bool) {
	learned, ok := s.Table.Learned[key.Name]
	if !ok {
		return s, false
	}
	j := deckIndex(learned, deckID)
	if j < 0 {
		return s, false
	}

	t := cloneTable(s.Table)
	sd := learned[j]
	setDecks(t, key, removeDeck(learned, j))

	origKey := key.Counterpart()
	decks := decksOf(t, origKey)
	if i := deckIndex(decks, deckID); i >= 0 {
		d := decks[i]
		d.Cards = concatCards(d.Cards, sd.Cards)
		settle(&d)
		t.Folders[key.Name] = replaceDeck(decks, i, d)
	} else {
		d := model.Deck{ID: sd.ID, Name: sd.Name, Cards: sd.Cards, Stats: model.Stats{Total: len(sd.Cards)}}
		settle(&d)
		t.Folders[key.Name] = appendDeck(decks, d)
	}

	return State{Table: t, View: dropView(s.View, key, deckID), History: s.History}, true
}

// DeleteDeck removes a deck and its learned counterpart from folder.
func DeleteDeck(s State, deckID int64, folder string) (State, bool) {
	decks := s.Table.Folders[folder]
	learned := s.Table.Learned[folder]
	i := deckIndex(decks, deckID)
	j := deckIndex(learned, deckID)
	if i < 0 && j < 0 {
		return s, false
	}

	t := cloneTable(s.Table)
	if i >= 0 {
		t.Folders[folder] = removeDeck(decks, i)
	}
	if j >= 0 {
		setDecks(t, model.Learned(folder), removeDeck(learned, j))
	}

	view := s.View
	if view != nil && view.DeckID == deckID && view.Folder.Name == folder {
		view = nil
	}
	return State{Table: t, View: view, History: s.History}, true
}

// DeleteFolder removes a folder together with its learned counterpart.
func DeleteFolder(s State, name string) (State, bool) {
	_, hasOrig := s.Table.Folders[name]
	_, hasLearned := s.Table.Learned[name]
	if !hasOrig && !hasLearned {
		return s, false
	}

	t := cloneTable(s.Table)
	delete(t.Folders, name)
	delete(t.Learned, name)

	view := s.View
	if view != nil && view.Folder.Name == name {
		view = nil
	}
	return State{Table: t, View: view, History: s.History}, true
}

// Open points the view at a deck and records the card it presents.
func Open(s State, key model.FolderKey, deckID int64) (State, bool) {
	d, ok := s.Table.FindDeck(key, deckID)
	if !ok {
		return s, false
	}
	next := State{Table: s.Table, View: viewOf(key, deckID), History: s.History}
	if c, ok := d.Current(); ok {
		next.History = s.History.push(model.HistoryEntry{Folder: key, DeckID: deckID, Card: c})
	}
	return next, true
}

// Close clears the view.
func Close(s State) (State, bool) {
	if s.View == nil {
		return s, false
	}
	return State{Table: s.Table, History: s.History}, true
}

func dropView(v *model.ActiveView, key model.FolderKey, deckID int64) *model.ActiveView {
	if v != nil && v.Folder == key && v.DeckID == deckID {
		return nil
	}
	return v
}
