package study

import (
	"github.com/tinytelemetry/flashdeck/internal/model"
)

// State is the unit every core operation maps to a new State.
type State struct {
	Table   model.FolderTable
	View    *model.ActiveView
	History History
}

// NewState returns a State over table with no open deck and empty history.
func NewState(table model.FolderTable) State {
	return State{Table: repairTable(table)}
}

// ActiveDeck resolves the view against the table.
func (s State) ActiveDeck() (model.Deck, bool) {
	if s.View == nil {
		return model.Deck{}, false
	}
	return s.Table.FindDeck(s.View.Folder, s.View.DeckID)
}

// History is the log of presented cards; the tail is the card on screen.
type History []model.HistoryEntry

func (h History) push(e model.HistoryEntry) History {
	return append(h[:len(h):len(h)], e)
}

// CanGoPrevious reports whether there is an entry before the current one.
func (h History) CanGoPrevious() bool { return len(h) > 1 }

// cloneTable copies both maps. Deck slices are shared with the source and
// must be replaced, never written through.
func cloneTable(t model.FolderTable) model.FolderTable {
	out := model.FolderTable{
		Folders: make(map[string][]model.Deck, len(t.Folders)),
		Learned: make(map[string][]model.Deck, len(t.Learned)),
	}
	for k, v := range t.Folders {
		out.Folders[k] = v
	}
	for k, v := range t.Learned {
		out.Learned[k] = v
	}
	return out
}

// setDecks stores decks under key in a cloned table. An emptied learned list
// is removed; original folders may stay empty.
func setDecks(t model.FolderTable, key model.FolderKey, decks []model.Deck) {
	if key.IsLearned() {
		if len(decks) == 0 {
			delete(t.Learned, key.Name)
			return
		}
		t.Learned[key.Name] = decks
		return
	}
	t.Folders[key.Name] = decks
}

func decksOf(t model.FolderTable, key model.FolderKey) []model.Deck {
	decks, _ := t.Decks(key)
	return decks
}

func deckIndex(decks []model.Deck, id int64) int {
	for i, d := range decks {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func replaceDeck(decks []model.Deck, i int, d model.Deck) []model.Deck {
	out := make([]model.Deck, len(decks))
	copy(out, decks)
	out[i] = d
	return out
}

func removeDeck(decks []model.Deck, i int) []model.Deck {
	out := make([]model.Deck, 0, len(decks)-1)
	out = append(out, decks[:i]...)
	return append(out, decks[i+1:]...)
}

func appendDeck(decks []model.Deck, d model.Deck) []model.Deck {
	return append(decks[:len(decks):len(decks)], d)
}

func removeCardAt(cards []model.Card, i int) []model.Card {
	out := make([]model.Card, 0, len(cards))
	out = append(out, cards[:i]...)
	return append(out, cards[i+1:]...)
}

// removeCardByID always returns a fresh slice.
func removeCardByID(cards []model.Card, id string) ([]model.Card, model.Card, bool) {
	out := make([]model.Card, 0, len(cards))
	var found model.Card
	ok := false
	for _, c := range cards {
		if c.ID == id {
			found, ok = c, true
			continue
		}
		out = append(out, c)
	}
	return out, found, ok
}

func appendCard(cards []model.Card, c model.Card) []model.Card {
	return append(cards[:len(cards):len(cards)], c)
}

func prependCard(cards []model.Card, c model.Card) []model.Card {
	out := make([]model.Card, 0, len(cards)+1)
	out = append(out, c)
	return append(out, cards...)
}

// concatCards appends src to dst, skipping cards dst already holds.
func concatCards(dst, src []model.Card) []model.Card {
	seen := make(map[string]struct{}, len(dst))
	out := make([]model.Card, 0, len(dst)+len(src))
	for _, c := range dst {
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	for _, c := range src {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// cursor returns CurrentIndex folded into range. d must have cards.
func cursor(d model.Deck) int {
	return d.Cursor()
}

// settle restores the finished and cursor invariants after an edit.
func settle(d *model.Deck) {
	if len(d.Cards) == 0 {
		d.CurrentIndex = 0
		d.Finished = true
		return
	}
	d.CurrentIndex = cursor(*d)
	d.Finished = false
}

// purgeLearned removes cardID from every learned deck, pruning decks and
// learned folders it empties. The removed card is returned when found.
func purgeLearned(t model.FolderTable, cardID string) (model.Card, bool) {
	var found model.Card
	ok := false
	for name, decks := range t.Learned {
		changed := false
		out := make([]model.Deck, 0, len(decks))
		for _, d := range decks {
			cards, c, removed := removeCardByID(d.Cards, cardID)
			if !removed {
				out = append(out, d)
				continue
			}
			found, ok, changed = c, true, true
			if len(cards) == 0 {
				continue
			}
			d.Cards = cards
			settle(&d)
			out = append(out, d)
		}
		if changed {
			setDecks(t, model.Learned(name), out)
		}
	}
	return found, ok
}

// takeCard removes cardID from the deck under key, if present.
func takeCard(t model.FolderTable, key model.FolderKey, deckID int64, cardID string) (model.Card, bool) {
	decks := decksOf(t, key)
	i := deckIndex(decks, deckID)
	if i < 0 {
		return model.Card{}, false
	}
	d := decks[i]
	cards, c, ok := removeCardByID(d.Cards, cardID)
	if !ok {
		return model.Card{}, false
	}
	d.Cards = cards
	settle(&d)
	if key.IsLearned() && len(cards) == 0 {
		setDecks(t, key, removeDeck(decks, i))
		return c, true
	}
	setDecks(t, key, replaceDeck(decks, i, d))
	return c, true
}

// insertCard places c into the deck under key, creating the deck (named
// name) when missing. front puts it under the cursor at index 0.
func insertCard(t model.FolderTable, key model.FolderKey, deckID int64, name string, c model.Card, front bool) {
	decks := decksOf(t, key)
	i := deckIndex(decks, deckID)
	if i < 0 {
		d := model.Deck{ID: deckID, Name: name, Cards: []model.Card{c}}
		settle(&d)
		setDecks(t, key, appendDeck(decks, d))
		return
	}
	d := decks[i]
	cards, _, _ := removeCardByID(d.Cards, c.ID)
	if front {
		d.Cards = prependCard(cards, c)
		d.CurrentIndex = 0
	} else {
		d.Cards = appendCard(cards, c)
	}
	settle(&d)
	setDecks(t, key, replaceDeck(decks, i, d))
}

// repairTable fills nil maps and restores deck invariants on a table that
// came from outside the core.
func repairTable(t model.FolderTable) model.FolderTable {
	out := cloneTable(t)
	for name, decks := range out.Folders {
		fixed := make([]model.Deck, len(decks))
		for i, d := range decks {
			settle(&d)
			fixed[i] = d
		}
		out.Folders[name] = fixed
	}
	for name, decks := range out.Learned {
		fixed := make([]model.Deck, 0, len(decks))
		for _, d := range decks {
			if len(d.Cards) == 0 {
				continue
			}
			settle(&d)
			fixed = append(fixed, d)
		}
		out.Learned[name] = fixed
	}
	return out
}

func viewOf(key model.FolderKey, deckID int64) *model.ActiveView {
	return &model.ActiveView{Folder: key, DeckID: deckID}
}
