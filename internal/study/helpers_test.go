package study

import (
	"testing"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

func card(id string) model.Card {
	return model.Card{ID: id, Question: "q-" + id, Answer: "a-" + id}
}

func deck(id int64, name string, ids ...string) model.Deck {
	d := model.Deck{ID: id, Name: name, Stats: model.Stats{Total: len(ids)}}
	for _, cid := range ids {
		d.Cards = append(d.Cards, card(cid))
	}
	d.Finished = len(d.Cards) == 0
	return d
}

// tableWith builds a table with one original folder holding decks.
func tableWith(folder string, decks ...model.Deck) model.FolderTable {
	t := model.NewFolderTable()
	t.Folders[folder] = decks
	t.Learned[folder] = []model.Deck{}
	return t
}

func openState(t *testing.T, tbl model.FolderTable, key model.FolderKey, deckID int64) State {
	t.Helper()
	s, ok := Open(NewState(tbl), key, deckID)
	if !ok {
		t.Fatalf("Open(%s, %d) failed", key, deckID)
	}
	return s
}

func mustDeck(t *testing.T, s State, key model.FolderKey, id int64) model.Deck {
	t.Helper()
	d, ok := s.Table.FindDeck(key, id)
	if !ok {
		t.Fatalf("deck %s/%d not found", key, id)
	}
	return d
}

func cardIDs(d model.Deck) []string {
	out := make([]string, len(d.Cards))
	for i, c := range d.Cards {
		out[i] = c.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mustConsistent(t *testing.T, s State) {
	t.Helper()
	if err := CheckInvariants(s.Table); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func judge(t *testing.T, s State, dir model.Direction) State {
	t.Helper()
	next, ok := ApplyJudgment(s, dir)
	if !ok {
		t.Fatalf("ApplyJudgment(%s) was a no-op", dir)
	}
	mustConsistent(t, next)
	return next
}
