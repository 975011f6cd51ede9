package study

import (
	"github.com/tinytelemetry/flashdeck/internal/model"
)

// ApplyJudgment applies the user's verdict on the card under the cursor of
// the active deck.
//
// On an original deck, knew moves the card into the deck's learned
// counterpart and didn't-know requeues it at the tail. On a learned deck,
// didn't-know sends the card back to its original deck and knew retires it.
// The presented card (or an end marker) is appended to the history.
func ApplyJudgment(s State, dir model.Direction) (State, bool) {
	if s.View == nil || (dir != model.Knew && dir != model.DidntKnow) {
		return s, false
	}
	view := *s.View
	decks, ok := s.Table.Decks(view.Folder)
	if !ok {
		return s, false
	}
	idx := deckIndex(decks, view.DeckID)
	if idx < 0 || len(decks[idx].Cards) == 0 {
		return s, false
	}

	next := cloneTable(s.Table)
	var nextView *model.ActiveView
	if view.Folder.IsLearned() {
		nextView = judgeLearned(next, view, idx, dir)
	} else {
		nextView = judgeOriginal(next, view, idx, dir)
	}

	entry := model.HistoryEntry{Folder: view.Folder, DeckID: view.DeckID, Direction: dir}
	if nextView != nil {
		if d, ok := next.FindDeck(nextView.Folder, nextView.DeckID); ok {
			if c, ok := d.Current(); ok {
				entry.Card = c
			}
		}
	}

	return State{
		Table:   next,
		View:    nextView,
		History: s.History.push(entry),
	}, true
}

func judgeOriginal(t model.FolderTable, view model.ActiveView, idx int, dir model.Direction) *model.ActiveView {
	decks := t.Folders[view.Folder.Name]
	d := decks[idx]
	cur := cursor(d)
	card := d.Cards[cur]
	cards := removeCardAt(d.Cards, cur)

	d.Stats.Swipes++
	switch dir {
	case model.Knew:
		d.Stats.Knew++
		insertCard(t, view.Folder.Counterpart(), d.ID, d.Name, card, false)
	case model.DidntKnow:
		d.Stats.DidntKnow++
		card.WrongCount++
		cards = appendCard(cards, card)
		// A requeued card cannot also sit in a learned deck.
		purgeLearned(t, card.ID)
	}

	d.Cards = cards
	d.CurrentIndex = cur
	settle(&d)
	t.Folders[view.Folder.Name] = replaceDeck(decks, idx, d)
	return viewOf(view.Folder, view.DeckID)
}

func judgeLearned(t model.FolderTable, view model.ActiveView, idx int, dir model.Direction) *model.ActiveView {
	decks := t.Learned[view.Folder.Name]
	sd := decks[idx]
	cur := cursor(sd)
	card := sd.Cards[cur]
	sd.Cards = removeCardAt(sd.Cards, cur)

	if dir == model.DidntKnow {
		card.WrongCount++
		insertCard(t, view.Folder.Counterpart(), sd.ID, sd.Name, card, false)
	}

	if len(sd.Cards) == 0 {
		setDecks(t, view.Folder, removeDeck(decks, idx))
		return nil
	}
	sd.CurrentIndex = cur
	settle(&sd)
	setDecks(t, view.Folder, replaceDeck(decks, idx, sd))
	return viewOf(view.Folder, view.DeckID)
}
