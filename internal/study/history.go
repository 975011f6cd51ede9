package study

// GoPrevious steps back to the card presented before the current one.
//
// The current entry is popped and the new tail becomes the target. When the
// target card still sits in its deck only the cursor moves. Otherwise the card
// has migrated since (typically into a learned deck) and is pulled out of
// every learned deck and out of the target's counterpart, then re-inserted at
// the front of the target deck. The view follows the target.
func GoPrevious(s State) (State, bool) {
	if len(s.History) < 2 {
		return s, false
	}
	hist := s.History[: len(s.History)-1 : len(s.History)-1]
	last := hist[len(hist)-1]
	next := State{Table: s.Table, View: s.View, History: hist}

	decks, _ := s.Table.Decks(last.Folder)
	idx := deckIndex(decks, last.DeckID)

	if last.IsEndMarker() {
		if idx >= 0 {
			next.View = viewOf(last.Folder, last.DeckID)
		}
		return next, true
	}

	name := ""
	if idx >= 0 {
		d := decks[idx]
		if ci := d.IndexOf(last.Card.ID); ci >= 0 {
			t := cloneTable(s.Table)
			d.CurrentIndex = ci
			setDecks(t, last.Folder, replaceDeck(decks, idx, d))
			next.Table = t
			next.View = viewOf(last.Folder, last.DeckID)
			return next, true
		}
		name = d.Name
	} else {
		// A deleted original deck cannot be restored. A pruned learned deck
		// is rebuilt as long as its original still exists.
		if !last.Folder.IsLearned() {
			return next, true
		}
		orig, ok := s.Table.FindDeck(last.Folder.Counterpart(), last.DeckID)
		if !ok {
			return next, true
		}
		name = orig.Name
	}

	t := cloneTable(s.Table)
	card := last.Card
	if c, ok := purgeLearned(t, card.ID); ok {
		card = c
	}
	if c, ok := takeCard(t, last.Folder.Counterpart(), last.DeckID, card.ID); ok {
		card = c
	}
	insertCard(t, last.Folder, last.DeckID, name, card, true)

	next.Table = t
	next.View = viewOf(last.Folder, last.DeckID)
	return next, true
}
