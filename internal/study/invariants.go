package study

import (
	"errors"
	"fmt"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

// CheckInvariants verifies the table-wide rules the engine maintains:
// finished matches emptiness, cursors are in range, learned decks are never
// empty and every card id lives in exactly one deck.
func CheckInvariants(t model.FolderTable) error {
	var errs []error
	seen := make(map[string]model.FolderKey)

	check := func(key model.FolderKey, d model.Deck) {
		if d.Finished != (len(d.Cards) == 0) {
			errs = append(errs, fmt.Errorf("%s/%d: finished=%v with %d cards", key, d.ID, d.Finished, len(d.Cards)))
		}
		if len(d.Cards) > 0 && (d.CurrentIndex < 0 || d.CurrentIndex >= len(d.Cards)) {
			errs = append(errs, fmt.Errorf("%s/%d: cursor %d out of range [0,%d)", key, d.ID, d.CurrentIndex, len(d.Cards)))
		}
		if key.IsLearned() && len(d.Cards) == 0 {
			errs = append(errs, fmt.Errorf("%s/%d: empty learned deck", key, d.ID))
		}
		for _, c := range d.Cards {
			if prev, dup := seen[c.ID]; dup {
				errs = append(errs, fmt.Errorf("card %s in both %s and %s/%d", c.ID, prev, key, d.ID))
				continue
			}
			seen[c.ID] = key
		}
	}

	for _, name := range t.FolderNames() {
		for _, d := range t.Folders[name] {
			check(model.Original(name), d)
		}
	}
	for _, name := range t.LearnedNames() {
		for _, d := range t.Learned[name] {
			check(model.Learned(name), d)
		}
	}
	return errors.Join(errs...)
}
