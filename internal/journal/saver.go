package journal

import (
	"fmt"
	"log"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

// DurableSaver writes every snapshot to the journal before handing it to the
// store, and commits it only once the store has accepted it.
type DurableSaver struct {
	journal *Journal
	store   model.TableSaver
}

var _ model.TableSaver = (*DurableSaver)(nil)

// NewDurableSaver wraps store with j.
func NewDurableSaver(j *Journal, store model.TableSaver) *DurableSaver {
	return &DurableSaver{journal: j, store: store}
}

// SaveTable journals table and then saves it to the store. When the store
// fails the snapshot stays uncommitted and is replayed by Recover.
func (d *DurableSaver) SaveTable(table model.FolderTable) error {
	seq, err := d.journal.Append(table)
	if err != nil {
		return err
	}
	if err := d.store.SaveTable(table); err != nil {
		return fmt.Errorf("journal: store rejected snapshot %d: %w", seq, err)
	}
	return d.journal.Commit(seq)
}

// Recover saves the newest uncommitted snapshot to store and commits it.
// replayed is false when the journal had nothing pending.
func Recover(j *Journal, store model.TableSaver) (table model.FolderTable, replayed bool, err error) {
	var lastSeq uint64
	err = j.Replay(func(seq uint64, t model.FolderTable) error {
		lastSeq = seq
		table = t
		return nil
	})
	if err != nil {
		return model.FolderTable{}, false, err
	}
	if lastSeq == 0 {
		return model.FolderTable{}, false, nil
	}

	if table.Folders == nil {
		table.Folders = make(map[string][]model.Deck)
	}
	if table.Learned == nil {
		table.Learned = make(map[string][]model.Deck)
	}
	if err := store.SaveTable(table); err != nil {
		return model.FolderTable{}, false, fmt.Errorf("journal: replay snapshot %d: %w", lastSeq, err)
	}
	if err := j.Commit(lastSeq); err != nil {
		return model.FolderTable{}, false, err
	}
	log.Printf("journal: replayed unsaved snapshot %d", lastSeq)
	return table, true, nil
}
