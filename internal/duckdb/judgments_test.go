package duckdb

import (
	"testing"
	"time"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

func TestDailyJudgments(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	yesterday := now.Add(-24 * time.Hour)

	err := store.InsertJudgmentBatch([]*model.JudgmentEvent{
		judgment(1, "a", model.Knew, now),
		judgment(1, "b", model.Knew, now),
		judgment(1, "c", model.DidntKnow, now),
		judgment(1, "a", model.DidntKnow, yesterday),
		judgment(2, "z", model.Knew, now),
		judgment(1, "old", model.Knew, now.Add(-30*24*time.Hour)),
	})
	if err != nil {
		t.Fatalf("InsertJudgmentBatch: %v", err)
	}

	rows, err := store.DailyJudgments(1, 7)
	if err != nil {
		t.Fatalf("DailyJudgments: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("rows = %d, want 7", len(rows))
	}
	last := rows[6]
	if last.Knew != 2 || last.DidntKnow != 1 {
		t.Fatalf("today = %+v, want knew=2 didntKnow=1", last)
	}
	if rows[5].DidntKnow != 1 || rows[5].Knew != 0 {
		t.Fatalf("yesterday = %+v, want didntKnow=1", rows[5])
	}
	for i := 0; i < 5; i++ {
		if rows[i].Knew != 0 || rows[i].DidntKnow != 0 {
			t.Fatalf("day %d = %+v, want empty", i, rows[i])
		}
	}
	if !rows[0].Day.Before(rows[6].Day) {
		t.Fatal("rows should be oldest first")
	}
}

func TestDailyJudgments_DefaultDays(t *testing.T) {
	store := newTestStore(t)

	rows, err := store.DailyJudgments(1, 0)
	if err != nil {
		t.Fatalf("DailyJudgments: %v", err)
	}
	if len(rows) != model.DefaultStatsDays {
		t.Fatalf("rows = %d, want %d", len(rows), model.DefaultStatsDays)
	}
}

func TestDeleteBefore(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	if err := store.InsertJudgmentBatch([]*model.JudgmentEvent{
		judgment(1, "new", model.Knew, now),
		judgment(1, "old", model.Knew, now.Add(-48*time.Hour)),
	}); err != nil {
		t.Fatalf("InsertJudgmentBatch: %v", err)
	}

	deleted, err := store.DeleteBefore(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	n, _ := store.JudgmentCount()
	if n != 1 {
		t.Fatalf("remaining = %d, want 1", n)
	}
}
