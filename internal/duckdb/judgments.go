package duckdb

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

const dayLayout = "2006-01-02"

// InsertJudgmentBatch appends judgment events in a single transaction. If the
// batch fails it is retried event by event and the failing rows are dropped.
func (s *Store) InsertJudgmentBatch(events []*model.JudgmentEvent) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.insertJudgmentsTx(ctx, events)
	if err == nil {
		return nil
	}

	var failed int
	for _, e := range events {
		if rerr := s.insertJudgmentsTx(ctx, []*model.JudgmentEvent{e}); rerr != nil {
			failed++
			log.Printf("duckdb: dropping judgment (deck=%d card=%s): %v", e.DeckID, e.CardID, rerr)
		}
	}
	if failed > 0 {
		log.Printf("duckdb: judgment batch partially failed, %d/%d dropped", failed, len(events))
	}
	return nil
}

func (s *Store) insertJudgmentsTx(ctx context.Context, events []*model.JudgmentEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO judgments (judged_at, folder, learned, deck_id, card_id, direction) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		at := e.At
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			at.UTC(), e.Folder.Name, e.Folder.IsLearned(), e.DeckID, e.CardID, e.Direction.String(),
		); err != nil {
			return fmt.Errorf("judgment insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DailyJudgments returns one row per UTC day for the last days days,
// oldest first, including days without judgments.
func (s *Store) DailyJudgments(deckID int64, days int) ([]model.DailyJudgments, error) {
	if days <= 0 {
		days = model.DefaultStatsDays
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT strftime(judged_at, '%Y-%m-%d') AS day,
		       COUNT(*) FILTER (WHERE direction = 'knew'),
		       COUNT(*) FILTER (WHERE direction = 'didnt_know')
		FROM judgments
		WHERE deck_id = ? AND judged_at >= ?
		GROUP BY day`, deckID, start)
	if err != nil {
		return nil, fmt.Errorf("duckdb: daily judgments: %w", err)
	}
	defer rows.Close()

	byDay := make(map[string]model.DailyJudgments)
	for rows.Next() {
		var day string
		var dj model.DailyJudgments
		if err := rows.Scan(&day, &dj.Knew, &dj.DidntKnow); err != nil {
			log.Printf("duckdb scan error (DailyJudgments): %v", err)
			continue
		}
		byDay[day] = dj
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duckdb: daily judgments: %w", err)
	}

	out := make([]model.DailyJudgments, days)
	for i := range out {
		day := start.AddDate(0, 0, i)
		dj := byDay[day.Format(dayLayout)]
		dj.Day = day
		out[i] = dj
	}
	return out, nil
}

// JudgmentCount returns the number of logged judgments.
func (s *Store) JudgmentCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM judgments`).Scan(&n)
	return n, err
}

// DeleteBefore removes judgments older than cutoff.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM judgments WHERE judged_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("duckdb: delete judgments: %w", err)
	}
	return res.RowsAffected()
}
