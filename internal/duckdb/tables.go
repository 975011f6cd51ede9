package duckdb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

// folderTableKey is the kv_store row holding the serialized folder table.
const folderTableKey = "folder_table"

// LoadTable reads the saved folder table. found is false on a fresh database.
func (s *Store) LoadTable() (model.FolderTable, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, folderTableKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewFolderTable(), false, nil
	}
	if err != nil {
		return model.FolderTable{}, false, fmt.Errorf("duckdb: load folder table: %w", err)
	}

	table, err := DecodeTable([]byte(raw))
	if err != nil {
		return model.FolderTable{}, false, err
	}
	return table, true, nil
}

// SaveTable replaces the saved folder table.
func (s *Store) SaveTable(table model.FolderTable) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("duckdb: encode folder table: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO kv_store (key, value, updated_at) VALUES (?, ?, current_timestamp)`,
		folderTableKey, string(data))
	if err != nil {
		return fmt.Errorf("duckdb: save folder table: %w", err)
	}
	return nil
}

// DecodeTable parses a serialized folder table, filling missing maps.
func DecodeTable(data []byte) (model.FolderTable, error) {
	var table model.FolderTable
	if err := json.Unmarshal(data, &table); err != nil {
		return model.FolderTable{}, fmt.Errorf("duckdb: decode folder table: %w", err)
	}
	if table.Folders == nil {
		table.Folders = make(map[string][]model.Deck)
	}
	if table.Learned == nil {
		table.Learned = make(map[string][]model.Deck)
	}
	return table, nil
}
