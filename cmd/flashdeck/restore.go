package main

import (
	"fmt"
	"log"

	"github.com/tinytelemetry/flashdeck/internal/backup"
	"github.com/tinytelemetry/flashdeck/internal/duckdb"
	"github.com/tinytelemetry/flashdeck/internal/journal"
	"github.com/tinytelemetry/flashdeck/internal/model"
	"github.com/tinytelemetry/flashdeck/internal/study"
)

// restoreBackup replaces the saved folder table with the export of a backup.
// The service must not be running. With the journal enabled the restored
// table is journaled too, so it supersedes any snapshot still pending there.
func restoreBackup(cfg appConfig, backupPath string) (model.FolderTable, error) {
	table, err := backup.ReadExport(backupPath)
	if err != nil {
		return model.FolderTable{}, err
	}
	if err := study.CheckInvariants(table); err != nil {
		return model.FolderTable{}, fmt.Errorf("backup %s is inconsistent: %w", backupPath, err)
	}

	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return model.FolderTable{}, fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer store.Close()

	var saver model.TableSaver = store
	if cfg.JournalEnabled {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return model.FolderTable{}, fmt.Errorf("failed to open table journal: %w", err)
		}
		defer j.Close()
		saver = journal.NewDurableSaver(j, store)
	}

	if err := saver.SaveTable(table); err != nil {
		return model.FolderTable{}, fmt.Errorf("failed to save restored table: %w", err)
	}
	log.Printf("restore: folder table restored from %s", backupPath)
	return table, nil
}
