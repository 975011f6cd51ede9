package duckdb

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrInMemoryStore is returned by SnapshotTo for a store opened without a path.
var ErrInMemoryStore = errors.New("duckdb: in-memory store cannot be snapshotted")

// DBPath returns the database file path, empty for an in-memory store.
func (s *Store) DBPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dbPath
}

// SnapshotTo flushes the WAL into the database file and copies the file to
// dst. Writers are held off until the copy is done; the folder table and the
// judgment log are small enough that this is brief.
func (s *Store) SnapshotTo(dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dbPath == "" {
		return ErrInMemoryStore
	}

	ctx, cancel := s.queryCtx()
	defer cancel()
	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("duckdb: checkpoint: %w", err)
	}
	if err := copyFileAtomic(s.dbPath, dst); err != nil {
		return fmt.Errorf("duckdb: snapshot to %s: %w", dst, err)
	}
	return nil
}

// copyFileAtomic leaves dst either untouched or a complete copy of src.
func copyFileAtomic(src, dst string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(out.Name())
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Rename(out.Name(), dst)
}
