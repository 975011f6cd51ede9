package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 24

	namePrefix = "flashdeck-"
	dbExt      = ".duckdb"
	exportExt  = ".json"
	// Fixed width, so names sort chronologically.
	stampLayout = "20060102-150405.000000000"
)

// Manager backs up the study database on an interval. Each backup is a copy
// of the DuckDB file plus a JSON export of the folder table that can be read
// without DuckDB. Both are uploaded when a bucket is configured; only the
// newest KeepLast backups are kept locally.
type Manager struct {
	src      Source
	cfg      Config
	uploader Uploader
	now      func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewManager validates cfg, takes a first backup and starts the loop. It
// returns a nil Manager when backups are disabled.
func NewManager(src Source, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if src == nil {
		return nil, errors.New("backup: nil source")
	}
	if strings.TrimSpace(src.DBPath()) == "" {
		return nil, errors.New("backup: db-path is empty (in-memory store)")
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, errors.New("backup: local-dir is required when backup is enabled")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create local-dir: %w", err)
	}

	m := &Manager{src: src, cfg: cfg, done: make(chan struct{})}
	if strings.TrimSpace(cfg.BucketURL) != "" {
		up, err := NewS3Uploader(S3Config{
			BucketURL:    cfg.BucketURL,
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			SessionToken: cfg.S3SessionToken,
			UseSSL:       cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		m.uploader = up
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	if _, err := m.RunOnce(m.ctx); err != nil {
		log.Printf("backup: startup backup failed: %v", err)
	}

	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.RunOnce(m.ctx); err != nil {
				log.Printf("backup: periodic backup failed: %v", err)
			}
		case <-m.done:
			return
		}
	}
}

// RunOnce writes one backup, uploads it when an uploader is set, and prunes
// old local backups. It returns the path of the database copy.
func (m *Manager) RunOnce(ctx context.Context) (string, error) {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	base := filepath.Join(m.cfg.LocalDir, namePrefix+now().UTC().Format(stampLayout))
	dbCopy, export := base+dbExt, base+exportExt

	if err := m.src.SnapshotTo(dbCopy); err != nil {
		return "", fmt.Errorf("backup: snapshot: %w", err)
	}
	if err := m.export(export); err != nil {
		return "", err
	}
	log.Printf("backup: wrote %s", filepath.Base(base))

	if m.uploader != nil {
		for _, p := range []string{dbCopy, export} {
			if err := m.uploader.UploadFile(ctx, p); err != nil {
				return "", fmt.Errorf("backup: upload %s: %w", filepath.Base(p), err)
			}
		}
		log.Printf("backup: uploaded %s", filepath.Base(base))
	}

	if err := prune(m.cfg.LocalDir, m.cfg.KeepLast); err != nil {
		return "", fmt.Errorf("backup: prune: %w", err)
	}
	return dbCopy, nil
}

// export writes the folder table as indented JSON through a temp file.
func (m *Manager) export(path string) error {
	table, _, err := m.src.LoadTable()
	if err != nil {
		return fmt.Errorf("backup: load table: %w", err)
	}
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("backup: encode table: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("backup: write export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("backup: write export: %w", err)
	}
	return nil
}

// Stop ends the loop and cancels an upload in flight. It is safe on a nil
// Manager.
func (m *Manager) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		close(m.done)
		m.wg.Wait()
	})
}

// Snapshots lists the database copies in localDir, newest first.
func Snapshots(localDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(localDir, namePrefix+"*"+dbExt))
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches, nil
}

// ReadExport loads the folder table export of a backup, given either of the
// backup's two files.
func ReadExport(backupPath string) (model.FolderTable, error) {
	path := strings.TrimSuffix(strings.TrimSuffix(backupPath, exportExt), dbExt) + exportExt
	data, err := os.ReadFile(path)
	if err != nil {
		return model.FolderTable{}, fmt.Errorf("backup: read export: %w", err)
	}
	var table model.FolderTable
	if err := json.Unmarshal(data, &table); err != nil {
		return model.FolderTable{}, fmt.Errorf("backup: decode export %s: %w", filepath.Base(path), err)
	}
	if table.Folders == nil {
		table.Folders = map[string][]model.Deck{}
	}
	if table.Learned == nil {
		table.Learned = map[string][]model.Deck{}
	}
	return table, nil
}

// prune removes every backup past the newest keep, export included.
func prune(localDir string, keep int) error {
	if keep <= 0 {
		return nil
	}
	copies, err := Snapshots(localDir)
	if err != nil || len(copies) <= keep {
		return err
	}
	for _, old := range copies[keep:] {
		for _, p := range []string{old, strings.TrimSuffix(old, dbExt) + exportExt} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
	}
	return nil
}
