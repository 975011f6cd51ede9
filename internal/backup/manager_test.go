package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

type fakeSource struct {
	dbPath  string
	table   model.FolderTable
	loadErr error
}

func (f *fakeSource) DBPath() string { return f.dbPath }

func (f *fakeSource) SnapshotTo(dstPath string) error {
	return os.WriteFile(dstPath, []byte("duckdb"), 0644)
}

func (f *fakeSource) LoadTable() (model.FolderTable, bool, error) {
	return f.table, f.loadErr == nil, f.loadErr
}

func sampleTable() model.FolderTable {
	t := model.NewFolderTable()
	t.Folders["German"] = []model.Deck{{
		ID:    7,
		Name:  "Verbs",
		Cards: []model.Card{{ID: "c1", Question: "gehen", Answer: "to go", WrongCount: 2}},
	}}
	t.Learned["German"] = []model.Deck{}
	return t
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		at = at.Add(time.Second)
		return at
	}
}

func TestNewManager_Disabled(t *testing.T) {
	t.Parallel()

	m, err := NewManager(&fakeSource{dbPath: "/tmp/flashdeck.duckdb"}, Config{})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil manager when disabled")
	}
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  Source
		cfg  Config
		want string
	}{
		{"nil source", nil, Config{Enabled: true, LocalDir: t.TempDir()}, "nil source"},
		{"in-memory store", &fakeSource{}, Config{Enabled: true, LocalDir: t.TempDir()}, "in-memory"},
		{"no local dir", &fakeSource{dbPath: "/tmp/x.duckdb"}, Config{Enabled: true}, "local-dir"},
		{"bucket without keys", &fakeSource{dbPath: "/tmp/x.duckdb"}, Config{Enabled: true, LocalDir: t.TempDir(), BucketURL: "s3://b"}, "access key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(tt.src, tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestRunOnce_WritesCopyAndExport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := &Manager{
		src: &fakeSource{dbPath: "/tmp/flashdeck.duckdb", table: sampleTable()},
		cfg: Config{LocalDir: dir, KeepLast: 5},
		now: tickingClock(),
	}

	dbCopy, err := m.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if filepath.Base(dbCopy) != "flashdeck-20260301-090001.000000000.duckdb" {
		t.Fatalf("copy = %s", filepath.Base(dbCopy))
	}

	table, err := ReadExport(dbCopy)
	if err != nil {
		t.Fatalf("ReadExport: %v", err)
	}
	decks := table.Folders["German"]
	if len(decks) != 1 || decks[0].Name != "Verbs" || decks[0].Cards[0].WrongCount != 2 {
		t.Fatalf("exported decks = %+v", decks)
	}
	if _, ok := table.Learned["German"]; !ok {
		t.Fatal("learned key lost in export")
	}
}

func TestRunOnce_PrunesOldBackups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := &Manager{
		src: &fakeSource{dbPath: "/tmp/flashdeck.duckdb", table: sampleTable()},
		cfg: Config{LocalDir: dir, KeepLast: 2},
		now: tickingClock(),
	}
	for i := 0; i < 3; i++ {
		if _, err := m.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce #%d: %v", i+1, err)
		}
	}

	copies, err := Snapshots(dir)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(copies) != 2 {
		t.Fatalf("copies = %d, want 2", len(copies))
	}
	exports, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(exports) != 2 {
		t.Fatalf("exports = %d, want 2", len(exports))
	}
	if strings.HasSuffix(copies[1], "090001.000000000.duckdb") {
		t.Fatal("oldest backup was not pruned")
	}
}

func TestRunOnce_LoadFailure(t *testing.T) {
	t.Parallel()

	m := &Manager{
		src: &fakeSource{dbPath: "/tmp/flashdeck.duckdb", loadErr: errors.New("database locked")},
		cfg: Config{LocalDir: t.TempDir(), KeepLast: 2},
	}
	if _, err := m.RunOnce(context.Background()); err == nil || !strings.Contains(err.Error(), "database locked") {
		t.Fatalf("err = %v, want the load error", err)
	}
}

type recordingUploader struct {
	mu    sync.Mutex
	paths []string
}

func (u *recordingUploader) UploadFile(_ context.Context, p string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, filepath.Ext(p))
	return nil
}

func TestRunOnce_UploadsBothFiles(t *testing.T) {
	t.Parallel()

	up := &recordingUploader{}
	m := &Manager{
		src:      &fakeSource{dbPath: "/tmp/flashdeck.duckdb", table: sampleTable()},
		cfg:      Config{LocalDir: t.TempDir(), KeepLast: 2},
		uploader: up,
	}
	if _, err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(up.paths) != 2 || up.paths[0] != ".duckdb" || up.paths[1] != ".json" {
		t.Fatalf("uploaded = %v, want [.duckdb .json]", up.paths)
	}
}

type blockingUploader struct {
	started chan struct{}
	once    sync.Once
}

func (u *blockingUploader) UploadFile(ctx context.Context, _ string) error {
	u.once.Do(func() { close(u.started) })
	<-ctx.Done()
	return ctx.Err()
}

func TestStop_CancelsInFlightUpload(t *testing.T) {
	t.Parallel()

	uploader := &blockingUploader{started: make(chan struct{})}
	m := &Manager{
		src: &fakeSource{dbPath: "/tmp/flashdeck.duckdb", table: sampleTable()},
		cfg: Config{
			Interval: 5 * time.Millisecond,
			LocalDir: t.TempDir(),
			KeepLast: 2,
		},
		uploader: uploader,
		done:     make(chan struct{}),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	m.wg.Add(1)
	go m.loop()

	select {
	case <-uploader.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upload to start")
	}

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return; upload likely not canceled")
	}
}

func TestReadExport_Missing(t *testing.T) {
	t.Parallel()

	if _, err := ReadExport(filepath.Join(t.TempDir(), "flashdeck-x.duckdb")); err == nil {
		t.Fatal("expected error for a missing export")
	}
}

func TestStop_NilManager(t *testing.T) {
	t.Parallel()

	var m *Manager
	m.Stop()
}
