package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

const (
	fileMode = 0644
	dirMode  = 0755
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("journal: closed")

// snapshot is one journal line.
type snapshot struct {
	Seq     uint64            `json:"seq"`
	SavedAt time.Time         `json:"saved_at"`
	Table   model.FolderTable `json:"table"`
}

// Journal is an append-only file of folder-table snapshots, one JSON object
// per line. The highest sequence the store has accepted lives in a sidecar
// "<path>.commit" file; lines past it are pending and get replayed.
type Journal struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	nextSeq   uint64
	committed uint64
}

// Open creates or opens the journal at path. Committed lines are dropped and
// a torn trailing line is ignored.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, fmt.Errorf("journal: mkdir: %w", err)
	}

	committed, err := readSeq(commitPath(path))
	if err != nil {
		return nil, err
	}
	last, err := compact(path, committed)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, fileMode)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	return &Journal{
		path:      path,
		file:      f,
		nextSeq:   max(last, committed) + 1,
		committed: committed,
	}, nil
}

func commitPath(path string) string { return path + ".commit" }

// Append writes table as the next snapshot, fsyncs, and returns its sequence.
func (j *Journal) Append(table model.FolderTable) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return 0, ErrClosed
	}

	snap := snapshot{Seq: j.nextSeq, SavedAt: time.Now().UTC(), Table: table}
	line, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("journal: encode snapshot: %w", err)
	}
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return 0, fmt.Errorf("journal: write snapshot: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return 0, fmt.Errorf("journal: sync snapshot: %w", err)
	}
	j.nextSeq++
	return snap.Seq, nil
}

// Commit records that the store holds snapshot seq. Each snapshot replaces
// the whole table, so once the newest one is committed the file is emptied.
func (j *Journal) Commit(seq uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if seq <= j.committed {
		return nil
	}
	if err := writeAtomic(commitPath(j.path), []byte(strconv.FormatUint(seq, 10)+"\n")); err != nil {
		return err
	}
	j.committed = seq

	if j.file != nil && seq == j.nextSeq-1 {
		if err := j.file.Truncate(0); err != nil {
			return fmt.Errorf("journal: truncate: %w", err)
		}
	}
	return nil
}

// Committed returns the highest committed sequence.
func (j *Journal) Committed() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.committed
}

// Replay calls fn for each pending snapshot, oldest first.
func (j *Journal) Replay(fn func(seq uint64, table model.FolderTable) error) error {
	if fn == nil {
		return errors.New("journal: replay callback is nil")
	}

	j.mu.Lock()
	path, committed := j.path, j.committed
	j.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("journal: open for replay: %w", err)
	}
	defer f.Close()

	return scan(f, func(snap snapshot, _ []byte) error {
		if snap.Seq <= committed {
			return nil
		}
		return fn(snap.Seq, snap.Table)
	})
}

// Close closes the journal file. Later Appends fail with ErrClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// scan decodes complete lines from r until EOF, a torn trailing line, or the
// first line that is not a snapshot.
func scan(r io.Reader, fn func(snap snapshot, line []byte) error) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("journal: read: %w", err)
		}
		if !bytes.HasSuffix(line, []byte{'\n'}) {
			return nil
		}
		var snap snapshot
		if json.Unmarshal(line, &snap) != nil {
			return nil
		}
		if ferr := fn(snap, line); ferr != nil {
			return ferr
		}
		if err != nil {
			return nil
		}
	}
}

// compact rewrites path keeping only lines after committed and returns the
// highest sequence seen.
func compact(path string, committed uint64) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("journal: read for compact: %w", err)
	}

	var (
		kept bytes.Buffer
		last uint64
	)
	err = scan(bytes.NewReader(data), func(snap snapshot, line []byte) error {
		last = max(last, snap.Seq)
		if snap.Seq > committed {
			kept.Write(line)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := writeAtomic(path, kept.Bytes()); err != nil {
		return 0, err
	}
	return last, nil
}

func readSeq(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("journal: read commit file: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return 0, nil
	}
	seq, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("journal: parse commit file: %w", err)
	}
	return seq, nil
}

// writeAtomic replaces path with data through a synced temp file and rename.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("journal: create %s: %w", filepath.Base(tmp), err)
	}
	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("journal: write %s: %w", filepath.Base(path), err)
	}
	return nil
}
