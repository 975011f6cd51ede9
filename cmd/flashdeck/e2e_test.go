package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/flashdeck/internal/duckdb"
	"github.com/tinytelemetry/flashdeck/internal/httpserver"
	"github.com/tinytelemetry/flashdeck/internal/journal"
	"github.com/tinytelemetry/flashdeck/internal/model"
	"github.com/tinytelemetry/flashdeck/internal/socketrpc"
	"github.com/tinytelemetry/flashdeck/internal/study"
)

type e2eStack struct {
	store   *duckdb.Store
	journal *journal.Journal
	buffer  *duckdb.JudgmentBuffer
	api     *httpserver.Server
	socket  *socketrpc.Server
	client  *socketrpc.Client
	sock    string
	stopped bool
}

// startE2EStack wires the same components as runServer against files in dir.
func startE2EStack(t *testing.T, dir string) *e2eStack {
	t.Helper()

	store, err := duckdb.NewStore(filepath.Join(dir, "flashdeck-e2e.duckdb"), 5*time.Second)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	j, err := journal.Open(filepath.Join(dir, "tables.journal"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	table, err := restoreTable(store, j)
	if err != nil {
		t.Fatalf("restoreTable: %v", err)
	}

	buffer := duckdb.NewJudgmentBuffer(store, duckdb.JudgmentBufferConfig{
		BatchSize:      8,
		FlushInterval:  20 * time.Millisecond,
		FlushQueueSize: 8,
	})
	session := study.NewSession(table, journal.NewDurableSaver(j, store), study.WithJudgmentLog(buffer, store))

	api := httpserver.NewServer("127.0.0.1:0", session)
	if err := api.Start(); err != nil {
		t.Fatalf("http Start: %v", err)
	}

	sock := filepath.Join(os.TempDir(), fmt.Sprintf("flashdeck-e2e-%d.sock", time.Now().UnixNano()))
	socket := socketrpc.NewServer(sock, session)
	if err := socket.Start(); err != nil {
		t.Fatalf("socket Start: %v", err)
	}

	stack := &e2eStack{store: store, journal: j, buffer: buffer, api: api, socket: socket, sock: sock}

	waitEventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		resp, err := http.Get("http://" + api.Addr() + "/api/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, "api health endpoint did not become ready")

	stack.client, err = socketrpc.Dial(sock)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	t.Cleanup(stack.stop)
	return stack
}

func (s *e2eStack) stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	_ = s.client.Close()
	s.socket.Stop()
	_ = s.api.Stop()
	s.buffer.Stop()
	_ = s.journal.Close()
	_ = s.store.Close()
}

func waitEventually(t *testing.T, timeout, interval time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("eventually timeout: %s", msg)
		}
		time.Sleep(interval)
	}
}

func TestE2E_StudyPersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	stack := startE2EStack(t, dir)

	st, err := stack.client.Import("Capitals", []model.CardInput{
		{Question: "France", Answer: "Paris"},
		{Question: "Spain", Answer: "Madrid"},
		{Question: "Peru", Answer: "Lima"},
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	deck := st.Table.Folders[model.DefaultFolder][0]

	if _, err := stack.client.Open(model.Original(model.DefaultFolder), deck.ID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, dir := range []model.Direction{model.Knew, model.DidntKnow, model.Knew, model.Knew} {
		if st, err = stack.client.Judge(dir); err != nil {
			t.Fatalf("Judge %v: %v", dir, err)
		}
	}
	if st.Current != nil {
		t.Fatalf("current = %+v, want a finished deck", st.Current)
	}

	waitEventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		rows, err := stack.client.DailyJudgments(deck.ID, 1)
		return err == nil && len(rows) == 1 && rows[0].Knew == 3 && rows[0].DidntKnow == 1
	}, "judgments were not flushed to the store")

	// The HTTP API sees the same session.
	resp, err := http.Get("http://" + stack.api.Addr() + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state: %v", err)
	}
	var httpState model.StudyState
	err = json.NewDecoder(resp.Body).Decode(&httpState)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(httpState.Table.Learned[model.DefaultFolder]) != 1 {
		t.Fatalf("learned over http = %+v, want one shadow deck", httpState.Table.Learned)
	}

	stack.stop()

	restarted := startE2EStack(t, dir)
	st, err = restarted.client.State()
	if err != nil {
		t.Fatalf("State after restart: %v", err)
	}
	decks := st.Table.Folders[model.DefaultFolder]
	if len(decks) != 1 || decks[0].Name != "Capitals" || len(decks[0].Cards) != 0 {
		t.Fatalf("decks after restart = %+v, want an emptied Capitals deck", decks)
	}
	learned := st.Table.Learned[model.DefaultFolder]
	if len(learned) != 1 || len(learned[0].Cards) != 3 {
		t.Fatalf("learned after restart = %+v, want 3 cards", learned)
	}
	if st.View != nil {
		t.Fatalf("view after restart = %+v, want none", st.View)
	}

	rows, err := restarted.client.DailyJudgments(deck.ID, 1)
	if err != nil || len(rows) != 1 || rows[0].Knew != 3 {
		t.Fatalf("daily judgments after restart = %+v, %v", rows, err)
	}
}

func TestRestoreTable_FreshStore(t *testing.T) {
	dir := t.TempDir()
	store, err := duckdb.NewStore(filepath.Join(dir, "fresh.duckdb"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	table, err := restoreTable(store, nil)
	if err != nil {
		t.Fatalf("restoreTable: %v", err)
	}
	if table.Folders == nil || table.Learned == nil || len(table.Folders) != 0 {
		t.Fatalf("table = %+v, want an empty initialized table", table)
	}
}
