package socketrpc_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/flashdeck/internal/model"
	"github.com/tinytelemetry/flashdeck/internal/socketrpc"
	"github.com/tinytelemetry/flashdeck/internal/study"
)

func startTestServer(t *testing.T) (string, *socketrpc.Server) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "test.sock")
	srv := socketrpc.NewServer(sockPath, study.NewSession(model.NewFolderTable(), nil))
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	return sockPath, srv
}

func TestRoundtrip(t *testing.T) {
	sockPath, srv := startTestServer(t)
	defer srv.Stop()

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	st, err := client.Import("Capitals", []model.CardInput{
		{Question: "France", Answer: "Paris"},
		{Question: "Spain", Answer: "Madrid"},
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	decks := st.Table.Folders[model.DefaultFolder]
	if len(decks) != 1 || len(decks[0].Cards) != 2 {
		t.Fatalf("decks after import = %+v", decks)
	}
	id := decks[0].ID

	t.Run("Open", func(t *testing.T) {
		st, err := client.Open(model.Original(model.DefaultFolder), id)
		if err != nil {
			t.Fatal(err)
		}
		if st.Current == nil || st.Current.Question != "France" {
			t.Fatalf("current = %+v, want France", st.Current)
		}
	})

	t.Run("Judge", func(t *testing.T) {
		st, err := client.Judge(model.Knew)
		if err != nil {
			t.Fatal(err)
		}
		if st.Current == nil || st.Current.Question != "Spain" {
			t.Fatalf("current = %+v, want Spain", st.Current)
		}
		if !st.CanGoPrevious {
			t.Fatal("expected previous to be available")
		}
	})

	t.Run("Previous", func(t *testing.T) {
		st, err := client.Previous()
		if err != nil {
			t.Fatal(err)
		}
		if st.Current == nil || st.Current.Question != "France" {
			t.Fatalf("current = %+v, want France", st.Current)
		}
	})

	t.Run("CloseDeck", func(t *testing.T) {
		st, err := client.CloseDeck()
		if err != nil {
			t.Fatal(err)
		}
		if st.View != nil {
			t.Fatalf("view = %+v, want nil", st.View)
		}
	})

	t.Run("Folders", func(t *testing.T) {
		if _, err := client.CreateFolder("Geo"); err != nil {
			t.Fatal(err)
		}
		st, err := client.MoveDeck(id, model.DefaultFolder, "Geo")
		if err != nil {
			t.Fatal(err)
		}
		if len(st.Table.Folders["Geo"]) != 1 {
			t.Fatalf("Geo = %+v, want the moved deck", st.Table.Folders["Geo"])
		}
		if _, err := client.Reset(id, model.Original("Geo")); err != nil {
			t.Fatal(err)
		}
		if _, err := client.DeleteDeck(id, "Geo"); err != nil {
			t.Fatal(err)
		}
		st, err = client.DeleteFolder("Geo")
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := st.Table.Folders["Geo"]; ok {
			t.Fatal("Geo should be gone")
		}
	})

	t.Run("DailyJudgments", func(t *testing.T) {
		rows, err := client.DailyJudgments(id, 7)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 0 {
			t.Fatalf("rows = %v, want none without a judgment log", rows)
		}
	})
}

func TestRoundtrip_InvalidDirection(t *testing.T) {
	sockPath, srv := startTestServer(t)
	defer srv.Stop()

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	_, err = client.Judge(model.DirectionNone)
	rpcErr, ok := err.(*socketrpc.RPCError)
	if !ok || rpcErr.Code != -32602 {
		t.Fatalf("err = %v, want invalid params", err)
	}

	// The connection stays usable after an error response.
	if _, err := client.State(); err != nil {
		t.Fatalf("State after error: %v", err)
	}
}

func TestDialFailure(t *testing.T) {
	_, err := socketrpc.Dial(filepath.Join(t.TempDir(), "nonexistent.sock"))
	if err == nil {
		t.Fatal("expected error dialing nonexistent socket")
	}
}

func TestSecondServerRefused(t *testing.T) {
	sockPath, srv := startTestServer(t)
	defer srv.Stop()

	other := socketrpc.NewServer(sockPath, study.NewSession(model.NewFolderTable(), nil))
	if err := other.Start(); err == nil {
		other.Stop()
		t.Fatal("expected second server on the same socket to fail")
	}
}

func TestServerStopCleansSocket(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "cleanup.sock")
	srv := socketrpc.NewServer(sockPath, study.NewSession(model.NewFolderTable(), nil))
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	srv.Stop()

	if _, err := socketrpc.Dial(sockPath); err == nil {
		t.Fatal("expected dial to fail after server stop")
	}
}

func TestStopIdempotent(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "idempotent.sock")
	srv := socketrpc.NewServer(sockPath, study.NewSession(model.NewFolderTable(), nil))
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	srv.Stop()
	srv.Stop()
}

func TestStopClosesConns(t *testing.T) {
	sockPath, srv := startTestServer(t)
	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	srv.Stop()

	done := make(chan error, 1)
	go func() {
		_, callErr := client.State()
		done <- callErr
	}()

	select {
	case callErr := <-done:
		if callErr == nil {
			t.Fatal("expected client call to fail after server stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client call hung after server stop")
	}
}
