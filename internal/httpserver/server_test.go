package httpserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/flashdeck/internal/model"
	"github.com/tinytelemetry/flashdeck/internal/study"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	session := study.NewSession(model.NewFolderTable(), nil)
	srv := NewServer("", session)
	t.Cleanup(func() { _ = srv.Stop() })
	return srv, srv.Handler()
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) model.StudyState {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var st model.StudyState
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	return st
}

func importDeck(t *testing.T, r *gin.Engine, name string, n int) model.Deck {
	t.Helper()
	cards := make([]model.CardInput, n)
	for i := range cards {
		cards[i] = model.CardInput{Question: "q" + strconv.Itoa(i), Answer: "a" + strconv.Itoa(i)}
	}
	st := decodeState(t, do(t, r, http.MethodPost, "/api/decks/import", gin.H{"name": name, "cards": cards}))
	decks := st.Table.Folders[model.DefaultFolder]
	if len(decks) == 0 {
		t.Fatal("import did not add a deck")
	}
	return decks[len(decks)-1]
}

func TestHealthEndpoint(t *testing.T) {
	_, r := newTestServer(t)

	w := do(t, r, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	_, r := newTestServer(t)

	w := do(t, r, http.MethodPost, "/api/health", nil)
	if w.Code == http.StatusOK {
		t.Error("POST /api/health should not return 200")
	}
}

func TestStudyFlow(t *testing.T) {
	_, r := newTestServer(t)
	deck := importDeck(t, r, "Verbs", 2)

	st := decodeState(t, do(t, r, http.MethodPost, "/api/open", gin.H{
		"folder":  gin.H{"kind": "original", "name": model.DefaultFolder},
		"deck_id": deck.ID,
	}))
	if st.View == nil || st.Current == nil {
		t.Fatalf("open state = %+v, want an open view with a current card", st)
	}
	first := st.Current.ID

	st = decodeState(t, do(t, r, http.MethodPost, "/api/judgments", gin.H{"direction": "knew"}))
	if st.Current == nil || st.Current.ID == first {
		t.Fatalf("current after knew = %+v, want the next card", st.Current)
	}
	if !st.CanGoPrevious {
		t.Fatal("can_go_previous = false after a judgment")
	}
	learned := st.Table.Learned[model.DefaultFolder]
	if len(learned) != 1 || len(learned[0].Cards) != 1 || learned[0].Cards[0].ID != first {
		t.Fatalf("learned = %+v, want the judged card", learned)
	}

	st = decodeState(t, do(t, r, http.MethodPost, "/api/previous", nil))
	if st.Current == nil || st.Current.ID != first {
		t.Fatalf("current after previous = %+v, want %s", st.Current, first)
	}

	st = decodeState(t, do(t, r, http.MethodPost, "/api/close", nil))
	if st.View != nil {
		t.Fatalf("view after close = %+v, want nil", st.View)
	}
}

func TestJudge_RejectsBadDirection(t *testing.T) {
	_, r := newTestServer(t)

	tests := []gin.H{
		{"direction": "sideways"},
		{"direction": ""},
		{},
	}
	for _, body := range tests {
		w := do(t, r, http.MethodPost, "/api/judgments", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("judge %v status = %d, want 400", body, w.Code)
		}
	}
}

func TestImport_Multipart(t *testing.T) {
	_, r := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "capitals.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write([]byte("question,answer\nFrance,Paris\nSpain,Madrid\n,orphan\n"))
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/decks/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	st := decodeState(t, w)
	decks := st.Table.Folders[model.DefaultFolder]
	if len(decks) != 1 {
		t.Fatalf("decks = %d, want 1", len(decks))
	}
	if decks[0].Name != "capitals" || len(decks[0].Cards) != 2 {
		t.Fatalf("deck = %q with %d cards, want capitals with 2", decks[0].Name, len(decks[0].Cards))
	}
}

func TestImport_NoUsableCards(t *testing.T) {
	_, r := newTestServer(t)

	w := do(t, r, http.MethodPost, "/api/decks/import", gin.H{"name": "x", "cards": []gin.H{}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestFoldersAndDecks(t *testing.T) {
	_, r := newTestServer(t)
	deck := importDeck(t, r, "Nouns", 1)
	id := strconv.FormatInt(deck.ID, 10)

	st := decodeState(t, do(t, r, http.MethodPost, "/api/folders", gin.H{"name": "German"}))
	if _, ok := st.Table.Folders["German"]; !ok {
		t.Fatal("folder German was not created")
	}

	st = decodeState(t, do(t, r, http.MethodPost, "/api/decks/"+id+"/move", gin.H{
		"from": model.DefaultFolder, "to": "German",
	}))
	if len(st.Table.Folders["German"]) != 1 || len(st.Table.Folders[model.DefaultFolder]) != 0 {
		t.Fatalf("folders after move = %+v", st.Table.Folders)
	}

	st = decodeState(t, do(t, r, http.MethodPost, "/api/decks/"+id+"/reset", gin.H{
		"folder": gin.H{"kind": "original", "name": "German"},
	}))
	if d := st.Table.Folders["German"][0]; d.Stats.Total != 1 {
		t.Fatalf("stats after reset = %+v", d.Stats)
	}

	st = decodeState(t, do(t, r, http.MethodDelete, "/api/decks/"+id+"?folder=German", nil))
	if len(st.Table.Folders["German"]) != 0 {
		t.Fatal("deck was not deleted")
	}

	st = decodeState(t, do(t, r, http.MethodDelete, "/api/folders/German", nil))
	if _, ok := st.Table.Folders["German"]; ok {
		t.Fatal("folder German was not deleted")
	}
}

func TestDeckRoutes_BadRequests(t *testing.T) {
	_, r := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"non-numeric id", http.MethodPost, "/api/decks/abc/move", gin.H{"from": "a", "to": "b"}},
		{"move without target", http.MethodPost, "/api/decks/1/move", gin.H{"from": "a"}},
		{"reset without folder", http.MethodPost, "/api/decks/1/reset", gin.H{}},
		{"delete without folder", http.MethodDelete, "/api/decks/1", nil},
		{"stats with bad days", http.MethodGet, "/api/decks/1/judgments?days=0", nil},
		{"folder without name", http.MethodPost, "/api/folders", gin.H{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestDailyJudgments_WithoutLog(t *testing.T) {
	_, r := newTestServer(t)

	w := do(t, r, http.MethodGet, "/api/decks/1/judgments?days=7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		DeckID int64                  `json:"deck_id"`
		Days   []model.DailyJudgments `json:"days"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.DeckID != 1 || len(body.Days) != 0 {
		t.Fatalf("body = %+v, want deck 1 with no rows", body)
	}
}
