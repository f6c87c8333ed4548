package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cyberpaste/cyberpaste/config"
	"github.com/cyberpaste/cyberpaste/internal/id"
	"github.com/cyberpaste/cyberpaste/models"
	"github.com/cyberpaste/cyberpaste/services"
	"github.com/cyberpaste/cyberpaste/storage"
)

func newTestRouter() (*gin.Engine, *services.PasteService) {
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	svc := services.NewPasteService(store, id.New(10))

	pasteHandler := NewPasteHandler(svc, &config.Config{URL: "http://paste.test"})
	statsHandler := NewStatsHandler(svc)
	svc.OnChange(statsHandler.Invalidate)

	router := gin.New()
	router.POST("/api/pastes", pasteHandler.Create)
	router.GET("/api/pastes/:id", pasteHandler.Get)
	router.GET("/raw/:id", pasteHandler.Raw)
	router.GET("/api/stats", statsHandler.ActiveCount)
	return router, svc
}

func createTestPaste(t *testing.T, router *gin.Engine, body string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/pastes", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad create response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("create returned empty id")
	}
	return resp.ID
}

func TestCreateAndGetRoundtrip(t *testing.T) {
	router, _ := newTestRouter()

	pasteID := createTestPaste(t, router,
		`{"tabs":[{"name":"a.txt","lang":"plaintext","content":"hi"}],"ttl_seconds":3600,"encrypted":false}`)

	req := httptest.NewRequest(http.MethodGet, "/api/pastes/"+pasteID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("get returned %d: %s", w.Code, w.Body.String())
	}
	var paste models.Paste
	if err := json.Unmarshal(w.Body.Bytes(), &paste); err != nil {
		t.Fatalf("bad get response: %v", err)
	}
	if paste.Views != 0 {
		t.Fatalf("first fetch should report pre-increment views 0, got %d", paste.Views)
	}
	if len(paste.Tabs) != 1 || paste.Tabs[0].Content != "hi" {
		t.Fatalf("tab mismatch: %+v", paste.Tabs)
	}
	if paste.Encrypted {
		t.Fatal("expected unencrypted paste")
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	router, _ := newTestRouter()

	cases := []struct {
		name string
		body string
	}{
		{"empty tab list", `{"tabs":[],"ttl_seconds":0,"encrypted":false}`},
		{"blank content", `{"tabs":[{"name":"a","lang":"go","content":"   "}],"ttl_seconds":0}`},
		{"negative ttl", `{"tabs":[{"name":"a","lang":"go","content":"x"}],"ttl_seconds":-5}`},
		{"not json", `{{{`},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/pastes", bytes.NewBufferString(tc.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d (%s)", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestGetUnknownPaste(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/pastes/doesnotexist", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRawConcatenatesTabs(t *testing.T) {
	router, _ := newTestRouter()

	pasteID := createTestPaste(t, router,
		`{"tabs":[{"name":"a.txt","lang":"plaintext","content":"first"},{"name":"","lang":"go","content":"second"}],"ttl_seconds":0}`)

	req := httptest.NewRequest(http.MethodGet, "/raw/"+pasteID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("raw returned %d", w.Code)
	}
	want := "--- a.txt (plaintext) ---\n\nfirst\n\n--- Pasty (go) ---\n\nsecond"
	if w.Body.String() != want {
		t.Fatalf("raw body mismatch:\ngot:  %q\nwant: %q", w.Body.String(), want)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain, got %s", ct)
	}
}

func TestRawRefusesEncrypted(t *testing.T) {
	router, _ := newTestRouter()

	pasteID := createTestPaste(t, router,
		`{"tabs":[{"name":"s","lang":"plaintext","content":"bm9uY2VjaXBoZXJ0ZXh0"}],"ttl_seconds":0,"encrypted":true}`)

	req := httptest.NewRequest(http.MethodGet, "/raw/"+pasteID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for encrypted raw view, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "bm9uY2Vj") {
		t.Fatal("raw response leaked ciphertext")
	}
}

func TestStatsCountsAndInvalidates(t *testing.T) {
	router, _ := newTestRouter()

	readCount := func() int64 {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("stats returned %d", w.Code)
		}
		var resp struct {
			ActivePastes int64 `json:"active_pastes"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad stats response: %v", err)
		}
		return resp.ActivePastes
	}

	if n := readCount(); n != 0 {
		t.Fatalf("expected 0 active pastes, got %d", n)
	}

	createTestPaste(t, router, `{"tabs":[{"name":"a","lang":"go","content":"x"}],"ttl_seconds":0}`)

	// The create must have invalidated the cached zero.
	if n := readCount(); n != 1 {
		t.Fatalf("expected 1 active paste after create, got %d", n)
	}
}
