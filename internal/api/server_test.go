package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ndokutovich/claude-code-history-viewer/internal/index"
	"github.com/ndokutovich/claude-code-history-viewer/internal/session"
)

func newTestServer(t *testing.T, claudeRoot string) *Server {
	t.Helper()
	db, err := index.OpenDB(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	store := session.NewStore(false)
	svc := session.NewService(store, 20, nil)
	ix := index.NewIndexer(db, store, nil)
	if _, err := ix.IndexAll(context.Background(), claudeRoot); err != nil {
		t.Fatal(err)
	}
	return NewServer("127.0.0.1:0", svc, db, ix, claudeRoot, nil)
}

func writeSessionFile(t *testing.T, root string, n int) string {
	t.Helper()
	dir := filepath.Join(root, "-home-dev-alpha")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	b.WriteString(`{"type":"summary","summary":"api test session"}` + "\n")
	for i := 0; i < n; i++ {
		ts := time.Date(2026, 1, 2, 10, 0, i, 0, time.UTC).Format(time.RFC3339)
		fmt.Fprintf(&b, `{"uuid":"3f2504e0-4f89-41d3-9a0c-%012d","sessionId":"3f2504e0-4f89-41d3-9a0c-000000009999","timestamp":"%s","type":"user","message":{"role":"user","content":"message %d"}}`+"\n",
			i, ts, i)
	}
	path := filepath.Join(dir, "s.jsonl")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	rec := get(t, srv.Handler(), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
}

func TestListSessions(t *testing.T) {
	root := t.TempDir()
	writeSessionFile(t, root, 5)
	srv := newTestServer(t, root)

	rec := get(t, srv.Handler(), "/api/sessions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Sessions []sessionEntry `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(resp.Sessions))
	}
	s := resp.Sessions[0]
	if s.Project != "alpha" || s.MessageCount != 5 || s.Summary != "api test session" {
		t.Errorf("session entry wrong: %+v", s)
	}
}

func TestMessagesPage(t *testing.T) {
	root := t.TempDir()
	path := writeSessionFile(t, root, 50)
	srv := newTestServer(t, root)

	rec := get(t, srv.Handler(), "/api/messages?session="+path+"&offset=0&limit=20")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var page struct {
		Messages   []json.RawMessage `json:"messages"`
		TotalCount int               `json:"total_count"`
		HasMore    bool              `json:"has_more"`
		NextOffset int               `json:"next_offset"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.TotalCount != 50 || !page.HasMore || page.NextOffset != 20 {
		t.Errorf("page facts wrong: total=%d hasMore=%v next=%d", page.TotalCount, page.HasMore, page.NextOffset)
	}
	if len(page.Messages) != 20 {
		t.Errorf("expected 20 messages, got %d", len(page.Messages))
	}
}

func TestMessagesMissingParam(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	rec := get(t, srv.Handler(), "/api/messages")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMessagesUnknownSession(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	rec := get(t, srv.Handler(), "/api/messages?session=/nope/absent.jsonl")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file should map to 404, got %d", rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	root := t.TempDir()
	srv := newTestServer(t, root)
	writeSessionFile(t, root, 3)

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var stats struct {
		Updated int `json:"updated"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Updated != 1 {
		t.Errorf("refresh should index the new file: %+v", stats)
	}

	rec = get(t, srv.Handler(), "/api/sessions")
	var resp struct {
		Sessions []sessionEntry `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Sessions) != 1 {
		t.Errorf("expected 1 session after refresh, got %d", len(resp.Sessions))
	}
}
