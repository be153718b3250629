package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ndokutovich/claude-code-history-viewer/internal/session"
)

func writeSessionFile(t *testing.T, root, project, name string, n int, withSummary bool) string {
	t.Helper()
	dir := filepath.Join(root, project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	if withSummary {
		b.WriteString(`{"type":"summary","summary":"fix the widget"}` + "\n")
	}
	for i := 0; i < n; i++ {
		typ := "user"
		if i%2 == 1 {
			typ = "assistant"
		}
		ts := time.Date(2026, 1, 2, 10, 0, i, 0, time.UTC).Format(time.RFC3339)
		fmt.Fprintf(&b, `{"uuid":"3f2504e0-4f89-41d3-9a0c-%012d","sessionId":"3f2504e0-4f89-41d3-9a0c-000000009999","timestamp":"%s","type":"%s","message":{"role":"%s","content":"message %d"}}`+"\n",
			i, ts, typ, typ, i)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestIndexer(t *testing.T) (*Indexer, *DB) {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewIndexer(db, session.NewStore(false), nil), db
}

func TestIndexAllBuildsCatalog(t *testing.T) {
	root := t.TempDir()
	writeSessionFile(t, root, "-home-dev-alpha", "s1.jsonl", 8, true)
	writeSessionFile(t, root, "-home-dev-beta", "s2.jsonl", 3, false)
	ix, db := newTestIndexer(t)

	stats, err := ix.IndexAll(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Scanned != 2 || stats.Updated != 2 || stats.Errors != 0 {
		t.Fatalf("stats wrong: %s", stats)
	}

	rows, err := db.ListSessions("", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 catalog rows, got %d", len(rows))
	}

	var alpha *SessionRow
	for i := range rows {
		if rows[i].Project == "alpha" {
			alpha = &rows[i]
		}
	}
	if alpha == nil {
		t.Fatal("alpha session missing from catalog")
	}
	if alpha.MessageCount != 8 {
		t.Errorf("summary must not count as a message: count=%d", alpha.MessageCount)
	}
	if alpha.Summary != "fix the widget" {
		t.Errorf("summary = %q", alpha.Summary)
	}
	if alpha.ActualSessionID != "3f2504e0-4f89-41d3-9a0c-000000009999" {
		t.Errorf("actual session id = %q", alpha.ActualSessionID)
	}
	if alpha.FirstMessageTime >= alpha.LastMessageTime {
		t.Errorf("time range wrong: %s .. %s", alpha.FirstMessageTime, alpha.LastMessageTime)
	}
}

func TestIndexAllSkipsUnchanged(t *testing.T) {
	root := t.TempDir()
	writeSessionFile(t, root, "-home-dev-alpha", "s1.jsonl", 4, false)
	ix, _ := newTestIndexer(t)

	if _, err := ix.IndexAll(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	stats, err := ix.IndexAll(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 1 || stats.Updated != 0 {
		t.Errorf("unchanged file should be skipped: %s", stats)
	}
}

func TestIndexAllPrunesVanished(t *testing.T) {
	root := t.TempDir()
	path := writeSessionFile(t, root, "-home-dev-alpha", "s1.jsonl", 4, false)
	ix, db := newTestIndexer(t)

	if _, err := ix.IndexAll(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	stats, err := ix.IndexAll(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pruned != 1 {
		t.Errorf("expected 1 pruned row: %s", stats)
	}
	n, err := db.SessionCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("catalog should be empty, got %d rows", n)
	}
}

func TestIndexAllCountsParseFailures(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "-home-dev-alpha")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := strings.Join([]string{
		`{"uuid":"3f2504e0-4f89-41d3-9a0c-000000000001","sessionId":"s","timestamp":"2026-01-02T10:00:00Z","type":"user","message":{"role":"user","content":"hello there"}}`,
		`{broken`,
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "s.jsonl"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	ix, db := newTestIndexer(t)

	if _, err := ix.IndexAll(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	rows, err := db.ListSessions("", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].ParseFailures != 1 {
		t.Errorf("parse failures = %d", rows[0].ParseFailures)
	}
	// no summary record: first user message stands in
	if rows[0].Summary != "hello there" {
		t.Errorf("fallback summary = %q", rows[0].Summary)
	}
}

func TestListSessionsByProject(t *testing.T) {
	root := t.TempDir()
	writeSessionFile(t, root, "-home-dev-alpha", "s1.jsonl", 2, false)
	writeSessionFile(t, root, "-home-dev-beta", "s2.jsonl", 2, false)
	ix, db := newTestIndexer(t)

	if _, err := ix.IndexAll(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	rows, err := db.ListSessions("beta", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Project != "beta" {
		t.Errorf("project filter wrong: %+v", rows)
	}
}
