package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ndokutovich/claude-code-history-viewer/internal/parse"
	"github.com/ndokutovich/claude-code-history-viewer/internal/scan"
	"github.com/ndokutovich/claude-code-history-viewer/internal/session"
)

const parseWorkers = 4

// Stats summarizes one indexing run.
type Stats struct {
	Scanned int
	Updated int
	Skipped int
	Pruned  int
	Errors  int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned %d, updated %d, skipped %d, pruned %d, errors %d",
		s.Scanned, s.Updated, s.Skipped, s.Pruned, s.Errors)
}

// Indexer fills the catalog from session files on disk.
type Indexer struct {
	db     *DB
	store  *session.Store
	logger *slog.Logger
}

func NewIndexer(db *DB, store *session.Store, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{db: db, store: store, logger: logger}
}

// IndexAll scans claudeRoot and brings the catalog up to date. Files
// whose mtime and size match their catalog row are skipped; rows whose
// files vanished are pruned.
func (ix *Indexer) IndexAll(ctx context.Context, claudeRoot string) (Stats, error) {
	var stats Stats

	files, err := scan.Sessions(claudeRoot)
	if err != nil {
		return stats, fmt.Errorf("scan sessions: %w", err)
	}
	stats.Scanned = len(files)

	known, err := ix.db.AllSessionKeys()
	if err != nil {
		return stats, fmt.Errorf("list catalog keys: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseWorkers)

	for _, fi := range files {
		fi := fi
		mu.Lock()
		delete(known, fi.Path)
		mu.Unlock()

		g.Go(func() error {
			stale, err := ix.needsUpdate(fi)
			if err != nil {
				return err
			}
			if !stale {
				mu.Lock()
				stats.Skipped++
				mu.Unlock()
				return nil
			}

			row, err := ix.buildRow(gctx, fi)
			if err != nil {
				ix.logger.Warn("index session failed", "path", fi.Path, "error", err)
				mu.Lock()
				stats.Errors++
				mu.Unlock()
				return nil // one broken file must not abort the run
			}
			if err := ix.db.UpsertSession(row); err != nil {
				return err
			}
			mu.Lock()
			stats.Updated++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	// anything still in known has no file behind it
	for key := range known {
		if err := ix.db.DeleteSession(key); err != nil {
			return stats, err
		}
		stats.Pruned++
	}

	return stats, nil
}

func (ix *Indexer) needsUpdate(fi scan.FileInfo) (bool, error) {
	row, err := ix.db.GetSession(fi.Path)
	if err != nil {
		return false, err
	}
	if row == nil {
		return true, nil
	}
	return row.Mtime != fi.Mtime || row.Size != fi.Size, nil
}

// buildRow parses one session file into its catalog entry.
func (ix *Indexer) buildRow(ctx context.Context, fi scan.FileInfo) (*SessionRow, error) {
	msgs, failures, err := ix.store.ReadAll(ctx, fi.Path)
	if err != nil {
		return nil, err
	}

	row := &SessionRow{
		SessionKey:    fi.Path,
		Project:       fi.Project,
		ParseFailures: len(failures),
		Mtime:         fi.Mtime,
		Size:          fi.Size,
	}

	for i := range msgs {
		m := &msgs[i]
		if m.Type == parse.TypeSummary {
			if row.Summary == "" {
				row.Summary = parse.PlainText(m)
			}
			continue
		}
		row.MessageCount++
		if row.ActualSessionID == "" && m.SessionID != parse.UnknownSession {
			row.ActualSessionID = m.SessionID
		}
		if m.Timestamp != "" {
			if row.FirstMessageTime == "" || m.Timestamp < row.FirstMessageTime {
				row.FirstMessageTime = m.Timestamp
			}
			if m.Timestamp > row.LastMessageTime {
				row.LastMessageTime = m.Timestamp
			}
		}
		if parse.HasToolUse(m) {
			row.HasToolUse = true
		}
		if m.HasErrors {
			row.HasErrors = true
		}
	}

	// fall back to the first user message when no summary record exists
	if row.Summary == "" {
		for i := range msgs {
			if msgs[i].Type == parse.TypeUser {
				if text := parse.PlainText(&msgs[i]); text != "" {
					row.Summary = truncate(text, 120)
					break
				}
			}
		}
	}

	return row, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
