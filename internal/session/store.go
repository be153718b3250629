// Package session reads Claude Code session files and serves paged,
// validated views of their message history.
package session

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/ndokutovich/claude-code-history-viewer/internal/parse"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB

// Store reads session files line by line. The session identifier is
// the file path, which is stable and unique per conversation. Summary
// records never count toward pagination indices; sidechain records are
// skipped when ExcludeSidechain is set, matching the message counts
// the catalog reports.
type Store struct {
	ExcludeSidechain bool
}

func NewStore(excludeSidechain bool) *Store {
	return &Store{ExcludeSidechain: excludeSidechain}
}

// loadable reports whether a record occupies a pagination index.
func (s *Store) loadable(rec *parse.RawRecord) bool {
	if rec.Type == parse.TypeSummary {
		return false
	}
	if s.ExcludeSidechain && rec.IsSidechain {
		return false
	}
	return true
}

// CountMessages returns the authoritative count of loadable messages.
func (s *Store) CountMessages(ctx context.Context, path string) (int, error) {
	count := 0
	err := s.scanLines(ctx, path, func(rec *parse.RawRecord, _ *parse.LineError) bool {
		if rec != nil && s.loadable(rec) {
			count++
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ReadWindow normalizes the loadable messages at oldest-first indices
// [start, end). Line failures inside the window are skipped, same as
// everywhere else; they simply never receive an index.
func (s *Store) ReadWindow(ctx context.Context, path string, start, end int) ([]parse.Message, error) {
	if end <= start {
		return nil, nil
	}
	msgs := make([]parse.Message, 0, end-start)
	idx := 0
	err := s.scanLines(ctx, path, func(rec *parse.RawRecord, _ *parse.LineError) bool {
		if rec == nil || !s.loadable(rec) {
			return true
		}
		if idx >= start && idx < end {
			msgs = append(msgs, parse.Normalize(rec))
		}
		idx++
		return idx < end // past the window, stop reading
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// ReadAll parses and normalizes the whole file, including the summary
// record, collecting line-level failures as diagnostics.
func (s *Store) ReadAll(ctx context.Context, path string) ([]parse.Message, []parse.LineError, error) {
	var msgs []parse.Message
	var failures []parse.LineError
	err := s.scanLines(ctx, path, func(rec *parse.RawRecord, lerr *parse.LineError) bool {
		if lerr != nil {
			failures = append(failures, *lerr)
			return true
		}
		if rec.Type != parse.TypeSummary && !s.loadable(rec) {
			return true
		}
		msgs = append(msgs, parse.Normalize(rec))
		return true
	})
	if err != nil {
		return nil, nil, err
	}
	return msgs, failures, nil
}

// scanLines streams a file through the record parser. The visit
// callback returns false to stop early. Cancellation is checked per
// line so a session switch abandons large files promptly.
func (s *Store) scanLines(ctx context.Context, path string, visit func(*parse.RawRecord, *parse.LineError) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, lerr := parse.ParseLine(scanner.Bytes(), lineNum)
		if rec == nil && lerr == nil {
			continue // blank line
		}
		if !visit(rec, lerr) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
