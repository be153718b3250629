package paginate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/ndokutovich/claude-code-history-viewer/internal/parse"
)

// Loader materializes message windows for a session. CountMessages
// returns the authoritative total; ReadWindow returns the messages at
// oldest-first indices [start, end).
type Loader interface {
	CountMessages(ctx context.Context, sessionID string) (int, error)
	ReadWindow(ctx context.Context, sessionID string, start, end int) ([]parse.Message, error)
}

// Page is one loaded chunk plus the pagination facts the viewer needs.
type Page struct {
	Messages   []parse.Message `json:"messages"`
	TotalCount int             `json:"total_count"`
	HasMore    bool            `json:"has_more"`
	NextOffset int             `json:"next_offset"`
}

// State is a snapshot of a paginator for display.
type State struct {
	Offset    int
	PageSize  int
	Total     int
	HasMore   bool
	IsLoading bool
}

// Paginator holds reverse-pagination state for one session. Loads for
// the same offset are collapsed into a single in-flight call: a second
// trigger arriving while one is running attaches to its result instead
// of issuing another read. Offsets only advance through Advance, so a
// failed load resumes from the same window.
type Paginator struct {
	sessionID string
	pageSize  int
	loader    Loader

	mu     sync.Mutex
	offset int
	total  int

	loading atomic.Bool
	flight  singleflight.Group
}

// New creates a paginator at offset zero. pageSize <= 0 selects
// DefaultPageSize.
func New(sessionID string, pageSize int, loader Loader) *Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Paginator{sessionID: sessionID, pageSize: pageSize, loader: loader}
}

// Offset returns the count of messages already loaded from the newest end.
func (p *Paginator) Offset() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}

// State snapshots the current pagination state.
func (p *Paginator) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Offset:    p.offset,
		PageSize:  p.pageSize,
		Total:     p.total,
		HasMore:   p.offset < p.total,
		IsLoading: p.loading.Load(),
	}
}

// LoadPage loads the chunk for the given offset without advancing any
// state. Concurrent calls for the same offset share one underlying
// read. The total is re-based against the source on every call, so an
// offset that overshoots after an external truncation degrades to an
// empty "all loaded" page instead of failing.
func (p *Paginator) LoadPage(ctx context.Context, offset int) (Page, error) {
	key := fmt.Sprintf("%d", offset)
	v, err, _ := p.flight.Do(key, func() (any, error) {
		p.loading.Store(true)
		defer p.loading.Store(false)
		return p.loadPage(ctx, offset)
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}

func (p *Paginator) loadPage(ctx context.Context, offset int) (Page, error) {
	total, err := p.loader.CountMessages(ctx, p.sessionID)
	if err != nil {
		return Page{}, fmt.Errorf("count messages: %w", err)
	}

	w := Plan(total, offset, p.pageSize)
	page := Page{
		TotalCount: total,
		HasMore:    w.HasMore,
		NextOffset: w.NextOffset,
	}
	if w.ToLoad == 0 {
		// all messages loaded; a positive terminal state, not an error
		return page, nil
	}

	msgs, err := p.loader.ReadWindow(ctx, p.sessionID, w.Start, w.End)
	if err != nil {
		return Page{}, fmt.Errorf("read window [%d,%d): %w", w.Start, w.End, err)
	}
	page.Messages = msgs
	return page, nil
}

// LoadOlder loads the next older chunk relative to the current offset.
// The offset does not move; callers commit a successful, validated
// page with Advance.
func (p *Paginator) LoadOlder(ctx context.Context) (Page, error) {
	return p.LoadPage(ctx, p.Offset())
}

// Advance commits a loaded page, moving the offset to nextOffset and
// recording the authoritative total.
func (p *Paginator) Advance(nextOffset, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = nextOffset
	p.total = total
}

// Reset returns the paginator to offset zero, used on session switch or
// explicit refresh.
func (p *Paginator) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = 0
	p.total = 0
}
