package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ndokutovich/claude-code-history-viewer/internal/paginate"
	"github.com/ndokutovich/claude-code-history-viewer/internal/parse"
	"github.com/ndokutovich/claude-code-history-viewer/internal/tree"
	"github.com/ndokutovich/claude-code-history-viewer/internal/validate"
)

// ErrBatchRejected marks a fatally invalid batch: the loaded window
// overlaps already-merged messages and the session needs a full
// refresh. It is distinct from transient I/O failures, which are
// returned as ordinary wrapped errors and safe to retry.
var ErrBatchRejected = errors.New("batch rejected: duplicate identifiers, session refresh required")

// Service is the boundary the viewer talks to. It owns one active view
// at a time; selecting a session atomically swaps the old view out and
// cancels its in-flight work. Stateless LoadPage calls for arbitrary
// sessions are also served, collapsed per (session, offset, limit) so
// rapid duplicate requests cost one read.
type Service struct {
	store  *Store
	pages  int
	logger *slog.Logger

	mu     sync.Mutex
	active *View

	flight singleflight.Group
}

func NewService(store *Store, pageSize int, logger *slog.Logger) *Service {
	if pageSize <= 0 {
		pageSize = paginate.DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, pages: pageSize, logger: logger}
}

// LoadPage serves one page for an explicit offset without
// touching any per-view state. Identical concurrent requests share one
// underlying load.
func (s *Service) LoadPage(ctx context.Context, sessionID string, offset, limit int) (paginate.Page, error) {
	if limit <= 0 {
		limit = s.pages
	}
	key := fmt.Sprintf("%s|%d|%d", sessionID, offset, limit)
	v, err, shared := s.flight.Do(key, func() (any, error) {
		p := paginate.New(sessionID, limit, s.store)
		return p.LoadPage(ctx, offset)
	})
	if err != nil {
		return paginate.Page{}, err
	}
	if shared {
		s.logger.Debug("page load collapsed", "session", sessionID, "offset", offset)
	}
	return v.(paginate.Page), nil
}

// ValidateBatch audits a batch against a fresh validator. Diagnostic
// only: running per-view state is untouched, and callers are free to
// ignore warnings.
func (s *Service) ValidateBatch(sessionID string, batch []parse.Message) validate.Result {
	return validate.New().Validate(batch)
}

// Select makes sessionID the active session, swapping out and
// cancelling the previous view. Pagination starts over at the newest
// messages.
func (s *Service) Select(sessionID string) *View {
	ctx, cancel := context.WithCancel(context.Background())
	view := &View{
		sessionID: sessionID,
		paginator: paginate.New(sessionID, s.pages, s.store),
		validator: validate.New(),
		store:     s.store,
		logger:    s.logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	s.mu.Lock()
	old := s.active
	s.active = view
	s.mu.Unlock()

	if old != nil {
		old.cancel()
		s.logger.Debug("session switched", "from", old.sessionID, "to", sessionID)
	}
	return view
}

// Active returns the current view, nil when no session is selected.
func (s *Service) Active() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Deselect drops the active view and cancels its in-flight work.
func (s *Service) Deselect() {
	s.mu.Lock()
	old := s.active
	s.active = nil
	s.mu.Unlock()
	if old != nil {
		old.cancel()
	}
}

// View is the per-session pagination and validation state owned by the
// active selection. All mutation happens through LoadOlder and
// Refresh; a cancelled view returns context errors from then on.
type View struct {
	sessionID string
	paginator *paginate.Paginator
	validator *validate.Validator
	store     *Store
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// SessionID returns the file path identifying this view's session.
func (w *View) SessionID() string { return w.sessionID }

// Context returns the view's lifetime context. It is cancelled when
// another session is selected, so late results are discarded upstream.
func (w *View) Context() context.Context { return w.ctx }

// State snapshots the pagination state for display.
func (w *View) State() paginate.State { return w.paginator.State() }

// LoadOlder loads the next older chunk, audits it, and merges it. A
// fatally invalid batch is refused: the offset stays put, nothing is
// merged, and ErrBatchRejected tells the caller to Refresh. Warnings
// are logged and returned with the page.
func (w *View) LoadOlder(ctx context.Context) (paginate.Page, validate.Result, error) {
	if err := w.ctx.Err(); err != nil {
		return paginate.Page{}, validate.Result{}, err
	}

	page, err := w.paginator.LoadOlder(joinContext(ctx, w.ctx))
	if err != nil {
		return paginate.Page{}, validate.Result{}, err
	}

	res := w.validator.Validate(page.Messages)
	if !res.Valid {
		w.logger.Warn("batch rejected", "session", w.sessionID, "errors", len(res.Errors))
		return paginate.Page{}, res, ErrBatchRejected
	}
	for _, warn := range res.Warnings {
		w.logger.Warn("batch warning", "session", w.sessionID, "warning", warn)
	}

	w.validator.AddMessages(page.Messages)
	w.paginator.Advance(page.NextOffset, page.TotalCount)
	return page, res, nil
}

// Refresh resets pagination and validation state and loads the first
// (newest) page again.
func (w *View) Refresh(ctx context.Context) (paginate.Page, validate.Result, error) {
	w.paginator.Reset()
	w.validator.Reset()
	return w.LoadOlder(ctx)
}

// Tree rebuilds the full conversation forest from every message in the
// file. The rebuild is from scratch on each call; partial page state
// never leaks into it.
func (w *View) Tree(ctx context.Context) (*tree.Forest, []parse.LineError, error) {
	msgs, failures, err := w.store.ReadAll(joinContext(ctx, w.ctx), w.sessionID)
	if err != nil {
		return nil, nil, err
	}
	return tree.Build(msgs), failures, nil
}

// joinContext returns a context cancelled when either input is. The
// caller's context bounds one call; the view's context bounds the
// session selection.
func joinContext(call, view context.Context) context.Context {
	if call == nil || call == context.Background() {
		return view
	}
	merged, cancel := context.WithCancel(call)
	go func() {
		defer cancel()
		select {
		case <-view.Done():
		case <-merged.Done():
		}
	}()
	return merged
}
