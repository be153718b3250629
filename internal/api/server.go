// Package api exposes the session catalog and message pagination over
// a local HTTP API, for frontends that prefer JSON over the TUI.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ndokutovich/claude-code-history-viewer/internal/index"
	"github.com/ndokutovich/claude-code-history-viewer/internal/session"
)

type Server struct {
	router     *chi.Mux
	addr       string
	svc        *session.Service
	db         *index.DB
	indexer    *index.Indexer
	claudeRoot string
	logger     *slog.Logger
}

func NewServer(addr string, svc *session.Service, db *index.DB, indexer *index.Indexer, claudeRoot string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:     router,
		addr:       addr,
		svc:        svc,
		db:         db,
		indexer:    indexer,
		claudeRoot: claudeRoot,
		logger:     logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/sessions", s.listSessions)
	router.Get("/api/messages", s.messages)
	router.Post("/api/refresh", s.refresh)

	return s
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.router)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionEntry struct {
	SessionKey       string `json:"session_key"`
	ActualSessionID  string `json:"actual_session_id"`
	Project          string `json:"project"`
	Summary          string `json:"summary"`
	MessageCount     int    `json:"message_count"`
	FirstMessageTime string `json:"first_message_time"`
	LastMessageTime  string `json:"last_message_time"`
	HasToolUse       bool   `json:"has_tool_use"`
	HasErrors        bool   `json:"has_errors"`
	ParseFailures    int    `json:"parse_failures"`
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	limit := intParam(r, "limit", 0)

	rows, err := s.db.ListSessions(project, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	entries := make([]sessionEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, sessionEntry{
			SessionKey:       row.SessionKey,
			ActualSessionID:  row.ActualSessionID,
			Project:          row.Project,
			Summary:          row.Summary,
			MessageCount:     row.MessageCount,
			FirstMessageTime: row.FirstMessageTime,
			LastMessageTime:  row.LastMessageTime,
			HasToolUse:       row.HasToolUse,
			HasErrors:        row.HasErrors,
			ParseFailures:    row.ParseFailures,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": entries})
}

// messages serves one page of a session, newest window first. The
// session parameter is the session file path, as listed by
// /api/sessions.
func (s *Server) messages(w http.ResponseWriter, r *http.Request) {
	sessionKey := r.URL.Query().Get("session")
	if sessionKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session parameter required"})
		return
	}
	offset := intParam(r, "offset", 0)
	limit := intParam(r, "limit", 0)

	page, err := s.svc.LoadPage(r.Context(), sessionKey, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	stats, err := s.indexer.IndexAll(r.Context(), s.claudeRoot)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scanned": stats.Scanned,
		"updated": stats.Updated,
		"skipped": stats.Skipped,
		"pruned":  stats.Pruned,
		"errors":  stats.Errors,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, os.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrBatchRejected):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func intParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
