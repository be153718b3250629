// Package tui is the interactive session viewer: session list on the
// left, paged chat transcript on the right. Older messages are pulled
// in on demand, newest page first.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ndokutovich/claude-code-history-viewer/internal/index"
	"github.com/ndokutovich/claude-code-history-viewer/internal/paginate"
	"github.com/ndokutovich/claude-code-history-viewer/internal/parse"
	"github.com/ndokutovich/claude-code-history-viewer/internal/session"
	"github.com/ndokutovich/claude-code-history-viewer/internal/tree"
	"github.com/ndokutovich/claude-code-history-viewer/internal/validate"
)

// message types

type sessionsLoadedMsg struct {
	rows []index.SessionRow
	err  error
}

type pageLoadedMsg struct {
	sessionKey string
	page       paginate.Page
	res        validate.Result
	prepend    bool
	err        error
}

type treeLoadedMsg struct {
	sessionKey  string
	branchRoots map[string]bool
}

// model

type model struct {
	db  *index.DB
	svc *session.Service

	allSessions []index.SessionRow
	sessions    []index.SessionRow // after filtering
	cursor      int
	listOffset  int
	filterInput textinput.Model

	view        *session.View
	loaded      []parse.Message // merged window, oldest first
	branchRoots map[string]bool
	chat        viewport.Model

	width    int
	height   int
	ready    bool
	quitting bool
	status   string

	openSession *index.SessionRow
}

func initialModel(db *index.DB, svc *session.Service) model {
	ti := textinput.New()
	ti.Placeholder = "Filter sessions..."
	ti.Focus()
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	return model{
		db:          db,
		svc:         svc,
		filterInput: ti,
		chat:        viewport.New(0, 0),
	}
}

// Run starts the viewer and blocks until it exits. If the user selects
// a session with Enter, the resume command is copied to the clipboard.
func Run(db *index.DB, svc *session.Service) error {
	m := initialModel(db, svc)
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(model)
	if fm.openSession != nil {
		return copyResumeCommand(fm.openSession)
	}
	return nil
}

// copyResumeCommand puts the claude resume invocation on the clipboard,
// falling back to stdout when no clipboard is available.
func copyResumeCommand(s *index.SessionRow) error {
	sessionID := s.ActualSessionID
	if sessionID == "" || sessionID == parse.UnknownSession {
		sessionID = strings.TrimSuffix(filepath.Base(s.SessionKey), ".jsonl")
	}
	cmd := fmt.Sprintf("claude --resume %s", sessionID)

	if err := clipboard.WriteAll(cmd); err != nil {
		fmt.Printf("%s\n", cmd)
		return nil
	}
	fmt.Printf("Copied to clipboard: %s\n", cmd)
	return nil
}

// Init loads the session catalog.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadSessions())
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.chat = viewport.New(m.chatWidth(), m.panelHeight())
		m.rerenderChat(false)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Enter):
			if len(m.sessions) > 0 && m.cursor < len(m.sessions) {
				s := m.sessions[m.cursor]
				m.openSession = &s
				m.quitting = true
				return m, tea.Quit
			}

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.selectCurrent())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.sessions)-1 {
				m.cursor++
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.selectCurrent())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.LoadOlder):
			if m.view != nil && m.view.State().HasMore {
				m.status = "loading older messages..."
				cmds = append(cmds, m.loadOlder(true))
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Refresh):
			if m.view != nil {
				m.loaded = nil
				m.status = "refreshing..."
				cmds = append(cmds, m.refresh())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.ChatUp):
			m.chat.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.ChatDn):
			m.chat.LineDown(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PageUp):
			m.chat.LineUp(m.panelHeight())
			return m, nil

		case key.Matches(msg, keys.PageDown):
			m.chat.LineDown(m.panelHeight())
			return m, nil
		}

		// Pass remaining keys to the filter input
		var tiCmd tea.Cmd
		prev := m.filterInput.Value()
		m.filterInput, tiCmd = m.filterInput.Update(msg)
		cmds = append(cmds, tiCmd)
		if m.filterInput.Value() != prev {
			m.applyFilter()
			cmds = append(cmds, m.selectCurrent())
		}
		return m, tea.Batch(cmds...)

	case sessionsLoadedMsg:
		if msg.err != nil {
			m.status = "catalog error: " + msg.err.Error()
			return m, nil
		}
		m.allSessions = msg.rows
		m.applyFilter()
		return m, m.selectCurrent()

	case pageLoadedMsg:
		// Drop results for a session that is no longer selected
		if m.view == nil || m.view.SessionID() != msg.sessionKey {
			return m, nil
		}
		if msg.err != nil {
			if errors.Is(msg.err, session.ErrBatchRejected) {
				m.status = "history changed on disk, C-r to refresh"
			} else {
				m.status = "load error: " + msg.err.Error()
			}
			return m, nil
		}
		if msg.prepend {
			m.loaded = append(append([]parse.Message{}, msg.page.Messages...), m.loaded...)
		} else {
			m.loaded = msg.page.Messages
		}
		m.rerenderChat(msg.prepend)
		m.status = m.pageStatus(msg.page)
		for _, w := range msg.res.Warnings {
			m.status += " | " + w
			break // one warning is enough for the status bar
		}
		return m, nil

	case treeLoadedMsg:
		if m.view == nil || m.view.SessionID() != msg.sessionKey {
			return m, nil
		}
		m.branchRoots = msg.branchRoots
		if len(m.branchRoots) > 0 {
			m.rerenderChat(false)
		}
		return m, nil
	}

	return m, tea.Batch(cmds...)
}

// View renders the full viewer.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	chatW := m.chatWidth()
	panelH := m.panelHeight()

	inputRow := m.filterInput.View()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.chat.Width = chatW
	m.chat.Height = panelH
	chatPanel := styleActiveBorder.
		Width(chatW).
		Height(panelH).
		Render(m.chat.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, chatPanel)
	status := m.statusBar()

	return lipgloss.JoinVertical(lipgloss.Left, inputRow, panels, status)
}

// commands

func (m model) loadSessions() tea.Cmd {
	db := m.db
	return func() tea.Msg {
		rows, err := db.ListSessions("", 0)
		return sessionsLoadedMsg{rows: rows, err: err}
	}
}

// selectCurrent switches the active view to the session under the
// cursor and loads its newest page.
func (m *model) selectCurrent() tea.Cmd {
	if len(m.sessions) == 0 || m.cursor >= len(m.sessions) {
		m.view = nil
		m.loaded = nil
		m.chat.SetContent("")
		return nil
	}
	s := m.sessions[m.cursor]
	if m.view != nil && m.view.SessionID() == s.SessionKey {
		return nil
	}
	m.view = m.svc.Select(s.SessionKey)
	m.loaded = nil
	m.branchRoots = nil
	m.chat.SetContent("")
	m.status = "loading..."
	return tea.Batch(m.loadOlder(false), m.loadTree())
}

// loadTree rebuilds the conversation forest so branch roots can be
// marked in the transcript.
func (m model) loadTree() tea.Cmd {
	view := m.view
	return func() tea.Msg {
		forest, _, err := view.Tree(context.Background())
		if err != nil {
			return treeLoadedMsg{sessionKey: view.SessionID()}
		}
		roots := make(map[string]bool)
		var walk func(nodes []*tree.Node)
		walk = func(nodes []*tree.Node) {
			for _, n := range nodes {
				if n.IsBranchRoot {
					roots[n.Message.UUID] = true
				}
				walk(n.Children)
			}
		}
		walk(forest.Roots)
		return treeLoadedMsg{sessionKey: view.SessionID(), branchRoots: roots}
	}
}

func (m model) loadOlder(prepend bool) tea.Cmd {
	view := m.view
	return func() tea.Msg {
		page, res, err := view.LoadOlder(context.Background())
		return pageLoadedMsg{
			sessionKey: view.SessionID(),
			page:       page,
			res:        res,
			prepend:    prepend,
			err:        err,
		}
	}
}

func (m model) refresh() tea.Cmd {
	view := m.view
	return func() tea.Msg {
		page, res, err := view.Refresh(context.Background())
		return pageLoadedMsg{
			sessionKey: view.SessionID(),
			page:       page,
			res:        res,
			err:        err,
		}
	}
}

// helpers

func (m *model) applyFilter() {
	filter := strings.ToLower(m.filterInput.Value())
	if filter == "" {
		m.sessions = m.allSessions
	} else {
		m.sessions = nil
		for _, s := range m.allSessions {
			if strings.Contains(strings.ToLower(s.Summary), filter) ||
				strings.Contains(strings.ToLower(s.Project), filter) {
				m.sessions = append(m.sessions, s)
			}
		}
	}
	m.cursor = 0
	m.listOffset = 0
}

// rerenderChat rebuilds the viewport content. After prepending an older
// chunk the scroll position is pushed down by the new lines so the
// reader stays on the message they were looking at.
func (m *model) rerenderChat(prepend bool) {
	content, _ := renderTranscript(m.loaded, m.branchRoots, m.chatWidth())
	prevTotal := m.chat.TotalLineCount()
	prevOffset := m.chat.YOffset

	m.chat.SetContent(content)
	if prepend {
		grown := m.chat.TotalLineCount() - prevTotal
		if grown > 0 {
			m.chat.SetYOffset(prevOffset + grown)
		}
	} else {
		m.chat.GotoBottom()
	}
}

func (m model) pageStatus(page paginate.Page) string {
	shown := len(m.loaded)
	if page.HasMore {
		return fmt.Sprintf("%d of %d messages, C-o for older", shown, page.TotalCount)
	}
	return fmt.Sprintf("all %d messages loaded", page.TotalCount)
}

func (m model) statusBar() string {
	var parts []string
	if m.status != "" {
		parts = append(parts, m.status)
	} else {
		parts = append(parts, fmt.Sprintf("%d sessions", len(m.sessions)))
	}
	parts = append(parts, "up/dn sessions")
	parts = append(parts, "C-o older")
	parts = append(parts, "C-r refresh")
	parts = append(parts, "Enter copy resume cmd")
	parts = append(parts, "Esc quit")
	return styleStatusBar.Render(strings.Join(parts, " | "))
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	// 40% for the list, minus border padding
	w := m.width*40/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) chatWidth() int {
	if m.width <= 0 {
		return 60
	}
	// 60% for the chat, minus border padding
	w := m.width*60/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// Subtract input row (1) + status bar (1) + borders (4)
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}
