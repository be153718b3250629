package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ndokutovich/claude-code-history-viewer/internal/index"
)

// linesPerItem is the number of terminal lines each session occupies.
const linesPerItem = 2

// renderList renders the left panel: the session list with scrolling.
func (m model) renderList(width, height int) string {
	if len(m.sessions) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No sessions")
		return empty
	}

	var lines []string
	for i, s := range m.sessions {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		rows := formatSessionLine(s, width, i == m.cursor)
		lines = append(lines, rows...)
	}

	// Pad remaining lines
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}

	return strings.Join(lines, "\n")
}

// formatSessionLine formats a single session as two lines:
//
//	line 1: [>] project  MM-DD  summary
//	line 2:    N msgs [tools] [errors] (dimmed)
func formatSessionLine(s index.SessionRow, width int, selected bool) []string {
	project := styleProject.Render(s.Project)

	// Extract short date from the last message time
	date := s.LastMessageTime
	if len(date) >= 10 {
		date = date[5:10] // MM-DD
	}

	summary := strings.ReplaceAll(s.Summary, "\n", " ")
	summaryMax := width - 2 - runewidth.StringWidth(s.Project) - 6 - 3
	if summaryMax < 0 {
		summaryMax = 0
	}
	if runewidth.StringWidth(summary) > summaryMax {
		summary = runewidth.Truncate(summary, summaryMax, "")
	}

	line1 := fmt.Sprintf("%s %s %s", project, date, summary)
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	var facts []string
	facts = append(facts, fmt.Sprintf("%d msgs", s.MessageCount))
	if s.HasToolUse {
		facts = append(facts, "tools")
	}
	if s.HasErrors {
		facts = append(facts, styleErrorMark.Render("errors"))
	}
	if s.ParseFailures > 0 {
		facts = append(facts, fmt.Sprintf("%d bad lines", s.ParseFailures))
	}
	line2 := "    " + lipgloss.NewStyle().Foreground(colorDim).Render(strings.Join(facts, " · "))

	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
