package tui

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/ndokutovich/claude-code-history-viewer/internal/parse"
)

const (
	colorReset  = "\033[0m"
	colorUser   = "\033[1;34m" // bold blue
	colorAssist = "\033[1;32m" // bold green
	colorSys    = "\033[2;33m" // dim yellow
	colorThink  = "\033[2;35m" // dim magenta
	colorDimSGR = "\033[2m"
	colorRed    = "\033[1;31m"
)

// renderTranscript renders messages oldest-first into viewport content.
// branchRoots marks messages that start an alternate branch in the
// conversation tree. Returns the rendered text and the number of lines,
// so the caller can keep the scroll anchored after prepending an older
// chunk.
func renderTranscript(msgs []parse.Message, branchRoots map[string]bool, width int) (string, int) {
	var b strings.Builder
	lines := 0
	for i := range msgs {
		text := renderMessage(&msgs[i], branchRoots[msgs[i].UUID], width)
		b.WriteString(text)
		b.WriteString("\n")
		lines += strings.Count(text, "\n") + 1
	}
	return b.String(), lines
}

func renderMessage(m *parse.Message, branchRoot bool, width int) string {
	var b strings.Builder
	b.WriteString(messageHeader(m, branchRoot))
	b.WriteString("\n")

	body := messageBody(m)
	if body == "" {
		body = colorDimSGR + "(no text)" + colorReset
	}
	for _, line := range strings.Split(body, "\n") {
		for _, wrapped := range wrapLine(line, width-2) {
			b.WriteString("  ")
			b.WriteString(wrapped)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func messageHeader(m *parse.Message, branchRoot bool) string {
	var color, label string
	switch m.Type {
	case parse.TypeUser:
		color, label = colorUser, "user"
	case parse.TypeAssistant:
		color, label = colorAssist, "assistant"
	case parse.TypeSummary:
		color, label = colorDimSGR, "summary"
	case parse.TypeSystem:
		color, label = colorSys, "system"
	default:
		color, label = colorDimSGR, m.Type
	}

	ts := m.Timestamp
	if t := parse.ParseTimestamp(ts); !t.IsZero() {
		ts = t.Local().Format("2006-01-02 15:04:05")
	}

	header := fmt.Sprintf("%s%s%s %s%s%s", color, label, colorReset, colorDimSGR, ts, colorReset)
	if branchRoot {
		header += " " + colorDimSGR + "[branch]" + colorReset
	}
	if m.IsSidechain {
		header += " " + colorDimSGR + "[sidechain]" + colorReset
	}
	if m.HasErrors {
		header += " " + colorRed + "[error]" + colorReset
	}
	return header
}

// messageBody flattens the content blocks into display text. Thinking
// blocks are dimmed; tool calls show their name and a one-line input
// preview rather than the full payload.
func messageBody(m *parse.Message) string {
	if m.Content == nil {
		return ""
	}
	if m.Content.IsString() {
		return m.Content.Text
	}

	var parts []string
	for _, item := range m.Content.Items {
		switch item.Type {
		case "text":
			if item.Text != "" {
				parts = append(parts, item.Text)
			}
		case "thinking":
			if item.Thinking != "" {
				parts = append(parts, colorThink+"[thinking] "+firstLine(item.Thinking)+colorReset)
			}
		case "tool_use":
			parts = append(parts, colorDimSGR+"[tool: "+item.Name+"] "+toolInputPreview(item.Input)+colorReset)
		case "tool_result":
			parts = append(parts, colorDimSGR+"[tool result] "+firstLine(toolResultPreview(item.Content))+colorReset)
		}
	}
	return strings.Join(parts, "\n")
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx] + " …"
	}
	return s
}

func toolInputPreview(input json.RawMessage) string {
	if len(input) == 0 {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(input, &m); err != nil {
		return ""
	}
	// the common case: show the command or file the tool touched
	for _, key := range []string{"command", "file_path", "path", "pattern", "url"} {
		if v, ok := m[key].(string); ok {
			return firstLine(v)
		}
	}
	return fmt.Sprintf("%d args", len(m))
}

func toolResultPreview(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}
	return "(structured)"
}

// wrapLine breaks a single line into lines that fit maxWidth visible
// columns, skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 || len(result) == 0 {
		result = append(result, cur.String())
	}
	return result
}
