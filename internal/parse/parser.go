package parse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB

// rawSnippetLen bounds how much of a bad line a LineError carries.
const rawSnippetLen = 200

// LineError describes one unparseable line. It is a diagnostic value:
// the line is skipped and the rest of the file is still processed.
type LineError struct {
	Line   int    // 1-based line number
	Reason string // what was wrong
	Raw    string // offending line, truncated
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// envelope mirrors the known top-level fields of a session record.
type envelope struct {
	UUID          string          `json:"uuid"`
	ParentUUID    string          `json:"parentUuid"`
	SessionID     string          `json:"sessionId"`
	Timestamp     string          `json:"timestamp"`
	Type          string          `json:"type"`
	Summary       string          `json:"summary"`
	LeafUUID      string          `json:"leafUuid"`
	Message       *MessageBody    `json:"message"`
	ToolUse       json.RawMessage `json:"toolUse"`
	ToolUseResult json.RawMessage `json:"toolUseResult"`
	IsSidechain   bool            `json:"isSidechain"`
	IsMeta        bool            `json:"isMeta"`
}

// knownFields are the envelope keys. Anything else on a line is a
// provider extension and lands in RawRecord.Extra untouched.
var knownFields = map[string]struct{}{
	"uuid":          {},
	"parentUuid":    {},
	"sessionId":     {},
	"timestamp":     {},
	"type":          {},
	"summary":       {},
	"leafUuid":      {},
	"message":       {},
	"toolUse":       {},
	"toolUseResult": {},
	"isSidechain":   {},
	"isMeta":        {},
}

// ParseLine parses one line of a session file. A blank line yields
// (nil, nil). Malformed JSON or a record missing uuid, type or
// timestamp yields a LineError; it never aborts the caller's loop.
func ParseLine(line []byte, lineNum int) (*RawRecord, *LineError) {
	if len(strings.TrimSpace(string(line))) == 0 {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, lineError(lineNum, line, fmt.Sprintf("invalid JSON: %v", err))
	}

	if env.Type == "" {
		return nil, lineError(lineNum, line, "missing type")
	}

	// Summary records carry a title, not a message; they are exempt
	// from the uuid/timestamp requirements and get synthetic fallbacks
	// during normalization.
	if env.Type != TypeSummary {
		if env.UUID == "" {
			return nil, lineError(lineNum, line, "missing uuid")
		}
		if env.Timestamp == "" {
			return nil, lineError(lineNum, line, "missing timestamp")
		}
	}

	rec := &RawRecord{
		UUID:          env.UUID,
		ParentUUID:    env.ParentUUID,
		SessionID:     env.SessionID,
		Timestamp:     env.Timestamp,
		Type:          env.Type,
		Summary:       env.Summary,
		LeafUUID:      env.LeafUUID,
		Message:       env.Message,
		ToolUse:       env.ToolUse,
		ToolUseResult: env.ToolUseResult,
		IsSidechain:   env.IsSidechain,
		IsMeta:        env.IsMeta,
		Extra:         extraFields(line),
	}
	return rec, nil
}

// extraFields collects unrecognized top-level fields verbatim.
func extraFields(line []byte) map[string]json.RawMessage {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(line, &all); err != nil {
		return nil
	}
	var extra map[string]json.RawMessage
	for k, v := range all {
		if _, ok := knownFields[k]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}
	return extra
}

// ReadAll parses every line of a session stream. Line failures are
// collected, not returned as errors; the error return is reserved for
// I/O problems with the stream itself.
func ReadAll(r io.Reader) ([]RawRecord, []LineError, error) {
	var records []RawRecord
	var failures []LineError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		rec, lerr := ParseLine(scanner.Bytes(), lineNum)
		if lerr != nil {
			failures = append(failures, *lerr)
			continue
		}
		if rec == nil {
			continue
		}
		records = append(records, *rec)
	}
	if err := scanner.Err(); err != nil {
		return records, failures, fmt.Errorf("read session stream: %w", err)
	}
	return records, failures, nil
}

func lineError(lineNum int, line []byte, reason string) *LineError {
	raw := string(line)
	if len(raw) > rawSnippetLen {
		raw = raw[:rawSnippetLen] + "..."
	}
	return &LineError{Line: lineNum, Reason: reason, Raw: raw}
}
