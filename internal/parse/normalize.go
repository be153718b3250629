package parse

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Normalize maps a raw record into the canonical message shape.
// Records with unrecognized types pass through with Type set to
// "unknown" rather than being dropped, so audits see every line.
func Normalize(rec *RawRecord) Message {
	switch rec.Type {
	case TypeSummary:
		return normalizeSummary(rec)
	case TypeUser, TypeAssistant, TypeSystem:
		return normalizeMessage(rec, rec.Type)
	default:
		m := normalizeMessage(rec, TypeUnknown)
		setMetaString(&m, "originalType", rec.Type)
		return m
	}
}

// normalizeSummary produces a synthetic message carrying the session
// title. It is never part of the parent-linked tree.
func normalizeSummary(rec *RawRecord) Message {
	m := Message{
		UUID:      rec.UUID,
		SessionID: rec.SessionID,
		Timestamp: rec.Timestamp,
		Type:      TypeSummary,
		Content:   TextContent(rec.Summary),
		Meta:      copyMeta(rec.Extra),
	}
	if m.UUID == "" {
		m.UUID = SyntheticPrefix + uuid.NewString()
	}
	if m.SessionID == "" {
		m.SessionID = UnknownSession
	}
	if m.Timestamp == "" {
		m.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if rec.LeafUUID != "" {
		setMetaString(&m, "leafUuid", rec.LeafUUID)
	}
	return m
}

func normalizeMessage(rec *RawRecord, typ string) Message {
	m := Message{
		UUID:          rec.UUID,
		ParentUUID:    rec.ParentUUID,
		SessionID:     rec.SessionID,
		Timestamp:     rec.Timestamp,
		Type:          typ,
		ToolUse:       rec.ToolUse,
		ToolUseResult: rec.ToolUseResult,
		IsSidechain:   rec.IsSidechain,
		Meta:          copyMeta(rec.Extra),
	}
	if m.SessionID == "" {
		m.SessionID = UnknownSession
	}

	if body := rec.Message; body != nil {
		m.Role = body.Role
		m.Content = body.Content
		m.MessageID = body.ID
		m.Model = body.Model
		m.StopReason = body.StopReason
		m.Usage = body.Usage
	}

	m.HasErrors = detectErrors(&m)
	return m
}

// detectErrors reports whether the message carries a failed tool
// invocation: a tool_result item flagged is_error, or a toolUseResult
// payload with non-empty stderr.
func detectErrors(m *Message) bool {
	if m.Content != nil {
		for _, item := range m.Content.Items {
			if item.Type == "tool_result" && item.IsError != nil && *item.IsError {
				return true
			}
		}
	}
	if len(m.ToolUseResult) > 0 {
		var result struct {
			Stderr string `json:"stderr"`
		}
		if err := json.Unmarshal(m.ToolUseResult, &result); err == nil && result.Stderr != "" {
			return true
		}
	}
	return false
}

// HasToolUse reports whether the message invokes or answers a tool.
func HasToolUse(m *Message) bool {
	if len(m.ToolUse) > 0 || len(m.ToolUseResult) > 0 {
		return true
	}
	if m.Content != nil {
		for _, item := range m.Content.Items {
			if item.Type == "tool_use" || item.Type == "tool_result" {
				return true
			}
		}
	}
	return false
}

// PlainText extracts the concatenated text blocks of a message body,
// for summaries and previews.
func PlainText(m *Message) string {
	if m.Content == nil {
		return ""
	}
	if m.Content.IsString() {
		return m.Content.Text
	}
	var out string
	for _, item := range m.Content.Items {
		if item.Type == "text" && item.Text != "" {
			if out != "" {
				out += "\n"
			}
			out += item.Text
		}
	}
	return out
}

func copyMeta(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if len(extra) == 0 {
		return nil
	}
	meta := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		meta[k] = v
	}
	return meta
}

func setMetaString(m *Message, key, value string) {
	if m.Meta == nil {
		m.Meta = make(map[string]json.RawMessage)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	m.Meta[key] = data
}
