package parse

import (
	"encoding/json"
	"time"
)

// Record types appearing in Claude Code session files.
const (
	TypeUser      = "user"
	TypeAssistant = "assistant"
	TypeSystem    = "system"
	TypeSummary   = "summary"

	// TypeUnknown is the passthrough type assigned to records whose
	// on-disk type is not recognized. The original type string is kept
	// in the metadata bag under "originalType".
	TypeUnknown = "unknown"
)

// Identifier fallbacks. UnknownSession replaces a missing sessionId;
// SyntheticPrefix marks generated uuids. The validator recognizes both.
const (
	UnknownSession  = "unknown-session"
	SyntheticPrefix = "synthetic-"
)

// TokenUsage is the per-response token accounting reported on
// assistant records.
type TokenUsage struct {
	InputTokens              *int   `json:"input_tokens,omitempty"`
	OutputTokens             *int   `json:"output_tokens,omitempty"`
	CacheCreationInputTokens *int   `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     *int   `json:"cache_read_input_tokens,omitempty"`
	ServiceTier              string `json:"service_tier,omitempty"`
}

// ContentItem is one element of a structured message body. Type selects
// the variant ("text", "thinking", "tool_use", "tool_result"); only the
// fields belonging to that variant are populated.
type ContentItem struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// thinking
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   *bool           `json:"is_error,omitempty"`
}

// Content is a message body that is either a plain string or a list of
// content items, mirroring the two shapes the log format allows.
type Content struct {
	Text  string
	Items []ContentItem

	isString bool
}

// TextContent wraps a plain string body.
func TextContent(s string) *Content {
	return &Content{Text: s, isString: true}
}

// IsString reports whether the body was a plain string on disk.
func (c *Content) IsString() bool { return c.isString }

func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Items = nil
		c.isString = true
		return nil
	}
	var items []ContentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	c.Items = items
	c.Text = ""
	c.isString = false
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.isString {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Items)
}

// MessageBody is the role+content payload nested under "message".
// The optional fields only appear on assistant records.
type MessageBody struct {
	Role       string      `json:"role"`
	Content    *Content    `json:"content"`
	ID         string      `json:"id,omitempty"`
	Model      string      `json:"model,omitempty"`
	StopReason string      `json:"stop_reason,omitempty"`
	Usage      *TokenUsage `json:"usage,omitempty"`
}

// RawRecord is one parsed line of a session file before normalization.
// Top-level fields the parser does not know about are preserved
// verbatim in Extra so the normalizer can relocate them.
type RawRecord struct {
	UUID          string
	ParentUUID    string
	SessionID     string
	Timestamp     string
	Type          string
	Summary       string
	LeafUUID      string
	Message       *MessageBody
	ToolUse       json.RawMessage
	ToolUseResult json.RawMessage
	IsSidechain   bool
	IsMeta        bool
	Extra         map[string]json.RawMessage
}

// Message is the normalized, provider-agnostic record served to all
// downstream consumers. Immutable once constructed; re-ingestion
// replaces messages, it never mutates them in place.
type Message struct {
	UUID          string                     `json:"uuid"`
	ParentUUID    string                     `json:"parentUuid,omitempty"`
	SessionID     string                     `json:"sessionId"`
	Timestamp     string                     `json:"timestamp"`
	Type          string                     `json:"type"`
	Role          string                     `json:"role,omitempty"`
	Content       *Content                   `json:"content,omitempty"`
	ToolUse       json.RawMessage            `json:"toolUse,omitempty"`
	ToolUseResult json.RawMessage            `json:"toolUseResult,omitempty"`
	IsSidechain   bool                       `json:"isSidechain,omitempty"`
	MessageID     string                     `json:"messageId,omitempty"`
	Model         string                     `json:"model,omitempty"`
	StopReason    string                     `json:"stop_reason,omitempty"`
	Usage         *TokenUsage                `json:"usage,omitempty"`
	HasErrors     bool                       `json:"hasErrors,omitempty"`
	Meta          map[string]json.RawMessage `json:"meta,omitempty"`
}

// Time returns the parsed timestamp, zero if missing or unparseable.
func (m *Message) Time() time.Time {
	return ParseTimestamp(m.Timestamp)
}

// ParseTimestamp parses the timestamp formats seen in session files.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	// ISO8601 without timezone
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
