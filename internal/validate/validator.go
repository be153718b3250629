// Package validate audits message batches before they are merged into
// viewer-visible state. Duplicate identifiers are fatal; ordering and
// identifier anomalies produce non-fatal warnings.
package validate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ndokutovich/claude-code-history-viewer/internal/parse"
)

// inversionWarnPercent is the tolerated share of timestamp inversions
// in a batch before a warning is emitted. Clock skew produces the odd
// inversion; more than this suggests a load-boundary bug.
const inversionWarnPercent = 10

// Stats counts what a batch contained.
type Stats struct {
	Total      int `json:"total"`
	User       int `json:"user"`
	Assistant  int `json:"assistant"`
	System     int `json:"system"`
	Summary    int `json:"summary"`
	Unknown    int `json:"unknown"`
	Duplicates int `json:"duplicates"`
	Inversions int `json:"inversions"`
	Suspicious int `json:"suspicious_ids"`
}

// Result is the outcome of auditing one batch. Valid is false only for
// fatal findings; warnings alone never block a merge.
type Result struct {
	Valid    bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Stats    Stats    `json:"stats"`
}

// Validator accumulates everything seen for one session so each new
// batch is checked against the whole loaded history, not just its
// predecessor.
type Validator struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func New() *Validator {
	return &Validator{seen: make(map[string]struct{})}
}

// Validate audits a batch against the running session state. It does
// not record the batch; call AddMessages once the merge is accepted.
// The batch is expected in old-to-new order, matching the merge order
// of reverse pagination.
func (v *Validator) Validate(batch []parse.Message) Result {
	v.mu.Lock()
	defer v.mu.Unlock()

	res := Result{Valid: true}
	res.Stats.Total = len(batch)

	inBatch := make(map[string]struct{}, len(batch))
	for i := range batch {
		m := &batch[i]

		switch m.Type {
		case parse.TypeUser:
			res.Stats.User++
		case parse.TypeAssistant:
			res.Stats.Assistant++
		case parse.TypeSystem:
			res.Stats.System++
		case parse.TypeSummary:
			res.Stats.Summary++
		default:
			res.Stats.Unknown++
		}

		if _, dup := inBatch[m.UUID]; dup {
			res.Stats.Duplicates++
			res.Errors = append(res.Errors, fmt.Sprintf("duplicate uuid %s within batch", m.UUID))
		} else if _, dup := v.seen[m.UUID]; dup {
			res.Stats.Duplicates++
			res.Errors = append(res.Errors, fmt.Sprintf("uuid %s already loaded in an earlier batch", m.UUID))
		}
		inBatch[m.UUID] = struct{}{}

		if reason := suspiciousIdentifier(m); reason != "" {
			res.Stats.Suspicious++
			res.Warnings = append(res.Warnings, reason)
		}
	}

	res.Stats.Inversions = countInversions(batch)
	if res.Stats.Inversions*100 > len(batch)*inversionWarnPercent {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"%d of %d messages are out of timestamp order", res.Stats.Inversions, len(batch)))
	}

	if len(batch) > 0 && res.Stats.Assistant > 0 && res.Stats.User == 0 {
		res.Warnings = append(res.Warnings, "batch contains assistant messages but no user messages")
	}

	if len(res.Errors) > 0 {
		res.Valid = false
	}
	return res
}

// AddMessages records an accepted batch so later batches are compared
// against it.
func (v *Validator) AddMessages(batch []parse.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range batch {
		v.seen[batch[i].UUID] = struct{}{}
	}
}

// Reset clears the running state, used when a session is switched or
// fully reloaded.
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seen = make(map[string]struct{})
}

// SeenCount returns how many distinct uuids have been recorded.
func (v *Validator) SeenCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

// suspiciousIdentifier flags sentinel and synthetic identifiers. These
// are never fatal: the record is real, only its identity was repaired.
func suspiciousIdentifier(m *parse.Message) string {
	if m.SessionID == parse.UnknownSession {
		return fmt.Sprintf("message %s carries the %q session placeholder", m.UUID, parse.UnknownSession)
	}
	if strings.HasPrefix(m.UUID, parse.SyntheticPrefix) {
		return fmt.Sprintf("message %s has a generated fallback uuid", m.UUID)
	}
	if uuid.Validate(m.UUID) != nil {
		return fmt.Sprintf("message identifier %q is not a well-formed uuid", m.UUID)
	}
	return ""
}

// countInversions counts positions where a message's timestamp is
// earlier than its predecessor's in the expected old-to-new order.
// Unparseable timestamps are skipped rather than counted.
func countInversions(batch []parse.Message) int {
	inversions := 0
	var prev = -1
	for i := range batch {
		t := batch[i].Time()
		if t.IsZero() {
			continue
		}
		if prev >= 0 && t.Before(batch[prev].Time()) {
			inversions++
		}
		prev = i
	}
	return inversions
}
