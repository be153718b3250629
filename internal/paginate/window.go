// Package paginate implements chat-style reverse pagination: the newest
// messages are shown first and every "load older" call materializes the
// next older contiguous block.
package paginate

// DefaultPageSize is the fixed chunk size for "load older" requests.
// The final chunk may be smaller.
const DefaultPageSize = 20

// Window is the next older chunk to load, expressed as the half-open
// index span [Start, End) over the session's oldest-first message
// sequence. Indices are never negative.
type Window struct {
	Start      int
	End        int
	ToLoad     int
	NextOffset int
	HasMore    bool
}

// Plan computes the window for a session with total messages of which
// offset are already loaded from the newest end. offset >= total means
// everything is loaded: ToLoad is 0 and the window collapses to [0, 0).
func Plan(total, offset, pageSize int) Window {
	if total < 0 {
		total = 0
	}
	if offset < 0 {
		offset = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	remaining := total - offset
	if remaining < 0 {
		remaining = 0
	}
	toLoad := remaining
	if toLoad > pageSize {
		toLoad = pageSize
	}

	var start, end int
	if total > offset+toLoad {
		start = total - offset - toLoad
	}
	if total > offset {
		end = total - offset
	}

	return Window{
		Start:      start,
		End:        end,
		ToLoad:     toLoad,
		NextOffset: offset + toLoad,
		HasMore:    offset+toLoad < total,
	}
}
