package session

import "time"

// HistoryLimit is the number of transitions kept for diagnostics
const HistoryLimit = 20

// TransitionLogEntry records the state a transition came from
type TransitionLogEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// History is an insertion-ordered log bounded to HistoryLimit entries.
// The zero value is ready to use. It is not safe for concurrent use; the
// Machine guards it.
type History struct {
	entries []TransitionLogEntry
}

// Append adds an entry, evicting the oldest once the limit is exceeded
func (h *History) Append(entry TransitionLogEntry) {
	h.entries = append(h.entries, entry)
	if over := len(h.entries) - HistoryLimit; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
}

// Entries returns a copy of the log, oldest first
func (h *History) Entries() []TransitionLogEntry {
	out := make([]TransitionLogEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries
func (h *History) Len() int {
	return len(h.entries)
}

// Clear drops every entry
func (h *History) Clear() {
	h.entries = nil
}
