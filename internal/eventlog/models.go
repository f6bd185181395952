package eventlog

import "time"

// Event is one raw vendor event as it was polled, kept for diagnostics.
//
// Invariants:
//   - Events are append-only; stores may drop the oldest ones past their capacity.
//   - Name is the raw vendor name even when the event was recognized.
type Event struct {
	ID     string `json:"id"`
	Vendor string `json:"vendor"`
	Name   string `json:"name"`
	Code   int    `json:"code,omitempty"`

	// Handler is the dispatch variant the event reached; event_log for unmapped names.
	Handler    string `json:"handler"`
	Recognized bool   `json:"recognized"`

	CallID    string    `json:"call_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
