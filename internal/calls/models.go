package calls

import "time"

// Record is one finished call as the daemon saw it.
//
// Records are written once, when the call session is cleared, and never updated.
type Record struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	ContactName    string    `json:"contact_name,omitempty" db:"contact_name"`
	Vendor         string    `json:"vendor,omitempty" db:"vendor"`
	Answered       bool      `json:"answered" db:"answered"`
	Muted          bool      `json:"muted" db:"muted"`
	EndReason      EndReason `json:"end_reason" db:"end_reason"`
	StartedAt      time.Time `json:"started_at" db:"started_at"`
	EndedAt        time.Time `json:"ended_at" db:"ended_at"`
}

// Duration is the wall time between start and end.
func (r Record) Duration() time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

type EndReason string

const (
	// EndReasonApp means the application ended the call.
	EndReasonApp EndReason = "app"
	// EndReasonDevice means the headset ended or rejected the call.
	EndReasonDevice EndReason = "device"
	EndReasonEndAll EndReason = "end_all"
)

func (r EndReason) Valid() bool {
	switch r {
	case EndReasonApp, EndReasonDevice, EndReasonEndAll:
		return true
	default:
		return false
	}
}
