package headset

import "time"

// CallSession is the application's single current call. Only the Orchestrator mutates it;
// everyone else sees copies.
type CallSession struct {
	ConversationID string    `json:"conversationId"`
	ContactName    string    `json:"contactName,omitempty"`
	Ringing        bool      `json:"ringing"`
	Connected      bool      `json:"connected"`
	Muted          bool      `json:"muted"`
	Held           bool      `json:"held"`
	StartedAt      time.Time `json:"startedAt"`
}

func (s *CallSession) snapshot() *CallSession {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
