package shared

import (
	"time"
)

// SessionFilter provides filtering options for listing sessions.
// ClosedOnly restricts to sessions with a non-nil ended_at; the Closed*
// bounds apply to ended_at and StartedAfter to started_at.
type SessionFilter struct {
	ChatbotID    string
	ClosedOnly   bool
	ClosedAfter  *time.Time
	ClosedBefore *time.Time
	StartedAfter *time.Time
	Limit        int
}

// MessageFilter provides filtering options for listing messages.
type MessageFilter struct {
	SessionID string
	ChatbotID string
	Role      string
	Limit     int
}
