package audit

import "time"

// Event is an immutable, append-only record of a handoff transition.
//
// Invariants:
// - Events are never updated or deleted.
// - call_id is the original caller's call id; it groups the trail of one screening.
// - Recording is best-effort; a failed append never blocks a call instruction.
type Event struct {
	ID     string    `json:"id" db:"id"`
	CallID string    `json:"call_id" db:"call_id"`
	Type   EventType `json:"type" db:"type"`

	// Message is a short human-readable description for operators.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON (caller name, reason, reject message).
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeHold      EventType = "handoff_hold"
	EventTypePresented EventType = "handoff_presented"
	EventTypeAccepted  EventType = "handoff_accepted"
	EventTypeRejected  EventType = "handoff_rejected"
)
