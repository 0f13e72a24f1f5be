package handoff

import "time"

// Handoff tracks one caller being screened: held by the HoldAgent, presented
// to a human by the CallAgent, then accepted or rejected.
//
// The record is observational. The platform executes every instruction; a
// missing or stale record never changes what the agents return.
type Handoff struct {
	CallID     string `json:"call_id"`
	CallerName string `json:"caller_name"`
	Reason     string `json:"reason"`

	Status Status `json:"status"`

	// RejectMessage is the message relayed to the caller on reject.
	RejectMessage string `json:"reject_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PresentedAt *time.Time `json:"presented_at,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

type Status string

const (
	StatusOnHold     Status = "on_hold"
	StatusPresenting Status = "presenting"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// CanTransition reports whether a record in s may move to next.
// Presenting may repeat: the platform can fetch the call-agent document more than once.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusOnHold, StatusPresenting:
		return next == StatusPresenting || next == StatusAccepted || next == StatusRejected
	default:
		return false
	}
}

// DecisionSeconds is the time from hold to decision, or -1 while undecided.
func (h Handoff) DecisionSeconds() float64 {
	if h.DecidedAt == nil {
		return -1
	}
	return h.DecidedAt.Sub(h.CreatedAt).Seconds()
}
