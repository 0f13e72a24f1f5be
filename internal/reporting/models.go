package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// HandoffSummary aggregates handoff records created in the range.
type HandoffSummary struct {
	Range TimeRange `json:"range"`

	Total      int `json:"total"`
	OnHold     int `json:"on_hold"`
	Presenting int `json:"presenting"`
	Accepted   int `json:"accepted"`
	Rejected   int `json:"rejected"`

	// AcceptRate is accepted / (accepted + rejected), 0 when nothing was decided.
	AcceptRate float64 `json:"accept_rate"`
	// AverageDecisionSeconds averages hold-to-decision time over decided records.
	AverageDecisionSeconds float64 `json:"average_decision_seconds"`
}
