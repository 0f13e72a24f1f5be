package swaig

import (
	"encoding/json"
	"time"

	"call-screening/internal/swml"
)

// MaxHold is the longest hold the platform accepts for the hold action.
const MaxHold = 900 * time.Second

// Result is what a function returns to the platform: text for the AI to speak
// or reason about, plus an ordered list of actions for the platform to execute.
type Result struct {
	Response    string
	Actions     []map[string]any
	PostProcess bool
}

// NewResult starts a result with the given response text.
func NewResult(response string) *Result {
	return &Result{Response: response}
}

// AddAction appends a single-key action object.
func (r *Result) AddAction(name string, data any) *Result {
	r.Actions = append(r.Actions, map[string]any{name: data})
	return r
}

// Hold places the current caller on hold. The timeout is clamped to [0, MaxHold]
// and sent in whole seconds.
func (r *Result) Hold(timeout time.Duration) *Result {
	if timeout < 0 {
		timeout = 0
	}
	if timeout > MaxHold {
		timeout = MaxHold
	}
	return r.AddAction("hold", int(timeout/time.Second))
}

// SWML asks the platform to execute doc.
func (r *Result) SWML(doc *swml.Document) *Result {
	return r.AddAction("swml", doc)
}

// Transfer marks the SWML action as a transfer of the current leg.
func (r *Result) Transfer() *Result {
	return r.AddAction("transfer", true)
}

// SetPostProcess lets the AI speak the response before actions run.
func (r *Result) SetPostProcess(v bool) *Result {
	r.PostProcess = v
	return r
}

type resultJSON struct {
	Response    string           `json:"response"`
	Action      []map[string]any `json:"action,omitempty"`
	PostProcess bool             `json:"post_process,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Response:    r.Response,
		Action:      r.Actions,
		PostProcess: r.PostProcess,
	})
}
