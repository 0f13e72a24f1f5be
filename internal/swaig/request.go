// Package swaig implements the platform's function-callback protocol (SWAIG):
// decoding invocation payloads and encoding the response/action result.
package swaig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrInvalidRequest  = errors.New("swaig: invalid request")
	ErrUnknownFunction = errors.New("swaig: unknown function")
)

// ActionGetSignature is sent by the platform to fetch function signatures instead of invoking one.
const ActionGetSignature = "get_signature"

// maxBodyBytes bounds a single callback payload.
const maxBodyBytes = 1 << 20

// Request is the JSON body the platform POSTs when the AI invokes a function.
type Request struct {
	Function    string         `json:"function"`
	Argument    Argument       `json:"argument"`
	CallID      string         `json:"call_id,omitempty"`
	AISessionID string         `json:"ai_session_id,omitempty"`
	GlobalData  map[string]any `json:"global_data,omitempty"`
	MetaData    map[string]any `json:"meta_data,omitempty"`

	// Action and Functions are used for signature discovery.
	Action    string   `json:"action,omitempty"`
	Functions []string `json:"functions,omitempty"`
}

// Argument holds the AI-produced arguments in parsed and raw form.
type Argument struct {
	Parsed      []map[string]any `json:"parsed,omitempty"`
	Raw         string           `json:"raw,omitempty"`
	Substituted string           `json:"substituted,omitempty"`
}

// ParseRequest decodes a callback body.
// A body without a function name is only valid for signature discovery.
func ParseRequest(body io.Reader) (Request, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes+1))
	if err != nil {
		return Request{}, fmt.Errorf("%w: read body: %v", ErrInvalidRequest, err)
	}
	if len(raw) > maxBodyBytes {
		return Request{}, fmt.Errorf("%w: body too large", ErrInvalidRequest)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Request{}, fmt.Errorf("%w: empty body", ErrInvalidRequest)
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Function = strings.TrimSpace(req.Function)
	if req.Function == "" && req.Action != ActionGetSignature {
		return Request{}, fmt.Errorf("%w: function is required", ErrInvalidRequest)
	}
	return req, nil
}

// Args returns the invocation arguments: the first parsed object, else the raw
// string decoded as a JSON object, else an empty set.
func (r Request) Args() Args {
	if len(r.Argument.Parsed) > 0 && r.Argument.Parsed[0] != nil {
		return Args(r.Argument.Parsed[0])
	}
	if s := strings.TrimSpace(r.Argument.Raw); s != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err == nil && m != nil {
			return Args(m)
		}
	}
	return Args{}
}

// GlobalString reads a string from the conversation's global data.
func (r Request) GlobalString(key, def string) string {
	return Args(r.GlobalData).String(key, def)
}

// CallIDOr returns the platform call id, or def when absent.
func (r Request) CallIDOr(def string) string {
	if s := strings.TrimSpace(r.CallID); s != "" {
		return s
	}
	return def
}

// Args are the decoded function arguments.
type Args map[string]any

// String returns a non-empty string value for key, or def.
func (a Args) String(key, def string) string {
	if a == nil {
		return def
	}
	v, ok := a[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
