// Package screening defines the two call-screening agents.
//
// HoldAgent answers the caller, collects a name and reason, puts the caller on
// hold and dials a human. CallAgent runs on the human's leg, presents the
// caller and either bridges the two legs or sends the caller a message and
// takes them off hold.
package screening

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"call-screening/internal/agent"
	"call-screening/internal/handoff"
	"call-screening/pkg/logger"
)

const (
	DefaultVoice       = "elevenlabs.josh"
	DefaultHoldTimeout = 120 * time.Second
)

// Tracker records handoff progress. *handoff.Service implements it.
type Tracker interface {
	BeginHold(ctx context.Context, callID, callerName, reason string) (handoff.Handoff, error)
	MarkPresented(ctx context.Context, callID, callerName, reason string) (handoff.Handoff, error)
	Accept(ctx context.Context, callID string) (handoff.Handoff, error)
	Reject(ctx context.Context, callID, message string) (handoff.Handoff, error)
}

// Options are shared by both agents.
type Options struct {
	ToNumber   string
	FromNumber string
	Voice      string

	HoldTimeout time.Duration

	URLs agent.URLResolver

	// Handoffs is optional; tracking never changes the returned instructions.
	Handoffs Tracker
	Logger   *slog.Logger
}

func (o Options) withDefaults() (Options, error) {
	if o.URLs == nil {
		return o, errors.New("screening: url resolver is required")
	}
	if o.ToNumber == "" || o.FromNumber == "" {
		return o, errors.New("screening: to and from numbers are required")
	}
	if o.Voice == "" {
		o.Voice = DefaultVoice
	}
	if o.HoldTimeout <= 0 {
		o.HoldTimeout = DefaultHoldTimeout
	}
	return o, nil
}

// track runs fn against the tracker and logs failures. A placeholder call id
// is expected when the platform omits one and is not worth a warning.
func (o Options) track(ctx context.Context, op string, fn func(Tracker) error) {
	if o.Handoffs == nil {
		return
	}
	err := fn(o.Handoffs)
	if err == nil {
		return
	}
	log := logger.FromOr(ctx, o.Logger)
	if errors.Is(err, handoff.ErrInvalidCallID) {
		log.DebugContext(ctx, "handoff not tracked", "op", op, "err", err)
		return
	}
	log.WarnContext(ctx, "handoff tracking failed", "op", op, "err", err)
}

// queryEscape escapes a query value with %20 for spaces.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
