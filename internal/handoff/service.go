// Package handoff tracks callers moving through the screening flow:
// on hold, presented to a human, then accepted or rejected.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"call-screening/internal/audit"
)

var (
	ErrInvalidTransition = errors.New("handoff: invalid transition")
	ErrInvalidCallID     = errors.New("handoff: invalid call id")
)

// UnknownCallID is the placeholder the agents use when the platform omits a call id.
const UnknownCallID = "unknown"

// Auditor receives one event per transition.
type Auditor interface {
	LogHandoff(ctx context.Context, callID string, t audit.EventType, message string, metadata map[string]string) error
}

type Service struct {
	store   Store
	auditor Auditor
	log     *slog.Logger
	clock   func() time.Time
}

// NewService wires a store and an optional auditor.
func NewService(store Store, auditor Auditor, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, auditor: auditor, log: log, clock: time.Now}
}

func validCallID(callID string) error {
	callID = strings.TrimSpace(callID)
	if callID == "" || callID == UnknownCallID {
		return ErrInvalidCallID
	}
	return nil
}

// BeginHold starts a record for callID. A caller returned to hold after a
// decision may be held again, so a terminal record is replaced. A record still
// on hold or being presented is kept and ErrInvalidTransition is returned.
func (s *Service) BeginHold(ctx context.Context, callID, callerName, reason string) (Handoff, error) {
	if err := validCallID(callID); err != nil {
		return Handoff{}, err
	}
	now := s.clock().UTC()

	h, err := s.store.Update(ctx, callID, func(h *Handoff, found bool) error {
		if found && !h.Status.Terminal() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, h.Status, StatusOnHold)
		}
		*h = Handoff{
			CallID:     callID,
			CallerName: callerName,
			Reason:     reason,
			Status:     StatusOnHold,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return nil
	})
	if err != nil {
		return Handoff{}, err
	}
	s.audit(ctx, callID, audit.EventTypeHold, "caller placed on hold", map[string]string{
		"caller_name": callerName,
		"reason":      reason,
	})
	return h, nil
}

// MarkPresented records that the call agent is presenting the caller. When the
// hold happened on an instance that does not share this store the record is
// created here.
func (s *Service) MarkPresented(ctx context.Context, callID, callerName, reason string) (Handoff, error) {
	if err := validCallID(callID); err != nil {
		return Handoff{}, err
	}
	now := s.clock().UTC()

	h, err := s.store.Update(ctx, callID, func(h *Handoff, found bool) error {
		if !found {
			*h = Handoff{CallID: callID, CallerName: callerName, Reason: reason, CreatedAt: now}
		} else if !h.Status.CanTransition(StatusPresenting) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, h.Status, StatusPresenting)
		}
		h.Status = StatusPresenting
		h.UpdatedAt = now
		if h.PresentedAt == nil {
			h.PresentedAt = &now
		}
		return nil
	})
	if err != nil {
		return Handoff{}, err
	}
	s.audit(ctx, callID, audit.EventTypePresented, "caller presented", nil)
	return h, nil
}

// Accept records that the human took the call.
func (s *Service) Accept(ctx context.Context, callID string) (Handoff, error) {
	h, err := s.decide(ctx, callID, StatusAccepted, "")
	if err != nil {
		return h, err
	}
	s.audit(ctx, callID, audit.EventTypeAccepted, "call accepted", nil)
	return h, nil
}

// Reject records that the human declined, with the message relayed to the caller.
func (s *Service) Reject(ctx context.Context, callID, message string) (Handoff, error) {
	h, err := s.decide(ctx, callID, StatusRejected, message)
	if err != nil {
		return h, err
	}
	s.audit(ctx, callID, audit.EventTypeRejected, "call rejected", map[string]string{"message": message})
	return h, nil
}

// decide moves a record to a terminal status. Only one of concurrent
// decisions on the same call succeeds; the others see the terminal status.
func (s *Service) decide(ctx context.Context, callID string, next Status, message string) (Handoff, error) {
	if err := validCallID(callID); err != nil {
		return Handoff{}, err
	}
	now := s.clock().UTC()

	return s.store.Update(ctx, callID, func(h *Handoff, found bool) error {
		if !found {
			return ErrNotFound
		}
		if !h.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, h.Status, next)
		}
		h.Status = next
		h.UpdatedAt = now
		h.DecidedAt = &now
		h.RejectMessage = message
		return nil
	})
}

func (s *Service) Get(ctx context.Context, callID string) (Handoff, error) {
	if err := validCallID(callID); err != nil {
		return Handoff{}, err
	}
	return s.store.Get(ctx, callID)
}

// List returns records created in [from, to).
func (s *Service) List(ctx context.Context, from, to time.Time) ([]Handoff, error) {
	return s.store.List(ctx, from, to)
}

func (s *Service) audit(ctx context.Context, callID string, t audit.EventType, message string, metadata map[string]string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.LogHandoff(ctx, callID, t, message, metadata); err != nil {
		s.log.WarnContext(ctx, "audit append failed", "call_id", callID, "type", string(t), "err", err)
	}
}
