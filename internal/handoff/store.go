package handoff

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("handoff: not found")
	ErrConflict = errors.New("handoff: concurrent update conflict")
)

// UpdateFunc mutates the record in place. found is false when no record
// exists yet; h is then the zero value. Returning an error aborts the update
// and nothing is written.
type UpdateFunc func(h *Handoff, found bool) error

// Store persists handoff records keyed by the original call id.
type Store interface {
	Get(ctx context.Context, callID string) (Handoff, error)
	Save(ctx context.Context, h Handoff) error
	// Update reads, mutates and writes one record atomically with respect to
	// other Update and Save calls on the same call id.
	Update(ctx context.Context, callID string, fn UpdateFunc) (Handoff, error)
	// List returns records created in [from, to), oldest first.
	List(ctx context.Context, from, to time.Time) ([]Handoff, error)
}
