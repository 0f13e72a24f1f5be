package reporting

import (
	"context"
	"errors"
	"time"

	"call-screening/internal/handoff"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Source lists handoff records created in [from, to).
type Source interface {
	List(ctx context.Context, from, to time.Time) ([]handoff.Handoff, error)
}

type Service struct {
	src Source
}

func NewService(src Source) *Service { return &Service{src: src} }

func (s *Service) HandoffSummary(ctx context.Context, r TimeRange) (HandoffSummary, error) {
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) {
		return HandoffSummary{}, ErrInvalidRequest
	}
	if s.src == nil {
		return HandoffSummary{}, errors.New("reporting: source not configured")
	}

	rows, err := s.src.List(ctx, r.From, r.To)
	if err != nil {
		return HandoffSummary{}, err
	}

	out := HandoffSummary{Range: r}
	var decided int
	var decisionTotal float64
	for _, h := range rows {
		out.Total++
		switch h.Status {
		case handoff.StatusOnHold:
			out.OnHold++
		case handoff.StatusPresenting:
			out.Presenting++
		case handoff.StatusAccepted:
			out.Accepted++
		case handoff.StatusRejected:
			out.Rejected++
		}
		if d := h.DecisionSeconds(); d >= 0 {
			decided++
			decisionTotal += d
		}
	}
	if decided > 0 {
		out.AverageDecisionSeconds = decisionTotal / float64(decided)
	}
	if n := out.Accepted + out.Rejected; n > 0 {
		out.AcceptRate = float64(out.Accepted) / float64(n)
	}
	return out, nil
}
