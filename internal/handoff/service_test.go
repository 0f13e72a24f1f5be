package handoff

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"call-screening/internal/audit"
	"call-screening/pkg/logger"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService() (*Service, *audit.MemoryRepo) {
	repo := audit.NewMemoryRepo()
	svc := NewService(NewMemoryStore(), audit.NewService(repo), logger.Discard())
	clk := &stepClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc.clock = clk.now
	return svc, repo
}

func TestService_HoldPresentAccept(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if _, err := svc.BeginHold(ctx, "c1", "Ann", "billing"); err != nil {
		t.Fatalf("hold: %v", err)
	}
	h, err := svc.MarkPresented(ctx, "c1", "Ann", "billing")
	if err != nil {
		t.Fatalf("present: %v", err)
	}
	if h.Status != StatusPresenting || h.PresentedAt == nil {
		t.Fatalf("unexpected record %+v", h)
	}
	firstPresented := *h.PresentedAt

	// the platform may fetch the call-agent document twice
	h, err = svc.MarkPresented(ctx, "c1", "Ann", "billing")
	if err != nil {
		t.Fatalf("re-present: %v", err)
	}
	if !h.PresentedAt.Equal(firstPresented) {
		t.Fatalf("expected first presentation time kept")
	}

	h, err = svc.Accept(ctx, "c1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if h.Status != StatusAccepted || h.DecidedAt == nil || h.DecisionSeconds() <= 0 {
		t.Fatalf("unexpected decided record %+v", h)
	}

	evs := repo.Events()
	want := []audit.EventType{audit.EventTypeHold, audit.EventTypePresented, audit.EventTypePresented, audit.EventTypeAccepted}
	if len(evs) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(evs))
	}
	for i, w := range want {
		if evs[i].Type != w {
			t.Fatalf("event %d: expected %s, got %s", i, w, evs[i].Type)
		}
	}
}

func TestService_RejectFromHoldKeepsMessage(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.BeginHold(ctx, "c1", "Ann", "billing")

	h, err := svc.Reject(ctx, "c1", "call back tomorrow")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if h.Status != StatusRejected || h.RejectMessage != "call back tomorrow" {
		t.Fatalf("unexpected record %+v", h)
	}
}

func TestService_TerminalStatesRejectTransitions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.BeginHold(ctx, "c1", "Ann", "billing")
	_, _ = svc.Accept(ctx, "c1")

	if _, err := svc.Reject(ctx, "c1", "x"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.MarkPresented(ctx, "c1", "Ann", "billing"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestService_HoldAgainAfterReject(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.BeginHold(ctx, "c1", "Ann", "billing")
	_, _ = svc.Reject(ctx, "c1", "busy")

	h, err := svc.BeginHold(ctx, "c1", "Ann", "urgent billing")
	if err != nil {
		t.Fatalf("hold again: %v", err)
	}
	if h.Status != StatusOnHold || h.Reason != "urgent billing" || h.DecidedAt != nil {
		t.Fatalf("expected fresh record, got %+v", h)
	}
}

func TestService_HoldWhilePresentingKeepsRecord(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.BeginHold(ctx, "c1", "Ann", "billing")
	presented, _ := svc.MarkPresented(ctx, "c1", "Ann", "billing")

	if _, err := svc.BeginHold(ctx, "c1", "Ann", "billing again"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	h, err := svc.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if h.Status != StatusPresenting || h.PresentedAt == nil || !h.PresentedAt.Equal(*presented.PresentedAt) || h.Reason != "billing" {
		t.Fatalf("expected presenting record untouched, got %+v", h)
	}
}

// assertSingleDecision races accepts against rejects on one held call and
// checks that exactly one of them lands.
func assertSingleDecision(t *testing.T, svc *Service, repo *audit.MemoryRepo) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.BeginHold(ctx, "c1", "Ann", "billing"); err != nil {
		t.Fatalf("hold: %v", err)
	}

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []Status
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			var (
				h   Handoff
				err error
			)
			if i%2 == 0 {
				h, err = svc.Accept(ctx, "c1")
			} else {
				h, err = svc.Reject(ctx, "c1", "busy")
			}
			if err == nil {
				mu.Lock()
				succeeded = append(succeeded, h.Status)
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if len(succeeded) != 1 {
		t.Fatalf("expected exactly one decision, got %v", succeeded)
	}
	final, err := svc.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != succeeded[0] {
		t.Fatalf("stored status %s does not match winning decision %s", final.Status, succeeded[0])
	}

	var decisions int
	for _, e := range repo.Events() {
		if e.Type == audit.EventTypeAccepted || e.Type == audit.EventTypeRejected {
			decisions++
		}
	}
	if decisions != 1 {
		t.Fatalf("expected one decision event, got %d", decisions)
	}
}

func TestService_ConcurrentDecisionsMemory(t *testing.T) {
	repo := audit.NewMemoryRepo()
	svc := NewService(NewMemoryStore(), audit.NewService(repo), logger.Discard())
	assertSingleDecision(t, svc, repo)
}

func TestService_PresentWithoutHoldCreatesRecord(t *testing.T) {
	svc, _ := newTestService()
	h, err := svc.MarkPresented(context.Background(), "c9", "Bob", "sales")
	if err != nil {
		t.Fatalf("present: %v", err)
	}
	if h.Status != StatusPresenting || h.CallerName != "Bob" || h.CreatedAt.IsZero() {
		t.Fatalf("unexpected record %+v", h)
	}
}

func TestService_DecideUnknownCall(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Accept(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_RejectsPlaceholderCallID(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	for _, id := range []string{"", " ", UnknownCallID} {
		if _, err := svc.BeginHold(ctx, id, "Ann", "x"); !errors.Is(err, ErrInvalidCallID) {
			t.Fatalf("%q: expected ErrInvalidCallID, got %v", id, err)
		}
	}
	if len(repo.Events()) != 0 {
		t.Fatalf("expected no audit events")
	}
}

func TestMemoryStore_ListRange(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"b", "a", "c"} {
		_ = s.Save(ctx, Handoff{CallID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	got, err := s.List(ctx, base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].CallID != "b" || got[1].CallID != "a" {
		t.Fatalf("unexpected list %+v", got)
	}
}

func TestStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusOnHold, StatusPresenting, true},
		{StatusOnHold, StatusAccepted, true},
		{StatusOnHold, StatusOnHold, false},
		{StatusPresenting, StatusPresenting, true},
		{StatusPresenting, StatusRejected, true},
		{StatusAccepted, StatusRejected, false},
		{StatusRejected, StatusPresenting, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v", tc.from, tc.to, tc.ok)
		}
	}
}
