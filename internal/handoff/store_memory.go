package handoff

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. Records from a previous
// process are lost, which is acceptable for single-instance deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Handoff
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{byID: map[string]Handoff{}} }

func (s *MemoryStore) Get(ctx context.Context, callID string) (Handoff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.byID[callID]
	if !ok {
		return Handoff{}, ErrNotFound
	}
	return h, nil
}

func (s *MemoryStore) Save(ctx context.Context, h Handoff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[h.CallID] = h
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, callID string, fn UpdateFunc) (Handoff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, found := s.byID[callID]
	if err := fn(&h, found); err != nil {
		return Handoff{}, err
	}
	h.CallID = callID
	s.byID[callID] = h
	return h, nil
}

func (s *MemoryStore) List(ctx context.Context, from, to time.Time) ([]Handoff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Handoff, 0)
	for _, h := range s.byID {
		if h.CreatedAt.Before(from) || !h.CreatedAt.Before(to) {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
