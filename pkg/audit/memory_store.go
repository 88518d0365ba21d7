package audit

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStore keeps events in process, oldest first.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Store(_ context.Context, events ...Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		e.Metadata = maps.Clone(e.Metadata)
		s.events = append(s.events, e)
	}
	return nil
}

// Query returns matching events, newest first.
func (s *MemoryStore) Query(_ context.Context, c Criteria) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range slices.Backward(s.events) {
		if !c.matches(e) {
			continue
		}
		e.Metadata = maps.Clone(e.Metadata)
		out = append(out, e)
		if c.Limit > 0 && len(out) == c.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
