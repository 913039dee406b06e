package audit

import (
	"context"
	"sync"
)

// MemorySink keeps events in process, indexed by consent id.
type MemorySink struct {
	mu     sync.RWMutex
	events map[string][]Event
	total  int
}

func NewMemorySink() *MemorySink {
	return &MemorySink{events: make(map[string][]Event)}
}

func (s *MemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ConsentID] = append(s.events[event.ConsentID], event)
	s.total++
	return nil
}

// ListByConsent returns the events of one consent in emission order.
func (s *MemorySink) ListByConsent(consentID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[consentID]...)
}

func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]Event)
	s.total = 0
}
