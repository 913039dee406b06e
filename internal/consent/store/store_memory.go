package store

import (
	"context"
	"fmt"
	"sync"

	"consents/internal/consent/models"
	"consents/internal/sentinel"
)

// InMemoryStore keeps consents in a map guarded by a RWMutex. Records are
// copied on the way in and out so callers never alias stored state.
type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[int64]*models.Consent
	nextID   int64
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		consents: make(map[int64]*models.Consent),
		nextID:   1,
	}
}

// Create assigns the next sequence id to consent and stores it.
func (s *InMemoryStore) Create(_ context.Context, consent *models.Consent) error {
	if consent == nil {
		return fmt.Errorf("consent is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	consent.ID = s.nextID
	s.nextID++
	s.consents[consent.ID] = consent.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.consents[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

// Update replaces an existing consent. Unknown ids return sentinel.ErrNotFound.
func (s *InMemoryStore) Update(_ context.Context, consent *models.Consent) error {
	if consent == nil {
		return fmt.Errorf("consent is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.consents[consent.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.consents[consent.ID] = consent.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.consents[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.consents, id)
	return nil
}

// Count returns the number of stored consents.
func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.consents), nil
}
