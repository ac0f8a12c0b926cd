package identity

import (
	"context"
	"sync"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu    sync.RWMutex
	items map[string]Identity
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty identity store.
func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]Identity)}
}

func (s *InMemory) Create(ctx context.Context, idn *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[idn.ID] = *idn
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idn, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := idn
	return &out, nil
}

func (s *InMemory) Update(ctx context.Context, idn *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[idn.ID]; !ok {
		return ErrNotFound
	}
	s.items[idn.ID] = *idn
	return nil
}
