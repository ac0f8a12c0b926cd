package paper

import (
	"context"
	"sort"
	"sync"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu    sync.RWMutex
	items map[string]Paper
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty paper store.
func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]Paper)}
}

func (s *InMemory) Create(ctx context.Context, p *Paper) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = clone(*p)
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(p)
	return &out, nil
}

func (s *InMemory) Update(ctx context.Context, p *Paper) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[p.ID]; !ok {
		return ErrNotFound
	}
	s.items[p.ID] = clone(*p)
	return nil
}

func (s *InMemory) ListByOwner(ctx context.Context, ownerID string) ([]Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Paper
	for _, p := range s.items {
		if p.OwnerID == ownerID {
			result = append(result, clone(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func clone(p Paper) Paper {
	if p.ValidUntil != nil {
		until := *p.ValidUntil
		p.ValidUntil = &until
	}
	if p.Payload != nil {
		payload := make(map[string]any, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = v
		}
		p.Payload = payload
	}
	return p
}
