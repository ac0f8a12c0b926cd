package role

import (
	"context"
	"sync"
)

// SnapshotStore persists the latest computed-role set per identity. Replace
// must be atomic for a given identity: readers see either the full previous
// set or the full new set, never a mix.
type SnapshotStore interface {
	Replace(ctx context.Context, identityID string, roles []ComputedRole) error
	Latest(ctx context.Context, identityID string) ([]ComputedRole, error)
}

// InMemorySnapshots implements SnapshotStore with in-process safety.
type InMemorySnapshots struct {
	mu    sync.RWMutex
	items map[string][]ComputedRole
}

var _ SnapshotStore = (*InMemorySnapshots)(nil)

// NewInMemorySnapshots creates an empty snapshot store.
func NewInMemorySnapshots() *InMemorySnapshots {
	return &InMemorySnapshots{items: make(map[string][]ComputedRole)}
}

func (s *InMemorySnapshots) Replace(ctx context.Context, identityID string, roles []ComputedRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[identityID] = cloneRoles(roles)
	return nil
}

// Latest returns the last snapshot for the identity; nil when none was
// ever computed.
func (s *InMemorySnapshots) Latest(ctx context.Context, identityID string) ([]ComputedRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles, ok := s.items[identityID]
	if !ok {
		return nil, nil
	}
	return cloneRoles(roles), nil
}

func cloneRoles(roles []ComputedRole) []ComputedRole {
	out := make([]ComputedRole, len(roles))
	for i, r := range roles {
		out[i] = r
		out[i].SourcePaperIDs = append([]string(nil), r.SourcePaperIDs...)
	}
	return out
}
