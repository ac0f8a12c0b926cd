package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smena.org/internal/ids"
)

// Service provides identity registration and verification-status transitions.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a Service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Register creates a new, unverified, active identity.
func (s *Service) Register(ctx context.Context, displayName string) (Identity, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return Identity{}, fmt.Errorf("%w: display name is required", ErrInvalidInput)
	}
	now := s.now()
	idn := Identity{
		ID:           ids.Prefixed(ids.PrefixIdentity),
		DisplayName:  displayName,
		Verification: VerificationUnverified,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, &idn); err != nil {
		return Identity{}, err
	}
	return idn, nil
}

// Get returns the identity by id.
func (s *Service) Get(ctx context.Context, id string) (Identity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Identity{}, fmt.Errorf("%w: identity id is required", ErrInvalidInput)
	}
	idn, err := s.store.Find(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	return *idn, nil
}

// SetVerification advances the verification status. Allowed transitions:
// unverified -> pending, pending -> verified. Verified is terminal.
func (s *Service) SetVerification(ctx context.Context, id string, next VerificationStatus) (Identity, error) {
	if !next.Valid() {
		return Identity{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, next)
	}
	idn, err := s.store.Find(ctx, strings.TrimSpace(id))
	if err != nil {
		return Identity{}, err
	}
	if !allowedTransition(idn.Verification, next) {
		return Identity{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, idn.Verification, next)
	}
	idn.Verification = next
	idn.UpdatedAt = s.now()
	if err := s.store.Update(ctx, idn); err != nil {
		return Identity{}, err
	}
	return *idn, nil
}

// Deactivate marks the identity inactive. Identities are never deleted.
func (s *Service) Deactivate(ctx context.Context, id string) (Identity, error) {
	idn, err := s.store.Find(ctx, strings.TrimSpace(id))
	if err != nil {
		return Identity{}, err
	}
	idn.Active = false
	idn.UpdatedAt = s.now()
	if err := s.store.Update(ctx, idn); err != nil {
		return Identity{}, err
	}
	return *idn, nil
}

func allowedTransition(from, to VerificationStatus) bool {
	switch from {
	case VerificationUnverified:
		return to == VerificationPending
	case VerificationPending:
		return to == VerificationVerified
	default:
		return false
	}
}
