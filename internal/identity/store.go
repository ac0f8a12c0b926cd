package identity

import "context"

// Store describes persistence operations for identities.
type Store interface {
	Create(ctx context.Context, idn *Identity) error
	Find(ctx context.Context, id string) (*Identity, error)
	Update(ctx context.Context, idn *Identity) error
}
