package paper

import "context"

// Store describes persistence operations for papers. ListByOwner returns
// every paper the identity owns, regardless of state; validity filtering is
// the engine's concern so that historical papers remain queryable evidence.
type Store interface {
	Create(ctx context.Context, p *Paper) error
	Find(ctx context.Context, id string) (*Paper, error)
	Update(ctx context.Context, p *Paper) error
	ListByOwner(ctx context.Context, ownerID string) ([]Paper, error)
}
