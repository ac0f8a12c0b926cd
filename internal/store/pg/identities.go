package pg

import (
	"context"
	"database/sql"
	"errors"

	"smena.org/internal/identity"
)

// IdentityStore implements identity.Store on PostgreSQL.
type IdentityStore struct {
	db *sql.DB
}

var _ identity.Store = (*IdentityStore)(nil)

func (s *IdentityStore) Create(ctx context.Context, idn *identity.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		insert into identities (id, display_name, verification_status, active, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6)
	`, idn.ID, idn.DisplayName, string(idn.Verification), idn.Active, idn.CreatedAt, idn.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return identity.ErrInvalidInput
	}
	return err
}

func (s *IdentityStore) Find(ctx context.Context, id string) (*identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, display_name, verification_status, active, created_at, updated_at
		from identities where id = $1
	`, id)
	var (
		idn   identity.Identity
		verif string
	)
	err := row.Scan(&idn.ID, &idn.DisplayName, &verif, &idn.Active, &idn.CreatedAt, &idn.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	idn.Verification = identity.VerificationStatus(verif)
	return &idn, nil
}

func (s *IdentityStore) Update(ctx context.Context, idn *identity.Identity) error {
	res, err := s.db.ExecContext(ctx, `
		update identities set display_name = $2, verification_status = $3, active = $4, updated_at = $5
		where id = $1
	`, idn.ID, idn.DisplayName, string(idn.Verification), idn.Active, idn.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return identity.ErrNotFound
	}
	return nil
}
