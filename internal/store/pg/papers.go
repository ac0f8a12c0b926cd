package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"smena.org/internal/paper"
)

// PaperStore implements paper.Store on PostgreSQL.
type PaperStore struct {
	db *sql.DB
}

var _ paper.Store = (*PaperStore)(nil)

func (s *PaperStore) Create(ctx context.Context, p *paper.Paper) error {
	payload, err := marshalPayload(p.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into papers (
			id, owner_id, type, business_context_id, payload, state,
			valid_from, valid_until, verification_status, created_at, updated_at
		) values ($1,$2,$3,nullif($4,''),$5,$6,$7,$8,$9,$10,$11)
	`, p.ID, p.OwnerID, string(p.Type), p.BusinessContextID, payload, string(p.State),
		p.ValidFrom, p.ValidUntil, string(p.Verification), p.CreatedAt, p.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
		return fmt.Errorf("%w: owner %s", paper.ErrInvalidInput, p.OwnerID)
	}
	return err
}

func (s *PaperStore) Find(ctx context.Context, id string) (*paper.Paper, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, owner_id, type, coalesce(business_context_id, ''), payload, state,
		       valid_from, valid_until, verification_status, created_at, updated_at
		from papers where id = $1
	`, id)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, paper.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PaperStore) Update(ctx context.Context, p *paper.Paper) error {
	payload, err := marshalPayload(p.Payload)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update papers set
			payload = $2, state = $3, valid_from = $4, valid_until = $5,
			verification_status = $6, updated_at = $7
		where id = $1
	`, p.ID, payload, string(p.State), p.ValidFrom, p.ValidUntil,
		string(p.Verification), p.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return paper.ErrNotFound
	}
	return nil
}

func (s *PaperStore) ListByOwner(ctx context.Context, ownerID string) ([]paper.Paper, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, owner_id, type, coalesce(business_context_id, ''), payload, state,
		       valid_from, valid_until, verification_status, created_at, updated_at
		from papers where owner_id = $1
		order by id
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []paper.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (*paper.Paper, error) {
	var (
		p          paper.Paper
		typ        string
		state      string
		verif      string
		payload    []byte
		validUntil sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &typ, &p.BusinessContextID, &payload, &state,
		&p.ValidFrom, &validUntil, &verif, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Type = paper.Type(typ)
	p.State = paper.State(state)
	p.Verification = paper.Verification(verif)
	if validUntil.Valid {
		until := validUntil.Time
		p.ValidUntil = &until
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	return &p, nil
}

func marshalPayload(payload map[string]any) ([]byte, error) {
	if len(payload) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}
