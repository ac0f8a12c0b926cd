package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"smena.org/internal/role"
)

// SnapshotStore implements role.SnapshotStore on PostgreSQL. Replace runs
// delete-and-insert inside one transaction so readers never observe a
// partially replaced snapshot.
type SnapshotStore struct {
	db *sql.DB
}

var _ role.SnapshotStore = (*SnapshotStore)(nil)

func (s *SnapshotStore) Replace(ctx context.Context, identityID string, roles []role.ComputedRole) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from computed_roles where identity_id = $1`, identityID); err != nil {
		return err
	}
	for _, cr := range roles {
		sources, err := json.Marshal(cr.SourcePaperIDs)
		if err != nil {
			return fmt.Errorf("marshal source papers: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			insert into computed_roles (id, identity_id, role, business_context_id, source_paper_ids, computed_at, active)
			values ($1,$2,$3,nullif($4,''),$5,$6,$7)
		`, cr.ID, cr.IdentityID, string(cr.Role), cr.BusinessContextID, sources, cr.ComputedAt, cr.Active); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SnapshotStore) Latest(ctx context.Context, identityID string) ([]role.ComputedRole, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, identity_id, role, coalesce(business_context_id, ''), source_paper_ids, computed_at, active
		from computed_roles where identity_id = $1
		order by coalesce(business_context_id, ''), role
	`, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []role.ComputedRole
	for rows.Next() {
		var (
			cr      role.ComputedRole
			name    string
			sources []byte
		)
		if err := rows.Scan(&cr.ID, &cr.IdentityID, &name, &cr.BusinessContextID, &sources, &cr.ComputedAt, &cr.Active); err != nil {
			return nil, err
		}
		cr.Role = role.Type(name)
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &cr.SourcePaperIDs); err != nil {
				return nil, fmt.Errorf("decode source papers: %w", err)
			}
		}
		result = append(result, cr)
	}
	return result, rows.Err()
}
