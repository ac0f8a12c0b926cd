package pg

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store bundles the PostgreSQL-backed implementations of the paper,
// identity and role-snapshot stores over one connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL with pool defaults tuned for the API workload.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle. Test use (sqlmock).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Papers returns the paper store view.
func (s *Store) Papers() *PaperStore { return &PaperStore{db: s.db} }

// Identities returns the identity store view.
func (s *Store) Identities() *IdentityStore { return &IdentityStore{db: s.db} }

// Snapshots returns the computed-role snapshot store view.
func (s *Store) Snapshots() *SnapshotStore { return &SnapshotStore{db: s.db} }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
