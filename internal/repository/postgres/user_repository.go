package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	domain "shoplink-backend/internal/domain/user"
)

const uniqueViolation = "23505"

// UserRepository stores users in Postgres. The UNIQUE constraint on
// external_id makes concurrent upserts for one sender collapse into one row.
type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// Migrate creates the users table and its unique index when missing.
func (r *UserRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS users (
	external_id TEXT PRIMARY KEY,
	first_name  TEXT,
	last_name   TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// Upsert inserts the user unless a row with the same external_id exists.
// created is true only for the call whose INSERT took effect.
func (r *UserRepository) Upsert(ctx context.Context, externalID string) (*domain.User, bool, error) {
	if externalID == "" {
		return nil, false, domain.ErrEmptyExternalID
	}
	const q = `
INSERT INTO users (external_id, created_at)
VALUES ($1, $2)
ON CONFLICT (external_id) DO NOTHING
RETURNING external_id, COALESCE(first_name, ''), COALESCE(last_name, ''), created_at`

	var u domain.User
	err := r.db.QueryRowContext(ctx, q, externalID, r.now().UTC()).
		Scan(&u.ExternalID, &u.FirstName, &u.LastName, &u.CreatedAt)
	switch {
	case err == nil:
		return &u, true, nil
	case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
		// Another writer got there first.
		existing, gerr := r.GetByExternalID(ctx, externalID)
		if gerr != nil {
			return nil, false, gerr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("user %s vanished after conflict", externalID)
		}
		return existing, false, nil
	default:
		return nil, false, fmt.Errorf("insert user: %w", err)
	}
}

// GetByExternalID returns a user by sender ID. Returns nil if not found.
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	const q = `SELECT external_id, COALESCE(first_name, ''), COALESCE(last_name, ''), created_at FROM users WHERE external_id=$1`
	var u domain.User
	if err := r.db.QueryRowContext(ctx, q, externalID).Scan(&u.ExternalID, &u.FirstName, &u.LastName, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
