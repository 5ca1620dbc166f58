package user

import (
	"context"
	"errors"
)

// ErrEmptyExternalID is returned when an upsert is attempted without a sender ID.
var ErrEmptyExternalID = errors.New("empty external id")

// Repository defines persistence operations for User records.
//
// Upsert must be atomic with respect to ExternalID: concurrent calls for the
// same ID produce exactly one stored record, and exactly one of them reports
// created=true. Implementations rely on a storage-level uniqueness
// constraint, not on a read-then-write check.
type Repository interface {
	Upsert(ctx context.Context, externalID string) (u *User, created bool, err error)
	// GetByExternalID returns nil, nil when no record exists.
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	Ping(ctx context.Context) error
}
