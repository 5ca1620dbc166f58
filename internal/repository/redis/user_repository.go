package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domain "shoplink-backend/internal/domain/user"
)

// UserRepository keeps users in Redis under "user:<externalID>".
// SETNX is the uniqueness constraint: only one writer can create the key.
type UserRepository struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewUserRepository(client redis.UniversalClient) *UserRepository {
	return &UserRepository{client: client, now: time.Now}
}

func key(externalID string) string { return fmt.Sprintf("user:%s", externalID) }

func (r *UserRepository) Upsert(ctx context.Context, externalID string) (*domain.User, bool, error) {
	if externalID == "" {
		return nil, false, domain.ErrEmptyExternalID
	}
	u := domain.New(externalID, r.now())
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, false, err
	}
	ok, err := r.client.SetNX(ctx, key(externalID), raw, 0).Result()
	if err != nil {
		return nil, false, fmt.Errorf("setnx user: %w", err)
	}
	if ok {
		return u, true, nil
	}
	existing, err := r.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("user %s vanished after setnx", externalID)
	}
	return existing, false, nil
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	raw, err := r.client.Get(ctx, key(externalID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", externalID, err)
	}
	return &u, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
