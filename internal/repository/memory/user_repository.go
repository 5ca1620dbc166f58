package memory

import (
	"context"
	"sync"
	"time"

	domain "shoplink-backend/internal/domain/user"
)

// UserRepository keeps users in process memory. The map key is the
// uniqueness constraint; the mutex makes check-and-insert atomic.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
	now   func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User), now: time.Now}
}

func (r *UserRepository) Upsert(_ context.Context, externalID string) (*domain.User, bool, error) {
	if externalID == "" {
		return nil, false, domain.ErrEmptyExternalID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[externalID]; ok {
		return &u, false, nil
	}
	u := domain.New(externalID, r.now())
	r.users[externalID] = *u
	return u, true, nil
}

func (r *UserRepository) GetByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[externalID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) Ping(context.Context) error { return nil }

// Count returns the number of stored users.
func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
