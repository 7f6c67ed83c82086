package repository

import (
	"context"
	"sync"
	"time"

	"voucher-queue/internal/domain"
)

// MemoryUsersRepo is a minimal in-memory account store for dev mode.
type MemoryUsersRepo struct {
	mu    sync.RWMutex
	users map[string]domain.User // userID -> user
}

var _ UsersRepo = (*MemoryUsersRepo)(nil)

func NewMemoryUsersRepo() *MemoryUsersRepo {
	return &MemoryUsersRepo{
		users: map[string]domain.User{},
	}
}

func (r *MemoryUsersRepo) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username && u.Active {
			cp := u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUsersRepo) CreateUser(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryUsersRepo) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &at
	r.users[userID] = u
	return nil
}
