package memory

import (
	"context"
	"sync"

	domainuser "idpsupport/internal/domain/user"
)

// UserRepository is an in-memory profile directory. In production profiles
// come from the identity service's collection; here Save exists so tests and
// memory-mode runs can seed them.
type UserRepository struct {
	mu       sync.RWMutex
	profiles map[domainuser.ID]domainuser.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{profiles: make(map[domainuser.ID]domainuser.User)}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	u, ok := r.profiles[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || user.ID == "" {
		return domainuser.ErrIDRequired
	}
	r.mu.Lock()
	r.profiles[user.ID] = *user
	r.mu.Unlock()
	return nil
}

var _ domainuser.Repository = (*UserRepository)(nil)
