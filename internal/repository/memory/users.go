package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"

	"github.com/google/uuid"
)

// UserRepo keeps accounts for STORE_BACKEND=memory runs.
type UserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]model.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[uuid.UUID]model.User)}
}

func copyUser(u model.User) *model.User {
	u.Privileges = slices.Clone(u.Privileges)
	if u.Role != nil {
		role := *u.Role
		role.Privileges = slices.Clone(role.Privileges)
		u.Role = &role
	}
	return &u
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: users.email %q", repository.ErrDuplicateKey, user.Email)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *copyUser(*user)
	return nil
}

func (r *UserRepo) UpdateTokenVersion(ctx context.Context, userID uuid.UUID, version string) error {
	return r.update(userID, func(u *model.User) { u.TokenVersion = version })
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	return r.update(userID, func(u *model.User) { u.Password = hash })
}

func (r *UserRepo) update(id uuid.UUID, fn func(*model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return nil
}
