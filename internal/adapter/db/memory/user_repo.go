package memory

import (
	"context"

	"user-contract-service/internal/domain/user"
)

// UserRepo is a read-only user store backed by a map.
// It is populated once at construction and never mutated afterwards,
// so concurrent reads need no locking.
type UserRepo struct {
	users map[int64]user.User
}

// NewUserRepo creates a store holding the given users, keyed by id.
// A later record with a duplicate id replaces the earlier one.
func NewUserRepo(users []user.User) *UserRepo {
	m := make(map[int64]user.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return &UserRepo{users: m}
}

// NewSeededUserRepo creates a store holding the seed users.
func NewSeededUserRepo() *UserRepo {
	return NewUserRepo(user.SeedUsers())
}

// Lookup returns the user with id and whether it is present.
func (r *UserRepo) Lookup(id int64) (user.User, bool) {
	u, ok := r.users[id]
	return u, ok
}

// GetByID returns a copy of the user with id, or (nil, nil) when absent.
func (r *UserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := r.Lookup(id)
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// Len returns the number of stored users.
func (r *UserRepo) Len() int {
	return len(r.users)
}
