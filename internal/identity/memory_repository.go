package identity

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository is an in-memory user store for testing. It applies the
// same uniqueness rules the store indexes enforce.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User // keyed by hex id
}

// NewMemoryRepository builds an empty in-memory user store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]User)}
}

func (r *MemoryRepository) Create(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return User{}, ErrDuplicateEmail
		}
		if existing.Phone == user.Phone {
			return User{}, ErrDuplicatePhone
		}
	}

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users[user.ID.Hex()] = user
	return user, nil
}

func (r *MemoryRepository) FindByEmailOrPhone(_ context.Context, email, phone string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email || user.Phone == phone {
			return stripSecret(user), nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string, withSecret bool) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			if withSecret {
				return user, nil
			}
			return stripSecret(user), nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return stripSecret(user), nil
}

func (r *MemoryRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	ts := at.UTC()
	user.LastLogin = &ts
	r.users[id] = user
	return nil
}

// Delete removes a user. Only the memory repository offers this; tests use
// it to model an account deleted after a token was issued.
func (r *MemoryRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

func stripSecret(u User) User {
	u.PasswordHash = ""
	return u
}
