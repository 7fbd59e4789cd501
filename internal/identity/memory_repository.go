package identity

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory identity store for development and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]Identity
}

// NewMemoryRepository builds an empty in-memory identity store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]Identity)}
}

// Seed stores id, replacing any identity with the same email. It stands in
// for the external provisioning process.
func (r *MemoryRepository) Seed(id Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id.Email] = id
}

// FindByEmail returns the identity stored under email.
func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.users[email]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return id, nil
}
