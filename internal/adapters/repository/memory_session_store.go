package repository

import (
	"context"
	"sync"
	"time"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

var _ domain.SessionStore = (*InMemorySessionStore)(nil)

// InMemorySessionStore backs the server when redis is not configured and is used in tests.
type InMemorySessionStore struct {
	store map[string]domain.Session
	now   func() time.Time

	mu sync.RWMutex
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		store: make(map[string]domain.Session),
		now:   time.Now,
	}
}

func (r *InMemorySessionStore) Create(ctx context.Context, s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[s.ID] = s
	return nil
}

func (r *InMemorySessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.store[id]
	if !ok || s.Expired(r.now()) {
		return nil, nil
	}
	return &s, nil
}

func (r *InMemorySessionStore) Update(ctx context.Context, s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[s.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	r.store[s.ID] = s
	return nil
}

func (r *InMemorySessionStore) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.store, id)
	return nil
}
