package repository

import (
	"context"
	"sync"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

var _ domain.AccountRepository = (*InMemoryAccountRepository)(nil)

type InMemoryAccountRepository struct {
	store map[string]domain.Account

	mu sync.RWMutex
}

func NewInMemoryAccountRepository() *InMemoryAccountRepository {
	return &InMemoryAccountRepository{
		store: make(map[string]domain.Account),
	}
}

func (r *InMemoryAccountRepository) Upsert(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.store[a.ProviderUserID]; ok {
		a.CreatedAt = existing.CreatedAt
		if a.DisplayName == "" {
			a.DisplayName = existing.DisplayName
		}
		if a.Avatar == "" {
			a.Avatar = existing.Avatar
		}
		if a.Timezone == "" {
			a.Timezone = existing.Timezone
		}
	}

	r.store[a.ProviderUserID] = *a
	return nil
}

func (r *InMemoryAccountRepository) GetByProviderUserID(ctx context.Context, providerUserID string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.store[providerUserID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (r *InMemoryAccountRepository) Delete(ctx context.Context, providerUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[providerUserID]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.store, providerUserID)
	return nil
}
