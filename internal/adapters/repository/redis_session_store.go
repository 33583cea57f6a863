package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

var _ domain.SessionStore = (*RedisSessionStore)(nil)

type RedisSessionStore struct {
	client *redis.Client
	sealer *TokenSealer
	prefix string
}

func NewRedisSessionStore(client *redis.Client, sealer *TokenSealer) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		sealer: sealer,
		prefix: "session:",
	}
}

func (r *RedisSessionStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisSessionStore) encode(s domain.Session) ([]byte, time.Duration, error) {
	if s.ID == "" || s.ProviderUserID == "" {
		return nil, 0, fmt.Errorf("session store: missing id or provider user id")
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil, 0, fmt.Errorf("session store: expires_at must be in the future")
	}

	var err error
	if s.AccessToken, err = r.sealer.Seal(s.AccessToken); err != nil {
		return nil, 0, err
	}
	if s.RefreshToken, err = r.sealer.Seal(s.RefreshToken); err != nil {
		return nil, 0, err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, 0, fmt.Errorf("session store: failed to marshal: %w", err)
	}
	return data, ttl, nil
}

func (r *RedisSessionStore) Create(ctx context.Context, s domain.Session) error {
	data, ttl, err := r.encode(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(s.ID), data, ttl).Err()
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	val, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session store: get: %w", err)
	}

	var s domain.Session
	if err := json.Unmarshal(val, &s); err != nil {
		log.Printf("[SESSION] Corrupted session %s, cleaning up key", id)
		r.client.Del(ctx, r.key(id))
		return nil, nil
	}

	if s.AccessToken, err = r.sealer.Open(s.AccessToken); err != nil {
		log.Printf("[SESSION] Unreadable tokens for session %s, cleaning up key", id)
		r.client.Del(ctx, r.key(id))
		return nil, nil
	}
	if s.RefreshToken, err = r.sealer.Open(s.RefreshToken); err != nil {
		s.RefreshToken = ""
	}

	return &s, nil
}

// Update overwrites an existing session only; a session that already expired stays gone.
func (r *RedisSessionStore) Update(ctx context.Context, s domain.Session) error {
	data, ttl, err := r.encode(s)
	if err != nil {
		return err
	}

	ok, err := r.client.SetXX(ctx, r.key(s.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("session store: update: %w", err)
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}
