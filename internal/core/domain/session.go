package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Session holds the provider credentials of a logged-in user. The gateway only reads it.
type Session struct {
	ID             string    `json:"id"`
	ProviderUserID string    `json:"provider_user_id"`
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token"`
	TokenType      string    `json:"token_type"`
	Expiry         time.Time `json:"expiry"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

type SessionStore interface {
	Create(ctx context.Context, s Session) error

	// Get returns nil, nil when no session exists for the id.
	Get(ctx context.Context, id string) (*Session, error)

	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}

// ProviderCredentials is what a completed authorization-code exchange yields.
type ProviderCredentials struct {
	ProviderUserID string
	AccessToken    string
	RefreshToken   string
	TokenType      string
	Expiry         time.Time
	Scopes         []string
}
