package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidAccount  = errors.New("provider user id is required")
)

// Account is the local record of a provider user that has logged in at least once.
type Account struct {
	ProviderUserID string    `json:"provider_user_id" db:"provider_user_id"`
	DisplayName    string    `json:"display_name" db:"display_name"`
	Avatar         string    `json:"avatar" db:"avatar"`
	Timezone       string    `json:"timezone" db:"timezone"`
	Scopes         []string  `json:"scopes" db:"scopes"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
	LastLoginAt    time.Time `json:"last_login_at" db:"last_login_at"`
}

func NewAccount(providerUserID string, profile ProfileUser, scopes []string) (*Account, error) {
	providerUserID = strings.TrimSpace(providerUserID)
	if providerUserID == "" {
		return nil, ErrInvalidAccount
	}

	now := time.Now().UTC()
	return &Account{
		ProviderUserID: providerUserID,
		DisplayName:    profile.DisplayName,
		Avatar:         profile.Avatar,
		Timezone:       profile.Timezone,
		Scopes:         scopes,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastLoginAt:    now,
	}, nil
}

type AccountRepository interface {
	// Upsert inserts the account or refreshes its profile fields and last login.
	Upsert(ctx context.Context, account *Account) error

	GetByProviderUserID(ctx context.Context, providerUserID string) (*Account, error)

	Delete(ctx context.Context, providerUserID string) error
}
