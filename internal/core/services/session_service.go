package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

// OAuthProvider performs the authorization-code flow against the fitness provider.
type OAuthProvider interface {
	AuthCodeURL(state, verifier string) string
	ExchangeCode(ctx context.Context, code, verifier string) (*domain.ProviderCredentials, error)
}

// cacheInvalidator is implemented by upstream clients that keep per-user responses.
type cacheInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

type SessionService struct {
	provider OAuthProvider
	store    domain.SessionStore
	accounts domain.AccountRepository
	upstream domain.UpstreamClient
	tokens   *TokenService
}

func NewSessionService(
	provider OAuthProvider,
	store domain.SessionStore,
	accounts domain.AccountRepository,
	upstream domain.UpstreamClient,
	tokens *TokenService,
) *SessionService {
	return &SessionService{
		provider: provider,
		store:    store,
		accounts: accounts,
		upstream: upstream,
		tokens:   tokens,
	}
}

type LoginResult struct {
	Session   *domain.Session
	Account   *domain.Account
	Token     string
	ExpiresAt time.Time
}

func (s *SessionService) AuthCodeURL(state, verifier string) string {
	return s.provider.AuthCodeURL(state, verifier)
}

func (s *SessionService) CompleteLogin(ctx context.Context, code, verifier string) (*LoginResult, error) {
	creds, err := s.provider.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, fmt.Errorf("session service: code exchange failed: %w", err)
	}
	if creds.ProviderUserID == "" || creds.AccessToken == "" {
		return nil, fmt.Errorf("session service: incomplete provider credentials")
	}

	now := time.Now().UTC()
	sess := domain.Session{
		ID:             uuid.NewString(),
		ProviderUserID: creds.ProviderUserID,
		AccessToken:    creds.AccessToken,
		RefreshToken:   creds.RefreshToken,
		TokenType:      creds.TokenType,
		Expiry:         creds.Expiry,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.tokens.Duration()),
	}

	profile := s.fetchProfile(ctx, &sess)

	account, err := domain.NewAccount(creds.ProviderUserID, profile, creds.Scopes)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("session service: failed to save account: %w", err)
	}

	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("session service: failed to persist session: %w", err)
	}

	token, err := s.tokens.GenerateToken(sess.ID, sess.ProviderUserID)
	if err != nil {
		_ = s.store.Delete(ctx, sess.ID)
		return nil, err
	}

	return &LoginResult{
		Session:   &sess,
		Account:   account,
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// fetchProfile is best effort: a login still succeeds with an empty profile.
func (s *SessionService) fetchProfile(ctx context.Context, sess *domain.Session) domain.ProfileUser {
	body, err := s.upstream.Fetch(ctx, sess, domain.UpstreamRequest{Family: domain.FamilyProfile})
	if err != nil {
		log.Printf("[SESSION] profile fetch failed for user %s: %v", sess.ProviderUserID, err)
		return domain.ProfileUser{}
	}

	var profile domain.ProfileResponse
	if err := json.Unmarshal(body, &profile); err != nil {
		log.Printf("[SESSION] profile decode failed for user %s: %v", sess.ProviderUserID, err)
		return domain.ProfileUser{}
	}
	return profile.User
}

// Current resolves a signed session token to the live session. Every failure maps to
// domain.ErrUnauthorized.
func (s *SessionService) Current(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	sess, err := s.store.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("session service: failed to load session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, domain.ErrSessionNotFound)
	}
	if sess.ProviderUserID != claims.ProviderUserID {
		return nil, fmt.Errorf("%w: session subject mismatch", domain.ErrUnauthorized)
	}
	if sess.Expired(time.Now()) {
		_ = s.store.Delete(ctx, sess.ID)
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, domain.ErrSessionExpired)
	}

	return sess, nil
}

// Logout is idempotent: unknown or invalid tokens are not an error.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil
	}
	if err := s.store.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("session service: failed to delete session: %w", err)
	}
	if inv, ok := s.upstream.(cacheInvalidator); ok {
		inv.Invalidate(ctx, claims.ProviderUserID)
	}
	return nil
}

func (s *SessionService) Account(ctx context.Context, providerUserID string) (*domain.Account, error) {
	return s.accounts.GetByProviderUserID(ctx, providerUserID)
}
