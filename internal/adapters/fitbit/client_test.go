package fitbit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

func testSession() *domain.Session {
	return &domain.Session{
		ID:             "sess-1",
		ProviderUserID: "ABC123",
		AccessToken:    "access-1",
		RefreshToken:   "refresh-1",
		TokenType:      "Bearer",
		Expiry:         time.Now().Add(time.Hour),
	}
}

func newTestClient(srv *httptest.Server, cfg ClientConfig) *Client {
	cfg.BaseURL = srv.URL
	cfg.Backoff = time.Millisecond
	return NewClient(nil, cfg)
}

func TestClient_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("Success: relays body verbatim with bearer credential", func(t *testing.T) {
		t.Parallel()
		var gotAuth, gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"summary":{"steps":8000}}`))
		}))
		defer srv.Close()

		c := newTestClient(srv, ClientConfig{})
		dr := mustRange(t, "2024-01-15", "")

		body, err := c.Fetch(context.Background(), testSession(), domain.UpstreamRequest{Family: domain.FamilyActivity, Range: dr})

		require.NoError(t, err)
		assert.JSONEq(t, `{"summary":{"steps":8000}}`, string(body))
		assert.Equal(t, "Bearer access-1", gotAuth)
		assert.Equal(t, "/1/user/-/activities/date/2024-01-15.json", gotPath)
	})

	t.Run("Fail: missing session never calls upstream", func(t *testing.T) {
		t.Parallel()
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
		}))
		defer srv.Close()

		c := newTestClient(srv, ClientConfig{})
		_, err := c.Fetch(context.Background(), nil, domain.UpstreamRequest{Family: domain.FamilyProfile})

		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Zero(t, atomic.LoadInt32(&calls))
	})

	t.Run("Fail: upstream 401 is not retried", func(t *testing.T) {
		t.Parallel()
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errors":[{"errorType":"expired_token"}]}`))
		}))
		defer srv.Close()

		c := newTestClient(srv, ClientConfig{Retries: 3})
		_, err := c.Fetch(context.Background(), testSession(), domain.UpstreamRequest{Family: domain.FamilyProfile})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUpstreamFetchFailed)
		assert.NotErrorIs(t, err, domain.ErrUnauthorized)

		var upErr *domain.UpstreamError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, http.StatusUnauthorized, upErr.StatusCode)
		assert.Equal(t, domain.FamilyProfile, upErr.Family)
		assert.NotContains(t, err.Error(), "expired_token")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("Success: server errors are retried", func(t *testing.T) {
		t.Parallel()
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"user":{"displayName":"Jo"}}`))
		}))
		defer srv.Close()

		c := newTestClient(srv, ClientConfig{Retries: 2})
		body, err := c.Fetch(context.Background(), testSession(), domain.UpstreamRequest{Family: domain.FamilyProfile})

		require.NoError(t, err)
		assert.JSONEq(t, `{"user":{"displayName":"Jo"}}`, string(body))
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("Fail: retries are bounded", func(t *testing.T) {
		t.Parallel()
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := newTestClient(srv, ClientConfig{Retries: 2})
		_, err := c.Fetch(context.Background(), testSession(), domain.UpstreamRequest{Family: domain.FamilyProfile})

		assert.ErrorIs(t, err, domain.ErrUpstreamFetchFailed)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("Fail: non-json body", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		}))
		defer srv.Close()

		c := newTestClient(srv, ClientConfig{})
		_, err := c.Fetch(context.Background(), testSession(), domain.UpstreamRequest{Family: domain.FamilyProfile})

		assert.ErrorIs(t, err, domain.ErrUpstreamFetchFailed)
	})

	t.Run("Fail: slow upstream hits the per-call timeout", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		c := newTestClient(srv, ClientConfig{Timeout: 50 * time.Millisecond})
		start := time.Now()
		_, err := c.Fetch(context.Background(), testSession(), domain.UpstreamRequest{Family: domain.FamilyProfile})

		assert.ErrorIs(t, err, domain.ErrUpstreamFetchFailed)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestClient_RefreshesExpiredToken(t *testing.T) {
	var mu sync.Mutex
	var refreshed []*oauth2.Token
	var gotAuth string

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-2",
			"refresh_token": "refresh-2",
			"token_type":    "Bearer",
			"expires_in":    28800,
			"user_id":       "ABC123",
		})
	})
	mux.HandleFunc("/1/user/-/profile.json", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"user":{}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	provider, err := NewProvider(ProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		Endpoint:     &oauth2.Endpoint{AuthURL: srv.URL + "/oauth2/authorize", TokenURL: srv.URL + "/oauth2/token"},
	})
	require.NoError(t, err)

	c := NewClient(provider.OAuthConfig(), ClientConfig{
		BaseURL: srv.URL,
		OnTokenRefresh: func(sessionID string, tok *oauth2.Token) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, "sess-1", sessionID)
			refreshed = append(refreshed, tok)
		},
	})

	sess := testSession()
	sess.Expiry = time.Now().Add(-time.Minute)

	_, err = c.Fetch(context.Background(), sess, domain.UpstreamRequest{Family: domain.FamilyProfile})
	require.NoError(t, err)

	assert.Equal(t, "Bearer access-2", gotAuth)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, refreshed, 1)
	assert.Equal(t, "refresh-2", refreshed[0].RefreshToken)
	assert.Equal(t, "access-1", sess.AccessToken, "session is never mutated by the client")
}

func TestClient_ConcurrentCallsShareOneRefresh(t *testing.T) {
	var refreshes, notified atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		n := refreshes.Add(1)
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-2",
			"refresh_token": "refresh-2",
			"token_type":    "Bearer",
			"expires_in":    28800 * int(n),
		})
	})
	mux.HandleFunc("/1/user/-/profile.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"user":{}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	provider, err := NewProvider(ProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		Endpoint:     &oauth2.Endpoint{AuthURL: srv.URL + "/oauth2/authorize", TokenURL: srv.URL + "/oauth2/token"},
	})
	require.NoError(t, err)

	c := NewClient(provider.OAuthConfig(), ClientConfig{
		BaseURL:        srv.URL,
		OnTokenRefresh: func(string, *oauth2.Token) { notified.Add(1) },
	})

	sess := testSession()
	sess.Expiry = time.Now().Add(-time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Fetch(context.Background(), sess, domain.UpstreamRequest{Family: domain.FamilyProfile})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	assert.Equal(t, int32(1), refreshes.Load(), "refresh token is spent once")
	assert.Equal(t, int32(1), notified.Load())

	_, err = c.Fetch(context.Background(), sess, domain.UpstreamRequest{Family: domain.FamilyProfile})
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshes.Load(), "stale stored session reuses the refreshed token")

	sess.AccessToken = "access-2"
	sess.RefreshToken = "refresh-2"
	sess.Expiry = time.Now().Add(time.Hour)
	_, err = c.Fetch(context.Background(), sess, domain.UpstreamRequest{Family: domain.FamilyProfile})
	require.NoError(t, err)
	assert.Empty(t, c.tokens, "entry dropped once the store has caught up")
}

func TestClient_CallBudget(t *testing.T) {
	c := NewClient(nil, ClientConfig{Timeout: time.Second, Retries: 2, Backoff: 100 * time.Millisecond})
	// three attempts, then 100ms and 200ms backoff each with up to 100ms jitter
	assert.Equal(t, 3*time.Second+500*time.Millisecond, c.CallBudget())

	c = NewClient(nil, ClientConfig{Timeout: time.Second})
	assert.Equal(t, time.Second, c.CallBudget())

	c = NewClient(nil, ClientConfig{Retries: 3})
	assert.Zero(t, c.CallBudget(), "no per-attempt timeout means no budget")
}
