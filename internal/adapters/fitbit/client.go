package fitbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

const (
	DefaultBaseURL = "https://api.fitbit.com"

	maxBodyBytes = 4 << 20
)

var _ domain.UpstreamClient = (*Client)(nil)

// TokenRefreshFunc receives the new credentials when a call had to refresh the session's token.
type TokenRefreshFunc func(sessionID string, token *oauth2.Token)

type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Retries    int
	Backoff    time.Duration
	HTTPClient *http.Client

	OnTokenRefresh TokenRefreshFunc
}

type Client struct {
	baseURL    string
	oauth      *oauth2.Config
	httpClient *http.Client
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	onRefresh  TokenRefreshFunc

	mu     sync.Mutex
	tokens map[string]*sessionToken
}

// sessionToken holds the credentials refreshed for one session until the session store
// catches up. from is the stored refresh token the entry was derived from.
type sessionToken struct {
	mu   sync.Mutex
	from string
	tok  *oauth2.Token
}

// NewClient builds the upstream client. oauthConfig may be nil, in which case access
// tokens are used as they are and never refreshed.
func NewClient(oauthConfig *oauth2.Config, cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		oauth:      oauthConfig,
		httpClient: cfg.HTTPClient,
		timeout:    cfg.Timeout,
		retries:    cfg.Retries,
		backoff:    cfg.Backoff,
		onRefresh:  cfg.OnTokenRefresh,
		tokens:     make(map[string]*sessionToken),
	}
}

// CallBudget is the longest one Fetch may take with every retry spent: each attempt's
// timeout plus the worst-case backoff before each retry. Zero when calls are unbounded.
func (c *Client) CallBudget() time.Duration {
	if c.timeout <= 0 {
		return 0
	}
	budget := c.timeout * time.Duration(c.retries+1)
	for attempt := 1; attempt <= c.retries; attempt++ {
		budget += c.backoff<<(attempt-1) + c.backoff
	}
	return budget
}

func (c *Client) Fetch(ctx context.Context, sess *domain.Session, req domain.UpstreamRequest) (json.RawMessage, error) {
	if sess == nil || sess.AccessToken == "" {
		return nil, domain.ErrUnauthorized
	}

	path, err := RequestPath(req)
	if err != nil {
		return nil, &domain.UpstreamError{Family: req.Family, Err: err}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.token(ctx, sess)
	if err != nil {
		log.Printf("[UPSTREAM] %s token refresh failed for user %s: %v", req.Family, sess.ProviderUserID, err)
		return nil, &domain.UpstreamError{Family: req.Family, Err: err}
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	url := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, attempt); err != nil {
				break
			}
		}

		body, status, err := c.do(ctx, httpClient, url)
		if err == nil {
			return body, nil
		}

		lastErr = &domain.UpstreamError{Family: req.Family, StatusCode: status, Err: err}
		log.Printf("[UPSTREAM] GET %s attempt %d/%d failed: %v", path, attempt+1, c.retries+1, lastErr)

		if !retryable(ctx, status, err) {
			break
		}
	}

	return nil, lastErr
}

// token returns a valid access token, refreshing it when the stored one has expired.
// Concurrent calls for the same session share a single refresh.
func (c *Client) token(ctx context.Context, sess *domain.Session) (*oauth2.Token, error) {
	current := &oauth2.Token{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    sess.TokenType,
		Expiry:       sess.Expiry,
	}
	if c.oauth == nil || current.RefreshToken == "" {
		return current, nil
	}
	if current.Valid() {
		c.forget(sess.ID)
		return current, nil
	}

	entry := c.entry(sess.ID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	base := current
	if entry.tok != nil && entry.from == sess.RefreshToken {
		if entry.tok.Valid() {
			return entry.tok, nil
		}
		base = entry.tok
	}

	tok, err := c.oauth.TokenSource(ctx, base).Token()
	if err != nil {
		return nil, err
	}
	entry.from = sess.RefreshToken
	entry.tok = tok

	if tok.AccessToken != base.AccessToken && c.onRefresh != nil {
		c.onRefresh(sess.ID, tok)
	}
	return tok, nil
}

func (c *Client) entry(sessionID string) *sessionToken {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.tokens[sessionID]
	if !ok {
		e = &sessionToken{}
		c.tokens[sessionID] = e
	}
	return e
}

func (c *Client) forget(sessionID string) {
	c.mu.Lock()
	delete(c.tokens, sessionID)
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, httpClient *http.Client, url string) (json.RawMessage, int, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, resp.StatusCode, errors.New("response body is not valid json")
	}

	return json.RawMessage(body), resp.StatusCode, nil
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	delay := c.backoff << (attempt - 1)
	delay += time.Duration(rand.Int64N(int64(c.backoff)))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryable is true for rate limiting, server errors and network failures. Other 4xx
// responses and a cancelled caller fail straight away.
func retryable(ctx context.Context, status int, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	case status == 0:
		return err != nil
	}
	return false
}
