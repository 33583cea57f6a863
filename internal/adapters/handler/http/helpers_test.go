package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/comitanigiacomo/fitdash/internal/adapters/handler/http"
	"github.com/comitanigiacomo/fitdash/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/fitdash/internal/adapters/repository"
	"github.com/comitanigiacomo/fitdash/internal/core/domain"
	"github.com/comitanigiacomo/fitdash/internal/core/services"
)

const testSecret = "handler-test-secret-0123456789abcdef"

var fixedNow = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

// fakeUpstream answers from canned bodies per family and records every request.
type fakeUpstream struct {
	mu       sync.Mutex
	bodies   map[domain.MetricFamily]string
	failures map[domain.MetricFamily]int
	requests []domain.UpstreamRequest
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		bodies: map[domain.MetricFamily]string{
			domain.FamilyActivity: `{"summary":{"steps":8432,"caloriesOut":2310,"floors":12,"activityCalories":980,"distances":[{"activity":"total","distance":6.4321}]}}`,
			domain.FamilyHeart:    `{"activities-heart":[{"dateTime":"2024-01-15","value":{"restingHeartRate":58}}]}`,
			domain.FamilySleep:    `{"sleep":[{"dateOfSleep":"2024-01-15","type":"stages","isMainSleep":true,"efficiency":91,"minutesAsleep":412,"timeInBed":450}],"summary":{"totalMinutesAsleep":412}}`,
			domain.FamilyProfile:  `{"user":{"encodedId":"ABC123","displayName":"Jo","avatar":"https://example.com/a.png","timezone":"Europe/Rome"}}`,
		},
		failures: map[domain.MetricFamily]int{},
	}
}

func (f *fakeUpstream) Fetch(ctx context.Context, sess *domain.Session, req domain.UpstreamRequest) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if status, ok := f.failures[req.Family]; ok {
		return nil, &domain.UpstreamError{Family: req.Family, StatusCode: status}
	}
	return json.RawMessage(f.bodies[req.Family]), nil
}

func (f *fakeUpstream) lastRequest() domain.UpstreamRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeProvider struct{}

func (fakeProvider) AuthCodeURL(state, verifier string) string {
	return "https://www.fitbit.com/oauth2/authorize?state=" + state
}

func (fakeProvider) ExchangeCode(ctx context.Context, code, verifier string) (*domain.ProviderCredentials, error) {
	return &domain.ProviderCredentials{
		ProviderUserID: "ABC123",
		AccessToken:    "access-" + code,
		RefreshToken:   "refresh-" + code,
		TokenType:      "Bearer",
		Expiry:         time.Now().Add(8 * time.Hour),
		Scopes:         []string{"activity", "heartrate", "sleep", "profile"},
	}, nil
}

type testApp struct {
	router   *gin.Engine
	upstream *fakeUpstream
	sessions *services.SessionService
	store    *repository.InMemorySessionStore
}

func newTestApp(t *testing.T, opts ...func(*adapterHTTP.RouterDependencies)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := newFakeUpstream()
	store := repository.NewInMemorySessionStore()
	accounts := repository.NewInMemoryAccountRepository()
	tokens := services.NewTokenService(testSecret, "fitdash-test", time.Hour)
	sessions := services.NewSessionService(fakeProvider{}, store, accounts, upstream, tokens)

	now := func() time.Time { return fixedNow }
	metrics := services.NewMetricsService(upstream, time.UTC, now)
	dashboard := services.NewDashboardService(time.Second, now)

	deps := adapterHTTP.RouterDependencies{
		AuthHandler:      adapterHTTP.NewAuthHandler(sessions, adapterHTTP.CookieOptions{}),
		MetricsHandler:   adapterHTTP.NewMetricsHandler(metrics),
		DashboardHandler: adapterHTTP.NewDashboardHandler(metrics, dashboard),
		Sessions:         sessions,
		StartTime:        time.Now(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	router := adapterHTTP.NewRouter(deps)

	return &testApp{router: router, upstream: upstream, sessions: sessions, store: store}
}

// login runs the callback half of the flow and returns a session token.
func (a *testApp) login(t *testing.T) string {
	t.Helper()
	result, err := a.sessions.CompleteLogin(context.Background(), "code-1", "verifier")
	require.NoError(t, err)
	return result.Token
}

func (a *testApp) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}
