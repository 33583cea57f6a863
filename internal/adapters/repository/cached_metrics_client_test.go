package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

type MockUpstream struct {
	mock.Mock
}

func (m *MockUpstream) Fetch(ctx context.Context, sess *domain.Session, req domain.UpstreamRequest) (json.RawMessage, error) {
	args := m.Called(ctx, sess, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func TestCachedMetricsClient(t *testing.T) {
	ctx := context.Background()
	sess := newSession("s1")
	dr, err := domain.ParseDateRange("2024-01-01", "2024-01-07")
	require.NoError(t, err)
	heartReq := domain.UpstreamRequest{Family: domain.FamilyHeart, Range: &dr}

	t.Run("Success: second read is served from cache", func(t *testing.T) {
		mr, rdb := setupMiniRedis(t)
		next := new(MockUpstream)
		client := NewCachedMetricsClient(next, rdb, time.Minute)

		body := json.RawMessage(`{"activities-heart":[]}`)
		next.On("Fetch", mock.Anything, &sess, heartReq).Return(body, nil).Once()

		first, err := client.Fetch(ctx, &sess, heartReq)
		require.NoError(t, err)
		second, err := client.Fetch(ctx, &sess, heartReq)
		require.NoError(t, err)

		assert.JSONEq(t, string(body), string(first))
		assert.JSONEq(t, string(body), string(second))
		assert.True(t, mr.Exists("metrics:ABC123:heart:2024-01-01:2024-01-07"))
		next.AssertNumberOfCalls(t, "Fetch", 1)
	})

	t.Run("Fail: upstream errors are not cached", func(t *testing.T) {
		mr, rdb := setupMiniRedis(t)
		next := new(MockUpstream)
		client := NewCachedMetricsClient(next, rdb, time.Minute)

		upErr := &domain.UpstreamError{Family: domain.FamilyHeart, StatusCode: 500}
		next.On("Fetch", mock.Anything, &sess, heartReq).Return(nil, upErr).Twice()

		_, err := client.Fetch(ctx, &sess, heartReq)
		assert.ErrorIs(t, err, domain.ErrUpstreamFetchFailed)
		_, err = client.Fetch(ctx, &sess, heartReq)
		assert.ErrorIs(t, err, domain.ErrUpstreamFetchFailed)

		assert.Empty(t, mr.Keys())
		next.AssertExpectations(t)
	})

	t.Run("Corrupted entry falls through to upstream", func(t *testing.T) {
		mr, rdb := setupMiniRedis(t)
		next := new(MockUpstream)
		client := NewCachedMetricsClient(next, rdb, time.Minute)

		profileReq := domain.UpstreamRequest{Family: domain.FamilyProfile}
		require.NoError(t, mr.Set("metrics:ABC123:profile", "{broken"))
		next.On("Fetch", mock.Anything, &sess, profileReq).Return(json.RawMessage(`{"user":{}}`), nil).Once()

		body, err := client.Fetch(ctx, &sess, profileReq)
		require.NoError(t, err)
		assert.JSONEq(t, `{"user":{}}`, string(body))
	})

	t.Run("Invalidate drops only that user", func(t *testing.T) {
		mr, rdb := setupMiniRedis(t)
		client := NewCachedMetricsClient(new(MockUpstream), rdb, time.Minute)

		require.NoError(t, mr.Set("metrics:ABC123:profile", "{}"))
		require.NoError(t, mr.Set("metrics:ABC123:sleep:2024-01-01:2024-01-01", "{}"))
		require.NoError(t, mr.Set("metrics:OTHER:profile", "{}"))

		client.Invalidate(ctx, "ABC123")

		assert.Equal(t, []string{"metrics:OTHER:profile"}, mr.Keys())
	})
}
