package domain_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

func TestDashboardState_Transitions(t *testing.T) {
	t0 := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	dr := domain.SingleDay(t0)
	view := &domain.AggregatedView{Mode: domain.ModeSingleDay}

	t.Run("Success: load then complete", func(t *testing.T) {
		var s domain.DashboardState

		loading := s.BeginLoad(&dr, t0)
		assert.Equal(t, uint64(1), loading.Generation)
		assert.True(t, loading.Loading())
		assert.Equal(t, uint64(0), s.Generation, "previous snapshot is untouched")

		ready, ok := loading.Complete(loading.Generation, view, t0.Add(time.Second))
		assert.True(t, ok)
		assert.Equal(t, domain.StatusReady, ready.Status)
		assert.Same(t, view, ready.View)
		assert.Equal(t, t0.Add(time.Second), ready.UpdatedAt)
	})

	t.Run("Fail: stale generation is rejected", func(t *testing.T) {
		first := domain.DashboardState{}.BeginLoad(&dr, t0)
		second := first.BeginLoad(&dr, t0)

		got, ok := second.Complete(first.Generation, view, t0)
		assert.False(t, ok)
		assert.Equal(t, second, got)

		got, ok = second.Fail(first.Generation, errors.New("late"), t0)
		assert.False(t, ok)
		assert.Equal(t, second, got)
	})

	t.Run("Fail: unauthorized clears the view", func(t *testing.T) {
		ready, _ := domain.DashboardState{}.BeginLoad(&dr, t0).Complete(1, view, t0)
		loading := ready.BeginLoad(&dr, t0)

		got, ok := loading.Fail(loading.Generation, fmt.Errorf("gateway: %w", domain.ErrUnauthorized), t0)
		assert.True(t, ok)
		assert.Equal(t, domain.StatusMustLogin, got.Status)
		assert.Nil(t, got.View)
	})

	t.Run("Fail: other errors mark the load failed", func(t *testing.T) {
		loading := domain.DashboardState{}.BeginLoad(&dr, t0)
		cause := &domain.UpstreamError{Family: domain.FamilyHeart, StatusCode: 500}

		got, ok := loading.Fail(loading.Generation, cause, t0)
		assert.True(t, ok)
		assert.Equal(t, domain.StatusFailed, got.Status)
		assert.ErrorIs(t, got.Err, domain.ErrUpstreamFetchFailed)
	})
}
