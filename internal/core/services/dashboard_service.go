package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

type DashboardService struct {
	callTimeout time.Duration
	now         func() time.Time
}

func NewDashboardService(callTimeout time.Duration, now func() time.Time) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{
		callTimeout: callTimeout,
		now:         now,
	}
}

// Load fetches the four metric families concurrently and waits for all of them.
// Any single failure fails the whole load; no partial view is produced.
func (s *DashboardService) Load(ctx context.Context, src domain.MetricsSource, dr *domain.DateRange) (*domain.AggregatedView, error) {
	var raw domain.RawMetrics

	g, gctx := errgroup.WithContext(ctx)

	fetch := func(family domain.MetricFamily, rng *domain.DateRange, dst *json.RawMessage) {
		g.Go(func() error {
			body, err := s.fetchOne(gctx, src, family, rng)
			if err != nil {
				return err
			}
			*dst = body
			return nil
		})
	}

	fetch(domain.FamilyActivity, dr, &raw.Activity)
	fetch(domain.FamilyHeart, dr, &raw.Heart)
	fetch(domain.FamilySleep, dr, &raw.Sleep)
	fetch(domain.FamilyProfile, nil, &raw.Profile)

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return BuildView(dr, raw, s.now())
}

func (s *DashboardService) fetchOne(ctx context.Context, src domain.MetricsSource, family domain.MetricFamily, dr *domain.DateRange) (json.RawMessage, error) {
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	body, err := src.Fetch(ctx, family, dr)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrUpstreamFetchFailed) {
			return nil, &domain.UpstreamError{Family: family, Err: err}
		}
		return nil, err
	}
	return body, nil
}
