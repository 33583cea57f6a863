package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

type MetricsService struct {
	upstream domain.UpstreamClient
	location *time.Location
	now      func() time.Time
}

// NewMetricsService builds the gateway. location decides which calendar day "today" is
// when a request carries no dates; now may be nil to use the wall clock.
func NewMetricsService(upstream domain.UpstreamClient, location *time.Location, now func() time.Time) *MetricsService {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &MetricsService{
		upstream: upstream,
		location: location,
		now:      now,
	}
}

type MetricsQuery struct {
	StartDate string
	EndDate   string
}

func QueryFromRange(dr *domain.DateRange) MetricsQuery {
	if dr == nil {
		return MetricsQuery{}
	}
	q := MetricsQuery{StartDate: dr.StartString()}
	if !dr.IsSingleDay() {
		q.EndDate = dr.EndString()
	}
	return q
}

func (s *MetricsService) Today() time.Time {
	return s.now().In(s.location)
}

func (s *MetricsService) BuildRequest(family domain.MetricFamily, q MetricsQuery) (domain.UpstreamRequest, error) {
	req := domain.UpstreamRequest{Family: family}
	if !family.Dated() {
		return req, nil
	}

	dr, err := domain.ResolveDateRange(q.StartDate, q.EndDate, s.Today())
	if err != nil {
		return req, err
	}
	if err := dr.ValidateFor(family); err != nil {
		return req, err
	}

	req.Range = &dr
	return req, nil
}

// ResolveRange resolves the dates of a dashboard load. The range must be acceptable to every
// dated family, since all of them are fetched together.
func (s *MetricsService) ResolveRange(q MetricsQuery) (domain.DateRange, error) {
	dr, err := domain.ResolveDateRange(q.StartDate, q.EndDate, s.Today())
	if err != nil {
		return domain.DateRange{}, err
	}
	if err := dr.ValidateForAll(); err != nil {
		return domain.DateRange{}, err
	}
	return dr, nil
}

func (s *MetricsService) Fetch(ctx context.Context, sess *domain.Session, family domain.MetricFamily, q MetricsQuery) (json.RawMessage, error) {
	if sess == nil || sess.AccessToken == "" {
		return nil, domain.ErrUnauthorized
	}

	req, err := s.BuildRequest(family, q)
	if err != nil {
		return nil, err
	}

	body, err := s.upstream.Fetch(ctx, sess, req)
	if err != nil {
		var upErr *domain.UpstreamError
		if !errors.As(err, &upErr) {
			err = &domain.UpstreamError{Family: family, Err: err}
		}
		log.Printf("[GATEWAY] %s fetch failed for user %s: %v", family, sess.ProviderUserID, err)
		return nil, err
	}

	return body, nil
}

// ForSession binds the gateway to one session so the aggregation engine can read from it in-process.
func (s *MetricsService) ForSession(sess *domain.Session) *SessionMetricsSource {
	return &SessionMetricsSource{svc: s, sess: sess}
}

type SessionMetricsSource struct {
	svc  *MetricsService
	sess *domain.Session
}

var _ domain.MetricsSource = (*SessionMetricsSource)(nil)

func (src *SessionMetricsSource) Fetch(ctx context.Context, family domain.MetricFamily, dr *domain.DateRange) (json.RawMessage, error) {
	return src.svc.Fetch(ctx, src.sess, family, QueryFromRange(dr))
}
