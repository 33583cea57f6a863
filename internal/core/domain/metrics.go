package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUpstreamFetchFailed = errors.New("upstream fetch failed")
	ErrUnknownFamily       = errors.New("unknown metric family")
)

type MetricFamily string

const (
	FamilyActivity MetricFamily = "activity"
	FamilyHeart    MetricFamily = "heart"
	FamilySleep    MetricFamily = "sleep"
	FamilyProfile  MetricFamily = "profile"
)

var AllFamilies = []MetricFamily{FamilyActivity, FamilyHeart, FamilySleep, FamilyProfile}

func ParseMetricFamily(s string) (MetricFamily, error) {
	switch MetricFamily(s) {
	case FamilyActivity, FamilyHeart, FamilySleep, FamilyProfile:
		return MetricFamily(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFamily, s)
}

// Dated reports whether the family accepts a date or date range.
func (f MetricFamily) Dated() bool {
	return f != FamilyProfile
}

// MaxRangeDays is the longest inclusive range the upstream API accepts for the family.
func (f MetricFamily) MaxRangeDays() int {
	if f == FamilySleep {
		return 100
	}
	return 366
}

// FailureMessage is the generic message relayed to callers when the upstream call fails.
func (f MetricFamily) FailureMessage() string {
	switch f {
	case FamilyActivity:
		return "Failed to fetch activity data"
	case FamilyHeart:
		return "Failed to fetch heart rate data"
	case FamilySleep:
		return "Failed to fetch sleep data"
	case FamilyProfile:
		return "Failed to fetch profile data"
	}
	return "Failed to fetch data"
}

// UpstreamRequest describes exactly one call to the fitness provider.
// Range is nil for the profile family.
type UpstreamRequest struct {
	Family MetricFamily
	Range  *DateRange
}

type UpstreamError struct {
	Family     MetricFamily
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s: status %d", e.Family, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s: %v", e.Family, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamFetchFailed
}

// UpstreamClient performs authenticated calls against the fitness provider.
type UpstreamClient interface {
	Fetch(ctx context.Context, sess *Session, req UpstreamRequest) (json.RawMessage, error)
}

// MetricsSource is what the aggregation engine reads from. It is satisfied both by the
// in-process gateway and by the HTTP gateway client.
type MetricsSource interface {
	Fetch(ctx context.Context, family MetricFamily, dr *DateRange) (json.RawMessage, error)
}

func isUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
