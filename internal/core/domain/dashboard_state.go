package domain

import "time"

type LoadStatus string

const (
	StatusIdle      LoadStatus = "idle"
	StatusLoading   LoadStatus = "loading"
	StatusReady     LoadStatus = "ready"
	StatusMustLogin LoadStatus = "must_login"
	StatusFailed    LoadStatus = "failed"
)

// DashboardState is an immutable snapshot. Every transition returns a new value;
// results from a generation other than the current one are rejected.
type DashboardState struct {
	Generation uint64
	Status     LoadStatus
	Range      *DateRange
	View       *AggregatedView
	Err        error
	UpdatedAt  time.Time
}

func (s DashboardState) BeginLoad(dr *DateRange, now time.Time) DashboardState {
	next := s
	next.Generation = s.Generation + 1
	next.Status = StatusLoading
	next.Range = dr
	next.Err = nil
	next.UpdatedAt = now
	return next
}

func (s DashboardState) Complete(gen uint64, view *AggregatedView, now time.Time) (DashboardState, bool) {
	if gen != s.Generation {
		return s, false
	}
	next := s
	next.Status = StatusReady
	next.View = view
	next.Err = nil
	next.UpdatedAt = now
	return next, true
}

func (s DashboardState) Fail(gen uint64, err error, now time.Time) (DashboardState, bool) {
	if gen != s.Generation {
		return s, false
	}
	next := s
	next.Status = StatusFailed
	if isUnauthorized(err) {
		next.Status = StatusMustLogin
		next.View = nil
	}
	next.Err = err
	next.UpdatedAt = now
	return next, true
}

func (s DashboardState) Loading() bool {
	return s.Status == StatusLoading
}
