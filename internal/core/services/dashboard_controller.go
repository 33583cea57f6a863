package services

import (
	"context"
	"sync"
	"time"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

// DashboardController owns the displayed state of one dashboard. A newer Refresh cancels
// the load in flight, and results from a superseded generation are discarded.
type DashboardController struct {
	svc *DashboardService
	src domain.MetricsSource
	now func() time.Time

	mu     sync.Mutex
	state  domain.DashboardState
	cancel context.CancelFunc
}

func NewDashboardController(svc *DashboardService, src domain.MetricsSource, now func() time.Time) *DashboardController {
	if now == nil {
		now = time.Now
	}
	return &DashboardController{
		svc:   svc,
		src:   src,
		now:   now,
		state: domain.DashboardState{Status: domain.StatusIdle},
	}
}

func (c *DashboardController) State() domain.DashboardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Refresh loads the given range and returns the state after the attempt. applied is false
// when a newer Refresh started before this one finished.
func (c *DashboardController) Refresh(ctx context.Context, dr *domain.DateRange) (state domain.DashboardState, applied bool) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.state = c.state.BeginLoad(dr, c.now())
	gen := c.state.Generation
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	view, err := c.svc.Load(loadCtx, c.src, dr)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen == c.state.Generation {
		c.cancel = nil
	}
	cancel()

	if err != nil {
		c.state, applied = c.state.Fail(gen, err, c.now())
	} else {
		c.state, applied = c.state.Complete(gen, view, c.now())
	}
	return c.state, applied
}
