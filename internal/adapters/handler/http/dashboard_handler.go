package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/fitdash/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/fitdash/internal/core/services"
)

type DashboardHandler struct {
	metrics   *services.MetricsService
	dashboard *services.DashboardService
}

func NewDashboardHandler(metrics *services.MetricsService, dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		metrics:   metrics,
		dashboard: dashboard,
	}
}

func (h *DashboardHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.GetDashboard)
}

// GetDashboard godoc
// @Summary     Aggregated dashboard for a day or a period
// @Tags        dashboard
// @Produce     json
// @Param       startDate query string false "YYYY-MM-DD, defaults to today"
// @Param       endDate   query string false "YYYY-MM-DD, requires startDate"
// @Success     200 {object} domain.AggregatedView
// @Failure     400 {object} map[string]string
// @Failure     401 {object} map[string]string
// @Failure     500 {object} map[string]string
// @Router      /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	dr, err := h.metrics.ResolveRange(services.MetricsQuery{
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.dashboard.Load(c.Request.Context(), h.metrics.ForSession(sess), &dr)
	if err != nil {
		respondFetchError(c, "Failed to load dashboard", err)
		return
	}

	c.JSON(http.StatusOK, view)
}
