package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/fitdash/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/fitdash/internal/core/domain"
	"github.com/comitanigiacomo/fitdash/internal/core/services"
)

type MetricsHandler struct {
	svc *services.MetricsService
}

func NewMetricsHandler(svc *services.MetricsService) *MetricsHandler {
	return &MetricsHandler{svc: svc}
}

func (h *MetricsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/metrics/:family", h.GetMetrics)
}

// GetMetrics godoc
// @Summary     Relay one metric family from Fitbit
// @Tags        metrics
// @Produce     json
// @Param       family    path  string true  "activity, heart, sleep or profile"
// @Param       startDate query string false "YYYY-MM-DD"
// @Param       endDate   query string false "YYYY-MM-DD, requires startDate"
// @Success     200 {object} object
// @Failure     400 {object} map[string]string
// @Failure     401 {object} map[string]string
// @Failure     500 {object} map[string]string
// @Router      /metrics/{family} [get]
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	family, err := domain.ParseMetricFamily(c.Param("family"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown metric family"})
		return
	}

	sess, _ := middleware.GetSession(c)

	q := services.MetricsQuery{
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	}

	body, err := h.svc.Fetch(c.Request.Context(), sess, family, q)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownFamily) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown metric family"})
			return
		}
		respondFetchError(c, family.FailureMessage(), err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
