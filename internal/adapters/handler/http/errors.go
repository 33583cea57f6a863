package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrInvalidDate) ||
		errors.Is(err, domain.ErrInvalidRange) ||
		errors.Is(err, domain.ErrStartDateRequired) ||
		errors.Is(err, domain.ErrRangeTooLarge)
}

// respondFetchError maps a gateway or aggregation failure to the public error body.
// Upstream details stay in the log.
func respondFetchError(c *gin.Context, fallback string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		msg := fallback
		var upErr *domain.UpstreamError
		if errors.As(err, &upErr) {
			msg = upErr.Family.FailureMessage()
		}
		_ = c.Error(err)
		log.Printf("[HTTP] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
