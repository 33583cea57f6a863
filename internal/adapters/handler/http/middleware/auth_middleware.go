package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

const (
	authorizationHeader = "Authorization"
	authorizationType   = "Bearer"
	SessionCookieName   = "fitdash_session"
	ContextSessionKey   = "session"
	ContextTokenKey     = "sessionToken"
)

// SessionResolver turns a signed session token into the live session.
type SessionResolver interface {
	Current(ctx context.Context, token string) (*domain.Session, error)
}

func AuthMiddleware(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		sess, err := sessions.Current(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			log.Printf("[SESSION] lookup failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(ContextSessionKey, sess)
		c.Set(ContextTokenKey, token)

		c.Next()
	}
}

// SessionToken prefers an explicit bearer header and falls back to the session cookie,
// so a stale browser cookie never shadows the credential an API client sent.
func SessionToken(c *gin.Context) string {
	fields := strings.Fields(c.GetHeader(authorizationHeader))
	if len(fields) == 2 && strings.EqualFold(fields[0], authorizationType) {
		return fields[1]
	}

	if v, err := c.Cookie(SessionCookieName); err == nil && v != "" {
		return v
	}
	return ""
}

func GetSession(c *gin.Context) (*domain.Session, bool) {
	v, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, false
	}
	sess, ok := v.(*domain.Session)
	return sess, ok && sess != nil
}
