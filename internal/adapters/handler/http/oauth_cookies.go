package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/fitdash/internal/adapters/handler/http/middleware"
)

const (
	stateCookieName    = "fitdash_oauth_state"
	verifierCookieName = "fitdash_oauth_verifier"
	oauthCookiePath    = "/api/v1/auth"
	oauthCookieTTL     = 10 * time.Minute
)

// CookieOptions defines how the session and login cookies are issued.
type CookieOptions struct {
	Secure bool
	Domain string
}

func (o CookieOptions) set(c *gin.Context, name, value, path string, expires time.Time, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   o.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (o CookieOptions) setLoginCookies(c *gin.Context, state, verifier string) {
	expires := time.Now().Add(oauthCookieTTL)
	o.set(c, stateCookieName, state, oauthCookiePath, expires, int(oauthCookieTTL.Seconds()))
	o.set(c, verifierCookieName, verifier, oauthCookiePath, expires, int(oauthCookieTTL.Seconds()))
}

func (o CookieOptions) clearLoginCookies(c *gin.Context) {
	o.set(c, stateCookieName, "", oauthCookiePath, time.Time{}, -1)
	o.set(c, verifierCookieName, "", oauthCookiePath, time.Time{}, -1)
}

func (o CookieOptions) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	o.set(c, middleware.SessionCookieName, token, "/", expiresAt, int(time.Until(expiresAt).Seconds()))
}

func (o CookieOptions) clearSessionCookie(c *gin.Context) {
	o.set(c, middleware.SessionCookieName, "", "/", time.Time{}, -1)
}
