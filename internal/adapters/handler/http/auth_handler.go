package http

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/comitanigiacomo/fitdash/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/fitdash/internal/core/domain"
	"github.com/comitanigiacomo/fitdash/internal/core/services"
)

type AuthHandler struct {
	service *services.SessionService
	cookies CookieOptions
}

func NewAuthHandler(service *services.SessionService, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookies: cookies,
	}
}

type loginResponse struct {
	SessionToken string          `json:"session_token"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Account      *domain.Account `json:"account"`
}

// Login godoc
// @Summary     Start the Fitbit authorization flow
// @Tags        auth
// @Success     302
// @Router      /auth/login [get]
func (h *AuthHandler) Login(c *gin.Context) {
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	h.cookies.setLoginCookies(c, state, verifier)
	c.Redirect(http.StatusFound, h.service.AuthCodeURL(state, verifier))
}

// Callback godoc
// @Summary     Complete the Fitbit authorization flow
// @Tags        auth
// @Produce     json
// @Param       code  query string true "authorization code"
// @Param       state query string true "state echoed by Fitbit"
// @Success     200 {object} loginResponse
// @Failure     400 {object} map[string]string
// @Failure     502 {object} map[string]string
// @Router      /auth/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		h.cookies.clearLoginCookies(c)
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization denied"})
		return
	}

	state, _ := c.Cookie(stateCookieName)
	verifier, _ := c.Cookie(verifierCookieName)
	if state == "" || verifier == "" || subtle.ConstantTimeCompare([]byte(state), []byte(c.Query("state"))) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}

	h.cookies.clearLoginCookies(c)

	result, err := h.service.CompleteLogin(c.Request.Context(), code, verifier)
	if err != nil {
		_ = c.Error(err)
		log.Printf("[SESSION] login failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "login failed"})
		return
	}

	h.cookies.setSessionCookie(c, result.Token, result.ExpiresAt)
	c.JSON(http.StatusOK, loginResponse{
		SessionToken: result.Token,
		ExpiresAt:    result.ExpiresAt,
		Account:      result.Account,
	})
}

// Logout godoc
// @Summary     End the current session
// @Tags        auth
// @Success     204
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.SessionToken(c); token != "" {
		if err := h.service.Logout(c.Request.Context(), token); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
	}

	h.cookies.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

// Me godoc
// @Summary     Account of the logged-in user
// @Tags        auth
// @Produce     json
// @Success     200 {object} domain.Account
// @Failure     401 {object} map[string]string
// @Router      /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	account, err := h.service.Account(c.Request.Context(), sess.ProviderUserID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, requireSession gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.GET("/login", h.Login)
		authGroup.GET("/callback", h.Callback)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/me", requireSession, h.Me)
	}
}
