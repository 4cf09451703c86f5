package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zapgate/zapgate/core"
	"github.com/zapgate/zapgate/service"
)

// CookieName is the session cookie.
const CookieName = "auth-token"

// CookieMaxAge matches the session token lifetime.
const CookieMaxAge = 24 * time.Hour

// AuthHandlers contains HTTP handlers for the auth endpoints.
type AuthHandlers struct {
	authService  *service.AuthService
	publicURL    string
	cookieSecure bool
}

// NewAuthHandlers creates new auth handlers. publicURL is the externally
// visible base URL used to reconstruct the full request URL on the inline
// path.
func NewAuthHandlers(authService *service.AuthService, publicURL string, cookieSecure bool) *AuthHandlers {
	return &AuthHandlers{
		authService:  authService,
		publicURL:    publicURL,
		cookieSecure: cookieSecure,
	}
}

// Challenge issues a fresh challenge and the unsigned event template the
// client must get signed.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	challenge, template, err := h.authService.IssueChallenge(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge":     challenge.Value,
		"expiresIn":     int(challenge.ExpiresAt.Sub(challenge.IssuedAt).Seconds()),
		"eventTemplate": template,
	})
}

// VerifyOwnership validates a signed event and sets the session cookie.
func (h *AuthHandlers) VerifyOwnership(c *gin.Context) {
	var req struct {
		SignedEvent *core.Event `json:"signedEvent" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(core.KindMalformedEvent), "hint": "request body must carry a signedEvent"})
		return
	}

	token, session, err := h.authService.VerifyOwnership(c.Request.Context(), req.SignedEvent)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"pubkey":     session.Subject,
			"authMethod": session.AuthMethod,
		},
	})
}

// Login is the inline path: a same-process-signed HTTP auth event in the
// Authorization header, bound to this exact URL and method.
func (h *AuthHandlers) Login(c *gin.Context) {
	requestURL := h.publicURL + c.Request.URL.RequestURI()
	token, session, err := h.authService.InlineLogin(
		c.Request.Context(),
		c.GetHeader("Authorization"),
		requestURL,
		c.Request.Method,
		service.DefaultInlineMaxAge,
	)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"pubkey":     session.Subject,
			"authMethod": session.AuthMethod,
		},
	})
}

// Session reports the current session. An absent or invalid token is a
// normal authenticated:false response, never a 5xx.
func (h *AuthHandlers) Session(c *gin.Context) {
	token, err := c.Cookie(CookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	session, err := h.authService.Session(token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated":      true,
		"pubkey":             session.Subject,
		"isExternalIdentity": session.AuthMethod != core.AuthMethodExtension,
	})
}

// Logout clears the session cookie and publishes the logout event.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if token, err := c.Cookie(CookieName); err == nil && token != "" {
		h.authService.Logout(c.Request.Context(), token)
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the authenticated user. The session middleware has already
// validated the cookie.
func (h *AuthHandlers) Me(c *gin.Context) {
	session, exists := c.Get(sessionContextKey)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	s := session.(*core.Session)
	c.JSON(http.StatusOK, gin.H{
		"pubkey":     s.Subject,
		"authMethod": s.AuthMethod,
	})
}

func (h *AuthHandlers) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(CookieMaxAge.Seconds()), "/", "", h.cookieSecure, true)
}

func (h *AuthHandlers) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", h.cookieSecure, true)
}

// writeAuthError maps verification failure kinds to structured 4xx
// responses with a machine-readable kind and a human-readable hint.
func writeAuthError(c *gin.Context, err error) {
	kind := core.KindOf(err)
	status := http.StatusBadRequest

	switch kind {
	case core.KindInvalidSignature, core.KindChallengeExpired,
		core.KindChallengeAlreadyUsed, core.KindClockSkew:
		status = http.StatusUnauthorized
	case core.KindMalformedEvent, core.KindIDMismatch,
		core.KindChallengeNotFound, core.KindUnknownMethod,
		core.KindInsecureBunkerURI, core.KindNoPendingFlow:
		status = http.StatusBadRequest
	case "":
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	var hint string
	var verr *core.Error
	if errors.As(err, &verr) {
		hint = verr.Hint
	}

	c.JSON(status, gin.H{"error": string(kind), "hint": hint})
}
