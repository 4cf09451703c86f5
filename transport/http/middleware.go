package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zapgate/zapgate/service"
)

const sessionContextKey = "session"

// SessionMiddleware validates the session cookie and stores the session in
// the request context.
func SessionMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		session, err := authService.Session(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}
