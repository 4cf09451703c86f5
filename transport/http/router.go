package http

import (
	"github.com/gin-gonic/gin"
	"github.com/zapgate/zapgate/service"
)

// RouterConfig carries the transport-level settings.
type RouterConfig struct {
	PublicURL    string
	CookieSecure bool
}

// SetupRouter sets up the Gin router.
func SetupRouter(authService *service.AuthService, cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService, cfg.PublicURL, cfg.CookieSecure)

	router.GET("/challenge", handlers.Challenge)
	router.POST("/verify-ownership", handlers.VerifyOwnership)
	router.POST("/login", handlers.Login)
	router.GET("/session", handlers.Session)
	router.POST("/logout", handlers.Logout)

	api := router.Group("/api")
	api.Use(SessionMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
	}

	return router
}
