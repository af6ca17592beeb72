package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/realtime-chat/internal/cache"      // revocation cache for protected routes
	"github.com/iliyamo/realtime-chat/internal/config"     // rate limit configuration
	"github.com/iliyamo/realtime-chat/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/realtime-chat/internal/middleware" // middleware for JWT authentication and rate limiting
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints and their middleware.
// Unauthenticated operations live under /v1/auth; the credential endpoints
// additionally sit behind the Redis rate limiter.  Protected endpoints live
// under /v1 behind the JWT middleware, which also consults the revocation
// cache so a logged-out token cannot be replayed.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, sessions cache.SessionStore, rdb *redis.Client, jwtSecret string) {
	limiter := middleware.NewFixedWindow(config.LoadRateLimitConfig(), rdb)

	// Credential endpoints: registration and login issue or gate secrets,
	// so they get the brute-force limiter.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, limiter)
	g.POST("/login", a.Login, limiter)
	// Logout authenticates via the Bearer token inside the handler itself.
	g.POST("/logout", a.Logout)

	// Protected endpoints require a structurally valid, non-revoked token.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret, sessions))
	auth.GET("/me", a.Me)
}

// RegisterChat registers the realtime endpoints: the websocket upgrade and
// the persisted-history read.  The websocket route carries no HTTP
// middleware because authentication happens in-band on the first frame.
func RegisterChat(e *echo.Echo, ws *handler.WSHandler, ch *handler.ChatHandler, sessions cache.SessionStore, jwtSecret string) {
	e.GET("/ws", ws.Chat)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret, sessions))
	auth.GET("/chat/history", ch.History)
}
