// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/lumarkic/volonterko/internal/handler"
	"github.com/lumarkic/volonterko/internal/middleware"
)

// RegisterRoutes registers routes that carry no authentication at all.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints. Register, login, refresh
// and logout live under /v1/auth and need no session; /v1/me requires a
// valid access token regardless of role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	// Authenticated logout revokes every session for the user.
	auth.POST("/logout", a.Logout)
}

// RegisterPublic registers the guest-visible action catalogue. The cache
// middleware is applied here only, so authenticated responses are never
// cached.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", cache)
	g.GET("/actions", p.ListActions)
	g.GET("/actions/:id", p.GetAction)
	g.GET("/tags", p.ListTags)
}
