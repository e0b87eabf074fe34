package router

import (
	"github.com/labstack/echo/v4"

	"github.com/lumarkic/volonterko/internal/handler"
	"github.com/lumarkic/volonterko/internal/middleware"
)

// RegisterVolunteer registers the signup endpoints under /v1. They
// require a valid JWT with the VOLUNTEER role; the rate limiter guards
// the mutating routes against signup hammering. Organization requests
// are registered here too because a volunteer account is what submits
// one.
func RegisterVolunteer(e *echo.Echo, v *handler.VolunteerHandler, o *handler.OrganizationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("VOLUNTEER"),
	)

	g.POST("/actions/:id/signup", v.CreateSignup, limiter)
	g.DELETE("/actions/:id/signup", v.CancelSignup, limiter)
	g.GET("/actions/:id/signup", v.GetMySignup)
	g.GET("/actions/:id/conflicts", v.Conflicts)
	g.GET("/my-signups", v.ListMySignups)

	g.POST("/organizations", o.Request, limiter)

	// Any authenticated account may inspect its own organization record,
	// including one still PENDING or already APPROVED.
	me := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	me.GET("/organizations/me", o.Me)
}
