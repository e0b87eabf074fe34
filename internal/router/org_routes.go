package router

import (
	"github.com/labstack/echo/v4"

	"github.com/lumarkic/volonterko/internal/handler"
	"github.com/lumarkic/volonterko/internal/middleware"
)

// RegisterOrganization registers ORGANIZATION-scoped endpoints under
// /v1/org: action management and signup review.
func RegisterOrganization(e *echo.Echo, a *handler.OrgActionHandler, s *handler.OrgSignupHandler, o *handler.OrganizationHandler, jwtSecret string) {
	g := e.Group(
		"/v1/org",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ORGANIZATION"),
	)

	// ---- Actions ----
	g.POST("/actions", a.CreateAction)
	g.GET("/actions", a.ListMyActions)
	g.PUT("/actions/:id", a.UpdateAction)
	g.PATCH("/actions/:id/status", a.SetActionStatus)
	g.PUT("/actions/:id/tags", a.SetActionTags)
	g.DELETE("/actions/:id", a.DeleteAction)

	// ---- Signups ----
	g.GET("/actions/:id/signups", s.ListActionSignups)
	g.PATCH("/signups/:id/status", s.SetSignupStatus)
	g.POST("/signups/:id/attendance", s.RecordAttendance)

	// ---- Profile ----
	g.PUT("/profile", o.UpdateProfile)
}
