package router

import (
	"github.com/labstack/echo/v4"

	"github.com/lumarkic/volonterko/internal/handler"
	"github.com/lumarkic/volonterko/internal/middleware"
)

// RegisterAdmin registers the ADMIN-only organization review queue.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	g.GET("/organizations/pending", h.ListPending)
	g.POST("/organizations/:id/approve", h.Approve)
	g.POST("/organizations/:id/reject", h.Reject)
}
