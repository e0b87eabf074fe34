package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lumarkic/volonterko/internal/model"
	"github.com/lumarkic/volonterko/internal/repository"
	"github.com/lumarkic/volonterko/internal/service"
)

// VolunteerHandler exposes the signup operations available to volunteer
// accounts. Every decision (capacity, conflicts, row reuse, lifecycle)
// is made by the SignupService; this type only shapes requests and
// responses.
type VolunteerHandler struct {
	Signups *service.SignupService
}

func NewVolunteerHandler(signups *service.SignupService) *VolunteerHandler {
	if signups == nil {
		panic("nil service passed to NewVolunteerHandler")
	}
	return &VolunteerHandler{Signups: signups}
}

func signupJSON(s *model.Signup) echo.Map {
	return echo.Map{
		"id":            s.ID,
		"action_id":     s.ActionID,
		"user_id":       s.UserID,
		"status":        s.Status,
		"hours_awarded": s.HoursAwarded,
		"created_at":    s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateSignup handles POST /v1/actions/:id/signup. On a conflict the
// response lists the overlapping signups (earliest start first) so the
// client can show the volunteer what is in the way.
func (h *VolunteerHandler) CreateSignup(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	actionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid action id"})
	}
	ctx := c.Request().Context()

	s, err := h.Signups.Create(ctx, actionID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			resp := echo.Map{"error": "conflict"}
			if overlaps, cerr := h.Signups.Conflicts(ctx, actionID, userID); cerr == nil && len(overlaps) > 0 {
				resp["conflicts"] = overlaps
			}
			return c.JSON(http.StatusConflict, resp)
		}
		if handled, herr := domainError(c, err); handled {
			return herr
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}
	return c.JSON(http.StatusCreated, signupJSON(s))
}

// CancelSignup handles DELETE /v1/actions/:id/signup. Cancelling an
// absent or already-cancelled signup succeeds with no effect.
func (h *VolunteerHandler) CancelSignup(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	actionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid action id"})
	}

	if err := h.Signups.Cancel(c.Request().Context(), actionID, userID); err != nil {
		if handled, herr := domainError(c, err); handled {
			return herr
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// GetMySignup handles GET /v1/actions/:id/signup and returns the caller's
// signup row for the action, whatever its status.
func (h *VolunteerHandler) GetMySignup(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	actionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid action id"})
	}

	s, err := h.Signups.Get(c.Request().Context(), actionID, userID)
	if err != nil {
		if handled, herr := domainError(c, err); handled {
			return herr
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, signupJSON(s))
}

// Conflicts handles GET /v1/actions/:id/conflicts: a dry-run of the
// overlap check, so clients can warn before attempting a signup.
func (h *VolunteerHandler) Conflicts(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	actionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid action id"})
	}

	overlaps, err := h.Signups.Conflicts(c.Request().Context(), actionID, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"conflicts": overlaps})
}

// ListMySignups handles GET /v1/my-signups.
func (h *VolunteerHandler) ListMySignups(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Signups.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"signups": items})
}
