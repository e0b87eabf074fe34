package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lumarkic/volonterko/internal/model"
	"github.com/lumarkic/volonterko/internal/queue"
	"github.com/lumarkic/volonterko/internal/repository"
	"github.com/lumarkic/volonterko/internal/service"
)

// OrgSignupHandler serves the organization side of signups: reviewing
// applicants, accepting or rejecting them, and recording attendance
// after the action ends.
type OrgSignupHandler struct {
	Service *service.SignupService
	Signups *repository.SignupRepo
	Actions *repository.ActionRepo
	Orgs    *repository.OrganizationRepo
}

func NewOrgSignupHandler(svc *service.SignupService, signups *repository.SignupRepo, actions *repository.ActionRepo, orgs *repository.OrganizationRepo) *OrgSignupHandler {
	if svc == nil || signups == nil || actions == nil || orgs == nil {
		panic("nil dependency passed to NewOrgSignupHandler")
	}
	return &OrgSignupHandler{Service: svc, Signups: signups, Actions: actions, Orgs: orgs}
}

// resolveOwnedSignup loads the signup addressed by :id together with its
// action, and verifies the action belongs to the caller's organization.
// It writes the error response itself; a nil action means stop.
func (h *OrgSignupHandler) resolveOwnedSignup(c echo.Context) (*model.Signup, *model.VolunteerAction, *model.Organization) {
	userID, err := getUserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return nil, nil, nil
	}
	signupID, err := pathID(c, "id")
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signup id"})
		return nil, nil, nil
	}
	ctx := c.Request().Context()

	s, _, err := h.Signups.GetWithActionEnd(ctx, signupID)
	if err != nil {
		if handled, _ := domainError(c, err); handled {
			return nil, nil, nil
		}
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		return nil, nil, nil
	}
	a, err := h.Actions.GetByID(ctx, s.ActionID)
	if err != nil {
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		return nil, nil, nil
	}
	org, err := h.Orgs.GetByID(ctx, a.OrganizationID)
	if err != nil {
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		return nil, nil, nil
	}
	if org.OwnerUserID != userID {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		return nil, nil, nil
	}
	return s, a, org
}

// ListActionSignups handles GET /v1/org/actions/:id/signups.
func (h *OrgSignupHandler) ListActionSignups(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	actionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid action id"})
	}
	ctx := c.Request().Context()

	a, err := h.Actions.GetByID(ctx, actionID)
	if err != nil {
		if handled, herr := domainError(c, err); handled {
			return herr
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	org, err := h.Orgs.GetByID(ctx, a.OrganizationID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if org.OwnerUserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	items, err := h.Service.ListForAction(ctx, actionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"signups": items})
}

type signupStatusReq struct {
	Status string `json:"status" validate:"required"`
}

// SetSignupStatus handles PATCH /v1/org/signups/:id/status with one of
// ACCEPTED, REJECTED or NO_SHOW. The transition table in the service
// rejects anything else.
func (h *OrgSignupHandler) SetSignupStatus(c echo.Context) error {
	s, _, _ := h.resolveOwnedSignup(c)
	if s == nil {
		return nil
	}
	var req signupStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	switch status {
	case model.SignupAccepted, model.SignupRejected, model.SignupNoShow:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be ACCEPTED, REJECTED or NO_SHOW"})
	}

	if err := h.Service.SetStatus(c.Request().Context(), s.ID, status); err != nil {
		if handled, herr := domainError(c, err); handled {
			return herr
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	s.Status = status
	return c.JSON(http.StatusOK, signupJSON(s))
}

type attendanceReq struct {
	Hours float64 `json:"hours" validate:"required,gt=0,lte=24"`
}

// RecordAttendance handles POST /v1/org/signups/:id/attendance. On
// success an audit event is published to the broker; a broker outage is
// tolerated because the attendance row is already committed.
func (h *OrgSignupHandler) RecordAttendance(c echo.Context) error {
	s, a, org := h.resolveOwnedSignup(c)
	if s == nil {
		return nil
	}
	var req attendanceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	updated, err := h.Service.MarkAttended(c.Request().Context(), s.ID, req.Hours)
	if err != nil {
		if handled, herr := domainError(c, err); handled {
			return herr
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	ev := queue.SignupAttendedEvent{
		SignupID:         updated.ID,
		UserID:           updated.UserID,
		ActionID:         a.ID,
		ActionTitle:      a.Title,
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		HoursAwarded:     req.Hours,
		RecordedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue.PublishSignupAttended(ctx, ev)
	}()

	return c.JSON(http.StatusOK, signupJSON(updated))
}
