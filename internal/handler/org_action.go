package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/lumarkic/volonterko/internal/middleware"
	"github.com/lumarkic/volonterko/internal/model"
	"github.com/lumarkic/volonterko/internal/repository"
)

// OrgActionHandler lets an approved organization manage its volunteer
// actions: create drafts, edit, publish, complete, cancel, tag and
// delete. Every method resolves the caller's organization first and
// refuses to touch actions owned by anyone else.
type OrgActionHandler struct {
	Actions     *repository.ActionRepo
	Orgs        *repository.OrganizationRepo
	Tags        *repository.TagRepo
	Rdb         *redis.Client
	CachePrefix string
}

func NewOrgActionHandler(actions *repository.ActionRepo, orgs *repository.OrganizationRepo, tags *repository.TagRepo, rdb *redis.Client, cachePrefix string) *OrgActionHandler {
	if actions == nil || orgs == nil || tags == nil {
		panic("nil repository passed to NewOrgActionHandler")
	}
	return &OrgActionHandler{Actions: actions, Orgs: orgs, Tags: tags, Rdb: rdb, CachePrefix: cachePrefix}
}

// invalidateCatalogue drops the cached public listings after a mutation
// that changes what volunteers can see.
func (h *OrgActionHandler) invalidateCatalogue(ctx context.Context) {
	middleware.InvalidateCache(ctx, h.Rdb, h.CachePrefix)
}

// myOrg loads the caller's APPROVED organization. It writes the error
// response itself and returns nil when the caller cannot manage actions.
func (h *OrgActionHandler) myOrg(c echo.Context) *model.Organization {
	userID, err := getUserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return nil
	}
	org, err := h.Orgs.GetByOwnerUserID(c.Request().Context(), userID)
	if err != nil {
		if err == sql.ErrNoRows {
			_ = c.JSON(http.StatusForbidden, echo.Map{"error": "no organization for this account"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return nil
	}
	if org.Status != model.OrgApproved {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "organization not approved"})
		return nil
	}
	return org
}

// ownedAction loads an action and verifies it belongs to org. Writes the
// error response and returns nil on failure.
func (h *OrgActionHandler) ownedAction(c echo.Context, org *model.Organization) *model.VolunteerAction {
	id, err := pathID(c, "id")
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid action id"})
		return nil
	}
	a, err := h.Actions.GetByID(c.Request().Context(), id)
	if err != nil {
		if handled, _ := domainError(c, err); handled {
			return nil
		}
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		return nil
	}
	if a.OrganizationID != org.ID {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		return nil
	}
	return a
}

type actionReq struct {
	Title              string  `json:"title" validate:"required,max=200"`
	Description        *string `json:"description"`
	City               string  `json:"city" validate:"required,max=100"`
	Address            *string `json:"address"`
	StartsAt           string  `json:"starts_at" validate:"required"`
	EndsAt             string  `json:"ends_at" validate:"required"`
	RequiredVolunteers uint32  `json:"required_volunteers"`
}

// parseWindow validates the action time window: RFC3339 timestamps with
// StartsAt strictly before EndsAt.
func parseWindow(req *actionReq) (start, end time.Time, ok bool) {
	start, err1 := time.Parse(time.RFC3339, req.StartsAt)
	end, err2 := time.Parse(time.RFC3339, req.EndsAt)
	if err1 != nil || err2 != nil || !start.Before(end) {
		return time.Time{}, time.Time{}, false
	}
	return start.UTC(), end.UTC(), true
}

func actionJSON(a *model.VolunteerAction) echo.Map {
	return echo.Map{
		"id":                  a.ID,
		"organization_id":     a.OrganizationID,
		"title":               a.Title,
		"description":         a.Description,
		"city":                a.City,
		"address":             a.Address,
		"starts_at":           a.StartsAt.UTC().Format(time.RFC3339),
		"ends_at":             a.EndsAt.UTC().Format(time.RFC3339),
		"required_volunteers": a.RequiredVolunteers,
		"status":              a.Status,
	}
}

// CreateAction handles POST /v1/org/actions. New actions start as DRAFT
// and stay invisible to volunteers until published.
func (h *OrgActionHandler) CreateAction(c echo.Context) error {
	org := h.myOrg(c)
	if org == nil {
		return nil
	}
	var req actionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	start, end, ok := parseWindow(&req)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339 and before ends_at"})
	}

	a := &model.VolunteerAction{
		OrganizationID:     org.ID,
		Title:              strings.TrimSpace(req.Title),
		Description:        req.Description,
		City:               strings.TrimSpace(req.City),
		Address:            req.Address,
		StartsAt:           start,
		EndsAt:             end,
		RequiredVolunteers: req.RequiredVolunteers,
		Status:             model.ActionDraft,
	}
	if err := h.Actions.Create(c.Request().Context(), a); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, actionJSON(a))
}

// ListMyActions handles GET /v1/org/actions.
func (h *OrgActionHandler) ListMyActions(c echo.Context) error {
	org := h.myOrg(c)
	if org == nil {
		return nil
	}
	actions, err := h.Actions.ListByOrganization(c.Request().Context(), org.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(actions))
	for i := range actions {
		out = append(out, actionJSON(&actions[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"actions": out})
}

// UpdateAction handles PUT /v1/org/actions/:id. Completed and cancelled
// actions are frozen.
func (h *OrgActionHandler) UpdateAction(c echo.Context) error {
	org := h.myOrg(c)
	if org == nil {
		return nil
	}
	a := h.ownedAction(c, org)
	if a == nil {
		return nil
	}
	if a.Status == model.ActionCompleted || a.Status == model.ActionCancelled {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid state"})
	}

	var req actionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	start, end, ok := parseWindow(&req)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339 and before ends_at"})
	}

	a.Title = strings.TrimSpace(req.Title)
	a.Description = req.Description
	a.City = strings.TrimSpace(req.City)
	a.Address = req.Address
	a.StartsAt = start
	a.EndsAt = end
	a.RequiredVolunteers = req.RequiredVolunteers

	if err := h.Actions.Update(c.Request().Context(), a); err != nil && err != repository.ErrNoChange {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.invalidateCatalogue(c.Request().Context())
	return c.JSON(http.StatusOK, actionJSON(a))
}

// actionTransitionAllowed is the lifecycle table for actions: a draft can
// be published or cancelled, a published action can be completed or
// cancelled, and the terminal states are frozen.
func actionTransitionAllowed(from, to string) bool {
	switch to {
	case model.ActionPublished:
		return from == model.ActionDraft
	case model.ActionCompleted:
		return from == model.ActionPublished
	case model.ActionCancelled:
		return from == model.ActionDraft || from == model.ActionPublished
	default:
		return false
	}
}

type actionStatusReq struct {
	Status string `json:"status" validate:"required"`
}

// SetActionStatus handles PATCH /v1/org/actions/:id/status.
func (h *OrgActionHandler) SetActionStatus(c echo.Context) error {
	org := h.myOrg(c)
	if org == nil {
		return nil
	}
	a := h.ownedAction(c, org)
	if a == nil {
		return nil
	}
	var req actionStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if !actionTransitionAllowed(a.Status, status) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid state"})
	}
	if err := h.Actions.SetStatus(c.Request().Context(), a.ID, status); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	a.Status = status
	h.invalidateCatalogue(c.Request().Context())
	return c.JSON(http.StatusOK, actionJSON(a))
}

// DeleteAction handles DELETE /v1/org/actions/:id. An action with any
// signup history cannot be deleted; cancel it instead so the attendance
// record survives.
func (h *OrgActionHandler) DeleteAction(c echo.Context) error {
	org := h.myOrg(c)
	if org == nil {
		return nil
	}
	a := h.ownedAction(c, org)
	if a == nil {
		return nil
	}
	if err := h.Actions.Delete(c.Request().Context(), a.ID); err != nil {
		if handled, herr := domainError(c, err); handled {
			return herr
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	h.invalidateCatalogue(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

type tagsReq struct {
	Tags []string `json:"tags" validate:"max=10,dive,required,max=50"`
}

// SetActionTags handles PUT /v1/org/actions/:id/tags, replacing the
// action's tag set.
func (h *OrgActionHandler) SetActionTags(c echo.Context) error {
	org := h.myOrg(c)
	if org == nil {
		return nil
	}
	a := h.ownedAction(c, org)
	if a == nil {
		return nil
	}
	var req tagsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.Tags.SetForAction(c.Request().Context(), a.ID, req.Tags); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.invalidateCatalogue(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}
