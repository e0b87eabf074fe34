package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lumarkic/volonterko/internal/model"
	"github.com/lumarkic/volonterko/internal/repository"
)

// PublicHandler serves the unauthenticated action catalogue: search,
// detail pages and the tag list. Only PUBLISHED actions are visible here.
type PublicHandler struct {
	Actions *repository.ActionRepo
	Signups *repository.SignupRepo
	Orgs    *repository.OrganizationRepo
	Tags    *repository.TagRepo
}

func NewPublicHandler(actions *repository.ActionRepo, signups *repository.SignupRepo, orgs *repository.OrganizationRepo, tags *repository.TagRepo) *PublicHandler {
	if actions == nil || signups == nil || orgs == nil || tags == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Actions: actions, Signups: signups, Orgs: orgs, Tags: tags}
}

// ListActions handles GET /v1/actions. Supported query parameters:
// title, city, tag (all substring/equality filters), time
// (upcoming|active|any), page and page_size.
func (h *PublicHandler) ListActions(c echo.Context) error {
	q := repository.ActionSearchQuery{
		Title:      strings.TrimSpace(c.QueryParam("title")),
		City:       strings.TrimSpace(c.QueryParam("city")),
		Tag:        strings.TrimSpace(c.QueryParam("tag")),
		TimeFilter: strings.ToLower(strings.TrimSpace(c.QueryParam("time"))),
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if q.PageSize > 100 {
		q.PageSize = 100
	}

	items, total, err := h.Actions.Search(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"actions": items,
		"total":   total,
	})
}

// GetAction handles GET /v1/actions/:id. Draft and cancelled actions are
// hidden from the public as if they did not exist.
func (h *PublicHandler) GetAction(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid action id"})
	}
	ctx := c.Request().Context()

	a, err := h.Actions.GetByID(ctx, id)
	if err != nil {
		if handled, herr := domainError(c, err); handled {
			return herr
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if a.Status != model.ActionPublished && a.Status != model.ActionCompleted {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "action not found"})
	}

	org, err := h.Orgs.GetByID(ctx, a.OrganizationID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	taken, err := h.Signups.CountActive(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	tags, err := h.Tags.ForAction(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	tagNames := make([]string, 0, len(tags))
	for _, t := range tags {
		tagNames = append(tagNames, t.Name)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":                  a.ID,
		"title":               a.Title,
		"description":         a.Description,
		"city":                a.City,
		"address":             a.Address,
		"starts_at":           a.StartsAt.UTC().Format(time.RFC3339),
		"ends_at":             a.EndsAt.UTC().Format(time.RFC3339),
		"required_volunteers": a.RequiredVolunteers,
		"taken_slots":         taken,
		"status":              a.Status,
		"tags":                tagNames,
		"organization": echo.Map{
			"id":   org.ID,
			"name": org.Name,
			"city": org.City,
		},
	})
}

// ListTags handles GET /v1/tags.
func (h *PublicHandler) ListTags(c echo.Context) error {
	tags, err := h.Tags.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(tags))
	for _, t := range tags {
		out = append(out, echo.Map{"id": t.ID, "name": t.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"tags": out})
}
