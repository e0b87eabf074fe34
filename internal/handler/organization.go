package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lumarkic/volonterko/internal/model"
	"github.com/lumarkic/volonterko/internal/repository"
)

// OrganizationHandler serves organization self-management: requesting
// registration and maintaining the profile. Approval itself is an admin
// operation.
type OrganizationHandler struct {
	Orgs *repository.OrganizationRepo
}

func NewOrganizationHandler(orgs *repository.OrganizationRepo) *OrganizationHandler {
	if orgs == nil {
		panic("nil repository passed to NewOrganizationHandler")
	}
	return &OrganizationHandler{Orgs: orgs}
}

type orgRequestReq struct {
	Name         string  `json:"name" validate:"required,max=200"`
	City         string  `json:"city" validate:"required,max=100"`
	ContactEmail string  `json:"contact_email" validate:"required,email"`
	Description  *string `json:"description"`
}

type orgProfileReq struct {
	City         string  `json:"city" validate:"required,max=100"`
	ContactEmail string  `json:"contact_email" validate:"required,email"`
	Description  *string `json:"description"`
}

func orgJSON(o *model.Organization) echo.Map {
	return echo.Map{
		"id":            o.ID,
		"name":          o.Name,
		"description":   o.Description,
		"city":          o.City,
		"contact_email": o.ContactEmail,
		"status":        o.Status,
		"created_at":    o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Request handles POST /v1/organizations. A user may own at most one
// organization; repeating the request returns the existing record, so
// the endpoint is idempotent per account.
func (h *OrganizationHandler) Request(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req orgRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ContactEmail = strings.ToLower(strings.TrimSpace(req.ContactEmail))
	if err := c.Validate(&req); err != nil {
		return err
	}

	org, err := h.Orgs.Create(c.Request().Context(), userID,
		strings.TrimSpace(req.Name), strings.TrimSpace(req.City), req.ContactEmail, req.Description)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, orgJSON(org))
}

// Me handles GET /v1/organizations/me.
func (h *OrganizationHandler) Me(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	org, err := h.Orgs.GetByOwnerUserID(c.Request().Context(), userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, orgJSON(org))
}

// UpdateProfile handles PUT /v1/organizations/me. The name is fixed at
// registration; only the contact details can change.
func (h *OrganizationHandler) UpdateProfile(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	org, err := h.Orgs.GetByOwnerUserID(c.Request().Context(), userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var req orgProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ContactEmail = strings.ToLower(strings.TrimSpace(req.ContactEmail))
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.Orgs.UpdateProfile(c.Request().Context(), org.ID,
		strings.TrimSpace(req.City), req.ContactEmail, req.Description); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	org.City = strings.TrimSpace(req.City)
	org.ContactEmail = req.ContactEmail
	org.Description = req.Description
	return c.JSON(http.StatusOK, orgJSON(org))
}
