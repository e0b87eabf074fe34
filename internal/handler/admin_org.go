package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lumarkic/volonterko/internal/model"
	"github.com/lumarkic/volonterko/internal/repository"
)

// AdminHandler serves the administrator review queue for organization
// registrations. Approving an organization also grants its owner the
// ORGANIZATION role, in the same transaction, so the two never diverge.
type AdminHandler struct {
	Orgs  *repository.OrganizationRepo
	Users *repository.UserRepo
}

func NewAdminHandler(orgs *repository.OrganizationRepo, users *repository.UserRepo) *AdminHandler {
	if orgs == nil || users == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Orgs: orgs, Users: users}
}

// ListPending handles GET /v1/admin/organizations/pending.
func (h *AdminHandler) ListPending(c echo.Context) error {
	orgs, err := h.Orgs.ListPending(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(orgs))
	for i := range orgs {
		o := &orgs[i]
		out = append(out, echo.Map{
			"id":            o.ID,
			"owner_user_id": o.OwnerUserID,
			"name":          o.Name,
			"description":   o.Description,
			"city":          o.City,
			"contact_email": o.ContactEmail,
			"created_at":    o.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"organizations": out})
}

// Approve handles POST /v1/admin/organizations/:id/approve.
func (h *AdminHandler) Approve(c echo.Context) error {
	return h.decide(c, model.OrgApproved)
}

// Reject handles POST /v1/admin/organizations/:id/reject.
func (h *AdminHandler) Reject(c echo.Context) error {
	return h.decide(c, model.OrgRejected)
}

func (h *AdminHandler) decide(c echo.Context, status string) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organization id"})
	}
	ctx := c.Request().Context()

	org, err := h.Orgs.GetByID(ctx, id)
	if err != nil {
		if handled, herr := domainError(c, err); handled {
			return herr
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if org.Status != model.OrgPending {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid state"})
	}

	tx, err := h.Orgs.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ownerID, err := h.Orgs.SetStatusTx(ctx, tx, id, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if status == model.OrgApproved {
		if err := h.Users.SetRoleTx(ctx, tx, ownerID, model.RoleOrganization); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant role failed"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	org.Status = status
	return c.JSON(http.StatusOK, orgJSON(org))
}
