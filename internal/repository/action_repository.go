// Package repository contains data access for volunteer actions.  A
// VolunteerAction is the time-windowed, capacity-limited resource that
// signups are made against.  All timestamps are stored and compared in UTC.
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lumarkic/volonterko/internal/model"
)

// ActionRepo manages persistence for volunteer actions.
type ActionRepo struct {
	db *sql.DB
}

// NewActionRepo constructs an ActionRepo with the given DB handle.
func NewActionRepo(db *sql.DB) *ActionRepo { return &ActionRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *ActionRepo) DB() *sql.DB { return r.db }

const actionColumns = `id, organization_id, title, description, city, address,
	starts_at, ends_at, required_volunteers, status, created_at, updated_at`

func scanAction(scan func(dest ...any) error) (*model.VolunteerAction, error) {
	var a model.VolunteerAction
	var desc, addr sql.NullString
	err := scan(&a.ID, &a.OrganizationID, &a.Title, &desc, &a.City, &addr,
		&a.StartsAt, &a.EndsAt, &a.RequiredVolunteers, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		a.Description = &d
	}
	if addr.Valid {
		ad := addr.String
		a.Address = &ad
	}
	return &a, nil
}

// Create inserts a new action in DRAFT status and populates the generated
// ID and DB-default fields on the given struct.
func (r *ActionRepo) Create(ctx context.Context, a *model.VolunteerAction) error {
	const q = `INSERT INTO volunteer_actions
	           (organization_id, title, description, city, address, starts_at, ends_at, required_volunteers)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, a.OrganizationID, a.Title, a.Description, a.City, a.Address,
		a.StartsAt.UTC(), a.EndsAt.UTC(), a.RequiredVolunteers)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	got, err := r.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	*a = *got
	return nil
}

// GetByID retrieves an action by its ID.  It returns ErrActionNotFound when
// there is no matching row.
func (r *ActionRepo) GetByID(ctx context.Context, id uint64) (*model.VolunteerAction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+actionColumns+" FROM volunteer_actions WHERE id = ?", id)
	a, err := scanAction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrActionNotFound
	}
	return a, err
}

// LockTx loads an action inside the caller's transaction with a row lock
// (SELECT ... FOR UPDATE).  The signup engine takes this lock before
// counting active signups so that concurrent signup attempts for the same
// action serialize on the action row and cannot jointly overshoot the
// capacity.  Returns ErrActionNotFound when no row exists.
func (r *ActionRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.VolunteerAction, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+actionColumns+" FROM volunteer_actions WHERE id = ? FOR UPDATE", id)
	a, err := scanAction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrActionNotFound
	}
	return a, err
}

// ListByOrganization returns all actions belonging to an organization,
// newest start time first.
func (r *ActionRepo) ListByOrganization(ctx context.Context, organizationID uint64) ([]model.VolunteerAction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+actionColumns+" FROM volunteer_actions WHERE organization_id = ? ORDER BY starts_at DESC",
		organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.VolunteerAction, 0)
	for rows.Next() {
		a, err := scanAction(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Update rewrites the editable fields of an action.  Returns
// ErrActionNotFound when the row does not exist and ErrNoChange when the
// update matched a row but changed nothing.
func (r *ActionRepo) Update(ctx context.Context, a *model.VolunteerAction) error {
	const q = `UPDATE volunteer_actions
	           SET title = ?, description = ?, city = ?, address = ?,
	               starts_at = ?, ends_at = ?, required_volunteers = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, a.Title, a.Description, a.City, a.Address,
		a.StartsAt.UTC(), a.EndsAt.UTC(), a.RequiredVolunteers, a.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx,
			"SELECT 1 FROM volunteer_actions WHERE id = ?", a.ID).Scan(&one); err == sql.ErrNoRows {
			return ErrActionNotFound
		} else if err != nil {
			return err
		}
		return ErrNoChange
	}
	return nil
}

// SetStatus updates the lifecycle status of an action.
func (r *ActionRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE volunteer_actions SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx,
			"SELECT 1 FROM volunteer_actions WHERE id = ?", id).Scan(&one); err == sql.ErrNoRows {
			return ErrActionNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an action.  Deletion is blocked entirely while any signup
// of any status exists against the action, preserving attendance history;
// in that case ErrConflict is returned.  Deleting a missing action is a
// no-op success.
func (r *ActionRepo) Delete(ctx context.Context, id uint64) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM signups WHERE action_id = ? LIMIT 1", id).Scan(&one)
	if err == nil {
		return ErrConflict
	}
	if err != sql.ErrNoRows {
		return err
	}
	_, err = r.db.ExecContext(ctx, "DELETE FROM volunteer_actions WHERE id = ?", id)
	return err
}

// ActionSearchQuery carries the optional filters for the public browse
// endpoint.  TimeFilter: "upcoming" (default, starts_at >= NOW()),
// "active" (ends_at >= NOW()) or "any".
type ActionSearchQuery struct {
	Title      string
	City       string
	Tag        string
	TimeFilter string
	Page       int
	PageSize   int
}

// ActionListItem is the public projection of an action, including the
// owning organization's name and the number of occupied capacity slots.
type ActionListItem struct {
	ID                 uint64  `json:"id"`
	Title              string  `json:"title"`
	City               string  `json:"city"`
	Address            *string `json:"address,omitempty"`
	StartsAt           string  `json:"starts_at"`
	EndsAt             string  `json:"ends_at"`
	RequiredVolunteers uint32  `json:"required_volunteers"`
	TakenSlots         uint32  `json:"taken_slots"`
	OrganizationID     uint64  `json:"organization_id"`
	OrganizationName   string  `json:"organization_name"`
}

// Search returns PUBLISHED actions matching the query plus a total count
// for pagination.  The slot count uses the same rule as the capacity
// enforcer: every signup that is neither CANCELLED nor REJECTED occupies
// a slot.
func (r *ActionRepo) Search(ctx context.Context, q ActionSearchQuery) ([]ActionListItem, int, error) {
	where := []string{"a.status = 'PUBLISHED'"}
	args := []any{}
	if q.Title != "" {
		where = append(where, "a.title LIKE ?")
		args = append(args, "%"+q.Title+"%")
	}
	if q.City != "" {
		where = append(where, "a.city LIKE ?")
		args = append(args, "%"+q.City+"%")
	}
	if q.Tag != "" {
		where = append(where, `EXISTS (SELECT 1 FROM action_tags at
		  JOIN tags t ON t.id = at.tag_id
		  WHERE at.action_id = a.id AND t.name = ?)`)
		args = append(args, q.Tag)
	}
	switch q.TimeFilter {
	case "any":
	case "active":
		where = append(where, "a.ends_at >= UTC_TIMESTAMP()")
	default: // upcoming
		where = append(where, "a.starts_at >= UTC_TIMESTAMP()")
	}
	cond := strings.Join(where, " AND ")

	var total int
	countQ := "SELECT COUNT(*) FROM volunteer_actions a WHERE " + cond
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 {
		size = 20
	}
	listQ := `SELECT a.id, a.title, a.city, a.address, a.starts_at, a.ends_at, a.required_volunteers,
	                 (SELECT COUNT(*) FROM signups s
	                  WHERE s.action_id = a.id AND s.status NOT IN ('CANCELLED','REJECTED')),
	                 o.id, o.name
	          FROM volunteer_actions a
	          JOIN organizations o ON o.id = a.organization_id
	          WHERE ` + cond + `
	          ORDER BY a.starts_at ASC
	          LIMIT ? OFFSET ?`
	listArgs := append(append([]any{}, args...), size, (page-1)*size)
	rows, err := r.db.QueryContext(ctx, listQ, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]ActionListItem, 0)
	for rows.Next() {
		var it ActionListItem
		var addr sql.NullString
		var starts, ends time.Time
		if err := rows.Scan(&it.ID, &it.Title, &it.City, &addr, &starts, &ends,
			&it.RequiredVolunteers, &it.TakenSlots, &it.OrganizationID, &it.OrganizationName); err != nil {
			return nil, 0, err
		}
		if addr.Valid {
			ad := addr.String
			it.Address = &ad
		}
		it.StartsAt = starts.UTC().Format(time.RFC3339)
		it.EndsAt = ends.UTC().Format(time.RFC3339)
		items = append(items, it)
	}
	return items, total, rows.Err()
}
