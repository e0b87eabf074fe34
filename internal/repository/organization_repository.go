package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lumarkic/volonterko/internal/model"
)

// OrganizationRepo provides persistence for the 'organizations' table.
// Organizations are the out-of-band collaborator of the signup engine:
// the engine only ever asks "does this user own one?" to enforce the rule
// that organization accounts cannot hold signups.
type OrganizationRepo struct {
	db *sql.DB
}

// NewOrganizationRepo returns a new OrganizationRepo bound to the given database.
func NewOrganizationRepo(db *sql.DB) *OrganizationRepo { return &OrganizationRepo{db: db} }

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning multiple repositories.
func (r *OrganizationRepo) DB() *sql.DB { return r.db }

const orgColumns = "id, owner_user_id, name, description, city, contact_email, status, created_at, updated_at"

func scanOrganization(row *sql.Row) (*model.Organization, error) {
	var o model.Organization
	var desc sql.NullString
	err := row.Scan(&o.ID, &o.OwnerUserID, &o.Name, &desc, &o.City, &o.ContactEmail,
		&o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		o.Description = &d
	}
	return &o, nil
}

// Create inserts a PENDING organization request for the given owner.  One
// user owns at most one organization (unique owner_user_id); when a request
// already exists the existing row is returned unchanged, making the
// operation idempotent.
func (r *OrganizationRepo) Create(ctx context.Context, ownerUserID uint64, name, city, contactEmail string, description *string) (*model.Organization, error) {
	if existing, err := r.GetByOwnerUserID(ctx, ownerUserID); err == nil {
		return existing, nil
	} else if err != sql.ErrNoRows {
		return nil, err
	}
	const q = `INSERT INTO organizations (owner_user_id, name, city, contact_email, description, status)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, ownerUserID, name, city, contactEmail, description, model.OrgPending)
	if err != nil {
		// Unique key on owner_user_id: a concurrent request already won.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return r.GetByOwnerUserID(ctx, ownerUserID)
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches an organization by id.  Returns ErrOrganizationNotFound
// when no row exists.
func (r *OrganizationRepo) GetByID(ctx context.Context, id uint64) (*model.Organization, error) {
	o, err := scanOrganization(r.db.QueryRowContext(ctx,
		"SELECT "+orgColumns+" FROM organizations WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrOrganizationNotFound
	}
	return o, err
}

// GetByOwnerUserID fetches the organization owned by the given user.
// Returns sql.ErrNoRows when the user owns none.
func (r *OrganizationRepo) GetByOwnerUserID(ctx context.Context, ownerUserID uint64) (*model.Organization, error) {
	return scanOrganization(r.db.QueryRowContext(ctx,
		"SELECT "+orgColumns+" FROM organizations WHERE owner_user_id = ?", ownerUserID))
}

// OwnsAny reports whether the user owns an organization of any status.
// The signup engine uses this as its first guard: organization accounts
// cannot hold signups regardless of approval state.
func (r *OrganizationRepo) OwnsAny(ctx context.Context, userID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM organizations WHERE owner_user_id = ? LIMIT 1", userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListPending returns all organizations awaiting an admin decision,
// ordered by name for stable review lists.
func (r *OrganizationRepo) ListPending(ctx context.Context) ([]model.Organization, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orgColumns+" FROM organizations WHERE status = ? ORDER BY name", model.OrgPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Organization, 0)
	for rows.Next() {
		var o model.Organization
		var desc sql.NullString
		if err := rows.Scan(&o.ID, &o.OwnerUserID, &o.Name, &desc, &o.City, &o.ContactEmail,
			&o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			d := desc.String
			o.Description = &d
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SetStatusTx updates an organization's status inside the caller's
// transaction and returns the owner user id so the caller can grant or
// keep roles in the same unit of work.
func (r *OrganizationRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) (uint64, error) {
	var ownerID uint64
	err := tx.QueryRowContext(ctx,
		"SELECT owner_user_id FROM organizations WHERE id = ?", id).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return 0, ErrOrganizationNotFound
	}
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE organizations SET status = ? WHERE id = ?", status, id); err != nil {
		return 0, err
	}
	return ownerID, nil
}

// UpdateProfile updates the mutable profile fields of an organization.
func (r *OrganizationRepo) UpdateProfile(ctx context.Context, id uint64, city, contactEmail string, description *string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE organizations SET city = ?, contact_email = ?, description = ? WHERE id = ?",
		city, contactEmail, description, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the row is missing or the values already match; distinguish.
		var one int
		if err := r.db.QueryRowContext(ctx,
			"SELECT 1 FROM organizations WHERE id = ?", id).Scan(&one); err == sql.ErrNoRows {
			return ErrOrganizationNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}
