// Package repository: data access for signups.  A signup is one user's
// claim on one volunteer action; the unique key (user_id, action_id)
// guarantees a single row per pair across cancel/reapply cycles.
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lumarkic/volonterko/internal/model"
)

// SignupRepo provides persistence for the 'signups' table.  Methods with a
// *Tx suffix run inside a caller-owned transaction; the caller must commit
// or roll back.
type SignupRepo struct {
	db *sql.DB
}

// NewSignupRepo returns a new SignupRepo bound to the given database.
func NewSignupRepo(db *sql.DB) *SignupRepo { return &SignupRepo{db: db} }

// DB exposes the underlying sql.DB for callers that need to begin
// transactions spanning multiple repositories.
func (r *SignupRepo) DB() *sql.DB { return r.db }

const signupColumns = "id, action_id, user_id, status, hours_awarded, created_at, updated_at"

func scanSignup(scan func(dest ...any) error) (*model.Signup, error) {
	var s model.Signup
	var hours sql.NullFloat64
	err := scan(&s.ID, &s.ActionID, &s.UserID, &s.Status, &hours, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if hours.Valid {
		h := hours.Float64
		s.HoursAwarded = &h
	}
	return &s, nil
}

// GetByActionAndUser fetches the signup row for a (action, user) pair.
// Returns sql.ErrNoRows when the pair has no row.
func (r *SignupRepo) GetByActionAndUser(ctx context.Context, actionID, userID uint64) (*model.Signup, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+signupColumns+" FROM signups WHERE action_id = ? AND user_id = ?",
		actionID, userID)
	return scanSignup(row.Scan)
}

// GetByActionAndUserTx is GetByActionAndUser inside the caller's transaction.
func (r *SignupRepo) GetByActionAndUserTx(ctx context.Context, tx *sql.Tx, actionID, userID uint64) (*model.Signup, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+signupColumns+" FROM signups WHERE action_id = ? AND user_id = ?",
		actionID, userID)
	return scanSignup(row.Scan)
}

// GetWithActionEnd loads a signup together with its action's end time.
// The attendance and administrative paths need both in one read: the
// status decides transition legality and the end time gates attendance
// and no-show decisions.  Returns ErrSignupNotFound when no row exists.
func (r *SignupRepo) GetWithActionEnd(ctx context.Context, id uint64) (*model.Signup, time.Time, error) {
	const q = `SELECT s.id, s.action_id, s.user_id, s.status, s.hours_awarded, s.created_at, s.updated_at,
	                  a.ends_at
	           FROM signups s
	           JOIN volunteer_actions a ON a.id = s.action_id
	           WHERE s.id = ?`
	var s model.Signup
	var hours sql.NullFloat64
	var endsAt time.Time
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.ActionID, &s.UserID, &s.Status, &hours, &s.CreatedAt, &s.UpdatedAt, &endsAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, ErrSignupNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	if hours.Valid {
		h := hours.Float64
		s.HoursAwarded = &h
	}
	return &s, endsAt.UTC(), nil
}

// ConflictingSignup is one overlapping active signup returned by
// FindConflicts, carrying enough of the other action to build a
// user-facing message.
type ConflictingSignup struct {
	SignupID    uint64 `json:"signup_id"`
	Status      string `json:"status"`
	ActionID    uint64 `json:"action_id"`
	ActionTitle string `json:"action_title"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
}

// FindConflicts returns the user's other active (APPLIED/ACCEPTED) signups
// whose action time window overlaps the target action's window, earliest
// conflicting start first.  The overlap test treats windows as half-open
// intervals: touching endpoints do not conflict.  When the target action
// does not exist, an empty slice and nil error are returned; the caller
// treats a missing target as its own failure.
func (r *SignupRepo) FindConflicts(ctx context.Context, actionID, userID uint64) ([]ConflictingSignup, error) {
	var starts, ends time.Time
	err := r.db.QueryRowContext(ctx,
		"SELECT starts_at, ends_at FROM volunteer_actions WHERE id = ?",
		actionID).Scan(&starts, &ends)
	if err == sql.ErrNoRows {
		return []ConflictingSignup{}, nil
	}
	if err != nil {
		return nil, err
	}
	const q = `SELECT s.id, s.status, a.id, a.title, a.starts_at, a.ends_at
	           FROM signups s
	           JOIN volunteer_actions a ON a.id = s.action_id
	           WHERE s.user_id = ? AND s.action_id <> ?
	             AND s.status IN ('APPLIED','ACCEPTED')
	             AND a.starts_at < ? AND ? < a.ends_at
	           ORDER BY a.starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q, userID, actionID, ends.UTC(), starts.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ConflictingSignup, 0)
	for rows.Next() {
		var c ConflictingSignup
		var cs, ce time.Time
		if err := rows.Scan(&c.SignupID, &c.Status, &c.ActionID, &c.ActionTitle, &cs, &ce); err != nil {
			return nil, err
		}
		c.StartsAt = cs.UTC().Format(time.RFC3339)
		c.EndsAt = ce.UTC().Format(time.RFC3339)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountActiveTx counts the signups occupying capacity slots for an action,
// inside the caller's transaction.  Every status except CANCELLED and
// REJECTED occupies a slot; attended and no-show rows keep theirs because
// they are history of a consumed slot.  The caller must hold the action
// row lock so this count cannot race with a concurrent insert.
func (r *SignupRepo) CountActiveTx(ctx context.Context, tx *sql.Tx, actionID uint64) (uint32, error) {
	var n uint32
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM signups WHERE action_id = ? AND status NOT IN ('CANCELLED','REJECTED')",
		actionID).Scan(&n)
	return n, err
}

// CountActive is the unlocked variant of CountActiveTx, used for display
// on public action pages where an approximate count is acceptable.
func (r *SignupRepo) CountActive(ctx context.Context, actionID uint64) (uint32, error) {
	var n uint32
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM signups WHERE action_id = ? AND status NOT IN ('CANCELLED','REJECTED')",
		actionID).Scan(&n)
	return n, err
}

// CreateTx inserts a fresh APPLIED signup within the caller's transaction
// and returns the stored row.  A duplicate-key failure on the
// (user_id, action_id) unique index is reported as ErrConflict; it means a
// concurrent create for the same pair won the race.
func (r *SignupRepo) CreateTx(ctx context.Context, tx *sql.Tx, actionID, userID uint64) (*model.Signup, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO signups (action_id, user_id, status) VALUES (?, ?, ?)",
		actionID, userID, model.SignupApplied)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return nil, ErrConflict
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	row := tx.QueryRowContext(ctx,
		"SELECT "+signupColumns+" FROM signups WHERE id = ?", uint64(id))
	return scanSignup(row.Scan)
}

// ReactivateTx flips a CANCELLED/REJECTED row back to APPLIED with a
// refreshed created_at, within the caller's transaction, and returns the
// updated row.  The same row id survives cancel/reapply cycles.
func (r *SignupRepo) ReactivateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Signup, error) {
	_, err := tx.ExecContext(ctx,
		"UPDATE signups SET status = ?, created_at = UTC_TIMESTAMP() WHERE id = ?",
		model.SignupApplied, id)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRowContext(ctx,
		"SELECT "+signupColumns+" FROM signups WHERE id = ?", id)
	return scanSignup(row.Scan)
}

// CancelActive sets an APPLIED/ACCEPTED signup to CANCELLED.  The status
// guard lives in the statement itself, so a row that raced into a
// non-cancellable state is simply not matched; the returned count tells
// the caller whether the cancel landed.
func (r *SignupRepo) CancelActive(ctx context.Context, id uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE signups SET status = ? WHERE id = ? AND status IN ('APPLIED','ACCEPTED')",
		model.SignupCancelled, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetStatus stores an administrative status decision.  Transition legality
// is validated by the service before this is called.
func (r *SignupRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE signups SET status = ? WHERE id = ?", status, id)
	return err
}

// MarkAttended sets a signup to ATTENDED and records the awarded hours.
// This is the only statement that writes hours_awarded.
func (r *SignupRepo) MarkAttended(ctx context.Context, id uint64, hours float64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE signups SET status = ?, hours_awarded = ? WHERE id = ?",
		model.SignupAttended, hours, id)
	return err
}

// SignupWithVolunteer is the organization-facing projection of a signup,
// including the volunteer's email for staff review lists.
type SignupWithVolunteer struct {
	ID             uint64   `json:"id"`
	UserID         uint64   `json:"user_id"`
	VolunteerEmail string   `json:"volunteer_email"`
	Status         string   `json:"status"`
	HoursAwarded   *float64 `json:"hours_awarded,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

// ListByAction returns all signups for an action, newest first, with the
// volunteer's email joined in.
func (r *SignupRepo) ListByAction(ctx context.Context, actionID uint64) ([]SignupWithVolunteer, error) {
	const q = `SELECT s.id, s.user_id, u.email, s.status, s.hours_awarded, s.created_at
	           FROM signups s
	           JOIN users u ON u.id = s.user_id
	           WHERE s.action_id = ?
	           ORDER BY s.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, actionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SignupWithVolunteer, 0)
	for rows.Next() {
		var it SignupWithVolunteer
		var hours sql.NullFloat64
		var created time.Time
		if err := rows.Scan(&it.ID, &it.UserID, &it.VolunteerEmail, &it.Status, &hours, &created); err != nil {
			return nil, err
		}
		if hours.Valid {
			h := hours.Float64
			it.HoursAwarded = &h
		}
		it.CreatedAt = created.UTC().Format(time.RFC3339)
		out = append(out, it)
	}
	return out, rows.Err()
}

// SignupDetail is the volunteer-facing projection of a signup with its
// action and owning organization joined in.
type SignupDetail struct {
	ID               uint64   `json:"id"`
	Status           string   `json:"status"`
	HoursAwarded     *float64 `json:"hours_awarded,omitempty"`
	CreatedAt        string   `json:"created_at"`
	ActionID         uint64   `json:"action_id"`
	ActionTitle      string   `json:"action_title"`
	ActionCity       string   `json:"action_city"`
	StartsAt         string   `json:"starts_at"`
	EndsAt           string   `json:"ends_at"`
	OrganizationID   uint64   `json:"organization_id"`
	OrganizationName string   `json:"organization_name"`
}

// ListByUser returns all of a user's signups, newest first, with action
// and organization details for display.
func (r *SignupRepo) ListByUser(ctx context.Context, userID uint64) ([]SignupDetail, error) {
	const q = `SELECT s.id, s.status, s.hours_awarded, s.created_at,
	                  a.id, a.title, a.city, a.starts_at, a.ends_at,
	                  o.id, o.name
	           FROM signups s
	           JOIN volunteer_actions a ON a.id = s.action_id
	           JOIN organizations o ON o.id = a.organization_id
	           WHERE s.user_id = ?
	           ORDER BY s.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SignupDetail, 0)
	for rows.Next() {
		var d SignupDetail
		var hours sql.NullFloat64
		var created, starts, ends time.Time
		if err := rows.Scan(&d.ID, &d.Status, &hours, &created,
			&d.ActionID, &d.ActionTitle, &d.ActionCity, &starts, &ends,
			&d.OrganizationID, &d.OrganizationName); err != nil {
			return nil, err
		}
		if hours.Valid {
			h := hours.Float64
			d.HoursAwarded = &h
		}
		d.CreatedAt = created.UTC().Format(time.RFC3339)
		d.StartsAt = starts.UTC().Format(time.RFC3339)
		d.EndsAt = ends.UTC().Format(time.RFC3339)
		out = append(out, d)
	}
	return out, rows.Err()
}

// IsActivelySignedUp reports whether the user currently holds a signup for
// the action in any status other than CANCELLED or REJECTED.
func (r *SignupRepo) IsActivelySignedUp(ctx context.Context, actionID, userID uint64) (bool, error) {
	s, err := r.GetByActionAndUser(ctx, actionID, userID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !model.SignupStatusReusable(s.Status), nil
}
