// Package service hosts the signup engine: the component that decides,
// under concurrent access, whether a user may claim a slot on a volunteer
// action, and that drives a signup through its lifecycle.  Handlers are
// thin adapters over this type; all engine invariants live here and in the
// repositories it composes.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumarkic/volonterko/internal/model"
	"github.com/lumarkic/volonterko/internal/repository"
)

// SignupService composes the conflict query, the capacity count and the
// row-reuse rules into the create/cancel/accept/reject/mark-attended
// operations.  It holds no mutable state of its own: every operation is a
// fresh unit of work against the store, and all mutual exclusion for the
// capacity invariant is delegated to the database (serializable
// transaction + action row lock), so correctness holds across multiple
// service instances.
type SignupService struct {
	db      *sql.DB
	signups *repository.SignupRepo
	actions *repository.ActionRepo
	orgs    *repository.OrganizationRepo
}

// NewSignupService constructs a SignupService.  All dependencies must be non-nil.
func NewSignupService(db *sql.DB, signups *repository.SignupRepo, actions *repository.ActionRepo, orgs *repository.OrganizationRepo) *SignupService {
	if db == nil || signups == nil || actions == nil || orgs == nil {
		panic("nil dependency passed to NewSignupService")
	}
	return &SignupService{db: db, signups: signups, actions: actions, orgs: orgs}
}

// Create is the authoritative signup entry point.  Guards, in order:
//
//  1. organization owner accounts cannot hold signups (ErrForbidden);
//  2. the action must exist (ErrActionNotFound), be PUBLISHED and not yet
//     ended (ErrInvalidState);
//  3. the user must hold no overlapping active signup (ErrConflict);
//  4. inside a serializable transaction holding the action row lock, the
//     capacity count must leave a free slot (ErrConflict);
//  5. an existing row for the pair is reused when CANCELLED/REJECTED,
//     rejected as duplicate when in any other status (ErrConflict),
//     and inserted fresh otherwise.
//
// On any failure after the transaction opens, everything rolls back; no
// partial write is ever observable.
func (s *SignupService) Create(ctx context.Context, actionID, userID uint64) (*model.Signup, error) {
	owns, err := s.orgs.OwnsAny(ctx, userID)
	if err != nil {
		return nil, err
	}
	if owns {
		return nil, repository.ErrForbidden
	}

	action, err := s.actions.GetByID(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if !action.AcceptsSignups(time.Now().UTC()) {
		return nil, repository.ErrInvalidState
	}

	conflicts, err := s.signups.FindConflicts(ctx, actionID, userID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, repository.ErrConflict
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Re-read under the row lock: the pre-check above was unlocked and the
	// action may have been closed or filled meanwhile.
	locked, err := s.actions.LockTx(ctx, tx, actionID)
	if err != nil {
		return nil, err
	}
	if !locked.AcceptsSignups(time.Now().UTC()) {
		return nil, repository.ErrInvalidState
	}
	if locked.RequiredVolunteers > 0 {
		taken, err := s.signups.CountActiveTx(ctx, tx, actionID)
		if err != nil {
			return nil, err
		}
		if taken >= locked.RequiredVolunteers {
			return nil, repository.ErrConflict
		}
	}

	var signup *model.Signup
	existing, err := s.signups.GetByActionAndUserTx(ctx, tx, actionID, userID)
	switch {
	case err == sql.ErrNoRows:
		signup, err = s.signups.CreateTx(ctx, tx, actionID, userID)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case model.SignupStatusReusable(existing.Status):
		signup, err = s.signups.ReactivateTx(ctx, tx, existing.ID)
		if err != nil {
			return nil, err
		}
	default:
		// Active or terminal row already exists for this pair.
		return nil, repository.ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return signup, nil
}

// Cancel sets the user's signup for an action to CANCELLED.  Absent rows
// and already-cancelled rows are a no-op success, so cancel is idempotent.
// REJECTED, ATTENDED and NO_SHOW rows cannot be cancelled
// (ErrInvalidState).  No capacity re-check is needed: cancelling only
// frees a slot.
func (s *SignupService) Cancel(ctx context.Context, actionID, userID uint64) error {
	existing, err := s.signups.GetByActionAndUser(ctx, actionID, userID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.Status == model.SignupCancelled {
		return nil
	}
	if !model.SignupStatusCancellable(existing.Status) {
		return repository.ErrInvalidState
	}
	n, err := s.signups.CancelActive(ctx, existing.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		// Lost a race against an administrative decision.
		return repository.ErrInvalidState
	}
	return nil
}

// MarkAttended records attendance and the hours awarded.  It fails with
// ErrInvalidState when hours are not positive, when the signup is
// REJECTED or CANCELLED, or when the action has not ended yet.  This is
// the only path that populates hours.
func (s *SignupService) MarkAttended(ctx context.Context, signupID uint64, hours float64) (*model.Signup, error) {
	if hours <= 0 {
		return nil, repository.ErrInvalidState
	}
	signup, endsAt, err := s.signups.GetWithActionEnd(ctx, signupID)
	if err != nil {
		return nil, err
	}
	if signup.Status == model.SignupRejected || signup.Status == model.SignupCancelled {
		return nil, repository.ErrInvalidState
	}
	if endsAt.After(time.Now().UTC()) {
		return nil, repository.ErrInvalidState
	}
	if err := s.signups.MarkAttended(ctx, signupID, hours); err != nil {
		return nil, err
	}
	signup.Status = model.SignupAttended
	signup.HoursAwarded = &hours
	return signup, nil
}

// SetStatus applies an administrative status decision (accept, reject,
// no-show) after validating it against the transition table in the model
// package.  Illegal transitions return ErrInvalidState.
func (s *SignupService) SetStatus(ctx context.Context, signupID uint64, status string) error {
	signup, endsAt, err := s.signups.GetWithActionEnd(ctx, signupID)
	if err != nil {
		return err
	}
	ended := !endsAt.After(time.Now().UTC())
	if !model.AdminTransitionAllowed(signup.Status, status, ended) {
		return repository.ErrInvalidState
	}
	return s.signups.SetStatus(ctx, signupID, status)
}

// Conflicts returns the user's overlapping active signups for the target
// action, earliest first.  A missing target action yields an empty slice.
func (s *SignupService) Conflicts(ctx context.Context, actionID, userID uint64) ([]repository.ConflictingSignup, error) {
	return s.signups.FindConflicts(ctx, actionID, userID)
}

// Get returns the signup row for a (action, user) pair, or
// ErrSignupNotFound when none exists.
func (s *SignupService) Get(ctx context.Context, actionID, userID uint64) (*model.Signup, error) {
	signup, err := s.signups.GetByActionAndUser(ctx, actionID, userID)
	if err == sql.ErrNoRows {
		return nil, repository.ErrSignupNotFound
	}
	return signup, err
}

// IsSignedUp reports whether the user holds a non-cancelled, non-rejected
// signup for the action.
func (s *SignupService) IsSignedUp(ctx context.Context, actionID, userID uint64) (bool, error) {
	return s.signups.IsActivelySignedUp(ctx, actionID, userID)
}

// ListForAction returns all signups against an action for staff review.
func (s *SignupService) ListForAction(ctx context.Context, actionID uint64) ([]repository.SignupWithVolunteer, error) {
	return s.signups.ListByAction(ctx, actionID)
}

// ListForUser returns all of a user's signups with action details.
func (s *SignupService) ListForUser(ctx context.Context, userID uint64) ([]repository.SignupDetail, error) {
	return s.signups.ListByUser(ctx, userID)
}
