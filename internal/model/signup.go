package model

import "time"

// Signup statuses.  APPLIED and ACCEPTED are the active states: they count
// toward action capacity and toward time-conflict screening.  REJECTED and
// CANCELLED are inactive and may be re-activated by a new signup attempt.
// ATTENDED and NO_SHOW are terminal historical outcomes and are never
// re-activated.
const (
	SignupApplied   = "APPLIED"
	SignupAccepted  = "ACCEPTED"
	SignupRejected  = "REJECTED"
	SignupAttended  = "ATTENDED"
	SignupNoShow    = "NO_SHOW"
	SignupCancelled = "CANCELLED"
)

// Signup mirrors the 'signups' table.  At most one row exists per
// (user_id, action_id) pair; re-applying after a cancel or reject reuses
// the same row with a refreshed created_at.  HoursAwarded is populated
// exactly once, when attendance is recorded.
type Signup struct {
	ID           uint64
	ActionID     uint64
	UserID       uint64
	Status       string
	HoursAwarded *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SignupStatusActive reports whether the status occupies a capacity slot in
// conflict screening terms (APPLIED or ACCEPTED).
func SignupStatusActive(status string) bool {
	return status == SignupApplied || status == SignupAccepted
}

// SignupStatusReusable reports whether a row in this status may be flipped
// back to APPLIED by a new signup attempt.
func SignupStatusReusable(status string) bool {
	return status == SignupCancelled || status == SignupRejected
}

// SignupStatusCancellable reports whether the volunteer may still cancel.
// A CANCELLED row is handled upstream as an idempotent no-op.
func SignupStatusCancellable(status string) bool {
	return status == SignupApplied || status == SignupAccepted
}

// AdminTransitionAllowed is the transition table for administrative status
// decisions made by organization staff.  Accept requires a pending
// application, reject is possible until attendance is recorded, and a
// no-show can only be declared for an accepted volunteer once the action
// has ended.  CANCELLED belongs to the volunteer's own cancel path and
// ATTENDED to the mark-attended path, so neither is reachable here.
func AdminTransitionAllowed(from, to string, actionEnded bool) bool {
	switch to {
	case SignupAccepted:
		return from == SignupApplied
	case SignupRejected:
		return from == SignupApplied || from == SignupAccepted
	case SignupNoShow:
		return from == SignupAccepted && actionEnded
	default:
		return false
	}
}
