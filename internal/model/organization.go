package model

import "time"

// Organization registration lifecycle.  A newly requested organization is
// PENDING until an admin approves or rejects it; only APPROVED organizations
// may publish volunteer actions.
const (
	OrgPending  = "PENDING"
	OrgApproved = "APPROVED"
	OrgRejected = "REJECTED"
)

// Organization mirrors the 'organizations' table.  Each organization is
// owned by exactly one user (organizations.owner_user_id is unique); that
// owner account is barred from signing up for any action.
type Organization struct {
	ID           uint64
	OwnerUserID  uint64
	Name         string
	Description  *string
	City         string
	ContactEmail string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
