package model

import "time"

// Role values stored in users.role and carried in the JWT "role" claim.
const (
	RoleVolunteer    = "VOLUNTEER"
	RoleOrganization = "ORGANIZATION"
	RoleAdmin        = "ADMIN"
)

// User mirrors the 'users' table.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
