package model

import "time"

// Volunteer action lifecycle.  Only PUBLISHED actions whose end time is in
// the future accept new signups.  COMPLETED and CANCELLED are terminal.
const (
	ActionDraft     = "DRAFT"
	ActionPublished = "PUBLISHED"
	ActionCompleted = "COMPLETED"
	ActionCancelled = "CANCELLED"
)

// VolunteerAction mirrors the 'volunteer_actions' table.  StartsAt/EndsAt
// define a half-open interval [StartsAt, EndsAt); StartsAt < EndsAt is
// established at creation and not re-validated afterwards.
// RequiredVolunteers is the signup capacity; zero means uncapped.
type VolunteerAction struct {
	ID                 uint64
	OrganizationID     uint64
	Title              string
	Description        *string
	City               string
	Address            *string
	StartsAt           time.Time
	EndsAt             time.Time
	RequiredVolunteers uint32
	Status             string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AcceptsSignups reports whether the action is open for new signups at the
// given instant: it must be PUBLISHED and must not have ended yet.
func (a *VolunteerAction) AcceptsSignups(now time.Time) bool {
	return a.Status == ActionPublished && a.EndsAt.After(now)
}

// Overlaps reports whether two half-open time windows intersect.  Touching
// endpoints (one window ending exactly when the other starts) do not count
// as overlap, so back-to-back actions never conflict.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
