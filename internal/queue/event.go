// Package queue defines message payloads exchanged over the message broker.
package queue

// SignupAttendedEvent is published when an organization records a
// volunteer's attendance. It carries enough detail for downstream
// consumers to build the attendance audit trail without touching the
// primary database.
type SignupAttendedEvent struct {
	SignupID         uint64  `json:"signup_id"`
	UserID           uint64  `json:"user_id"`
	ActionID         uint64  `json:"action_id"`
	ActionTitle      string  `json:"action_title"`
	OrganizationID   uint64  `json:"organization_id"`
	OrganizationName string  `json:"organization_name"`
	HoursAwarded     float64 `json:"hours_awarded"`
	RecordedAt       string  `json:"recorded_at"`
}
