// Package repository defines error values shared across repositories and the
// service layer. These sentinels let handlers branch on the failure class
// instead of inspecting error strings: ErrForbidden maps to HTTP 403,
// ErrConflict to 409, ErrInvalidState to 422 and the *NotFound values to 404.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, or when an organization owner account tries
// to sign up for an action.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation loses to existing state: an
// overlapping active signup, a duplicate active signup, exhausted action
// capacity, or deleting an action that still has signup history.
var ErrConflict = errors.New("conflict")

// ErrInvalidState is returned for illegal lifecycle transitions, e.g.
// cancelling an attended signup, recording attendance before the action
// ends, or signing up for an action that is not open.
var ErrInvalidState = errors.New("invalid state")

// ErrActionNotFound indicates the referenced volunteer action does not exist.
var ErrActionNotFound = errors.New("action not found")

// ErrSignupNotFound indicates the referenced signup does not exist.
var ErrSignupNotFound = errors.New("signup not found")

// ErrOrganizationNotFound indicates the referenced organization does not exist.
var ErrOrganizationNotFound = errors.New("organization not found")

// ErrNoChange indicates an UPDATE attempted to set fields equal to current values.
var ErrNoChange = errors.New("no change")
