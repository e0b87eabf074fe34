package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignupStatusPredicates(t *testing.T) {
	assert.True(t, SignupStatusActive(SignupApplied))
	assert.True(t, SignupStatusActive(SignupAccepted))
	assert.False(t, SignupStatusActive(SignupAttended))
	assert.False(t, SignupStatusActive(SignupCancelled))

	assert.True(t, SignupStatusReusable(SignupCancelled))
	assert.True(t, SignupStatusReusable(SignupRejected))
	assert.False(t, SignupStatusReusable(SignupAttended))
	assert.False(t, SignupStatusReusable(SignupNoShow))
	assert.False(t, SignupStatusReusable(SignupApplied))

	assert.True(t, SignupStatusCancellable(SignupApplied))
	assert.True(t, SignupStatusCancellable(SignupAccepted))
	assert.False(t, SignupStatusCancellable(SignupRejected))
	assert.False(t, SignupStatusCancellable(SignupAttended))
}

func TestAdminTransitionAllowed(t *testing.T) {
	cases := []struct {
		name  string
		from  string
		to    string
		ended bool
		want  bool
	}{
		{"accept pending application", SignupApplied, SignupAccepted, false, true},
		{"accept an accepted signup", SignupAccepted, SignupAccepted, false, false},
		{"accept a cancelled signup", SignupCancelled, SignupAccepted, false, false},
		{"reject pending application", SignupApplied, SignupRejected, false, true},
		{"reject accepted volunteer", SignupAccepted, SignupRejected, false, true},
		{"reject after attendance", SignupAttended, SignupRejected, true, false},
		{"no-show after action ended", SignupAccepted, SignupNoShow, true, true},
		{"no-show before action ended", SignupAccepted, SignupNoShow, false, false},
		{"no-show for applied volunteer", SignupApplied, SignupNoShow, true, false},
		{"attended is not an admin decision", SignupAccepted, SignupAttended, true, false},
		{"cancelled is not an admin decision", SignupApplied, SignupCancelled, false, false},
		{"no way out of no-show", SignupNoShow, SignupAccepted, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AdminTransitionAllowed(tc.from, tc.to, tc.ended))
		})
	}
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	h := func(n int) time.Time { return base.Add(time.Duration(n) * time.Hour) }

	// Partial overlap in both directions.
	assert.True(t, Overlaps(h(0), h(2), h(1), h(3)))
	assert.True(t, Overlaps(h(1), h(3), h(0), h(2)))
	// Containment.
	assert.True(t, Overlaps(h(0), h(4), h(1), h(2)))
	// Identical windows.
	assert.True(t, Overlaps(h(0), h(2), h(0), h(2)))
	// Back-to-back windows share an endpoint but do not overlap.
	assert.False(t, Overlaps(h(0), h(2), h(2), h(4)))
	assert.False(t, Overlaps(h(2), h(4), h(0), h(2)))
	// Fully disjoint.
	assert.False(t, Overlaps(h(0), h(1), h(3), h(4)))
}

func TestAcceptsSignups(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	a := VolunteerAction{Status: ActionPublished, EndsAt: now.Add(time.Hour)}
	assert.True(t, a.AcceptsSignups(now))

	// Already running actions still accept signups until they end.
	running := VolunteerAction{Status: ActionPublished, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}
	assert.True(t, running.AcceptsSignups(now))

	ended := VolunteerAction{Status: ActionPublished, EndsAt: now.Add(-time.Minute)}
	assert.False(t, ended.AcceptsSignups(now))

	// Ending exactly now no longer accepts: the window is half-open.
	boundary := VolunteerAction{Status: ActionPublished, EndsAt: now}
	assert.False(t, boundary.AcceptsSignups(now))

	for _, status := range []string{ActionDraft, ActionCompleted, ActionCancelled} {
		a := VolunteerAction{Status: status, EndsAt: now.Add(time.Hour)}
		assert.False(t, a.AcceptsSignups(now), status)
	}
}
