package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumarkic/volonterko/internal/model"
	"github.com/lumarkic/volonterko/internal/repository"
)

// Query fragments used to match the statements the engine issues, in
// order. sqlmock matches these as regular expressions against the real
// SQL, so short unique fragments are enough.
var (
	qOwnsAny      = regexp.QuoteMeta("SELECT 1 FROM organizations WHERE owner_user_id = ?")
	qActionSelect = regexp.QuoteMeta("SELECT id, organization_id, title")
	qActionLock   = regexp.QuoteMeta("FOR UPDATE")
	qWindow       = regexp.QuoteMeta("SELECT starts_at, ends_at FROM volunteer_actions")
	qConflicts    = regexp.QuoteMeta("ORDER BY a.starts_at ASC")
	qCountActive  = regexp.QuoteMeta("SELECT COUNT(*) FROM signups")
	qPairSelect   = regexp.QuoteMeta("FROM signups WHERE action_id = ? AND user_id = ?")
	qInsertSignup = regexp.QuoteMeta("INSERT INTO signups")
	qSignupByID   = regexp.QuoteMeta("FROM signups WHERE id = ?")
	qReactivate   = regexp.QuoteMeta("UPDATE signups SET status = ?, created_at = UTC_TIMESTAMP()")
	qCancel       = regexp.QuoteMeta("UPDATE signups SET status = ? WHERE id = ? AND status IN ('APPLIED','ACCEPTED')")
	qSetStatus    = regexp.QuoteMeta("UPDATE signups SET status = ? WHERE id = ?")
	qMarkAttended = regexp.QuoteMeta("UPDATE signups SET status = ?, hours_awarded = ?")
	qWithEnd      = regexp.QuoteMeta("WHERE s.id = ?")
)

func newTestService(t *testing.T) (*SignupService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	svc := NewSignupService(db,
		repository.NewSignupRepo(db),
		repository.NewActionRepo(db),
		repository.NewOrganizationRepo(db))
	return svc, mock
}

var signupCols = []string{"id", "action_id", "user_id", "status", "hours_awarded", "created_at", "updated_at"}

var actionCols = []string{"id", "organization_id", "title", "description", "city", "address",
	"starts_at", "ends_at", "required_volunteers", "status", "created_at", "updated_at"}

func actionRows(id uint64, status string, starts, ends time.Time, capacity uint32) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(actionCols).
		AddRow(id, 1, "Beach cleanup", nil, "Split", nil, starts, ends, capacity, status, now, now)
}

func signupRows(id, actionID, userID uint64, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(signupCols).
		AddRow(id, actionID, userID, status, nil, now, now)
}

// expectNoOwnership satisfies the organization-owner guard for a plain
// volunteer account.
func expectNoOwnership(mock sqlmock.Sqlmock, userID uint64) {
	mock.ExpectQuery(qOwnsAny).WithArgs(userID).WillReturnError(sql.ErrNoRows)
}

// expectNoConflicts satisfies the overlap screen: the target window is
// loaded and the conflict query matches nothing.
func expectNoConflicts(mock sqlmock.Sqlmock, actionID, userID uint64, starts, ends time.Time) {
	mock.ExpectQuery(qWindow).WithArgs(actionID).
		WillReturnRows(sqlmock.NewRows([]string{"starts_at", "ends_at"}).AddRow(starts, ends))
	mock.ExpectQuery(qConflicts).WithArgs(userID, actionID, ends, starts).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "id", "title", "starts_at", "ends_at"}))
}

func TestCreateRejectsOrganizationOwner(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery(qOwnsAny).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	_, err := svc.Create(context.Background(), 5, 9)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateActionMissing(t *testing.T) {
	svc, mock := newTestService(t)
	expectNoOwnership(mock, 9)
	mock.ExpectQuery(qActionSelect).WithArgs(uint64(5)).WillReturnError(sql.ErrNoRows)

	_, err := svc.Create(context.Background(), 5, 9)
	assert.ErrorIs(t, err, repository.ErrActionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateActionNotOpen(t *testing.T) {
	starts := time.Now().UTC().Add(time.Hour)
	ends := starts.Add(2 * time.Hour)

	for _, tc := range []struct {
		name   string
		status string
		starts time.Time
		ends   time.Time
	}{
		{"draft action", model.ActionDraft, starts, ends},
		{"cancelled action", model.ActionCancelled, starts, ends},
		{"already ended", model.ActionPublished, starts.Add(-48 * time.Hour), ends.Add(-48 * time.Hour)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc, mock := newTestService(t)
			expectNoOwnership(mock, 9)
			mock.ExpectQuery(qActionSelect).WithArgs(uint64(5)).
				WillReturnRows(actionRows(5, tc.status, tc.starts, tc.ends, 10))

			_, err := svc.Create(context.Background(), 5, 9)
			assert.ErrorIs(t, err, repository.ErrInvalidState)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateOverlappingSignup(t *testing.T) {
	svc, mock := newTestService(t)
	starts := time.Date(2026, 9, 5, 9, 0, 0, 0, time.UTC)
	ends := starts.Add(3 * time.Hour)

	expectNoOwnership(mock, 9)
	mock.ExpectQuery(qActionSelect).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionPublished, starts, time.Now().UTC().Add(time.Hour), 10))
	mock.ExpectQuery(qWindow).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"starts_at", "ends_at"}).AddRow(starts, ends))
	mock.ExpectQuery(qConflicts).WithArgs(uint64(9), uint64(5), ends, starts).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "id", "title", "starts_at", "ends_at"}).
			AddRow(31, model.SignupAccepted, 7, "Food drive", starts.Add(-time.Hour), starts.Add(time.Hour)))

	_, err := svc.Create(context.Background(), 5, 9)
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCapacityExhausted(t *testing.T) {
	svc, mock := newTestService(t)
	starts := time.Now().UTC().Add(time.Hour)
	ends := starts.Add(2 * time.Hour)

	expectNoOwnership(mock, 9)
	mock.ExpectQuery(qActionSelect).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionPublished, starts, ends, 3))
	expectNoConflicts(mock, 5, 9, starts, ends)

	mock.ExpectBegin()
	mock.ExpectQuery(qActionLock).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionPublished, starts, ends, 3))
	mock.ExpectQuery(qCountActive).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(3))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), 5, 9)
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateClosedUnderLock(t *testing.T) {
	// The unlocked pre-check passed but the action was cancelled before
	// the lock was acquired.
	svc, mock := newTestService(t)
	starts := time.Now().UTC().Add(time.Hour)
	ends := starts.Add(2 * time.Hour)

	expectNoOwnership(mock, 9)
	mock.ExpectQuery(qActionSelect).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionPublished, starts, ends, 0))
	expectNoConflicts(mock, 5, 9, starts, ends)

	mock.ExpectBegin()
	mock.ExpectQuery(qActionLock).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionCancelled, starts, ends, 0))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), 5, 9)
	assert.ErrorIs(t, err, repository.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInsertsFreshRow(t *testing.T) {
	svc, mock := newTestService(t)
	starts := time.Now().UTC().Add(time.Hour)
	ends := starts.Add(2 * time.Hour)

	expectNoOwnership(mock, 9)
	mock.ExpectQuery(qActionSelect).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionPublished, starts, ends, 10))
	expectNoConflicts(mock, 5, 9, starts, ends)

	mock.ExpectBegin()
	mock.ExpectQuery(qActionLock).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionPublished, starts, ends, 10))
	mock.ExpectQuery(qCountActive).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(4))
	mock.ExpectQuery(qPairSelect).WithArgs(uint64(5), uint64(9)).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(qInsertSignup).WithArgs(uint64(5), uint64(9), model.SignupApplied).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectQuery(qSignupByID).WithArgs(uint64(77)).
		WillReturnRows(signupRows(77, 5, 9, model.SignupApplied))
	mock.ExpectCommit()

	s, err := svc.Create(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), s.ID)
	assert.Equal(t, model.SignupApplied, s.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUncappedSkipsCount(t *testing.T) {
	svc, mock := newTestService(t)
	starts := time.Now().UTC().Add(time.Hour)
	ends := starts.Add(2 * time.Hour)

	expectNoOwnership(mock, 9)
	mock.ExpectQuery(qActionSelect).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionPublished, starts, ends, 0))
	expectNoConflicts(mock, 5, 9, starts, ends)

	mock.ExpectBegin()
	mock.ExpectQuery(qActionLock).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionPublished, starts, ends, 0))
	// No capacity count for required_volunteers = 0.
	mock.ExpectQuery(qPairSelect).WithArgs(uint64(5), uint64(9)).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(qInsertSignup).WithArgs(uint64(5), uint64(9), model.SignupApplied).
		WillReturnResult(sqlmock.NewResult(78, 1))
	mock.ExpectQuery(qSignupByID).WithArgs(uint64(78)).
		WillReturnRows(signupRows(78, 5, 9, model.SignupApplied))
	mock.ExpectCommit()

	_, err := svc.Create(context.Background(), 5, 9)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReusesCancelledRow(t *testing.T) {
	svc, mock := newTestService(t)
	starts := time.Now().UTC().Add(time.Hour)
	ends := starts.Add(2 * time.Hour)

	expectNoOwnership(mock, 9)
	mock.ExpectQuery(qActionSelect).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionPublished, starts, ends, 10))
	expectNoConflicts(mock, 5, 9, starts, ends)

	mock.ExpectBegin()
	mock.ExpectQuery(qActionLock).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionPublished, starts, ends, 10))
	mock.ExpectQuery(qCountActive).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(0))
	mock.ExpectQuery(qPairSelect).WithArgs(uint64(5), uint64(9)).
		WillReturnRows(signupRows(42, 5, 9, model.SignupCancelled))
	mock.ExpectExec(qReactivate).WithArgs(model.SignupApplied, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qSignupByID).WithArgs(uint64(42)).
		WillReturnRows(signupRows(42, 5, 9, model.SignupApplied))
	mock.ExpectCommit()

	s, err := svc.Create(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), s.ID, "cancel/reapply must reuse the same row")
	assert.Equal(t, model.SignupApplied, s.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateActiveSignup(t *testing.T) {
	svc, mock := newTestService(t)
	starts := time.Now().UTC().Add(time.Hour)
	ends := starts.Add(2 * time.Hour)

	expectNoOwnership(mock, 9)
	mock.ExpectQuery(qActionSelect).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionPublished, starts, ends, 10))
	expectNoConflicts(mock, 5, 9, starts, ends)

	mock.ExpectBegin()
	mock.ExpectQuery(qActionLock).WithArgs(uint64(5)).
		WillReturnRows(actionRows(5, model.ActionPublished, starts, ends, 10))
	mock.ExpectQuery(qCountActive).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))
	mock.ExpectQuery(qPairSelect).WithArgs(uint64(5), uint64(9)).
		WillReturnRows(signupRows(42, 5, 9, model.SignupAccepted))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), 5, 9)
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelMissingSignupIsNoop(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery(qPairSelect).WithArgs(uint64(5), uint64(9)).WillReturnError(sql.ErrNoRows)

	assert.NoError(t, svc.Cancel(context.Background(), 5, 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAlreadyCancelledIsNoop(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery(qPairSelect).WithArgs(uint64(5), uint64(9)).
		WillReturnRows(signupRows(42, 5, 9, model.SignupCancelled))

	assert.NoError(t, svc.Cancel(context.Background(), 5, 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTerminalStates(t *testing.T) {
	for _, status := range []string{model.SignupAttended, model.SignupNoShow, model.SignupRejected} {
		t.Run(status, func(t *testing.T) {
			svc, mock := newTestService(t)
			mock.ExpectQuery(qPairSelect).WithArgs(uint64(5), uint64(9)).
				WillReturnRows(signupRows(42, 5, 9, status))

			err := svc.Cancel(context.Background(), 5, 9)
			assert.ErrorIs(t, err, repository.ErrInvalidState)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCancelActiveSignup(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery(qPairSelect).WithArgs(uint64(5), uint64(9)).
		WillReturnRows(signupRows(42, 5, 9, model.SignupAccepted))
	mock.ExpectExec(qCancel).WithArgs(model.SignupCancelled, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, svc.Cancel(context.Background(), 5, 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelLosesRaceToAdminDecision(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery(qPairSelect).WithArgs(uint64(5), uint64(9)).
		WillReturnRows(signupRows(42, 5, 9, model.SignupApplied))
	// The guarded UPDATE matched nothing: the row left the cancellable
	// states between the read and the write.
	mock.ExpectExec(qCancel).WithArgs(model.SignupCancelled, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.Cancel(context.Background(), 5, 9)
	assert.ErrorIs(t, err, repository.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func signupWithEndRows(id, actionID, userID uint64, status string, endsAt time.Time) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(append(signupCols, "ends_at")).
		AddRow(id, actionID, userID, status, nil, now, now, endsAt)
}

func TestMarkAttendedRejectsNonPositiveHours(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.MarkAttended(context.Background(), 42, 0)
	assert.ErrorIs(t, err, repository.ErrInvalidState)
	_, err = svc.MarkAttended(context.Background(), 42, -1.5)
	assert.ErrorIs(t, err, repository.ErrInvalidState)
}

func TestMarkAttendedBeforeActionEnds(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery(qWithEnd).WithArgs(uint64(42)).
		WillReturnRows(signupWithEndRows(42, 5, 9, model.SignupAccepted, time.Now().UTC().Add(time.Hour)))

	_, err := svc.MarkAttended(context.Background(), 42, 4)
	assert.ErrorIs(t, err, repository.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAttendedInactiveSignup(t *testing.T) {
	for _, status := range []string{model.SignupRejected, model.SignupCancelled} {
		t.Run(status, func(t *testing.T) {
			svc, mock := newTestService(t)
			mock.ExpectQuery(qWithEnd).WithArgs(uint64(42)).
				WillReturnRows(signupWithEndRows(42, 5, 9, status, time.Now().UTC().Add(-time.Hour)))

			_, err := svc.MarkAttended(context.Background(), 42, 4)
			assert.ErrorIs(t, err, repository.ErrInvalidState)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMarkAttendedRecordsHours(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery(qWithEnd).WithArgs(uint64(42)).
		WillReturnRows(signupWithEndRows(42, 5, 9, model.SignupAccepted, time.Now().UTC().Add(-time.Hour)))
	mock.ExpectExec(qMarkAttended).WithArgs(model.SignupAttended, 4.5, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s, err := svc.MarkAttended(context.Background(), 42, 4.5)
	require.NoError(t, err)
	assert.Equal(t, model.SignupAttended, s.Status)
	require.NotNil(t, s.HoursAwarded)
	assert.Equal(t, 4.5, *s.HoursAwarded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatusTransitions(t *testing.T) {
	ended := time.Now().UTC().Add(-time.Hour)
	upcoming := time.Now().UTC().Add(time.Hour)

	cases := []struct {
		name    string
		from    string
		to      string
		endsAt  time.Time
		allowed bool
	}{
		{"accept pending", model.SignupApplied, model.SignupAccepted, upcoming, true},
		{"reject pending", model.SignupApplied, model.SignupRejected, upcoming, true},
		{"reject accepted", model.SignupAccepted, model.SignupRejected, upcoming, true},
		{"no-show after end", model.SignupAccepted, model.SignupNoShow, ended, true},
		{"no-show before end", model.SignupAccepted, model.SignupNoShow, upcoming, false},
		{"accept twice", model.SignupAccepted, model.SignupAccepted, upcoming, false},
		{"resurrect attended", model.SignupAttended, model.SignupRejected, ended, false},
		{"cancel via admin path", model.SignupApplied, model.SignupCancelled, upcoming, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, mock := newTestService(t)
			mock.ExpectQuery(qWithEnd).WithArgs(uint64(42)).
				WillReturnRows(signupWithEndRows(42, 5, 9, tc.from, tc.endsAt))
			if tc.allowed {
				mock.ExpectExec(qSetStatus).WithArgs(tc.to, uint64(42)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := svc.SetStatus(context.Background(), 42, tc.to)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, repository.ErrInvalidState)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetMapsMissingRow(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery(qPairSelect).WithArgs(uint64(5), uint64(9)).WillReturnError(sql.ErrNoRows)

	_, err := svc.Get(context.Background(), 5, 9)
	assert.ErrorIs(t, err, repository.ErrSignupNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsSignedUp(t *testing.T) {
	cases := []struct {
		name   string
		status string
		want   bool
	}{
		{"applied", model.SignupApplied, true},
		{"accepted", model.SignupAccepted, true},
		{"attended", model.SignupAttended, true},
		{"cancelled", model.SignupCancelled, false},
		{"rejected", model.SignupRejected, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, mock := newTestService(t)
			mock.ExpectQuery(qPairSelect).WithArgs(uint64(5), uint64(9)).
				WillReturnRows(signupRows(1, 5, 9, tc.status))

			got, err := svc.IsSignedUp(context.Background(), 5, 9)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIsSignedUpWithoutRow(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery(qPairSelect).WithArgs(uint64(5), uint64(9)).WillReturnError(sql.ErrNoRows)

	got, err := svc.IsSignedUp(context.Background(), 5, 9)
	assert.NoError(t, err)
	assert.False(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
