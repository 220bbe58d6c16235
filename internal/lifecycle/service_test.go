package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/orro3790/drive-sub004/internal/bidding"
	"github.com/orro3790/drive-sub004/internal/health"
	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
	"github.com/orro3790/drive-sub004/pkg/outbox"
)

func TestConfirmInsideWindow(t *testing.T) {
	now := time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)
	svc, repo, emitter, healthFake, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentScheduled, &driver.ID)

	confirmed, err := svc.Confirm(context.Background(), ActionInput{
		OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, now, *confirmed.ConfirmedAt)

	require.Len(t, healthFake.events, 1)
	assert.Equal(t, enums.HealthConfirmOnTime, healthFake.events[0].Type)

	require.Len(t, emitter.intents, 1)
	assert.Equal(t, enums.NotificationAssignmentConfirmed, emitter.intents[0].Type)
	assert.Equal(t, driver.ID, emitter.intents[0].RecipientID)
}

func TestConfirmBeforeWindowOpensRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, repo, _, _, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentScheduled, &driver.ID)

	_, err := svc.Confirm(context.Background(), ActionInput{
		OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID,
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestConfirmAfterDeadlineRejected(t *testing.T) {
	now := time.Date(2026, 3, 19, 12, 0, 0, 0, time.UTC)
	svc, repo, _, _, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentScheduled, &driver.ID)

	_, err := svc.Confirm(context.Background(), ActionInput{
		OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID,
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestConfirmByWrongDriverRejected(t *testing.T) {
	now := time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)
	svc, repo, _, _, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	holder := repo.seedDriver(orgID)
	imposter := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentScheduled, &holder.ID)

	_, err := svc.Confirm(context.Background(), ActionInput{
		OrgID: orgID, DriverID: imposter.ID, AssignmentID: assignment.ID,
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodePolicyDenied))
}

func TestCancelFarOutIsDriverCancel(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	svc, repo, emitter, healthFake, windows := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentScheduled, &driver.ID)

	cancelled, err := svc.Cancel(context.Background(), ActionInput{
		OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelType)
	assert.Equal(t, enums.CancelDriver, *cancelled.CancelType)

	require.Len(t, healthFake.events, 1)
	assert.Equal(t, enums.HealthDriverCancel, healthFake.events[0].Type)

	require.Len(t, windows.opened, 1)
	assert.Equal(t, enums.BidTriggerCancellation, windows.opened[0].Trigger)

	require.Len(t, emitter.intents, 1)
	assert.Equal(t, enums.NotificationShiftCancelled, emitter.intents[0].Type)
	assert.Equal(t, orgID, emitter.intents[0].RecipientID)
}

func TestCancelConfirmedInsideDeadlineIsLate(t *testing.T) {
	now := time.Date(2026, 3, 19, 12, 0, 0, 0, time.UTC)
	svc, repo, _, healthFake, windows := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentConfirmed, &driver.ID)

	cancelled, err := svc.Cancel(context.Background(), ActionInput{
		OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancelType)
	assert.Equal(t, enums.CancelLate, *cancelled.CancelType)
	require.Len(t, healthFake.events, 1)
	assert.Equal(t, enums.HealthLateCancel, healthFake.events[0].Type)
	require.Len(t, windows.opened, 1)
}

func TestCancelCompletedAssignmentRejected(t *testing.T) {
	now := time.Date(2026, 3, 21, 12, 0, 0, 0, time.UTC)
	svc, repo, _, _, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentCompleted, &driver.ID)

	_, err := svc.Cancel(context.Background(), ActionInput{
		OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID,
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestArriveActivatesAssignment(t *testing.T) {
	now := time.Date(2026, 3, 20, 8, 30, 0, 0, time.UTC)
	svc, repo, _, healthFake, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentConfirmed, &driver.ID)

	shift, err := svc.Arrive(context.Background(), ActionInput{
		OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, shift.ArrivedAt)
	assert.Equal(t, now, *shift.ArrivedAt)
	assert.Equal(t, enums.AssignmentActive, assignment.Status)

	require.Len(t, healthFake.events, 1)
	assert.Equal(t, enums.HealthArriveOnTime, healthFake.events[0].Type)
}

func TestArriveTwiceRejected(t *testing.T) {
	now := time.Date(2026, 3, 20, 8, 30, 0, 0, time.UTC)
	svc, repo, _, _, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentConfirmed, &driver.ID)

	_, err := svc.Arrive(context.Background(), ActionInput{OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID})
	require.NoError(t, err)

	assignment.Status = enums.AssignmentConfirmed
	_, err = svc.Arrive(context.Background(), ActionInput{OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestArriveOnWrongDayRejected(t *testing.T) {
	now := time.Date(2026, 3, 19, 8, 30, 0, 0, time.UTC)
	svc, repo, _, _, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentConfirmed, &driver.ID)

	_, err := svc.Arrive(context.Background(), ActionInput{OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestArriveAfterRouteStartRejected(t *testing.T) {
	now := time.Date(2026, 3, 20, 9, 1, 0, 0, time.UTC)
	svc, repo, _, _, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentConfirmed, &driver.ID)

	_, err := svc.Arrive(context.Background(), ActionInput{OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestStartShiftRequiresArrival(t *testing.T) {
	now := time.Date(2026, 3, 20, 9, 10, 0, 0, time.UTC)
	svc, repo, _, _, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentActive, &driver.ID)

	_, err := svc.StartShift(context.Background(), StartShiftInput{
		ActionInput:  ActionInput{OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID},
		ParcelsStart: 120,
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestCompleteRecordsCountsAndBonuses(t *testing.T) {
	now := time.Date(2026, 3, 20, 17, 0, 0, 0, time.UTC)
	svc, repo, _, healthFake, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentActive, &driver.ID)
	repo.seedShift(orgID, assignment.ID, driver.ID, 100)

	shift, err := svc.Complete(context.Background(), CompleteInput{
		ActionInput:     ActionInput{OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID},
		ParcelsReturned: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, shift.CompletedAt)
	require.NotNil(t, shift.EditableUntil)
	assert.Equal(t, now.Add(ShiftEditWindow), *shift.EditableUntil)
	assert.Equal(t, enums.AssignmentCompleted, assignment.Status)

	// 98% delivered earns both the completion and high-delivery points
	require.Len(t, healthFake.events, 2)
	assert.Equal(t, enums.HealthCompleteShift, healthFake.events[0].Type)
	assert.Equal(t, enums.HealthHighDelivery, healthFake.events[1].Type)
}

func TestCompleteLowDeliverySkipsBonus(t *testing.T) {
	now := time.Date(2026, 3, 20, 17, 0, 0, 0, time.UTC)
	svc, repo, _, healthFake, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentActive, &driver.ID)
	repo.seedShift(orgID, assignment.ID, driver.ID, 100)

	_, err := svc.Complete(context.Background(), CompleteInput{
		ActionInput:     ActionInput{OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID},
		ParcelsReturned: 20,
	})
	require.NoError(t, err)
	require.Len(t, healthFake.events, 1)
	assert.Equal(t, enums.HealthCompleteShift, healthFake.events[0].Type)
}

func TestCompleteRejectsExcessReturns(t *testing.T) {
	now := time.Date(2026, 3, 20, 17, 0, 0, 0, time.UTC)
	svc, repo, _, _, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentActive, &driver.ID)
	repo.seedShift(orgID, assignment.ID, driver.ID, 100)

	_, err := svc.Complete(context.Background(), CompleteInput{
		ActionInput:     ActionInput{OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID},
		ParcelsReturned: 101,
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestAmendShiftInsideEditWindow(t *testing.T) {
	now := time.Date(2026, 3, 20, 17, 30, 0, 0, time.UTC)
	svc, repo, _, _, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentCompleted, &driver.ID)
	shift := repo.seedShift(orgID, assignment.ID, driver.ID, 100)
	completedAt := now.Add(-30 * time.Minute)
	shift.CompletedAt = &completedAt
	editable := completedAt.Add(ShiftEditWindow)
	shift.EditableUntil = &editable
	returned := 5
	shift.ParcelsReturned = &returned

	amended, err := svc.AmendShift(context.Background(), AmendShiftInput{
		ActionInput:     ActionInput{OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID},
		ParcelsReturned: 3,
		ExceptedReturns: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, *amended.ParcelsReturned)
	assert.Equal(t, 1, amended.ExceptedReturns)
}

func TestAmendShiftAfterWindowRejected(t *testing.T) {
	now := time.Date(2026, 3, 20, 21, 0, 0, 0, time.UTC)
	svc, repo, _, _, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	driver := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentCompleted, &driver.ID)
	shift := repo.seedShift(orgID, assignment.ID, driver.ID, 100)
	completedAt := now.Add(-3 * time.Hour)
	shift.CompletedAt = &completedAt
	editable := completedAt.Add(ShiftEditWindow)
	shift.EditableUntil = &editable

	_, err := svc.AmendShift(context.Background(), AmendShiftInput{
		ActionInput:     ActionInput{OrgID: orgID, DriverID: driver.ID, AssignmentID: assignment.ID},
		ParcelsReturned: 3,
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestReassignMovesSlotWithoutPenalty(t *testing.T) {
	now := time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)
	svc, repo, emitter, healthFake, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	old := repo.seedDriver(orgID)
	replacement := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentCancelled, &old.ID)
	cancelType := enums.CancelDriver
	assignment.CancelType = &cancelType

	reassigned, err := svc.Reassign(context.Background(), ReassignInput{
		OrgID: orgID, AssignmentID: assignment.ID, DriverID: replacement.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, reassigned.DriverID)
	assert.Equal(t, replacement.ID, *reassigned.DriverID)
	assert.Equal(t, enums.AssignmentConfirmed, reassigned.Status)
	assert.Equal(t, enums.AssignedByManual, reassigned.AssignedBy)
	assert.Nil(t, reassigned.CancelType)

	assert.Empty(t, healthFake.events)
	require.Len(t, emitter.intents, 1)
	assert.Equal(t, enums.NotificationAssignmentConfirmed, emitter.intents[0].Type)
	assert.Equal(t, replacement.ID, emitter.intents[0].RecipientID)
}

func TestReassignRejectsBusyDriver(t *testing.T) {
	now := time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)
	svc, repo, _, _, _ := newTestLifecycle(t, now)
	orgID := uuid.New()
	replacement := repo.seedDriver(orgID)
	route := repo.seedRoute(orgID, 9*60)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assignment := repo.seedAssignment(orgID, route.ID, date, enums.AssignmentUnfilled, nil)
	repo.busy[busyKey{replacement.ID, date}] = true

	_, err := svc.Reassign(context.Background(), ReassignInput{
		OrgID: orgID, AssignmentID: assignment.ID, DriverID: replacement.ID,
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
}

func TestSweepRemindsAndAutoDrops(t *testing.T) {
	now := time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)
	svc, repo, emitter, healthFake, windows := newTestLifecycle(t, now)
	orgID := uuid.New()
	route := repo.seedRoute(orgID, 9*60)

	overdue := repo.seedDriver(orgID)
	dropDate := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC) // 45h to start
	dropMe := repo.seedAssignment(orgID, route.ID, dropDate, enums.AssignmentScheduled, &overdue.ID)

	slow := repo.seedDriver(orgID)
	remindDate := time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC) // 69h to start
	remindMe := repo.seedAssignment(orgID, route.ID, remindDate, enums.AssignmentScheduled, &slow.ID)

	early := repo.seedDriver(orgID)
	laterDate := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC) // 93h to start
	untouched := repo.seedAssignment(orgID, route.ID, laterDate, enums.AssignmentScheduled, &early.ID)

	report, err := svc.SweepConfirmationDeadlines(context.Background(), orgID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AutoDropped)
	assert.Equal(t, 1, report.Reminded)
	assert.Equal(t, 0, report.Failed)

	assert.Equal(t, enums.AssignmentCancelled, dropMe.Status)
	require.NotNil(t, dropMe.CancelType)
	assert.Equal(t, enums.CancelAutoDrop, *dropMe.CancelType)
	require.Len(t, windows.opened, 1)
	assert.Equal(t, enums.BidTriggerAutoDrop, windows.opened[0].Trigger)
	require.Len(t, healthFake.events, 1)
	assert.Equal(t, enums.HealthAutoDrop, healthFake.events[0].Type)

	require.NotNil(t, remindMe.ReminderAt)
	assert.Equal(t, enums.AssignmentScheduled, remindMe.Status)
	assert.Equal(t, enums.AssignmentScheduled, untouched.Status)
	assert.Nil(t, untouched.ReminderAt)

	byType := map[enums.NotificationType]outbox.Intent{}
	for _, intent := range emitter.intents {
		byType[intent.Type] = intent
	}
	assert.Equal(t, overdue.ID, byType[enums.NotificationShiftAutoDropped].RecipientID)
	assert.Equal(t, slow.ID, byType[enums.NotificationConfirmReminder].RecipientID)
}

func TestSweepRerunIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)
	svc, repo, emitter, _, windows := newTestLifecycle(t, now)
	orgID := uuid.New()
	route := repo.seedRoute(orgID, 9*60)
	overdue := repo.seedDriver(orgID)
	repo.seedAssignment(orgID, route.ID, time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC), enums.AssignmentScheduled, &overdue.ID)
	slow := repo.seedDriver(orgID)
	repo.seedAssignment(orgID, route.ID, time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC), enums.AssignmentScheduled, &slow.ID)

	_, err := svc.SweepConfirmationDeadlines(context.Background(), orgID, now)
	require.NoError(t, err)
	intents, opened := len(emitter.intents), len(windows.opened)

	report, err := svc.SweepConfirmationDeadlines(context.Background(), orgID, now)
	require.NoError(t, err)
	assert.Equal(t, 0, report.AutoDropped)
	assert.Equal(t, 0, report.Reminded)
	assert.Len(t, emitter.intents, intents)
	assert.Len(t, windows.opened, opened)
}

func newTestLifecycle(t *testing.T, now time.Time) (*service, *fakeLifeRepo, *fakeEmitter, *fakeHealthApplier, *fakeWindowOpener) {
	t.Helper()
	repo := newFakeLifeRepo()
	emitter := &fakeEmitter{}
	healthFake := &fakeHealthApplier{}
	windows := &fakeWindowOpener{}
	svc, err := NewService(repo, fakeTxRunner{}, emitter, healthFake, windows, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	impl, ok := svc.(*service)
	require.True(t, ok)
	impl.now = func() time.Time { return now }
	return impl, repo, emitter, healthFake, windows
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeEmitter struct {
	intents []outbox.Intent
}

func (f *fakeEmitter) Emit(_ context.Context, _ *gorm.DB, intent outbox.Intent) error {
	f.intents = append(f.intents, intent)
	return nil
}

type fakeHealthApplier struct {
	events []health.ApplyEventInput
}

func (f *fakeHealthApplier) ApplyEvent(_ context.Context, _ *gorm.DB, input health.ApplyEventInput) (*models.DriverHealthState, error) {
	f.events = append(f.events, input)
	return &models.DriverHealthState{OrgID: input.OrgID, DriverID: input.DriverID}, nil
}

type fakeWindowOpener struct {
	opened []bidding.OpenWindowInput
}

func (f *fakeWindowOpener) OpenWindow(_ context.Context, _ *gorm.DB, input bidding.OpenWindowInput) (*models.BidWindow, error) {
	f.opened = append(f.opened, input)
	return &models.BidWindow{ID: uuid.New(), OrgID: input.OrgID, AssignmentID: input.AssignmentID}, nil
}

type busyKey struct {
	driverID uuid.UUID
	date     time.Time
}

type fakeLifeRepo struct {
	assignments map[uuid.UUID]*models.Assignment
	routes      map[uuid.UUID]*models.Route
	drivers     map[uuid.UUID]*models.Driver
	shifts      map[uuid.UUID]*models.Shift
	busy        map[busyKey]bool
}

func newFakeLifeRepo() *fakeLifeRepo {
	return &fakeLifeRepo{
		assignments: map[uuid.UUID]*models.Assignment{},
		routes:      map[uuid.UUID]*models.Route{},
		drivers:     map[uuid.UUID]*models.Driver{},
		shifts:      map[uuid.UUID]*models.Shift{},
		busy:        map[busyKey]bool{},
	}
}

func (f *fakeLifeRepo) seedDriver(orgID uuid.UUID) *models.Driver {
	driver := &models.Driver{ID: uuid.New(), OrgID: orgID, FullName: "driver", WeeklyCap: 4, HiredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Active: true}
	f.drivers[driver.ID] = driver
	return driver
}

func (f *fakeLifeRepo) seedRoute(orgID uuid.UUID, startMinutes int) *models.Route {
	route := &models.Route{ID: uuid.New(), OrgID: orgID, WarehouseID: uuid.New(), Name: "route", StartMinutes: startMinutes, Active: true}
	f.routes[route.ID] = route
	return route
}

func (f *fakeLifeRepo) seedAssignment(orgID, routeID uuid.UUID, date time.Time, status enums.AssignmentStatus, driverID *uuid.UUID) *models.Assignment {
	assignment := &models.Assignment{ID: uuid.New(), OrgID: orgID, RouteID: routeID, Date: date, Status: status, DriverID: driverID, AssignedBy: enums.AssignedBySchedule}
	f.assignments[assignment.ID] = assignment
	return assignment
}

func (f *fakeLifeRepo) seedShift(orgID, assignmentID, driverID uuid.UUID, parcelsStart int) *models.Shift {
	arrived := time.Date(2026, 3, 20, 8, 30, 0, 0, time.UTC)
	count := parcelsStart
	shift := &models.Shift{ID: uuid.New(), OrgID: orgID, AssignmentID: assignmentID, DriverID: driverID, ArrivedAt: &arrived, ParcelsStart: &count}
	f.shifts[assignmentID] = shift
	return shift
}

func (f *fakeLifeRepo) WithTx(_ *gorm.DB) Repository { return f }

func (f *fakeLifeRepo) GetAssignment(_ context.Context, orgID, assignmentID uuid.UUID) (*models.Assignment, error) {
	assignment, ok := f.assignments[assignmentID]
	if !ok || assignment.OrgID != orgID {
		return nil, nil
	}
	return assignment, nil
}

func (f *fakeLifeRepo) SaveAssignment(_ context.Context, assignment *models.Assignment) error {
	f.assignments[assignment.ID] = assignment
	return nil
}

func (f *fakeLifeRepo) GetRoute(_ context.Context, orgID, routeID uuid.UUID) (*models.Route, error) {
	route, ok := f.routes[routeID]
	if !ok || route.OrgID != orgID {
		return nil, nil
	}
	return route, nil
}

func (f *fakeLifeRepo) GetDriver(_ context.Context, orgID, driverID uuid.UUID) (*models.Driver, error) {
	driver, ok := f.drivers[driverID]
	if !ok || driver.OrgID != orgID {
		return nil, nil
	}
	return driver, nil
}

func (f *fakeLifeRepo) GetShiftByAssignment(_ context.Context, orgID, assignmentID uuid.UUID) (*models.Shift, error) {
	shift, ok := f.shifts[assignmentID]
	if !ok || shift.OrgID != orgID {
		return nil, nil
	}
	return shift, nil
}

func (f *fakeLifeRepo) CreateShift(_ context.Context, shift *models.Shift) (bool, error) {
	if _, exists := f.shifts[shift.AssignmentID]; exists {
		return false, nil
	}
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	f.shifts[shift.AssignmentID] = shift
	return true, nil
}

func (f *fakeLifeRepo) SaveShift(_ context.Context, shift *models.Shift) error {
	f.shifts[shift.AssignmentID] = shift
	return nil
}

func (f *fakeLifeRepo) ListScheduledBetween(_ context.Context, orgID uuid.UUID, from, to time.Time) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, assignment := range f.assignments {
		if assignment.OrgID != orgID || assignment.Status != enums.AssignmentScheduled || assignment.DriverID == nil {
			continue
		}
		if assignment.Date.Before(from) || assignment.Date.After(to) {
			continue
		}
		out = append(out, *assignment)
	}
	return out, nil
}

func (f *fakeLifeRepo) HasLiveAssignmentOnDate(_ context.Context, _, driverID uuid.UUID, date time.Time) (bool, error) {
	return f.busy[busyKey{driverID, date}], nil
}
