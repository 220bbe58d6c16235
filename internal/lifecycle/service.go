package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/orro3790/drive-sub004/internal/bidding"
	"github.com/orro3790/drive-sub004/internal/health"
	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
	"github.com/orro3790/drive-sub004/pkg/outbox"
	"github.com/orro3790/drive-sub004/pkg/outbox/payloads"
)

// Confirmation and execution deadlines, all relative to the route's start
// instant on the assignment date.
const (
	ConfirmWindowOpen = 7 * 24 * time.Hour
	ConfirmDeadline   = 48 * time.Hour
	ReminderLead      = 72 * time.Hour
	ShiftEditWindow   = 120 * time.Minute
)

// sweepHorizon bounds the deadline sweep's candidate range. Anything beyond
// the reminder lead plus a day of slack cannot be actionable yet.
const sweepHorizon = ReminderLead + 24*time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, intent outbox.Intent) error
}

type healthApplier interface {
	ApplyEvent(ctx context.Context, tx *gorm.DB, input health.ApplyEventInput) (*models.DriverHealthState, error)
}

type windowOpener interface {
	OpenWindow(ctx context.Context, tx *gorm.DB, input bidding.OpenWindowInput) (*models.BidWindow, error)
}

// Service drives each assignment through confirm, arrive, start and
// complete, or diverts it to cancellation and auto-drop.
type Service interface {
	Confirm(ctx context.Context, input ActionInput) (*models.Assignment, error)
	Cancel(ctx context.Context, input ActionInput) (*models.Assignment, error)
	Arrive(ctx context.Context, input ActionInput) (*models.Shift, error)
	StartShift(ctx context.Context, input StartShiftInput) (*models.Shift, error)
	Complete(ctx context.Context, input CompleteInput) (*models.Shift, error)
	AmendShift(ctx context.Context, input AmendShiftInput) (*models.Shift, error)
	Reassign(ctx context.Context, input ReassignInput) (*models.Assignment, error)
	SweepConfirmationDeadlines(ctx context.Context, orgID uuid.UUID, now time.Time) (*SweepReport, error)
}

// ActionInput identifies one driver acting on one assignment.
type ActionInput struct {
	OrgID        uuid.UUID
	DriverID     uuid.UUID
	AssignmentID uuid.UUID
}

// StartShiftInput records the parcel count loaded at shift start.
type StartShiftInput struct {
	ActionInput
	ParcelsStart int
}

// CompleteInput records the day's returns at completion.
type CompleteInput struct {
	ActionInput
	ParcelsReturned int
	ExceptedReturns int
}

// AmendShiftInput corrects parcel counts inside the post-completion window.
type AmendShiftInput struct {
	ActionInput
	ParcelsReturned int
	ExceptedReturns int
}

// ReassignInput is the manager override moving an assignment to a new
// driver without penalties.
type ReassignInput struct {
	OrgID        uuid.UUID
	AssignmentID uuid.UUID
	DriverID     uuid.UUID
}

// SweepReport summarizes one confirmation-deadline sweep.
type SweepReport struct {
	Reminded    int
	AutoDropped int
	Failed      int
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxEmitter
	health  healthApplier
	windows windowOpener
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the lifecycle manager dependencies.
func NewService(repo Repository, tx txRunner, emitter outboxEmitter, healthSvc healthApplier, windows windowOpener, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("lifecycle repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if healthSvc == nil {
		return nil, fmt.Errorf("health service required")
	}
	if windows == nil {
		return nil, fmt.Errorf("bid window opener required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  emitter,
		health:  healthSvc,
		windows: windows,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Confirm moves a scheduled assignment to confirmed. Legal only inside the
// confirmation window: opens 7 days before the shift, closes 48 hours
// before.
func (s *service) Confirm(ctx context.Context, input ActionInput) (*models.Assignment, error) {
	if err := validateAction(input); err != nil {
		return nil, err
	}

	var confirmed *models.Assignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		assignment, startAt, err := s.loadHeldAssignment(ctx, repo, input)
		if err != nil {
			return err
		}
		if assignment.Status != enums.AssignmentScheduled {
			if assignment.Status == enums.AssignmentConfirmed {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment already confirmed")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is not awaiting confirmation")
		}
		if now.Before(startAt.Add(-ConfirmWindowOpen)) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "confirmation window not open yet")
		}
		if now.After(startAt.Add(-ConfirmDeadline)) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "confirmation deadline passed")
		}

		assignment.Status = enums.AssignmentConfirmed
		stamp := now
		assignment.ConfirmedAt = &stamp
		assignment.Version++
		if err := repo.SaveAssignment(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save assignment")
		}

		if _, err := s.health.ApplyEvent(ctx, tx, health.ApplyEventInput{
			OrgID:        input.OrgID,
			DriverID:     input.DriverID,
			Type:         enums.HealthConfirmOnTime,
			AssignmentID: &assignment.ID,
			OccurredAt:   now,
		}); err != nil {
			return err
		}

		intent := outbox.Intent{
			Type:          enums.NotificationAssignmentConfirmed,
			AggregateType: enums.AggregateAssignment,
			AggregateID:   assignment.ID,
			RecipientID:   input.DriverID,
			OrgID:         input.OrgID,
			OccurredAt:    now,
			Data: payloads.AssignmentConfirmedData{
				AssignmentID: assignment.ID,
				RouteID:      assignment.RouteID,
				Date:         assignment.Date,
			},
		}
		if err := s.outbox.Emit(ctx, tx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue confirmation intent")
		}

		confirmed = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// Cancel is the driver-initiated exit. A confirmed assignment dropped
// within 48 hours of start is a late cancel and carries the heavy penalty;
// anything earlier is a plain driver cancel. Both reopen the slot.
func (s *service) Cancel(ctx context.Context, input ActionInput) (*models.Assignment, error) {
	if err := validateAction(input); err != nil {
		return nil, err
	}

	var cancelled *models.Assignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		assignment, startAt, err := s.loadHeldAssignment(ctx, repo, input)
		if err != nil {
			return err
		}
		switch assignment.Status {
		case enums.AssignmentScheduled, enums.AssignmentConfirmed:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment can no longer be cancelled")
		}

		cancelType := enums.CancelDriver
		eventType := enums.HealthDriverCancel
		if assignment.Status == enums.AssignmentConfirmed && now.After(startAt.Add(-ConfirmDeadline)) {
			cancelType = enums.CancelLate
			eventType = enums.HealthLateCancel
		}

		assignment.Status = enums.AssignmentCancelled
		stamp := now
		assignment.CancelledAt = &stamp
		assignment.CancelType = &cancelType
		assignment.Version++
		if err := repo.SaveAssignment(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save assignment")
		}

		if _, err := s.health.ApplyEvent(ctx, tx, health.ApplyEventInput{
			OrgID:        input.OrgID,
			DriverID:     input.DriverID,
			Type:         eventType,
			AssignmentID: &assignment.ID,
			OccurredAt:   now,
		}); err != nil {
			return err
		}

		if _, err := s.windows.OpenWindow(ctx, tx, bidding.OpenWindowInput{
			OrgID:        input.OrgID,
			AssignmentID: assignment.ID,
			Trigger:      enums.BidTriggerCancellation,
		}); err != nil {
			return err
		}

		intent := outbox.Intent{
			Type:          enums.NotificationShiftCancelled,
			AggregateType: enums.AggregateAssignment,
			AggregateID:   assignment.ID,
			RecipientID:   input.OrgID,
			OrgID:         input.OrgID,
			OccurredAt:    now,
			Data: payloads.ShiftCancelledData{
				AssignmentID: assignment.ID,
				RouteID:      assignment.RouteID,
				Date:         assignment.Date,
				CancelType:   cancelType,
			},
		}
		if err := s.outbox.Emit(ctx, tx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue cancellation intent")
		}

		cancelled = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// Arrive records the driver at the depot: day of the shift, before the
// route start, exactly once. The assignment goes active.
func (s *service) Arrive(ctx context.Context, input ActionInput) (*models.Shift, error) {
	if err := validateAction(input); err != nil {
		return nil, err
	}

	var arrived *models.Shift
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		assignment, startAt, err := s.loadHeldAssignment(ctx, repo, input)
		if err != nil {
			return err
		}
		if assignment.Status != enums.AssignmentConfirmed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is not confirmed")
		}
		if !assignment.SameDay(now) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "arrival is only legal on the shift date")
		}
		if !now.Before(startAt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "route already started")
		}

		stamp := now
		shift := &models.Shift{
			OrgID:        input.OrgID,
			AssignmentID: assignment.ID,
			DriverID:     input.DriverID,
			ArrivedAt:    &stamp,
		}
		inserted, err := repo.CreateShift(ctx, shift)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shift")
		}
		if !inserted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "arrival already recorded")
		}

		assignment.Status = enums.AssignmentActive
		assignment.Version++
		if err := repo.SaveAssignment(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save assignment")
		}

		if _, err := s.health.ApplyEvent(ctx, tx, health.ApplyEventInput{
			OrgID:        input.OrgID,
			DriverID:     input.DriverID,
			Type:         enums.HealthArriveOnTime,
			AssignmentID: &assignment.ID,
			OccurredAt:   now,
		}); err != nil {
			return err
		}

		arrived = shift
		return nil
	})
	if err != nil {
		return nil, err
	}
	return arrived, nil
}

// StartShift records the parcel count loaded on the truck. Requires a prior
// arrival.
func (s *service) StartShift(ctx context.Context, input StartShiftInput) (*models.Shift, error) {
	if err := validateAction(input.ActionInput); err != nil {
		return nil, err
	}
	if input.ParcelsStart < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parcels_start must be non-negative")
	}

	var started *models.Shift
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		shift, err := s.loadHeldShift(ctx, repo, input.ActionInput)
		if err != nil {
			return err
		}
		if shift.ParcelsStart != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shift already started")
		}

		count := input.ParcelsStart
		shift.ParcelsStart = &count
		if err := repo.SaveShift(ctx, shift); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save shift")
		}
		started = shift
		return nil
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

// Complete closes out the shift: returns cannot exceed what left the depot,
// the assignment goes completed, and a short edit window opens for count
// corrections. A 95%+ delivery rate earns the high-delivery bonus point.
func (s *service) Complete(ctx context.Context, input CompleteInput) (*models.Shift, error) {
	if err := validateAction(input.ActionInput); err != nil {
		return nil, err
	}
	if input.ParcelsReturned < 0 || input.ExceptedReturns < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parcel counts must be non-negative")
	}

	var completed *models.Shift
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		assignment, _, err := s.loadHeldAssignment(ctx, repo, input.ActionInput)
		if err != nil {
			return err
		}
		if assignment.Status != enums.AssignmentActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is not active")
		}

		shift, err := s.loadHeldShift(ctx, repo, input.ActionInput)
		if err != nil {
			return err
		}
		if shift.ParcelsStart == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shift was never started")
		}
		if shift.CompletedAt != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shift already completed")
		}
		if input.ParcelsReturned > *shift.ParcelsStart {
			return pkgerrors.New(pkgerrors.CodeValidation, "returns exceed parcels loaded")
		}

		returned := input.ParcelsReturned
		shift.ParcelsReturned = &returned
		shift.ExceptedReturns = input.ExceptedReturns
		stamp := now
		shift.CompletedAt = &stamp
		editable := now.Add(ShiftEditWindow)
		shift.EditableUntil = &editable
		if err := repo.SaveShift(ctx, shift); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save shift")
		}

		assignment.Status = enums.AssignmentCompleted
		assignment.Version++
		if err := repo.SaveAssignment(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save assignment")
		}

		if _, err := s.health.ApplyEvent(ctx, tx, health.ApplyEventInput{
			OrgID:        input.OrgID,
			DriverID:     input.DriverID,
			Type:         enums.HealthCompleteShift,
			AssignmentID: &assignment.ID,
			OccurredAt:   now,
		}); err != nil {
			return err
		}
		if rate, ok := shift.DeliveryRate(); ok && rate >= health.HighDeliveryThreshold {
			if _, err := s.health.ApplyEvent(ctx, tx, health.ApplyEventInput{
				OrgID:        input.OrgID,
				DriverID:     input.DriverID,
				Type:         enums.HealthHighDelivery,
				AssignmentID: &assignment.ID,
				OccurredAt:   now,
			}); err != nil {
				return err
			}
		}

		completed = shift
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// AmendShift corrects parcel counts inside the post-completion edit window.
// Health points already granted are not revisited; downstream metrics read
// the final counts.
func (s *service) AmendShift(ctx context.Context, input AmendShiftInput) (*models.Shift, error) {
	if err := validateAction(input.ActionInput); err != nil {
		return nil, err
	}
	if input.ParcelsReturned < 0 || input.ExceptedReturns < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parcel counts must be non-negative")
	}

	var amended *models.Shift
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		shift, err := s.loadHeldShift(ctx, repo, input.ActionInput)
		if err != nil {
			return err
		}
		if shift.CompletedAt == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shift is not completed")
		}
		if shift.EditableUntil == nil || now.After(*shift.EditableUntil) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "edit window closed")
		}
		if shift.ParcelsStart != nil && input.ParcelsReturned > *shift.ParcelsStart {
			return pkgerrors.New(pkgerrors.CodeValidation, "returns exceed parcels loaded")
		}

		returned := input.ParcelsReturned
		shift.ParcelsReturned = &returned
		shift.ExceptedReturns = input.ExceptedReturns
		if err := repo.SaveShift(ctx, shift); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save shift")
		}
		amended = shift
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amended, nil
}

// Reassign is the manager override: hand the slot to a chosen driver using
// the same write path as a bid win, with no penalties to anyone.
func (s *service) Reassign(ctx context.Context, input ReassignInput) (*models.Assignment, error) {
	if input.OrgID == uuid.Nil || input.AssignmentID == uuid.Nil || input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org, assignment and driver ids required")
	}

	var reassigned *models.Assignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		assignment, err := repo.GetAssignment(ctx, input.OrgID, input.AssignmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
		}
		if assignment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		switch assignment.Status {
		case enums.AssignmentActive, enums.AssignmentCompleted:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment already in progress")
		}

		driver, err := repo.GetDriver(ctx, input.OrgID, input.DriverID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
		}
		if driver == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		if !driver.Active {
			return pkgerrors.New(pkgerrors.CodePolicyDenied, "driver is deactivated")
		}

		if assignment.DriverID == nil || *assignment.DriverID != input.DriverID {
			busy, err := repo.HasLiveAssignmentOnDate(ctx, input.OrgID, input.DriverID, assignment.Date)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check date conflict")
			}
			if busy {
				return pkgerrors.New(pkgerrors.CodeConflict, "driver already assigned that date")
			}
		}

		driverID := input.DriverID
		assignment.DriverID = &driverID
		assignment.Status = enums.AssignmentConfirmed
		stamp := now
		assignment.ConfirmedAt = &stamp
		assignment.AssignedBy = enums.AssignedByManual
		assignment.CancelledAt = nil
		assignment.CancelType = nil
		assignment.Version++
		if err := repo.SaveAssignment(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save assignment")
		}

		intent := outbox.Intent{
			Type:          enums.NotificationAssignmentConfirmed,
			AggregateType: enums.AggregateAssignment,
			AggregateID:   assignment.ID,
			RecipientID:   input.DriverID,
			OrgID:         input.OrgID,
			OccurredAt:    now,
			Data: payloads.AssignmentConfirmedData{
				AssignmentID: assignment.ID,
				RouteID:      assignment.RouteID,
				Date:         assignment.Date,
			},
		}
		if err := s.outbox.Emit(ctx, tx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue confirmation intent")
		}

		reassigned = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reassigned, nil
}

// SweepConfirmationDeadlines fires 72-hour reminders and auto-drops every
// scheduled assignment whose 48-hour deadline passed. Per-assignment
// failures are isolated; the sweep reports and moves on.
func (s *service) SweepConfirmationDeadlines(ctx context.Context, orgID uuid.UUID, now time.Time) (*SweepReport, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	now = now.UTC()

	from := now.Truncate(24 * time.Hour)
	to := from.Add(sweepHorizon)
	candidates, err := s.repo.ListScheduledBetween(ctx, orgID, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list scheduled assignments")
	}

	report := &SweepReport{}
	var errs error
	routes := map[uuid.UUID]*models.Route{}
	for _, candidate := range candidates {
		candidate := candidate
		route, ok := routes[candidate.RouteID]
		if !ok {
			route, err = s.repo.GetRoute(ctx, orgID, candidate.RouteID)
			if err != nil || route == nil {
				errs = multierr.Append(errs, fmt.Errorf("assignment %s: load route: %w", candidate.ID, err))
				report.Failed++
				continue
			}
			routes[candidate.RouteID] = route
		}

		startAt := route.StartAt(candidate.Date)
		switch {
		case !now.Before(startAt.Add(-ConfirmDeadline)):
			if err := s.autoDrop(ctx, &candidate, now); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("assignment %s: %w", candidate.ID, err))
				report.Failed++
				continue
			}
			report.AutoDropped++
		case !now.Before(startAt.Add(-ReminderLead)) && candidate.ReminderAt == nil:
			if err := s.remind(ctx, &candidate, startAt, now); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("assignment %s: %w", candidate.ID, err))
				report.Failed++
				continue
			}
			report.Reminded++
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"org_id":       orgID.String(),
		"reminded":     report.Reminded,
		"auto_dropped": report.AutoDropped,
		"failed":       report.Failed,
	})
	s.logg.Info(logCtx, "confirmation deadline sweep finished")
	return report, errs
}

func (s *service) autoDrop(ctx context.Context, stale *models.Assignment, now time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := repo.GetAssignment(ctx, stale.OrgID, stale.ID)
		if err != nil {
			return err
		}
		// somebody confirmed or cancelled between listing and locking
		if assignment == nil || assignment.Status != enums.AssignmentScheduled || assignment.DriverID == nil {
			return nil
		}
		driverID := *assignment.DriverID

		cancelType := enums.CancelAutoDrop
		assignment.Status = enums.AssignmentCancelled
		stamp := now
		assignment.CancelledAt = &stamp
		assignment.CancelType = &cancelType
		assignment.Version++
		if err := repo.SaveAssignment(ctx, assignment); err != nil {
			return err
		}

		if _, err := s.health.ApplyEvent(ctx, tx, health.ApplyEventInput{
			OrgID:        assignment.OrgID,
			DriverID:     driverID,
			Type:         enums.HealthAutoDrop,
			AssignmentID: &assignment.ID,
			OccurredAt:   now,
		}); err != nil {
			return err
		}

		if _, err := s.windows.OpenWindow(ctx, tx, bidding.OpenWindowInput{
			OrgID:           assignment.OrgID,
			AssignmentID:    assignment.ID,
			Trigger:         enums.BidTriggerAutoDrop,
			PayBonusPercent: decimal.Zero,
		}); err != nil {
			return err
		}

		intent := outbox.Intent{
			Type:          enums.NotificationShiftAutoDropped,
			AggregateType: enums.AggregateAssignment,
			AggregateID:   assignment.ID,
			RecipientID:   driverID,
			OrgID:         assignment.OrgID,
			OccurredAt:    now,
			Data: payloads.ShiftAutoDroppedData{
				AssignmentID: assignment.ID,
				RouteID:      assignment.RouteID,
				Date:         assignment.Date,
			},
		}
		return s.outbox.Emit(ctx, tx, intent)
	})
}

func (s *service) remind(ctx context.Context, stale *models.Assignment, startAt, now time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := repo.GetAssignment(ctx, stale.OrgID, stale.ID)
		if err != nil {
			return err
		}
		if assignment == nil || assignment.Status != enums.AssignmentScheduled ||
			assignment.DriverID == nil || assignment.ReminderAt != nil {
			return nil
		}

		stamp := now
		assignment.ReminderAt = &stamp
		if err := repo.SaveAssignment(ctx, assignment); err != nil {
			return err
		}

		intent := outbox.Intent{
			Type:          enums.NotificationConfirmReminder,
			AggregateType: enums.AggregateAssignment,
			AggregateID:   assignment.ID,
			RecipientID:   *assignment.DriverID,
			OrgID:         assignment.OrgID,
			OccurredAt:    now,
			Data: payloads.ConfirmReminderData{
				AssignmentID: assignment.ID,
				RouteID:      assignment.RouteID,
				Date:         assignment.Date,
				DeadlineAt:   startAt.Add(-ConfirmDeadline),
			},
		}
		return s.outbox.Emit(ctx, tx, intent)
	})
}

// loadHeldAssignment loads the assignment, verifies the acting driver holds
// it, and resolves the route start instant.
func (s *service) loadHeldAssignment(ctx context.Context, repo Repository, input ActionInput) (*models.Assignment, time.Time, error) {
	assignment, err := repo.GetAssignment(ctx, input.OrgID, input.AssignmentID)
	if err != nil {
		return nil, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	if assignment == nil {
		return nil, time.Time{}, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	if assignment.DriverID == nil || *assignment.DriverID != input.DriverID {
		return nil, time.Time{}, pkgerrors.New(pkgerrors.CodePolicyDenied, "assignment is held by another driver")
	}
	route, err := repo.GetRoute(ctx, input.OrgID, assignment.RouteID)
	if err != nil {
		return nil, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
	}
	if route == nil {
		return nil, time.Time{}, pkgerrors.New(pkgerrors.CodeNotFound, "route not found")
	}
	return assignment, route.StartAt(assignment.Date), nil
}

func (s *service) loadHeldShift(ctx context.Context, repo Repository, input ActionInput) (*models.Shift, error) {
	shift, err := repo.GetShiftByAssignment(ctx, input.OrgID, input.AssignmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shift")
	}
	if shift == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no arrival recorded")
	}
	if shift.DriverID != input.DriverID {
		return nil, pkgerrors.New(pkgerrors.CodePolicyDenied, "shift belongs to another driver")
	}
	return shift, nil
}

func validateAction(input ActionInput) error {
	if input.OrgID == uuid.Nil || input.DriverID == uuid.Nil || input.AssignmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "org, driver and assignment ids required")
	}
	return nil
}
