package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
	"github.com/orro3790/drive-sub004/pkg/outbox"
	"github.com/orro3790/drive-sub004/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, intent outbox.Intent) error
}

// Service maintains the per-driver reliability score, hard-stop policy and
// weekly star progression.
type Service interface {
	ApplyEvent(ctx context.Context, tx *gorm.DB, input ApplyEventInput) (*models.DriverHealthState, error)
	EvaluateDailyHealth(ctx context.Context, orgID uuid.UUID, day time.Time) error
	EvaluateWeeklyHealth(ctx context.Context, orgID uuid.UUID, evalMonday time.Time) error
	Reinstate(ctx context.Context, input ReinstateInput) (*models.DriverHealthState, error)
}

// ApplyEventInput describes one lifecycle event feeding the score.
type ApplyEventInput struct {
	OrgID        uuid.UUID
	DriverID     uuid.UUID
	Type         enums.HealthEventType
	AssignmentID *uuid.UUID
	OccurredAt   time.Time
}

// ReinstateInput is the manual manager action clearing a hard stop.
type ReinstateInput struct {
	OrgID     uuid.UUID
	DriverID  uuid.UUID
	ManagerID uuid.UUID
	Reason    string
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxEmitter
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires health engine dependencies.
func NewService(repo Repository, tx txRunner, emitter outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("health repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: emitter,
		logg:   logg,
		now:    time.Now,
	}, nil
}

// ApplyEvent mutates the score inside the caller's transaction so lifecycle
// state and health stay atomic. No-show forces a full reset; late cancels
// are checked against the trailing-30-day hard-stop rule.
func (s *service) ApplyEvent(ctx context.Context, tx *gorm.DB, input ApplyEventInput) (*models.DriverHealthState, error) {
	if input.OrgID == uuid.Nil || input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org and driver ids required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown health event type")
	}

	occurred := input.OccurredAt
	if occurred.IsZero() {
		occurred = s.now().UTC()
	}

	repo := s.repo.WithTx(tx)
	state, err := repo.GetOrCreateState(ctx, input.OrgID, input.DriverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load health state")
	}
	before := state.Score
	wasStopped := state.RequiresIntervention

	switch input.Type {
	case enums.HealthNoShow:
		s.resetState(state, occurred)

	case enums.HealthReinstatement:
		state.RequiresIntervention = false
		state.PoolEligible = true
		state.HardStopAt = nil

	default:
		delta, ok := PointsFor(input.Type)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event type carries no points")
		}
		state.Score = clampScore(state.Score+delta, state.RequiresIntervention)

		if input.Type == enums.HealthLateCancel {
			prior, err := repo.CountEventsInRange(ctx, input.OrgID, input.DriverID,
				[]enums.HealthEventType{enums.HealthLateCancel},
				occurred.Add(-HardStopWindow), occurred)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count late cancels")
			}
			if prior+1 >= HardStopLateCancels {
				s.hardStop(state, occurred)
			}
		}
	}

	event := models.DriverHealthEvent{
		OrgID:        input.OrgID,
		DriverID:     input.DriverID,
		Type:         input.Type,
		Delta:        state.Score - before,
		ScoreAfter:   state.Score,
		AssignmentID: input.AssignmentID,
		OccurredAt:   occurred,
	}
	if err := repo.InsertEvent(ctx, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append health event")
	}
	if err := repo.SaveState(ctx, state); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save health state")
	}

	if state.RequiresIntervention && !wasStopped {
		intent := outbox.Intent{
			Type:          enums.NotificationStreakReset,
			AggregateType: enums.AggregateHealthState,
			AggregateID:   state.ID,
			RecipientID:   input.DriverID,
			OrgID:         input.OrgID,
			DedupSuffix:   event.ID.String(),
			OccurredAt:    occurred,
			Data: payloads.StreakResetData{
				Reason:     string(input.Type),
				OccurredAt: occurred,
			},
		}
		if err := s.outbox.Emit(ctx, tx, intent); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue streak reset intent")
		}
	}

	return state, nil
}

// EvaluateDailyHealth appends one immutable snapshot per driver per day.
// Re-runs for an already-snapshotted day perform zero mutations.
func (s *service) EvaluateDailyHealth(ctx context.Context, orgID uuid.UUID, day time.Time) error {
	if orgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	dayStart := truncateToDay(day)

	states, err := s.repo.ListStates(ctx, orgID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list health states")
	}

	var errs error
	for _, state := range states {
		state := state
		if err := s.snapshotDriver(ctx, &state, dayStart); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("driver %s: %w", state.DriverID, err))
		}
	}
	return errs
}

func (s *service) snapshotDriver(ctx context.Context, state *models.DriverHealthState, dayStart time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		noShows, err := repo.CountEventsInRange(ctx, state.OrgID, state.DriverID,
			[]enums.HealthEventType{enums.HealthNoShow},
			dayStart.Add(-HardStopWindow), dayStart.Add(24*time.Hour))
		if err != nil {
			return err
		}
		lateCancels, err := repo.CountEventsInRange(ctx, state.OrgID, state.DriverID,
			[]enums.HealthEventType{enums.HealthLateCancel},
			dayStart.Add(-HardStopWindow), dayStart.Add(24*time.Hour))
		if err != nil {
			return err
		}
		pointEvents, err := repo.CountEventsInRange(ctx, state.OrgID, state.DriverID,
			nil, dayStart.Add(-24*time.Hour), dayStart.Add(24*time.Hour))
		if err != nil {
			return err
		}

		snapshot := models.DriverHealthSnapshot{
			OrgID:          state.OrgID,
			DriverID:       state.DriverID,
			Day:            dayStart,
			Score:          state.Score,
			Stars:          state.Stars,
			StreakWeeks:    state.StreakWeeks,
			PoolEligible:   state.PoolEligible,
			HardStopped:    state.RequiresIntervention,
			NoShows30d:     int(noShows),
			LateCancels30d: int(lateCancels),
			PointEvents24h: int(pointEvents),
		}
		_, err = repo.InsertSnapshot(ctx, &snapshot)
		return err
	})
}

// EvaluateWeeklyHealth advances stars/streak for the Mon-Sun week ending
// just before evalMonday. A zero-assignment week is neutral; a hard-stopped
// driver never advances.
func (s *service) EvaluateWeeklyHealth(ctx context.Context, orgID uuid.UUID, evalMonday time.Time) error {
	if orgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	weekEnd := truncateToDay(evalMonday)
	weekStart := weekEnd.Add(-7 * 24 * time.Hour)

	states, err := s.repo.ListStates(ctx, orgID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list health states")
	}

	var errs error
	for _, state := range states {
		state := state
		if err := s.evaluateDriverWeek(ctx, &state, weekStart, weekEnd); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("driver %s: %w", state.DriverID, err))
		}
	}
	return errs
}

func (s *service) evaluateDriverWeek(ctx context.Context, state *models.DriverHealthState, weekStart, weekEnd time.Time) error {
	if state.LastWeeklyEvalWeek != nil && !state.LastWeeklyEvalWeek.Before(weekStart) {
		return nil
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.GetState(ctx, state.OrgID, state.DriverID)
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}
		if current.LastWeeklyEvalWeek != nil && !current.LastWeeklyEvalWeek.Before(weekStart) {
			return nil
		}

		stamp := weekStart
		current.LastWeeklyEvalWeek = &stamp

		if current.RequiresIntervention {
			return repo.SaveState(ctx, current)
		}

		qualifies, err := s.weekQualifies(ctx, repo, current, weekStart, weekEnd)
		if err != nil {
			return err
		}
		if !qualifies {
			return repo.SaveState(ctx, current)
		}

		current.StreakWeeks++
		if current.Stars < MaxStars {
			current.Stars++
		}
		if err := repo.SaveState(ctx, current); err != nil {
			return err
		}

		intent := outbox.Intent{
			Type:          enums.NotificationStreakAdvanced,
			AggregateType: enums.AggregateHealthState,
			AggregateID:   current.ID,
			RecipientID:   current.DriverID,
			OrgID:         current.OrgID,
			DedupSuffix:   weekStart.Format("2006-01-02"),
			OccurredAt:    weekEnd,
			Data: payloads.StreakAdvancedData{
				Stars:       current.Stars,
				StreakWeeks: current.StreakWeeks,
				WeekStart:   weekStart,
			},
		}
		return s.outbox.Emit(ctx, tx, intent)
	})
}

func (s *service) weekQualifies(ctx context.Context, repo Repository, state *models.DriverHealthState, weekStart, weekEnd time.Time) (bool, error) {
	negatives, err := repo.CountEventsInRange(ctx, state.OrgID, state.DriverID,
		[]enums.HealthEventType{
			enums.HealthNoShow,
			enums.HealthLateCancel,
			enums.HealthDriverCancel,
			enums.HealthAutoDrop,
		}, weekStart, weekEnd)
	if err != nil {
		return false, err
	}
	if negatives > 0 {
		return false, nil
	}

	activity, err := repo.WeekActivity(ctx, state.OrgID, state.DriverID, weekStart, weekEnd)
	if err != nil {
		return false, err
	}
	if activity.Assignments == 0 {
		// neutral week
		return false, nil
	}
	if activity.Completed != activity.Assignments {
		return false, nil
	}
	if !activity.HasCompletion || activity.CompletionRate < QualifyingCompletionRate {
		return false, nil
	}
	return true, nil
}

// Reinstate clears a hard stop after manual manager review. Score and stars
// are not restored retroactively.
func (s *service) Reinstate(ctx context.Context, input ReinstateInput) (*models.DriverHealthState, error) {
	if input.OrgID == uuid.Nil || input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org and driver ids required")
	}
	if input.ManagerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "manager id required")
	}

	var state *models.DriverHealthState
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.GetState(ctx, input.OrgID, input.DriverID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load health state")
		}
		if current == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "driver health state not found")
		}
		if !current.RequiresIntervention {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "driver is not hard-stopped")
		}

		applied, err := s.ApplyEvent(ctx, tx, ApplyEventInput{
			OrgID:    input.OrgID,
			DriverID: input.DriverID,
			Type:     enums.HealthReinstatement,
		})
		if err != nil {
			return err
		}
		state = applied
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"driver_id":  input.DriverID.String(),
		"manager_id": input.ManagerID.String(),
		"reason":     input.Reason,
	})
	s.logg.Info(logCtx, "driver reinstated after manager review")
	return state, nil
}

func (s *service) resetState(state *models.DriverHealthState, at time.Time) {
	state.Score = 0
	state.Stars = 0
	state.StreakWeeks = 0
	state.PoolEligible = false
	state.RequiresIntervention = true
	stamp := at
	state.HardStopAt = &stamp
	state.LastScoreResetAt = &stamp
}

func (s *service) hardStop(state *models.DriverHealthState, at time.Time) {
	if state.Score > HardStopCap {
		state.Score = HardStopCap
	}
	state.Stars = 0
	state.StreakWeeks = 0
	state.PoolEligible = false
	state.RequiresIntervention = true
	stamp := at
	state.HardStopAt = &stamp
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
