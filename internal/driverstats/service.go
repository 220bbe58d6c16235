package driverstats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
	"github.com/orro3790/drive-sub004/pkg/outbox"
	"github.com/orro3790/drive-sub004/pkg/outbox/payloads"
)

const (
	// Flag thresholds: stricter before a driver has meaningful history.
	EarlyShiftCount      = 10
	FlagThresholdEarly   = 0.80
	FlagThresholdSettled = 0.70

	// Reward rule.
	RewardShiftCount = 20
	RewardAttendance = 0.95

	DefaultWeeklyCap = 4
	RewardWeeklyCap  = 6
	MinWeeklyCap     = 1

	FlagGracePeriod = 7 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, intent outbox.Intent) error
}

// Service recomputes rolling driver statistics and applies the flag, grace
// and weekly-cap policy they drive.
type Service interface {
	Recompute(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverMetrics, error)
	RecomputeAll(ctx context.Context, orgID uuid.UUID) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxEmitter
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the metrics and flagging dependencies.
func NewService(repo Repository, tx txRunner, emitter outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("driverstats repository required")
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

// RecomputeAll refreshes every active driver, isolating per-driver failures.
func (s *service) RecomputeAll(ctx context.Context, orgID uuid.UUID) error {
	if orgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	ids, err := s.repo.ListActiveDriverIDs(ctx, orgID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active drivers")
	}

	var errs error
	for _, driverID := range ids {
		if _, err := s.Recompute(ctx, orgID, driverID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("driver %s: %w", driverID, err))
		}
	}
	return errs
}

// Recompute rebuilds the metrics row from history and applies the flag and
// cap rules. The whole transition runs in one transaction so a driver is
// never observed flagged with a stale cap.
func (s *service) Recompute(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverMetrics, error) {
	if orgID == uuid.Nil || driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org and driver ids required")
	}

	var result *models.DriverMetrics
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		driver, err := repo.GetDriver(ctx, orgID, driverID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
		}
		if driver == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}

		completed, err := repo.CountCompletedAssignments(ctx, orgID, driverID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count completions")
		}
		missed, err := repo.CountMissEvents(ctx, orgID, driverID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count misses")
		}
		rates, err := repo.CompletedShiftRates(ctx, orgID, driverID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shift rates")
		}

		total := completed + missed
		attendance := decimal.Zero
		if total > 0 {
			attendance = decimal.NewFromInt(int64(completed)).
				Div(decimal.NewFromInt(int64(total))).Round(4)
		}
		completion := decimal.Zero
		if len(rates) > 0 {
			var sum float64
			for _, rate := range rates {
				sum += rate
			}
			completion = decimal.NewFromFloat(sum / float64(len(rates))).Round(4)
		}

		metrics, err := repo.GetMetrics(ctx, orgID, driverID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load metrics")
		}
		if metrics == nil {
			metrics = &models.DriverMetrics{OrgID: orgID, DriverID: driverID}
		}
		metrics.AttendanceRate = attendance
		metrics.CompletionRate = completion
		metrics.TotalShifts = total
		metrics.CompletedShifts = completed
		metrics.MissedShifts = missed
		metrics.RecomputedAt = s.now().UTC()
		if err := repo.SaveMetrics(ctx, metrics); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save metrics")
		}

		if err := s.applyPolicy(ctx, tx, repo, driver, metrics); err != nil {
			return err
		}
		result = metrics
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyPolicy moves the driver's flag and weekly cap onto the values the
// fresh metrics imply. The cap is fully derived, so recomputation stays
// idempotent: re-running with unchanged history touches nothing.
func (s *service) applyPolicy(ctx context.Context, tx *gorm.DB, repo Repository, driver *models.Driver, metrics *models.DriverMetrics) error {
	now := s.now().UTC()
	shouldFlag := s.belowThreshold(metrics)

	newlyFlagged := shouldFlag && !driver.Flagged
	if newlyFlagged {
		driver.Flagged = true
		stamp := now
		driver.FlaggedAt = &stamp
	}
	if !shouldFlag && driver.Flagged {
		driver.Flagged = false
		driver.FlaggedAt = nil
	}

	previousCap := driver.WeeklyCap
	driver.WeeklyCap = s.derivedCap(driver, metrics, now)

	if err := repo.SaveDriver(ctx, driver); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save driver")
	}

	if newlyFlagged {
		threshold := decimal.NewFromFloat(FlagThresholdSettled)
		if metrics.TotalShifts < EarlyShiftCount {
			threshold = decimal.NewFromFloat(FlagThresholdEarly)
		}
		intent := outbox.Intent{
			Type:          enums.NotificationCorrectiveWarning,
			AggregateType: enums.AggregateDriver,
			AggregateID:   driver.ID,
			RecipientID:   driver.ID,
			OrgID:         driver.OrgID,
			DedupSuffix:   now.Format("2006-01-02"),
			OccurredAt:    now,
			Data: payloads.CorrectiveWarningData{
				AttendanceRate: metrics.AttendanceRate,
				Threshold:      threshold,
				GraceEndsAt:    now.Add(FlagGracePeriod),
			},
		}
		if err := s.outbox.Emit(ctx, tx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue corrective warning")
		}
		logCtx := s.logg.WithDriverID(ctx, driver.ID.String())
		s.logg.Warn(logCtx, "driver flagged for low attendance")
	}

	if driver.WeeklyCap == RewardWeeklyCap && previousCap < RewardWeeklyCap {
		intent := outbox.Intent{
			Type:          enums.NotificationBonusEligible,
			AggregateType: enums.AggregateDriver,
			AggregateID:   driver.ID,
			RecipientID:   driver.ID,
			OrgID:         driver.OrgID,
			DedupSuffix:   now.Format("2006-01-02"),
			OccurredAt:    now,
			Data: payloads.BonusEligibleData{
				WeeklyCap:      driver.WeeklyCap,
				AttendanceRate: metrics.AttendanceRate,
			},
		}
		if err := s.outbox.Emit(ctx, tx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue bonus eligible")
		}
	}
	return nil
}

func (s *service) belowThreshold(metrics *models.DriverMetrics) bool {
	if metrics.TotalShifts == 0 {
		return false
	}
	threshold := decimal.NewFromFloat(FlagThresholdSettled)
	if metrics.TotalShifts < EarlyShiftCount {
		threshold = decimal.NewFromFloat(FlagThresholdEarly)
	}
	return metrics.AttendanceRate.LessThan(threshold)
}

// derivedCap computes the weekly cap from current standing: base 4, raised
// to 6 by the reward rule, reduced by 1 (floor 1) once a flag outlives its
// 7-day grace.
func (s *service) derivedCap(driver *models.Driver, metrics *models.DriverMetrics, now time.Time) int {
	cap := DefaultWeeklyCap
	if metrics.TotalShifts >= RewardShiftCount &&
		metrics.AttendanceRate.GreaterThanOrEqual(decimal.NewFromFloat(RewardAttendance)) {
		cap = RewardWeeklyCap
	}
	if driver.Flagged && driver.FlaggedAt != nil && !now.Before(driver.FlaggedAt.Add(FlagGracePeriod)) {
		cap--
	}
	if cap < MinWeeklyCap {
		cap = MinWeeklyCap
	}
	return cap
}
