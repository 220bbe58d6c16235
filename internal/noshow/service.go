package noshow

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

// Service is the no-show detector: at each route's start cutoff it converts
// confirmed-but-absent assignments into no-shows, resets the driver's
// health, and puts the route on the emergency market.
type Service interface {
	DetectNoShows(ctx context.Context, orgID uuid.UUID, now time.Time) (*Report, error)
}

// Report summarizes one detection pass.
type Report struct {
	Detected int
	Failed   int
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxEmitter
	health  healthApplier
	windows windowOpener
	bonus   decimal.Decimal
	logg    *logger.Logger
}

// NewService wires the detector. bonus is the emergency pay bonus percent
// attached to windows it opens.
func NewService(repo Repository, tx txRunner, emitter outboxEmitter, healthSvc healthApplier, windows windowOpener, bonus decimal.Decimal, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("noshow repository required")
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
		bonus:   bonus,
		logg:    logg,
	}, nil
}

// DetectNoShows processes every confirmed assignment on today's date whose
// route has already started and whose driver never arrived. Already-marked
// rows carry no_show_at and are never listed again, so re-running for the
// same date is a no-op. Per-assignment failures are isolated.
func (s *service) DetectNoShows(ctx context.Context, orgID uuid.UUID, now time.Time) (*Report, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	now = now.UTC()
	date := now.Truncate(24 * time.Hour)

	candidates, err := s.repo.ListUnprocessedForDate(ctx, orgID, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list confirmed assignments")
	}

	report := &Report{}
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
		// the cutoff is the exact route start, not a grace range
		if now.Before(route.StartAt(candidate.Date)) {
			continue
		}

		arrived, err := s.repo.HasArrival(ctx, orgID, candidate.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("assignment %s: check arrival: %w", candidate.ID, err))
			report.Failed++
			continue
		}
		if arrived {
			continue
		}

		if err := s.markNoShow(ctx, &candidate, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("assignment %s: %w", candidate.ID, err))
			report.Failed++
			continue
		}
		report.Detected++
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"org_id":   orgID.String(),
		"date":     date.Format("2006-01-02"),
		"detected": report.Detected,
		"failed":   report.Failed,
	})
	s.logg.Info(logCtx, "no-show detection finished")
	return report, errs
}

func (s *service) markNoShow(ctx context.Context, stale *models.Assignment, now time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := repo.GetAssignment(ctx, stale.OrgID, stale.ID)
		if err != nil {
			return err
		}
		if assignment == nil || assignment.Status != enums.AssignmentConfirmed ||
			assignment.DriverID == nil || assignment.NoShowAt != nil {
			return nil
		}
		driverID := *assignment.DriverID

		stamp := now
		assignment.NoShowAt = &stamp
		assignment.Status = enums.AssignmentCancelled
		assignment.CancelType = nil
		assignment.Version++
		if err := repo.SaveAssignment(ctx, assignment); err != nil {
			return err
		}

		if _, err := s.health.ApplyEvent(ctx, tx, health.ApplyEventInput{
			OrgID:        assignment.OrgID,
			DriverID:     driverID,
			Type:         enums.HealthNoShow,
			AssignmentID: &assignment.ID,
			OccurredAt:   now,
		}); err != nil {
			return err
		}

		if _, err := s.windows.OpenWindow(ctx, tx, bidding.OpenWindowInput{
			OrgID:           assignment.OrgID,
			AssignmentID:    assignment.ID,
			Trigger:         enums.BidTriggerNoShow,
			PayBonusPercent: s.bonus,
		}); err != nil {
			return err
		}

		intent := outbox.Intent{
			Type:          enums.NotificationDriverNoShow,
			AggregateType: enums.AggregateAssignment,
			AggregateID:   assignment.ID,
			RecipientID:   assignment.OrgID,
			OrgID:         assignment.OrgID,
			OccurredAt:    now,
			Data: payloads.DriverNoShowData{
				DriverID:     driverID,
				AssignmentID: assignment.ID,
				RouteID:      assignment.RouteID,
				Date:         assignment.Date,
			},
		}
		if err := s.outbox.Emit(ctx, tx, intent); err != nil {
			return err
		}

		logCtx := s.logg.WithDriverID(s.logg.WithOrgID(ctx, assignment.OrgID.String()), driverID.String())
		s.logg.Warn(logCtx, "driver no-show detected")
		return nil
	})
}
