package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/orro3790/drive-sub004/pkg/logger"
)

type healthEvaluator interface {
	EvaluateDailyHealth(ctx context.Context, orgID uuid.UUID, day time.Time) error
	EvaluateWeeklyHealth(ctx context.Context, orgID uuid.UUID, evalMonday time.Time) error
}

// HealthJobParams configures the scheduled health evaluations.
type HealthJobParams struct {
	Logger *logger.Logger
	Orgs   orgLister
	Health healthEvaluator
}

// NewHealthJob builds the job that appends the daily health snapshots and
// advances the weekly star evaluation. Both phases guard themselves: the
// snapshot is unique per (driver, day) and the weekly pass stamps the
// evaluated week, so reruns within a cycle change nothing.
func NewHealthJob(params HealthJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orgs == nil {
		return nil, fmt.Errorf("org lister required")
	}
	if params.Health == nil {
		return nil, fmt.Errorf("health service required")
	}
	return &healthJob{
		logg:   params.Logger,
		orgs:   params.Orgs,
		health: params.Health,
		now:    time.Now,
	}, nil
}

type healthJob struct {
	logg   *logger.Logger
	orgs   orgLister
	health healthEvaluator
	now    func() time.Time
}

func (j *healthJob) Name() string { return "health-evaluation" }

func (j *healthJob) Run(ctx context.Context) error {
	orgIDs, err := j.orgs.ListOrgIDs(ctx)
	if err != nil {
		return fmt.Errorf("list orgs: %w", err)
	}

	now := j.now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	evalMonday := mostRecentMonday(now)

	var errs []error
	for _, orgID := range orgIDs {
		orgCtx := j.logg.WithOrgID(ctx, orgID.String())
		if err := j.health.EvaluateDailyHealth(orgCtx, orgID, day); err != nil {
			errs = append(errs, fmt.Errorf("org %s daily health: %w", orgID, err))
		}
		if err := j.health.EvaluateWeeklyHealth(orgCtx, orgID, evalMonday); err != nil {
			errs = append(errs, fmt.Errorf("org %s weekly health: %w", orgID, err))
		}
	}
	return multierr.Combine(errs...)
}

// mostRecentMonday returns the Monday of the week containing now,
// truncated to midnight UTC.
func mostRecentMonday(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) - int(time.Monday) + 7) % 7
	return day.AddDate(0, 0, -offset)
}
