package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/orro3790/drive-sub004/internal/scheduling"
	"github.com/orro3790/drive-sub004/pkg/logger"
)

const defaultLookaheadWeeks = 2

type scheduler interface {
	GenerateWeek(ctx context.Context, orgID uuid.UUID, weekStart time.Time) (*scheduling.WeekReport, error)
}

// ScheduleJobParams configures rolling schedule generation.
type ScheduleJobParams struct {
	Logger         *logger.Logger
	Orgs           orgLister
	Scheduler      scheduler
	LookaheadWeeks int
}

// NewScheduleJob builds the job that keeps the rolling schedule horizon
// filled for every org. Generation skips (route, date) slots that already
// have an assignment, so reruns only fill gaps.
func NewScheduleJob(params ScheduleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orgs == nil {
		return nil, fmt.Errorf("org lister required")
	}
	if params.Scheduler == nil {
		return nil, fmt.Errorf("scheduler required")
	}
	lookahead := params.LookaheadWeeks
	if lookahead <= 0 {
		lookahead = defaultLookaheadWeeks
	}
	return &scheduleJob{
		logg:      params.Logger,
		orgs:      params.Orgs,
		scheduler: params.Scheduler,
		lookahead: lookahead,
		now:       time.Now,
	}, nil
}

type scheduleJob struct {
	logg      *logger.Logger
	orgs      orgLister
	scheduler scheduler
	lookahead int
	now       func() time.Time
}

func (j *scheduleJob) Name() string { return "schedule-generation" }

func (j *scheduleJob) Run(ctx context.Context) error {
	orgIDs, err := j.orgs.ListOrgIDs(ctx)
	if err != nil {
		return fmt.Errorf("list orgs: %w", err)
	}

	firstWeek := upcomingMonday(j.now().UTC())
	var errs []error
	for _, orgID := range orgIDs {
		orgCtx := j.logg.WithOrgID(ctx, orgID.String())
		for week := 0; week < j.lookahead; week++ {
			weekStart := firstWeek.AddDate(0, 0, 7*week)
			report, err := j.scheduler.GenerateWeek(orgCtx, orgID, weekStart)
			if err != nil {
				errs = append(errs, fmt.Errorf("org %s week %s: %w", orgID, weekStart.Format("2006-01-02"), err))
				continue
			}
			j.logg.Info(j.logg.WithFields(orgCtx, map[string]any{
				"week_start": weekStart.Format("2006-01-02"),
				"assigned":   report.Assigned,
				"unfilled":   report.Unfilled,
				"skipped":    report.Skipped,
			}), "week generated")
		}
	}
	return multierr.Combine(errs...)
}

// upcomingMonday returns the first Monday strictly after the given time,
// truncated to midnight UTC.
func upcomingMonday(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}
