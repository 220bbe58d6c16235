package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/orro3790/drive-sub004/internal/lifecycle"
	"github.com/orro3790/drive-sub004/internal/noshow"
	"github.com/orro3790/drive-sub004/pkg/logger"
)

type confirmationSweeper interface {
	SweepConfirmationDeadlines(ctx context.Context, orgID uuid.UUID, now time.Time) (*lifecycle.SweepReport, error)
}

type noShowDetector interface {
	DetectNoShows(ctx context.Context, orgID uuid.UUID, now time.Time) (*noshow.Report, error)
}

type windowCloser interface {
	CloseBidWindows(ctx context.Context, orgID uuid.UUID, now time.Time) error
}

// DispatchSweepJobParams configures the time-driven dispatch sweeps.
type DispatchSweepJobParams struct {
	Logger    *logger.Logger
	Orgs      orgLister
	Lifecycle confirmationSweeper
	NoShows   noShowDetector
	Windows   windowCloser
}

// NewDispatchSweepJob builds the job that advances every deadline-driven
// transition: confirmation reminders and auto-drops, no-show detection,
// and bid window resolution. The three sweeps run in that order so a
// freshly dropped slot can be rebid within the same cycle.
func NewDispatchSweepJob(params DispatchSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orgs == nil {
		return nil, fmt.Errorf("org lister required")
	}
	if params.Lifecycle == nil {
		return nil, fmt.Errorf("lifecycle service required")
	}
	if params.NoShows == nil {
		return nil, fmt.Errorf("no-show service required")
	}
	if params.Windows == nil {
		return nil, fmt.Errorf("bidding service required")
	}
	return &dispatchSweepJob{
		logg:      params.Logger,
		orgs:      params.Orgs,
		lifecycle: params.Lifecycle,
		noShows:   params.NoShows,
		windows:   params.Windows,
		now:       time.Now,
	}, nil
}

type dispatchSweepJob struct {
	logg      *logger.Logger
	orgs      orgLister
	lifecycle confirmationSweeper
	noShows   noShowDetector
	windows   windowCloser
	now       func() time.Time
}

func (j *dispatchSweepJob) Name() string { return "dispatch-sweep" }

func (j *dispatchSweepJob) Run(ctx context.Context) error {
	orgIDs, err := j.orgs.ListOrgIDs(ctx)
	if err != nil {
		return fmt.Errorf("list orgs: %w", err)
	}

	now := j.now().UTC()
	var errs []error
	for _, orgID := range orgIDs {
		orgCtx := j.logg.WithOrgID(ctx, orgID.String())
		if report, err := j.lifecycle.SweepConfirmationDeadlines(orgCtx, orgID, now); err != nil {
			errs = append(errs, fmt.Errorf("org %s confirmations: %w", orgID, err))
		} else if report.Reminded > 0 || report.AutoDropped > 0 {
			j.logg.Info(j.logg.WithFields(orgCtx, map[string]any{
				"reminded":     report.Reminded,
				"auto_dropped": report.AutoDropped,
			}), "confirmation sweep advanced")
		}
		if _, err := j.noShows.DetectNoShows(orgCtx, orgID, now); err != nil {
			errs = append(errs, fmt.Errorf("org %s no-shows: %w", orgID, err))
		}
		if err := j.windows.CloseBidWindows(orgCtx, orgID, now); err != nil {
			errs = append(errs, fmt.Errorf("org %s bid windows: %w", orgID, err))
		}
	}
	return multierr.Combine(errs...)
}
