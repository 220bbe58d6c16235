package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/orro3790/drive-sub004/pkg/logger"
)

type statsRecomputer interface {
	RecomputeAll(ctx context.Context, orgID uuid.UUID) error
}

// MetricsJobParams configures the driver metrics recompute.
type MetricsJobParams struct {
	Logger *logger.Logger
	Orgs   orgLister
	Stats  statsRecomputer
}

// NewMetricsJob builds the job that rebuilds driver attendance metrics and
// applies the flag/cap policy for every org.
func NewMetricsJob(params MetricsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orgs == nil {
		return nil, fmt.Errorf("org lister required")
	}
	if params.Stats == nil {
		return nil, fmt.Errorf("driver stats service required")
	}
	return &metricsJob{
		logg:  params.Logger,
		orgs:  params.Orgs,
		stats: params.Stats,
	}, nil
}

type metricsJob struct {
	logg  *logger.Logger
	orgs  orgLister
	stats statsRecomputer
}

func (j *metricsJob) Name() string { return "driver-metrics" }

func (j *metricsJob) Run(ctx context.Context) error {
	orgIDs, err := j.orgs.ListOrgIDs(ctx)
	if err != nil {
		return fmt.Errorf("list orgs: %w", err)
	}

	var errs []error
	for _, orgID := range orgIDs {
		orgCtx := j.logg.WithOrgID(ctx, orgID.String())
		if err := j.stats.RecomputeAll(orgCtx, orgID); err != nil {
			errs = append(errs, fmt.Errorf("org %s metrics: %w", orgID, err))
		}
	}
	return multierr.Combine(errs...)
}
