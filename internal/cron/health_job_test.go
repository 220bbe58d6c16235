package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orro3790/drive-sub004/pkg/logger"
)

type fakeHealthEvaluator struct {
	dailyDays    []time.Time
	weeklyWeeks  []time.Time
	evaluatedFor []uuid.UUID
}

func (f *fakeHealthEvaluator) EvaluateDailyHealth(ctx context.Context, orgID uuid.UUID, day time.Time) error {
	f.dailyDays = append(f.dailyDays, day)
	f.evaluatedFor = append(f.evaluatedFor, orgID)
	return nil
}

func (f *fakeHealthEvaluator) EvaluateWeeklyHealth(ctx context.Context, orgID uuid.UUID, evalMonday time.Time) error {
	f.weeklyWeeks = append(f.weeklyWeeks, evalMonday)
	return nil
}

func TestHealthJobSnapshotsYesterdayAndCurrentWeek(t *testing.T) {
	evaluator := &fakeHealthEvaluator{}
	job, err := NewHealthJob(HealthJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Orgs:   &fakeOrgLister{ids: []uuid.UUID{uuid.New()}},
		Health: evaluator,
	})
	require.NoError(t, err)

	// Wednesday 2026-03-18 08:00 UTC.
	job.(*healthJob).now = func() time.Time {
		return time.Date(2026, time.March, 18, 8, 0, 0, 0, time.UTC)
	}

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, evaluator.dailyDays, 1)
	assert.Equal(t, time.Date(2026, time.March, 17, 0, 0, 0, 0, time.UTC), evaluator.dailyDays[0])
	require.Len(t, evaluator.weeklyWeeks, 1)
	assert.Equal(t, time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC), evaluator.weeklyWeeks[0])
}

func TestMostRecentMonday(t *testing.T) {
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC), time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, time.March, 22, 23, 0, 0, 0, time.UTC), time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, time.March, 23, 1, 0, 0, 0, time.UTC), time.Date(2026, time.March, 23, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, mostRecentMonday(tc.now))
	}
}
