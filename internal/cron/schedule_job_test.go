package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orro3790/drive-sub004/internal/scheduling"
	"github.com/orro3790/drive-sub004/pkg/logger"
)

type fakeOrgLister struct {
	ids []uuid.UUID
	err error
}

func (f *fakeOrgLister) ListOrgIDs(context.Context) ([]uuid.UUID, error) {
	return f.ids, f.err
}

type generatedWeek struct {
	orgID     uuid.UUID
	weekStart time.Time
}

type fakeScheduler struct {
	weeks  []generatedWeek
	errFor map[uuid.UUID]error
}

func (f *fakeScheduler) GenerateWeek(ctx context.Context, orgID uuid.UUID, weekStart time.Time) (*scheduling.WeekReport, error) {
	if err := f.errFor[orgID]; err != nil {
		return nil, err
	}
	f.weeks = append(f.weeks, generatedWeek{orgID: orgID, weekStart: weekStart})
	return &scheduling.WeekReport{WeekStart: weekStart, Assigned: 3}, nil
}

func TestScheduleJobCoversLookaheadForEveryOrg(t *testing.T) {
	orgA := uuid.New()
	orgB := uuid.New()
	sched := &fakeScheduler{}
	job, err := NewScheduleJob(ScheduleJobParams{
		Logger:         logger.New(logger.Options{ServiceName: "cron-test"}),
		Orgs:           &fakeOrgLister{ids: []uuid.UUID{orgA, orgB}},
		Scheduler:      sched,
		LookaheadWeeks: 2,
	})
	require.NoError(t, err)

	// Wednesday 2026-03-11; the horizon starts the following Monday.
	job.(*scheduleJob).now = func() time.Time {
		return time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)
	}

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, sched.weeks, 4)

	firstMonday := time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, orgA, sched.weeks[0].orgID)
	assert.Equal(t, firstMonday, sched.weeks[0].weekStart)
	assert.Equal(t, firstMonday.AddDate(0, 0, 7), sched.weeks[1].weekStart)
	assert.Equal(t, orgB, sched.weeks[2].orgID)
}

func TestScheduleJobIsolatesOrgFailures(t *testing.T) {
	broken := uuid.New()
	healthy := uuid.New()
	sched := &fakeScheduler{errFor: map[uuid.UUID]error{broken: errors.New("boom")}}
	job, err := NewScheduleJob(ScheduleJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "cron-test"}),
		Orgs:      &fakeOrgLister{ids: []uuid.UUID{broken, healthy}},
		Scheduler: sched,
	})
	require.NoError(t, err)
	job.(*scheduleJob).now = func() time.Time {
		return time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)
	}

	err = job.Run(context.Background())
	require.Error(t, err)
	// The healthy org still got its full two-week horizon.
	require.Len(t, sched.weeks, 2)
	assert.Equal(t, healthy, sched.weeks[0].orgID)
}

func TestUpcomingMonday(t *testing.T) {
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC), time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC), time.Date(2026, time.March, 23, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, time.March, 15, 23, 59, 0, 0, time.UTC), time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, upcomingMonday(tc.now))
	}
}
