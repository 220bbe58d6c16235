package driverstats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
)

func setupStatsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS drivers (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  full_name TEXT NOT NULL,
  phone TEXT,
  weekly_cap INTEGER NOT NULL DEFAULT 4,
  flagged INTEGER NOT NULL DEFAULT 0,
  flagged_at DATETIME,
  hired_at DATETIME NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS driver_metrics (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  driver_id TEXT NOT NULL,
  attendance_rate NUMERIC NOT NULL DEFAULT 0,
  completion_rate NUMERIC NOT NULL DEFAULT 0,
  total_shifts INTEGER NOT NULL DEFAULT 0,
  completed_shifts INTEGER NOT NULL DEFAULT 0,
  missed_shifts INTEGER NOT NULL DEFAULT 0,
  recomputed_at DATETIME NOT NULL,
  CONSTRAINT ux_driver_metrics_driver UNIQUE (driver_id)
);`, `
CREATE TABLE IF NOT EXISTS assignments (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  route_id TEXT NOT NULL,
  driver_id TEXT,
  date DATE NOT NULL,
  status TEXT NOT NULL,
  assigned_by TEXT NOT NULL,
  confirmed_at DATETIME,
  cancelled_at DATETIME,
  cancel_type TEXT,
  no_show_at DATETIME,
  reminder_at DATETIME,
  version INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS shifts (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  assignment_id TEXT NOT NULL UNIQUE,
  driver_id TEXT NOT NULL,
  arrived_at DATETIME,
  parcels_start INTEGER,
  parcels_returned INTEGER,
  excepted_returns INTEGER NOT NULL DEFAULT 0,
  completed_at DATETIME,
  editable_until DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS driver_health_events (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  driver_id TEXT NOT NULL,
  type TEXT NOT NULL,
  delta INTEGER NOT NULL,
  score_after INTEGER NOT NULL,
  assignment_id TEXT,
  occurred_at DATETIME NOT NULL,
  created_at DATETIME
);`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedDriverRow(t *testing.T, db *gorm.DB, orgID uuid.UUID, active bool) *models.Driver {
	t.Helper()
	driver := &models.Driver{
		ID:       uuid.New(),
		OrgID:    orgID,
		FullName: "Test Driver",
		HiredAt:  time.Now().Add(-200 * 24 * time.Hour),
		Active:   active,
	}
	require.NoError(t, db.Create(driver).Error)
	return driver
}

func seedCompletedAssignment(t *testing.T, db *gorm.DB, orgID, driverID, routeID uuid.UUID, day time.Time) *models.Assignment {
	t.Helper()
	assignment := &models.Assignment{
		ID:         uuid.New(),
		OrgID:      orgID,
		RouteID:    routeID,
		DriverID:   &driverID,
		Date:       day,
		Status:     enums.AssignmentCompleted,
		AssignedBy: enums.AssignedBySchedule,
	}
	require.NoError(t, db.Create(assignment).Error)
	return assignment
}

func TestCountRouteCompletions(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	orgID, driverID := uuid.New(), uuid.New()
	routeA, routeB := uuid.New(), uuid.New()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	seedCompletedAssignment(t, db, orgID, driverID, routeA, day)
	seedCompletedAssignment(t, db, orgID, driverID, routeA, day.Add(24*time.Hour))
	seedCompletedAssignment(t, db, orgID, driverID, routeB, day.Add(48*time.Hour))

	count, err := repo.CountRouteCompletions(ctx, orgID, driverID, routeA)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCountMissEventsIgnoresPositiveEvents(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	orgID, driverID := uuid.New(), uuid.New()

	insert := func(eventType enums.HealthEventType) {
		require.NoError(t, db.Create(&models.DriverHealthEvent{
			ID:         uuid.New(),
			OrgID:      orgID,
			DriverID:   driverID,
			Type:       eventType,
			OccurredAt: time.Now(),
		}).Error)
	}
	insert(enums.HealthAutoDrop)
	insert(enums.HealthNoShow)
	insert(enums.HealthLateCancel)
	insert(enums.HealthConfirmOnTime)
	insert(enums.HealthCompleteShift)

	count, err := repo.CountMissEvents(ctx, orgID, driverID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCompletedShiftRatesSkipsUnrateable(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	orgID, driverID := uuid.New(), uuid.New()
	completedAt := time.Now()

	insert := func(start, returned *int, completed *time.Time) {
		require.NoError(t, db.Create(&models.Shift{
			ID:              uuid.New(),
			OrgID:           orgID,
			AssignmentID:    uuid.New(),
			DriverID:        driverID,
			ParcelsStart:    start,
			ParcelsReturned: returned,
			CompletedAt:     completed,
		}).Error)
	}
	hundred, two := 100, 2
	zero := 0
	insert(&hundred, &two, &completedAt) // 0.98
	insert(&zero, &zero, &completedAt)   // no parcels, excluded
	insert(&hundred, &two, nil)          // not completed, excluded

	rates, err := repo.CompletedShiftRates(ctx, orgID, driverID)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.InDelta(t, 0.98, rates[0], 0.0001)
}

func TestListActiveDriverIDsSkipsInactive(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	orgID := uuid.New()

	active := seedDriverRow(t, db, orgID, true)
	seedDriverRow(t, db, orgID, false)
	seedDriverRow(t, db, uuid.New(), true) // other org

	ids, err := repo.ListActiveDriverIDs(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, active.ID, ids[0])
}

func TestSaveMetricsRoundTrip(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	orgID, driverID := uuid.New(), uuid.New()

	require.NoError(t, repo.SaveMetrics(ctx, &models.DriverMetrics{
		ID:             uuid.New(),
		OrgID:          orgID,
		DriverID:       driverID,
		AttendanceRate: decimal.RequireFromString("0.875"),
		TotalShifts:    8,
		RecomputedAt:   time.Now(),
	}))

	loaded, err := repo.GetMetrics(ctx, orgID, driverID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 8, loaded.TotalShifts)
	assert.True(t, loaded.AttendanceRate.Equal(decimal.RequireFromString("0.875")))
}
