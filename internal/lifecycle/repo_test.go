package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
)

func setupLifecycleTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS assignments (
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
);`,
		`CREATE TABLE IF NOT EXISTS shifts (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  assignment_id TEXT NOT NULL,
  driver_id TEXT NOT NULL,
  arrived_at DATETIME,
  parcels_start INTEGER,
  parcels_returned INTEGER,
  excepted_returns INTEGER NOT NULL DEFAULT 0,
  completed_at DATETIME,
  editable_until DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT ux_shifts_assignment UNIQUE (assignment_id)
);`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func TestListScheduledBetweenFiltersStatusAndRange(t *testing.T) {
	db := setupLifecycleTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	orgID, routeID, driverID := uuid.New(), uuid.New(), uuid.New()
	from := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	to := from.Add(4 * 24 * time.Hour)

	seed := func(date time.Time, status enums.AssignmentStatus, held bool) uuid.UUID {
		assignment := &models.Assignment{
			ID: uuid.New(), OrgID: orgID, RouteID: routeID,
			Date: date, Status: status, AssignedBy: enums.AssignedBySchedule,
		}
		if held {
			id := driverID
			assignment.DriverID = &id
		}
		require.NoError(t, db.Create(assignment).Error)
		return assignment.ID
	}
	inRange := seed(from.Add(48*time.Hour), enums.AssignmentScheduled, true)
	seed(from.Add(48*time.Hour), enums.AssignmentConfirmed, true)
	seed(from.Add(48*time.Hour), enums.AssignmentUnfilled, false)
	seed(to.Add(24*time.Hour), enums.AssignmentScheduled, true)

	scheduled, err := repo.ListScheduledBetween(ctx, orgID, from, to)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, inRange, scheduled[0].ID)
}

func TestCreateShiftSwallowsSecondArrival(t *testing.T) {
	db := setupLifecycleTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	orgID, assignmentID, driverID := uuid.New(), uuid.New(), uuid.New()
	arrived := time.Date(2026, 3, 20, 8, 30, 0, 0, time.UTC)

	inserted, err := repo.CreateShift(ctx, &models.Shift{
		ID: uuid.New(), OrgID: orgID, AssignmentID: assignmentID, DriverID: driverID, ArrivedAt: &arrived,
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.CreateShift(ctx, &models.Shift{
		ID: uuid.New(), OrgID: orgID, AssignmentID: assignmentID, DriverID: driverID, ArrivedAt: &arrived,
	})
	require.NoError(t, err)
	assert.False(t, inserted)
}
