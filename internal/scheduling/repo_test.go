package scheduling

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

func setupSchedTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
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
  updated_at DATETIME,
  CONSTRAINT ux_assignments_route_date_live UNIQUE (route_id, date)
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func TestRouteCompletionsGroupsByDriver(t *testing.T) {
	db := setupSchedTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	orgID, routeID := uuid.New(), uuid.New()
	veteran, occasional := uuid.New(), uuid.New()
	day := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	seed := func(driverID uuid.UUID, offset int, status enums.AssignmentStatus) {
		require.NoError(t, db.Create(&models.Assignment{
			ID:         uuid.New(),
			OrgID:      orgID,
			RouteID:    routeID,
			DriverID:   &driverID,
			Date:       day.Add(time.Duration(offset) * 24 * time.Hour),
			Status:     status,
			AssignedBy: enums.AssignedBySchedule,
		}).Error)
	}
	seed(veteran, 0, enums.AssignmentCompleted)
	seed(veteran, 1, enums.AssignmentCompleted)
	seed(veteran, 2, enums.AssignmentCancelled)
	seed(occasional, 3, enums.AssignmentCompleted)

	completions, err := repo.RouteCompletions(ctx, orgID, routeID)
	require.NoError(t, err)
	assert.Equal(t, 2, completions[veteran])
	assert.Equal(t, 1, completions[occasional])
}

func TestCreateAssignmentSwallowsSlotCollision(t *testing.T) {
	db := setupSchedTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	orgID, routeID := uuid.New(), uuid.New()
	date := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	inserted, err := repo.CreateAssignment(ctx, &models.Assignment{
		ID:         uuid.New(),
		OrgID:      orgID,
		RouteID:    routeID,
		Date:       date,
		Status:     enums.AssignmentUnfilled,
		AssignedBy: enums.AssignedBySchedule,
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.CreateAssignment(ctx, &models.Assignment{
		ID:         uuid.New(),
		OrgID:      orgID,
		RouteID:    routeID,
		Date:       date,
		Status:     enums.AssignmentUnfilled,
		AssignedBy: enums.AssignedBySchedule,
	})
	require.NoError(t, err)
	assert.False(t, inserted)
}
