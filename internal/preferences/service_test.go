package preferences

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/orro3790/drive-sub004/pkg/db/models"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
)

type fakePrefRepo struct {
	prefs   map[uuid.UUID]*models.DriverPreference
	drivers map[uuid.UUID]*models.Driver
	routes  map[uuid.UUID]bool
}

func newFakePrefRepo() *fakePrefRepo {
	return &fakePrefRepo{
		prefs:   make(map[uuid.UUID]*models.DriverPreference),
		drivers: make(map[uuid.UUID]*models.Driver),
		routes:  make(map[uuid.UUID]bool),
	}
}

func (f *fakePrefRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakePrefRepo) GetByDriver(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverPreference, error) {
	return f.prefs[driverID], nil
}

func (f *fakePrefRepo) Upsert(ctx context.Context, preference *models.DriverPreference) error {
	f.prefs[preference.DriverID] = preference
	return nil
}

func (f *fakePrefRepo) GetDriver(ctx context.Context, orgID, driverID uuid.UUID) (*models.Driver, error) {
	return f.drivers[driverID], nil
}

func (f *fakePrefRepo) CountRoutes(ctx context.Context, orgID uuid.UUID, routeIDs []uuid.UUID) (int64, error) {
	var count int64
	for _, id := range routeIDs {
		if f.routes[id] {
			count++
		}
	}
	return count, nil
}

func newTestPrefService(t *testing.T) (Service, *fakePrefRepo) {
	t.Helper()

	repo := newFakePrefRepo()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "preferences-test"}))
	require.NoError(t, err)
	return svc, repo
}

func seedActiveDriver(repo *fakePrefRepo, orgID uuid.UUID) uuid.UUID {
	driverID := uuid.New()
	repo.drivers[driverID] = &models.Driver{ID: driverID, OrgID: orgID, Active: true}
	return driverID
}

func TestUpdateReplacesPreferences(t *testing.T) {
	svc, repo := newTestPrefService(t)
	orgID := uuid.New()
	driverID := seedActiveDriver(repo, orgID)
	routeID := uuid.New()
	repo.routes[routeID] = true

	saved, err := svc.Update(context.Background(), UpdateInput{
		OrgID:           orgID,
		DriverID:        driverID,
		Weekdays:        []int{1, 2, 3, 3},
		PreferredRoutes: []uuid.UUID{routeID},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, []int(saved.Weekdays))
	require.Len(t, saved.PreferredRoutes, 1)
	assert.True(t, saved.PrefersRoute(routeID))
}

func TestUpdateRejectsWeekdayOutOfRange(t *testing.T) {
	svc, repo := newTestPrefService(t)
	orgID := uuid.New()
	driverID := seedActiveDriver(repo, orgID)

	_, err := svc.Update(context.Background(), UpdateInput{
		OrgID:    orgID,
		DriverID: driverID,
		Weekdays: []int{7},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestUpdateRejectsTooManyRoutes(t *testing.T) {
	svc, repo := newTestPrefService(t)
	orgID := uuid.New()
	driverID := seedActiveDriver(repo, orgID)
	routes := make([]uuid.UUID, 0, 4)
	for i := 0; i < 4; i++ {
		id := uuid.New()
		repo.routes[id] = true
		routes = append(routes, id)
	}

	_, err := svc.Update(context.Background(), UpdateInput{
		OrgID:           orgID,
		DriverID:        driverID,
		Weekdays:        []int{1},
		PreferredRoutes: routes,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestUpdateRejectsUnknownRoute(t *testing.T) {
	svc, repo := newTestPrefService(t)
	orgID := uuid.New()
	driverID := seedActiveDriver(repo, orgID)

	_, err := svc.Update(context.Background(), UpdateInput{
		OrgID:           orgID,
		DriverID:        driverID,
		Weekdays:        []int{1},
		PreferredRoutes: []uuid.UUID{uuid.New()},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestUpdateRejectsInactiveDriver(t *testing.T) {
	svc, repo := newTestPrefService(t)
	orgID := uuid.New()
	driverID := uuid.New()
	repo.drivers[driverID] = &models.Driver{ID: driverID, OrgID: orgID, Active: false}

	_, err := svc.Update(context.Background(), UpdateInput{
		OrgID:    orgID,
		DriverID: driverID,
		Weekdays: []int{1},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodePolicyDenied))
}

func TestGetReturnsEmptyDefaultsForNewDriver(t *testing.T) {
	svc, repo := newTestPrefService(t)
	orgID := uuid.New()
	driverID := seedActiveDriver(repo, orgID)

	preference, err := svc.Get(context.Background(), orgID, driverID)
	require.NoError(t, err)
	assert.Empty(t, preference.Weekdays)
	assert.Empty(t, preference.PreferredRoutes)
	assert.Equal(t, driverID, preference.DriverID)
}
