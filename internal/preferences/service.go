package preferences

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orro3790/drive-sub004/pkg/db/models"
	dbtypes "github.com/orro3790/drive-sub004/pkg/db/types"
	pkgerrors "github.com/orro3790/drive-sub004/pkg/errors"
	"github.com/orro3790/drive-sub004/pkg/logger"
)

// MaxPreferredRoutes caps the ordered route list; only the first three
// count toward the bid preference bonus.
const MaxPreferredRoutes = 3

// Service manages driver weekday and route preferences. Edits take effect
// at the next generation pass; weeks already generated keep the
// preferences they were built with.
type Service interface {
	Get(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverPreference, error)
	Update(ctx context.Context, input UpdateInput) (*models.DriverPreference, error)
}

// UpdateInput carries a full replacement of the driver's preferences.
type UpdateInput struct {
	OrgID           uuid.UUID
	DriverID        uuid.UUID
	Weekdays        []int
	PreferredRoutes []uuid.UUID
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires preference dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("preferences repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverPreference, error) {
	if orgID == uuid.Nil || driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org and driver ids required")
	}
	preference, err := s.repo.GetByDriver(ctx, orgID, driverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load preference")
	}
	if preference == nil {
		// Empty preference, not an error: a new driver simply has none yet.
		return &models.DriverPreference{
			OrgID:           orgID,
			DriverID:        driverID,
			Weekdays:        dbtypes.IntArray{},
			PreferredRoutes: dbtypes.UUIDArray{},
		}, nil
	}
	return preference, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.DriverPreference, error) {
	if input.OrgID == uuid.Nil || input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org and driver ids required")
	}
	weekdays, err := normalizeWeekdays(input.Weekdays)
	if err != nil {
		return nil, err
	}
	routes, err := s.validateRoutes(ctx, input.OrgID, input.PreferredRoutes)
	if err != nil {
		return nil, err
	}

	driver, err := s.repo.GetDriver(ctx, input.OrgID, input.DriverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}
	if driver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
	}
	if !driver.Active {
		return nil, pkgerrors.New(pkgerrors.CodePolicyDenied, "driver is not active")
	}

	preference := &models.DriverPreference{
		OrgID:           input.OrgID,
		DriverID:        input.DriverID,
		Weekdays:        weekdays,
		PreferredRoutes: routes,
	}
	if err := s.repo.Upsert(ctx, preference); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save preference")
	}

	logCtx := s.logg.WithDriverID(s.logg.WithOrgID(ctx, input.OrgID.String()), input.DriverID.String())
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"weekdays":         len(weekdays),
		"preferred_routes": len(routes),
	}), "preferences updated")
	return preference, nil
}

// normalizeWeekdays validates the 0-6 range and drops duplicates while
// preserving order.
func normalizeWeekdays(weekdays []int) (dbtypes.IntArray, error) {
	seen := make(map[int]bool, len(weekdays))
	result := make(dbtypes.IntArray, 0, len(weekdays))
	for _, day := range weekdays {
		if day < 0 || day > 6 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("weekday %d out of range 0-6", day))
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		result = append(result, day)
	}
	return result, nil
}

func (s *service) validateRoutes(ctx context.Context, orgID uuid.UUID, routeIDs []uuid.UUID) (dbtypes.UUIDArray, error) {
	if len(routeIDs) > MaxPreferredRoutes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d preferred routes allowed", MaxPreferredRoutes))
	}
	seen := make(map[uuid.UUID]bool, len(routeIDs))
	result := make(dbtypes.UUIDArray, 0, len(routeIDs))
	for _, id := range routeIDs {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "route id must not be empty")
		}
		if seen[id] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate preferred route")
		}
		seen[id] = true
		result = append(result, id)
	}
	if len(result) > 0 {
		count, err := s.repo.CountRoutes(ctx, orgID, result)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify routes")
		}
		if count != int64(len(result)) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "one or more routes not found")
		}
	}
	return result, nil
}
