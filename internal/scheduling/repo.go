package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/orro3790/drive-sub004/pkg/db"
	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
)

// Repository exposes the reads behind candidate ranking and the writes
// behind week generation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActiveRoutes(ctx context.Context, orgID uuid.UUID) ([]models.Route, error)
	ListActiveDrivers(ctx context.Context, orgID uuid.UUID) ([]models.Driver, error)
	ListPreferences(ctx context.Context, orgID uuid.UUID) ([]models.DriverPreference, error)
	ListHealthStates(ctx context.Context, orgID uuid.UUID) ([]models.DriverHealthState, error)
	ListMetrics(ctx context.Context, orgID uuid.UUID) ([]models.DriverMetrics, error)
	RouteCompletions(ctx context.Context, orgID, routeID uuid.UUID) (map[uuid.UUID]int, error)
	ListWeekAssignments(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.Assignment, error)
	CreateAssignment(ctx context.Context, assignment *models.Assignment) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a scheduling repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) ListActiveRoutes(ctx context.Context, orgID uuid.UUID) ([]models.Route, error) {
	var routes []models.Route
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND active = ?", orgID, true).
		Order("id").
		Find(&routes).Error
	return routes, err
}

func (r *repositoryImpl) ListActiveDrivers(ctx context.Context, orgID uuid.UUID) ([]models.Driver, error) {
	var drivers []models.Driver
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND active = ?", orgID, true).
		Order("id").
		Find(&drivers).Error
	return drivers, err
}

func (r *repositoryImpl) ListPreferences(ctx context.Context, orgID uuid.UUID) ([]models.DriverPreference, error) {
	var preferences []models.DriverPreference
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Find(&preferences).Error
	return preferences, err
}

func (r *repositoryImpl) ListHealthStates(ctx context.Context, orgID uuid.UUID) ([]models.DriverHealthState, error) {
	var states []models.DriverHealthState
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Find(&states).Error
	return states, err
}

func (r *repositoryImpl) ListMetrics(ctx context.Context, orgID uuid.UUID) ([]models.DriverMetrics, error) {
	var metrics []models.DriverMetrics
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Find(&metrics).Error
	return metrics, err
}

// RouteCompletions returns completed-assignment counts on one route keyed
// by driver.
func (r *repositoryImpl) RouteCompletions(ctx context.Context, orgID, routeID uuid.UUID) (map[uuid.UUID]int, error) {
	type row struct {
		DriverID uuid.UUID
		Total    int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Select("driver_id, COUNT(*) AS total").
		Where("org_id = ? AND route_id = ? AND status = ? AND driver_id IS NOT NULL",
			orgID, routeID, enums.AssignmentCompleted).
		Group("driver_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	completions := make(map[uuid.UUID]int, len(rows))
	for _, entry := range rows {
		completions[entry.DriverID] = entry.Total
	}
	return completions, nil
}

func (r *repositoryImpl) ListWeekAssignments(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Where("date >= ? AND date < ?", from, to).
		Find(&assignments).Error
	return assignments, err
}

// CreateAssignment inserts the slot row; a route/date or driver/date unique
// collision from a concurrent generation reports inserted=false.
func (r *repositoryImpl) CreateAssignment(ctx context.Context, assignment *models.Assignment) (bool, error) {
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_assignments_route_date_live") ||
			dbpkg.IsUniqueViolation(err, "ux_assignments_driver_date") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
