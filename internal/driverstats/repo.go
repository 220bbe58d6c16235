package driverstats

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
)

// missEventTypes are the ledger entries counted as a missed shift when
// recomputing attendance. Cancelled assignments are often reassigned to a
// new driver, so the assignment row alone no longer carries the miss.
var missEventTypes = []enums.HealthEventType{
	enums.HealthAutoDrop,
	enums.HealthDriverCancel,
	enums.HealthLateCancel,
	enums.HealthNoShow,
}

// Repository exposes the reads and writes behind metrics recomputation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetDriver(ctx context.Context, orgID, driverID uuid.UUID) (*models.Driver, error)
	SaveDriver(ctx context.Context, driver *models.Driver) error
	ListActiveDriverIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
	GetMetrics(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverMetrics, error)
	SaveMetrics(ctx context.Context, metrics *models.DriverMetrics) error
	CountCompletedAssignments(ctx context.Context, orgID, driverID uuid.UUID) (int, error)
	CountMissEvents(ctx context.Context, orgID, driverID uuid.UUID) (int, error)
	CompletedShiftRates(ctx context.Context, orgID, driverID uuid.UUID) ([]float64, error)
	CountRouteCompletions(ctx context.Context, orgID, driverID, routeID uuid.UUID) (int, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a driver stats repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) GetDriver(ctx context.Context, orgID, driverID uuid.UUID) (*models.Driver, error) {
	var driver models.Driver
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, driverID).
		First(&driver).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &driver, nil
}

func (r *repositoryImpl) SaveDriver(ctx context.Context, driver *models.Driver) error {
	return r.db.WithContext(ctx).Save(driver).Error
}

func (r *repositoryImpl) ListActiveDriverIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("org_id = ? AND active = ?", orgID, true).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repositoryImpl) GetMetrics(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverMetrics, error) {
	var metrics models.DriverMetrics
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND driver_id = ?", orgID, driverID).
		First(&metrics).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &metrics, nil
}

func (r *repositoryImpl) SaveMetrics(ctx context.Context, metrics *models.DriverMetrics) error {
	return r.db.WithContext(ctx).Save(metrics).Error
}

func (r *repositoryImpl) CountCompletedAssignments(ctx context.Context, orgID, driverID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("org_id = ? AND driver_id = ? AND status = ?", orgID, driverID, enums.AssignmentCompleted).
		Count(&count).Error
	return int(count), err
}

func (r *repositoryImpl) CountMissEvents(ctx context.Context, orgID, driverID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DriverHealthEvent{}).
		Where("org_id = ? AND driver_id = ?", orgID, driverID).
		Where("type IN ?", missEventTypes).
		Count(&count).Error
	return int(count), err
}

// CompletedShiftRates returns the delivery rate of every rateable completed
// shift. Shifts with no recorded parcels are excluded.
func (r *repositoryImpl) CompletedShiftRates(ctx context.Context, orgID, driverID uuid.UUID) ([]float64, error) {
	var shifts []models.Shift
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND driver_id = ? AND completed_at IS NOT NULL", orgID, driverID).
		Find(&shifts).Error
	if err != nil {
		return nil, err
	}
	rates := make([]float64, 0, len(shifts))
	for _, shift := range shifts {
		if rate, ok := shift.DeliveryRate(); ok {
			rates = append(rates, rate)
		}
	}
	return rates, nil
}

func (r *repositoryImpl) CountRouteCompletions(ctx context.Context, orgID, driverID, routeID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("org_id = ? AND driver_id = ? AND route_id = ? AND status = ?",
			orgID, driverID, routeID, enums.AssignmentCompleted).
		Count(&count).Error
	return int(count), err
}
