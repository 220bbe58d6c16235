package preferences

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orro3790/drive-sub004/pkg/db/models"
)

// Repository exposes persistence helpers for driver preferences.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByDriver(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverPreference, error)
	Upsert(ctx context.Context, preference *models.DriverPreference) error
	GetDriver(ctx context.Context, orgID, driverID uuid.UUID) (*models.Driver, error)
	CountRoutes(ctx context.Context, orgID uuid.UUID, routeIDs []uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a preferences repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) GetByDriver(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverPreference, error) {
	var preference models.DriverPreference
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND driver_id = ?", orgID, driverID).
		First(&preference).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &preference, nil
}

// Upsert writes the driver's single preference row, replacing weekdays and
// route order wholesale on conflict.
func (r *repositoryImpl) Upsert(ctx context.Context, preference *models.DriverPreference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "driver_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"weekdays", "preferred_routes", "updated_at"}),
		}).
		Create(preference).Error
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

func (r *repositoryImpl) CountRoutes(ctx context.Context, orgID uuid.UUID, routeIDs []uuid.UUID) (int64, error) {
	if len(routeIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Route{}).
		Where("org_id = ? AND id IN ?", orgID, routeIDs).
		Count(&count).Error
	return count, err
}
