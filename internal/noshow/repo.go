package noshow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
)

// Repository reads the day's confirmed assignments and their arrival
// records for the detector.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListUnprocessedForDate(ctx context.Context, orgID uuid.UUID, date time.Time) ([]models.Assignment, error)
	GetAssignment(ctx context.Context, orgID, assignmentID uuid.UUID) (*models.Assignment, error)
	SaveAssignment(ctx context.Context, assignment *models.Assignment) error
	GetRoute(ctx context.Context, orgID, routeID uuid.UUID) (*models.Route, error)
	HasArrival(ctx context.Context, orgID, assignmentID uuid.UUID) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns the gorm-backed no-show repository.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// ListUnprocessedForDate returns confirmed assignments on the date that have
// not yet been marked; no_show_at doubles as the idempotency marker.
func (r *repositoryImpl) ListUnprocessedForDate(ctx context.Context, orgID uuid.UUID, date time.Time) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND status = ? AND date = ?", orgID, enums.AssignmentConfirmed, date).
		Where("driver_id IS NOT NULL AND no_show_at IS NULL").
		Order("id").
		Find(&assignments).Error
	return assignments, err
}

func (r *repositoryImpl) GetAssignment(ctx context.Context, orgID, assignmentID uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, assignmentID).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *repositoryImpl) SaveAssignment(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *repositoryImpl) GetRoute(ctx context.Context, orgID, routeID uuid.UUID) (*models.Route, error) {
	var route models.Route
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, routeID).
		First(&route).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &route, nil
}

func (r *repositoryImpl) HasArrival(ctx context.Context, orgID, assignmentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Shift{}).
		Where("org_id = ? AND assignment_id = ? AND arrived_at IS NOT NULL", orgID, assignmentID).
		Count(&count).Error
	return count > 0, err
}
