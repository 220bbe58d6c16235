package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/orro3790/drive-sub004/pkg/db"
	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
)

// Repository is the storage surface of the confirmation lifecycle: the
// assignment state machine plus its 1:1 shift record.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetAssignment(ctx context.Context, orgID, assignmentID uuid.UUID) (*models.Assignment, error)
	SaveAssignment(ctx context.Context, assignment *models.Assignment) error
	GetRoute(ctx context.Context, orgID, routeID uuid.UUID) (*models.Route, error)
	GetDriver(ctx context.Context, orgID, driverID uuid.UUID) (*models.Driver, error)
	GetShiftByAssignment(ctx context.Context, orgID, assignmentID uuid.UUID) (*models.Shift, error)
	CreateShift(ctx context.Context, shift *models.Shift) (bool, error)
	SaveShift(ctx context.Context, shift *models.Shift) error
	ListScheduledBetween(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.Assignment, error)
	HasLiveAssignmentOnDate(ctx context.Context, orgID, driverID uuid.UUID, date time.Time) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns the gorm-backed lifecycle repository.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
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

func (r *repositoryImpl) GetShiftByAssignment(ctx context.Context, orgID, assignmentID uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND assignment_id = ?", orgID, assignmentID).
		First(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shift, nil
}

// CreateShift inserts the shift record; a concurrent second arrival hits the
// ux_shifts_assignment unique index and reports inserted=false.
func (r *repositoryImpl) CreateShift(ctx context.Context, shift *models.Shift) (bool, error) {
	if err := r.db.WithContext(ctx).Create(shift).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_shifts_assignment") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repositoryImpl) SaveShift(ctx context.Context, shift *models.Shift) error {
	return r.db.WithContext(ctx).Save(shift).Error
}

// ListScheduledBetween returns held, still-unconfirmed assignments in the
// date range; the deadline and reminder sweeps filter by shift start in Go.
func (r *repositoryImpl) ListScheduledBetween(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND status = ? AND driver_id IS NOT NULL", orgID, enums.AssignmentScheduled).
		Where("date >= ? AND date <= ?", from, to).
		Order("date").
		Find(&assignments).Error
	return assignments, err
}

func (r *repositoryImpl) HasLiveAssignmentOnDate(ctx context.Context, orgID, driverID uuid.UUID, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("org_id = ? AND driver_id = ? AND date = ?", orgID, driverID, date).
		Where("status IN ?", []enums.AssignmentStatus{
			enums.AssignmentScheduled,
			enums.AssignmentConfirmed,
			enums.AssignmentActive,
		}).
		Count(&count).Error
	return count > 0, err
}
