package health

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

// Repository exposes persistence helpers for driver health state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetState(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverHealthState, error)
	GetOrCreateState(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverHealthState, error)
	SaveState(ctx context.Context, state *models.DriverHealthState) error
	ListStates(ctx context.Context, orgID uuid.UUID) ([]models.DriverHealthState, error)
	InsertEvent(ctx context.Context, event *models.DriverHealthEvent) error
	CountEventsInRange(ctx context.Context, orgID, driverID uuid.UUID, types []enums.HealthEventType, from, to time.Time) (int64, error)
	InsertSnapshot(ctx context.Context, snapshot *models.DriverHealthSnapshot) (bool, error)
	WeekActivity(ctx context.Context, orgID, driverID uuid.UUID, from, to time.Time) (WeekActivity, error)
}

// WeekActivity aggregates a driver's assignment outcomes over one week.
type WeekActivity struct {
	Assignments    int
	Completed      int
	CompletionRate float64
	HasCompletion  bool
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a health repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) GetState(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverHealthState, error) {
	var state models.DriverHealthState
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND driver_id = ?", orgID, driverID).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *repositoryImpl) GetOrCreateState(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverHealthState, error) {
	state, err := r.GetState(ctx, orgID, driverID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		return state, nil
	}

	fresh := models.DriverHealthState{
		OrgID:        orgID,
		DriverID:     driverID,
		Score:        InitialScore,
		PoolEligible: true,
	}
	if err := r.db.WithContext(ctx).Create(&fresh).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_driver_health_driver") {
			return r.GetState(ctx, orgID, driverID)
		}
		return nil, err
	}
	return &fresh, nil
}

func (r *repositoryImpl) SaveState(ctx context.Context, state *models.DriverHealthState) error {
	return r.db.WithContext(ctx).Save(state).Error
}

func (r *repositoryImpl) ListStates(ctx context.Context, orgID uuid.UUID) ([]models.DriverHealthState, error) {
	var states []models.DriverHealthState
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("driver_id").
		Find(&states).Error
	return states, err
}

func (r *repositoryImpl) InsertEvent(ctx context.Context, event *models.DriverHealthEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repositoryImpl) CountEventsInRange(ctx context.Context, orgID, driverID uuid.UUID, types []enums.HealthEventType, from, to time.Time) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.DriverHealthEvent{}).
		Where("org_id = ? AND driver_id = ?", orgID, driverID).
		Where("occurred_at >= ? AND occurred_at < ?", from, to)
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	err := query.Count(&count).Error
	return count, err
}

// InsertSnapshot appends the daily row; re-runs for the same (driver, day)
// report inserted=false instead of failing.
func (r *repositoryImpl) InsertSnapshot(ctx context.Context, snapshot *models.DriverHealthSnapshot) (bool, error) {
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_health_snapshots_driver_day") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repositoryImpl) WeekActivity(ctx context.Context, orgID, driverID uuid.UUID, from, to time.Time) (WeekActivity, error) {
	var activity WeekActivity

	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND driver_id = ?", orgID, driverID).
		Where("date >= ? AND date < ?", from, to).
		Find(&assignments).Error
	if err != nil {
		return activity, err
	}

	completedIDs := make([]uuid.UUID, 0, len(assignments))
	for _, assignment := range assignments {
		activity.Assignments++
		if assignment.Status == enums.AssignmentCompleted {
			activity.Completed++
			completedIDs = append(completedIDs, assignment.ID)
		}
	}
	if len(completedIDs) == 0 {
		return activity, nil
	}

	var shifts []models.Shift
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND assignment_id IN ?", orgID, completedIDs).
		Find(&shifts).Error; err != nil {
		return activity, err
	}

	var sum float64
	var measured int
	for _, shift := range shifts {
		rate, ok := shift.DeliveryRate()
		if !ok {
			continue
		}
		sum += rate
		measured++
	}
	if measured > 0 {
		activity.CompletionRate = sum / float64(measured)
		activity.HasCompletion = true
	}
	return activity, nil
}
