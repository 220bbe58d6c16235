package bidding

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

// Repository exposes bid window and bid persistence. The atomic claim and
// the partial unique indexes behind it live here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetWindow(ctx context.Context, orgID, windowID uuid.UUID) (*models.BidWindow, error)
	GetOpenWindowByAssignment(ctx context.Context, orgID, assignmentID uuid.UUID) (*models.BidWindow, error)
	CreateWindow(ctx context.Context, window *models.BidWindow) (bool, error)
	SaveWindow(ctx context.Context, window *models.BidWindow) error
	ClaimWindow(ctx context.Context, orgID, windowID uuid.UUID, at time.Time) (bool, error)
	ListDueWindows(ctx context.Context, orgID uuid.UUID, modes []enums.BidMode, through time.Time) ([]models.BidWindow, error)
	CreateBid(ctx context.Context, bid *models.Bid) (bool, error)
	ListPendingBids(ctx context.Context, orgID, windowID uuid.UUID) ([]models.Bid, error)
	SaveBid(ctx context.Context, bid *models.Bid) error
	GetAssignment(ctx context.Context, orgID, assignmentID uuid.UUID) (*models.Assignment, error)
	SaveAssignment(ctx context.Context, assignment *models.Assignment) error
	GetRoute(ctx context.Context, orgID, routeID uuid.UUID) (*models.Route, error)
	GetDriver(ctx context.Context, orgID, driverID uuid.UUID) (*models.Driver, error)
	GetPreference(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverPreference, error)
	GetHealthState(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverHealthState, error)
	CountRouteCompletions(ctx context.Context, orgID, driverID, routeID uuid.UUID) (int, error)
	HasLiveAssignmentOnDate(ctx context.Context, orgID, driverID uuid.UUID, date time.Time) (bool, error)
	ListEligibleDriverIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a bidding repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) GetWindow(ctx context.Context, orgID, windowID uuid.UUID) (*models.BidWindow, error) {
	var window models.BidWindow
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, windowID).
		First(&window).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &window, nil
}

func (r *repositoryImpl) GetOpenWindowByAssignment(ctx context.Context, orgID, assignmentID uuid.UUID) (*models.BidWindow, error) {
	var window models.BidWindow
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND assignment_id = ? AND status = ?", orgID, assignmentID, enums.BidWindowOpen).
		First(&window).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &window, nil
}

// CreateWindow inserts the window; a second open window for the same
// assignment reports inserted=false.
func (r *repositoryImpl) CreateWindow(ctx context.Context, window *models.BidWindow) (bool, error) {
	if err := r.db.WithContext(ctx).Create(window).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_bid_windows_assignment_open") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repositoryImpl) SaveWindow(ctx context.Context, window *models.BidWindow) error {
	return r.db.WithContext(ctx).Save(window).Error
}

// ClaimWindow is the single compare-and-set behind first-accept: exactly one
// of N concurrent claims flips open to resolved.
func (r *repositoryImpl) ClaimWindow(ctx context.Context, orgID, windowID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BidWindow{}).
		Where("org_id = ? AND id = ? AND status = ?", orgID, windowID, enums.BidWindowOpen).
		Updates(map[string]interface{}{
			"status":      enums.BidWindowResolved,
			"resolved_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repositoryImpl) ListDueWindows(ctx context.Context, orgID uuid.UUID, modes []enums.BidMode, through time.Time) ([]models.BidWindow, error) {
	var windows []models.BidWindow
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND status = ?", orgID, enums.BidWindowOpen).
		Where("mode IN ?", modes).
		Where("closes_at <= ?", through).
		Order("closes_at").
		Find(&windows).Error
	return windows, err
}

// CreateBid inserts the bid; a duplicate (window, driver) pair reports
// inserted=false.
func (r *repositoryImpl) CreateBid(ctx context.Context, bid *models.Bid) (bool, error) {
	if err := r.db.WithContext(ctx).Create(bid).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_bids_window_driver") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repositoryImpl) ListPendingBids(ctx context.Context, orgID, windowID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND window_id = ? AND status = ?", orgID, windowID, enums.BidPending).
		Order("bid_at").
		Find(&bids).Error
	return bids, err
}

func (r *repositoryImpl) SaveBid(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Save(bid).Error
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

func (r *repositoryImpl) GetPreference(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverPreference, error) {
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

func (r *repositoryImpl) GetHealthState(ctx context.Context, orgID, driverID uuid.UUID) (*models.DriverHealthState, error) {
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

func (r *repositoryImpl) CountRouteCompletions(ctx context.Context, orgID, driverID, routeID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("org_id = ? AND driver_id = ? AND route_id = ? AND status = ?",
			orgID, driverID, routeID, enums.AssignmentCompleted).
		Count(&count).Error
	return int(count), err
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

// ListEligibleDriverIDs returns the bid fan-out audience: active, unflagged
// drivers whose health state (if any) keeps them in the pool.
func (r *repositoryImpl) ListEligibleDriverIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Select("drivers.id").
		Joins("LEFT JOIN driver_health_states ON driver_health_states.driver_id = drivers.id").
		Where("drivers.org_id = ? AND drivers.active = ? AND drivers.flagged = ?", orgID, true, false).
		Where("driver_health_states.pool_eligible IS NULL OR driver_health_states.pool_eligible = ?", true).
		Order("drivers.id").
		Pluck("drivers.id", &ids).Error
	return ids, err
}
