package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orro3790/drive-sub004/pkg/enums"
)

// BidWindow is the time-bounded opportunity to claim an open assignment.
// The ux_bid_windows_open_assignment partial unique index enforces at most
// one open window per assignment.
type BidWindow struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID           uuid.UUID             `gorm:"column:org_id;type:uuid;not null"`
	AssignmentID    uuid.UUID             `gorm:"column:assignment_id;type:uuid;not null"`
	Mode            enums.BidMode         `gorm:"column:mode;type:bid_mode;not null"`
	Trigger         enums.BidTrigger      `gorm:"column:trigger;type:bid_trigger;not null"`
	Status          enums.BidWindowStatus `gorm:"column:status;type:bid_window_status;not null;default:'open'"`
	ClosesAt        time.Time             `gorm:"column:closes_at;not null"`
	PayBonusPercent decimal.Decimal       `gorm:"column:pay_bonus_percent;type:numeric(5,2);not null;default:0"`
	ResolvedAt      *time.Time            `gorm:"column:resolved_at"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// Bid is one driver's offer on a window. Unique per (window, driver).
type Bid struct {
	ID       uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID    uuid.UUID       `gorm:"column:org_id;type:uuid;not null"`
	WindowID uuid.UUID       `gorm:"column:window_id;type:uuid;not null;uniqueIndex:ux_bids_window_driver"`
	DriverID uuid.UUID       `gorm:"column:driver_id;type:uuid;not null;uniqueIndex:ux_bids_window_driver"`
	Score    *float64        `gorm:"column:score"`
	Status   enums.BidStatus `gorm:"column:status;type:bid_status;not null;default:'pending'"`
	BidAt    time.Time       `gorm:"column:bid_at;not null"`
}
