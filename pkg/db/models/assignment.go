package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orro3790/drive-sub004/pkg/enums"
)

// Assignment is the central dispatch entity: one (route, date) slot and the
// driver currently responsible for it. Assignments are never hard-deleted;
// cancelled rows stay as the historical record.
//
// The ux_assignments_driver_date partial unique index enforces the invariant
// that a driver holds at most one live assignment per date.
type Assignment struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID       uuid.UUID              `gorm:"column:org_id;type:uuid;not null"`
	RouteID     uuid.UUID              `gorm:"column:route_id;type:uuid;not null"`
	DriverID    *uuid.UUID             `gorm:"column:driver_id;type:uuid"`
	Date        time.Time              `gorm:"column:date;type:date;not null"`
	Status      enums.AssignmentStatus `gorm:"column:status;type:assignment_status;not null"`
	AssignedBy  enums.AssignedBy       `gorm:"column:assigned_by;type:assigned_by;not null"`
	ConfirmedAt *time.Time             `gorm:"column:confirmed_at"`
	CancelledAt *time.Time             `gorm:"column:cancelled_at"`
	CancelType  *enums.CancelType      `gorm:"column:cancel_type;type:cancel_type"`
	NoShowAt    *time.Time             `gorm:"column:no_show_at"`
	ReminderAt  *time.Time             `gorm:"column:reminder_at"`
	Version     int                    `gorm:"column:version;not null;default:0"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// SameDay reports whether the assignment occupies the given calendar date.
func (a Assignment) SameDay(t time.Time) bool {
	return a.Date.Year() == t.Year() && a.Date.YearDay() == t.YearDay()
}
