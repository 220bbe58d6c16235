package models

import (
	"time"

	"github.com/google/uuid"
)

// Driver is a delivery driver eligible for scheduling and bidding.
// Drivers are deactivated, never deleted.
type Driver struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID     uuid.UUID  `gorm:"column:org_id;type:uuid;not null"`
	FullName  string     `gorm:"column:full_name;type:text;not null"`
	Phone     *string    `gorm:"column:phone;type:text"`
	WeeklyCap int        `gorm:"column:weekly_cap;not null;default:4"`
	Flagged   bool       `gorm:"column:flagged;not null;default:false"`
	FlaggedAt *time.Time `gorm:"column:flagged_at"`
	HiredAt   time.Time  `gorm:"column:hired_at;not null"`
	Active    bool       `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TenureMonths returns whole months of tenure at the reference time.
func (d Driver) TenureMonths(at time.Time) int {
	if at.Before(d.HiredAt) {
		return 0
	}
	months := int(at.Sub(d.HiredAt).Hours() / (24 * 30))
	return months
}
