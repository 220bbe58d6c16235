package models

import (
	"time"

	"github.com/google/uuid"
)

// Shift records the on-the-day execution of an assignment: arrival, parcel
// counts and completion. One row per assignment that reaches arrival.
type Shift struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID           uuid.UUID  `gorm:"column:org_id;type:uuid;not null"`
	AssignmentID    uuid.UUID  `gorm:"column:assignment_id;type:uuid;not null;uniqueIndex:ux_shifts_assignment"`
	DriverID        uuid.UUID  `gorm:"column:driver_id;type:uuid;not null"`
	ArrivedAt       *time.Time `gorm:"column:arrived_at"`
	ParcelsStart    *int       `gorm:"column:parcels_start"`
	ParcelsReturned *int       `gorm:"column:parcels_returned"`
	ExceptedReturns int        `gorm:"column:excepted_returns;not null;default:0"`
	CompletedAt     *time.Time `gorm:"column:completed_at"`
	EditableUntil   *time.Time `gorm:"column:editable_until"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// DeliveryRate returns delivered/(started) accounting for excepted returns.
// The second return is false when the shift cannot be rated (no parcels).
func (s Shift) DeliveryRate() (float64, bool) {
	if s.ParcelsStart == nil || s.ParcelsReturned == nil || *s.ParcelsStart == 0 {
		return 0, false
	}
	delivered := *s.ParcelsStart - *s.ParcelsReturned + s.ExceptedReturns
	if delivered < 0 {
		delivered = 0
	}
	if delivered > *s.ParcelsStart {
		delivered = *s.ParcelsStart
	}
	return float64(delivered) / float64(*s.ParcelsStart), true
}
