package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/orro3790/drive-sub004/pkg/db/types"
)

// DriverPreference stores the weekday and route preferences that feed the
// scheduler's candidate pool. Route order matters: the first three entries
// are the driver's top-3 routes for the bid preference bonus.
type DriverPreference struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID           uuid.UUID         `gorm:"column:org_id;type:uuid;not null"`
	DriverID        uuid.UUID         `gorm:"column:driver_id;type:uuid;not null;uniqueIndex:ux_driver_preferences_driver"`
	Weekdays        dbtypes.IntArray  `gorm:"column:weekdays;type:int[];not null"`
	PreferredRoutes dbtypes.UUIDArray `gorm:"column:preferred_routes;type:uuid[];not null"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// PrefersWeekday reports whether the driver prefers the given weekday (0=Sunday).
func (p DriverPreference) PrefersWeekday(weekday time.Weekday) bool {
	return p.Weekdays.Contains(int(weekday))
}

// PrefersRoute reports whether the route is among the driver's preferred routes.
func (p DriverPreference) PrefersRoute(routeID uuid.UUID) bool {
	return p.PreferredRoutes.Contains(routeID)
}
