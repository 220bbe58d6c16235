package models

import (
	"time"

	"github.com/google/uuid"
)

// Warehouse groups routes under one physical depot.
type Warehouse struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID     uuid.UUID `gorm:"column:org_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Route is static reference data: a recurring daily delivery route.
type Route struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID        uuid.UUID `gorm:"column:org_id;type:uuid;not null"`
	WarehouseID  uuid.UUID `gorm:"column:warehouse_id;type:uuid;not null"`
	Name         string    `gorm:"column:name;type:text;not null"`
	StartMinutes int       `gorm:"column:start_minutes;not null"`
	Active       bool      `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// StartAt returns the route's start instant on the given calendar date.
func (r Route) StartAt(date time.Time) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(r.StartMinutes) * time.Minute)
}
