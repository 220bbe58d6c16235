package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DriverMetrics holds rolling attendance/completion statistics. Rows are
// recomputed from assignment history, never event-sourced.
type DriverMetrics struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID           uuid.UUID       `gorm:"column:org_id;type:uuid;not null"`
	DriverID        uuid.UUID       `gorm:"column:driver_id;type:uuid;not null;uniqueIndex:ux_driver_metrics_driver"`
	AttendanceRate  decimal.Decimal `gorm:"column:attendance_rate;type:numeric(5,4);not null;default:0"`
	CompletionRate  decimal.Decimal `gorm:"column:completion_rate;type:numeric(5,4);not null;default:0"`
	TotalShifts     int             `gorm:"column:total_shifts;not null;default:0"`
	CompletedShifts int             `gorm:"column:completed_shifts;not null;default:0"`
	MissedShifts    int             `gorm:"column:missed_shifts;not null;default:0"`
	RecomputedAt    time.Time       `gorm:"column:recomputed_at;not null"`
}
