package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orro3790/drive-sub004/pkg/enums"
)

// DriverHealthState is the single continuously-mutated reliability row per
// driver: current score, star streak and the policy gates derived from them.
type DriverHealthState struct {
	ID                   uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID                uuid.UUID  `gorm:"column:org_id;type:uuid;not null"`
	DriverID             uuid.UUID  `gorm:"column:driver_id;type:uuid;not null;uniqueIndex:ux_driver_health_driver"`
	Score                int        `gorm:"column:score;not null;default:50"`
	Stars                int        `gorm:"column:stars;not null;default:0"`
	StreakWeeks          int        `gorm:"column:streak_weeks;not null;default:0"`
	PoolEligible         bool       `gorm:"column:pool_eligible;not null;default:true"`
	RequiresIntervention bool       `gorm:"column:requires_intervention;not null;default:false"`
	HardStopAt           *time.Time `gorm:"column:hard_stop_at"`
	LastScoreResetAt     *time.Time `gorm:"column:last_score_reset_at"`
	LastWeeklyEvalWeek   *time.Time `gorm:"column:last_weekly_eval_week;type:date"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// HardStopped reports whether the driver currently sits behind the hard-stop
// gate awaiting manager reinstatement.
func (s DriverHealthState) HardStopped() bool {
	return s.RequiresIntervention
}

// DriverHealthEvent is the append-only point ledger behind the score. The
// trailing-30-day hard-stop rules count rows here rather than trusting the
// mutable state row.
type DriverHealthEvent struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID        uuid.UUID             `gorm:"column:org_id;type:uuid;not null"`
	DriverID     uuid.UUID             `gorm:"column:driver_id;type:uuid;not null;index:ix_health_events_driver_time"`
	Type         enums.HealthEventType `gorm:"column:type;type:health_event_type;not null"`
	Delta        int                   `gorm:"column:delta;not null"`
	ScoreAfter   int                   `gorm:"column:score_after;not null"`
	AssignmentID *uuid.UUID            `gorm:"column:assignment_id;type:uuid"`
	OccurredAt   time.Time             `gorm:"column:occurred_at;not null;index:ix_health_events_driver_time"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// DriverHealthSnapshot is the immutable daily audit record of a driver's
// score and its contributing factors. Unique per (driver, day).
type DriverHealthSnapshot struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID          uuid.UUID `gorm:"column:org_id;type:uuid;not null"`
	DriverID       uuid.UUID `gorm:"column:driver_id;type:uuid;not null;uniqueIndex:ux_health_snapshots_driver_day"`
	Day            time.Time `gorm:"column:day;type:date;not null;uniqueIndex:ux_health_snapshots_driver_day"`
	Score          int       `gorm:"column:score;not null"`
	Stars          int       `gorm:"column:stars;not null"`
	StreakWeeks    int       `gorm:"column:streak_weeks;not null"`
	PoolEligible   bool      `gorm:"column:pool_eligible;not null"`
	HardStopped    bool      `gorm:"column:hard_stopped;not null"`
	NoShows30d     int       `gorm:"column:no_shows_30d;not null"`
	LateCancels30d int       `gorm:"column:late_cancels_30d;not null"`
	PointEvents24h int       `gorm:"column:point_events_24h;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
