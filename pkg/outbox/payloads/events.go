package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orro3790/drive-sub004/pkg/enums"
)

// One struct per notification kind: the data fields each intent carries are
// closed at compile time rather than shipped as loose maps.

// AssignmentConfirmedData confirms a driver's slot for a route/date.
type AssignmentConfirmedData struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	RouteID      uuid.UUID `json:"route_id"`
	Date         time.Time `json:"date"`
}

// ScheduleLockedData tells a driver their week is generated and locked.
type ScheduleLockedData struct {
	WeekStart       time.Time `json:"week_start"`
	AssignmentCount int       `json:"assignment_count"`
}

// ConfirmReminderData nudges a driver approaching the confirmation deadline.
type ConfirmReminderData struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	RouteID      uuid.UUID `json:"route_id"`
	Date         time.Time `json:"date"`
	DeadlineAt   time.Time `json:"deadline_at"`
}

// ShiftAutoDroppedData reports a missed confirmation deadline.
type ShiftAutoDroppedData struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	RouteID      uuid.UUID `json:"route_id"`
	Date         time.Time `json:"date"`
}

// BidOpenData fans out to eligible drivers when a window opens.
type BidOpenData struct {
	WindowID        uuid.UUID       `json:"window_id"`
	AssignmentID    uuid.UUID       `json:"assignment_id"`
	RouteID         uuid.UUID       `json:"route_id"`
	Date            time.Time       `json:"date"`
	Mode            enums.BidMode   `json:"mode"`
	ClosesAt        time.Time       `json:"closes_at"`
	PayBonusPercent decimal.Decimal `json:"pay_bonus_percent"`
}

// BidWonData tells the winning driver they now hold the assignment.
type BidWonData struct {
	WindowID     uuid.UUID `json:"window_id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	RouteID      uuid.UUID `json:"route_id"`
	Date         time.Time `json:"date"`
	Score        float64   `json:"score"`
}

// BidLostData closes the loop for non-winning bidders.
type BidLostData struct {
	WindowID     uuid.UUID `json:"window_id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	Date         time.Time `json:"date"`
}

// ShiftCancelledData records a driver-initiated cancellation.
type ShiftCancelledData struct {
	AssignmentID uuid.UUID        `json:"assignment_id"`
	RouteID      uuid.UUID        `json:"route_id"`
	Date         time.Time        `json:"date"`
	CancelType   enums.CancelType `json:"cancel_type"`
}

// EmergencyRouteData fans out when a no-show opens an emergency window.
type EmergencyRouteData struct {
	WindowID        uuid.UUID       `json:"window_id"`
	RouteID         uuid.UUID       `json:"route_id"`
	Date            time.Time       `json:"date"`
	PayBonusPercent decimal.Decimal `json:"pay_bonus_percent"`
}

// DriverNoShowData alerts managers to a detected no-show.
type DriverNoShowData struct {
	DriverID     uuid.UUID `json:"driver_id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	RouteID      uuid.UUID `json:"route_id"`
	Date         time.Time `json:"date"`
}

// StreakAdvancedData reports a qualifying week.
type StreakAdvancedData struct {
	Stars       int       `json:"stars"`
	StreakWeeks int       `json:"streak_weeks"`
	WeekStart   time.Time `json:"week_start"`
}

// StreakResetData reports a hard-stop or no-show reset.
type StreakResetData struct {
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BonusEligibleData tells a driver their weekly cap was raised.
type BonusEligibleData struct {
	WeeklyCap      int             `json:"weekly_cap"`
	AttendanceRate decimal.Decimal `json:"attendance_rate"`
}

// CorrectiveWarningData warns a flagged driver before the cap reduction.
type CorrectiveWarningData struct {
	AttendanceRate decimal.Decimal `json:"attendance_rate"`
	Threshold      decimal.Decimal `json:"threshold"`
	GraceEndsAt    time.Time       `json:"grace_ends_at"`
}

// WindowUnresolvedData alerts managers that nobody claimed a window.
type WindowUnresolvedData struct {
	WindowID     uuid.UUID     `json:"window_id"`
	AssignmentID uuid.UUID     `json:"assignment_id"`
	RouteID      uuid.UUID     `json:"route_id"`
	Date         time.Time     `json:"date"`
	Mode         enums.BidMode `json:"mode"`
}
