package enums

import "fmt"

// HealthEventType maps to the health_event_type enum in Postgres.
// Each lifecycle outcome that moves a driver's reliability score has a type;
// the point deltas live with the health engine.
type HealthEventType string

const (
	HealthConfirmOnTime  HealthEventType = "confirm_on_time"
	HealthArriveOnTime   HealthEventType = "arrive_on_time"
	HealthCompleteShift  HealthEventType = "complete_shift"
	HealthHighDelivery   HealthEventType = "high_delivery"
	HealthCompetitiveWin HealthEventType = "competitive_bid_win"
	HealthUrgentWin      HealthEventType = "urgent_bid_win"
	HealthAutoDrop       HealthEventType = "auto_drop"
	HealthDriverCancel   HealthEventType = "driver_cancel"
	HealthLateCancel     HealthEventType = "late_cancel"
	HealthNoShow         HealthEventType = "no_show"
	HealthReinstatement  HealthEventType = "reinstatement"
)

var validHealthEventTypes = []HealthEventType{
	HealthConfirmOnTime,
	HealthArriveOnTime,
	HealthCompleteShift,
	HealthHighDelivery,
	HealthCompetitiveWin,
	HealthUrgentWin,
	HealthAutoDrop,
	HealthDriverCancel,
	HealthLateCancel,
	HealthNoShow,
	HealthReinstatement,
}

// IsValid reports whether the value matches the canonical health_event_type enum.
func (h HealthEventType) IsValid() bool {
	for _, candidate := range validHealthEventTypes {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHealthEventType converts raw input into HealthEventType.
func ParseHealthEventType(value string) (HealthEventType, error) {
	for _, candidate := range validHealthEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid health event type %q", value)
}
