package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
// Each value is a typed intent the engine hands to the notification
// collaborator; delivery is out of the engine's hands.
type NotificationType string

const (
	NotificationAssignmentConfirmed NotificationType = "assignment_confirmed"
	NotificationScheduleLocked      NotificationType = "schedule_locked"
	NotificationConfirmReminder     NotificationType = "confirmation_reminder"
	NotificationShiftAutoDropped    NotificationType = "shift_auto_dropped"
	NotificationBidOpen             NotificationType = "bid_open"
	NotificationBidWon              NotificationType = "bid_won"
	NotificationBidLost             NotificationType = "bid_lost"
	NotificationShiftCancelled      NotificationType = "shift_cancelled"
	NotificationEmergencyRoute      NotificationType = "emergency_route_available"
	NotificationDriverNoShow        NotificationType = "driver_no_show"
	NotificationStreakAdvanced      NotificationType = "streak_advanced"
	NotificationStreakReset         NotificationType = "streak_reset"
	NotificationBonusEligible       NotificationType = "bonus_eligible"
	NotificationCorrectiveWarning   NotificationType = "corrective_warning"
	NotificationWindowUnresolved    NotificationType = "bid_window_unresolved"
)

var validNotificationTypes = []NotificationType{
	NotificationAssignmentConfirmed,
	NotificationScheduleLocked,
	NotificationConfirmReminder,
	NotificationShiftAutoDropped,
	NotificationBidOpen,
	NotificationBidWon,
	NotificationBidLost,
	NotificationShiftCancelled,
	NotificationEmergencyRoute,
	NotificationDriverNoShow,
	NotificationStreakAdvanced,
	NotificationStreakReset,
	NotificationBonusEligible,
	NotificationCorrectiveWarning,
	NotificationWindowUnresolved,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
