package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/orro3790/drive-sub004/pkg/enums"
	"github.com/orro3790/drive-sub004/pkg/outbox/payloads"
)

const routeDateFormat = "Mon, Jan 2"

// renderNotification turns a typed event payload into the title/message pair
// shown in the driver and manager feeds.
func renderNotification(eventType enums.NotificationType, data json.RawMessage) (string, string, error) {
	switch eventType {
	case enums.NotificationAssignmentConfirmed:
		var payload payloads.AssignmentConfirmedData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Shift confirmed",
			fmt.Sprintf("Your shift on %s is confirmed.", payload.Date.Format(routeDateFormat)),
			nil
	case enums.NotificationScheduleLocked:
		var payload payloads.ScheduleLockedData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Schedule published",
			fmt.Sprintf("Your week of %s is ready with %d shifts. Confirm each one before its deadline.",
				payload.WeekStart.Format(routeDateFormat), payload.AssignmentCount),
			nil
	case enums.NotificationConfirmReminder:
		var payload payloads.ConfirmReminderData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Confirmation deadline approaching",
			fmt.Sprintf("Confirm your %s shift before %s or it will be released.",
				payload.Date.Format(routeDateFormat), payload.DeadlineAt.Format(time.RFC1123)),
			nil
	case enums.NotificationShiftAutoDropped:
		var payload payloads.ShiftAutoDroppedData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Shift released",
			fmt.Sprintf("Your %s shift was released because it was not confirmed in time.",
				payload.Date.Format(routeDateFormat)),
			nil
	case enums.NotificationBidOpen:
		var payload payloads.BidOpenData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		message := fmt.Sprintf("A shift on %s is open for bids until %s.",
			payload.Date.Format(routeDateFormat), payload.ClosesAt.Format(time.RFC1123))
		if payload.PayBonusPercent.IsPositive() {
			message = fmt.Sprintf("%s Pays a %s%% bonus.", message, payload.PayBonusPercent.String())
		}
		return "Open shift available", message, nil
	case enums.NotificationBidWon:
		var payload payloads.BidWonData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Bid won",
			fmt.Sprintf("You won the shift on %s. It is confirmed under your name.",
				payload.Date.Format(routeDateFormat)),
			nil
	case enums.NotificationBidLost:
		var payload payloads.BidLostData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Bid not selected",
			fmt.Sprintf("The shift on %s went to another driver.", payload.Date.Format(routeDateFormat)),
			nil
	case enums.NotificationShiftCancelled:
		var payload payloads.ShiftCancelledData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Shift cancelled",
			fmt.Sprintf("A driver cancelled their %s shift. A replacement window is open.",
				payload.Date.Format(routeDateFormat)),
			nil
	case enums.NotificationEmergencyRoute:
		var payload payloads.EmergencyRouteData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Emergency route available",
			fmt.Sprintf("A route on %s needs immediate coverage. First to claim gets a %s%% bonus.",
				payload.Date.Format(routeDateFormat), payload.PayBonusPercent.String()),
			nil
	case enums.NotificationDriverNoShow:
		var payload payloads.DriverNoShowData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Driver no-show",
			fmt.Sprintf("A confirmed driver did not arrive for the %s shift. An emergency window is open.",
				payload.Date.Format(routeDateFormat)),
			nil
	case enums.NotificationStreakAdvanced:
		var payload payloads.StreakAdvancedData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Streak advanced",
			fmt.Sprintf("Another qualifying week. You are at %d stars with a %d-week streak.",
				payload.Stars, payload.StreakWeeks),
			nil
	case enums.NotificationStreakReset:
		var payload payloads.StreakResetData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Streak reset",
			fmt.Sprintf("Your star streak was reset: %s.", payload.Reason),
			nil
	case enums.NotificationBonusEligible:
		var payload payloads.BonusEligibleData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Weekly cap raised",
			fmt.Sprintf("Your attendance earned you a higher weekly cap of %d shifts.", payload.WeeklyCap),
			nil
	case enums.NotificationCorrectiveWarning:
		var payload payloads.CorrectiveWarningData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Attendance warning",
			fmt.Sprintf("Your attendance rate of %s%% is below the %s%% threshold. Improve it before %s to keep your weekly cap.",
				payload.AttendanceRate.String(), payload.Threshold.String(),
				payload.GraceEndsAt.Format(routeDateFormat)),
			nil
	case enums.NotificationWindowUnresolved:
		var payload payloads.WindowUnresolvedData
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return "Shift still uncovered",
			fmt.Sprintf("The bid window for the %s shift closed with no claim. Manual assignment needed.",
				payload.Date.Format(routeDateFormat)),
			nil
	default:
		return "", "", fmt.Errorf("unsupported event type %s", eventType)
	}
}
