package enums

import "fmt"

// BidMode maps to the bid_mode enum in Postgres.
type BidMode string

const (
	BidModeCompetitive BidMode = "competitive"
	BidModeInstant     BidMode = "instant"
	BidModeEmergency   BidMode = "emergency"
)

var validBidModes = []BidMode{BidModeCompetitive, BidModeInstant, BidModeEmergency}

// IsValid reports whether the value matches the canonical bid_mode enum.
func (m BidMode) IsValid() bool {
	for _, candidate := range validBidModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// FirstAccept reports whether claims on this mode resolve on first accept.
func (m BidMode) FirstAccept() bool {
	return m == BidModeInstant || m == BidModeEmergency
}

// ParseBidMode converts raw input into BidMode.
func ParseBidMode(value string) (BidMode, error) {
	for _, candidate := range validBidModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bid mode %q", value)
}

// BidTrigger maps to the bid_trigger enum in Postgres.
type BidTrigger string

const (
	BidTriggerCancellation BidTrigger = "cancellation"
	BidTriggerAutoDrop     BidTrigger = "auto_drop"
	BidTriggerNoShow       BidTrigger = "no_show"
	BidTriggerManual       BidTrigger = "manual"
)

var validBidTriggers = []BidTrigger{
	BidTriggerCancellation,
	BidTriggerAutoDrop,
	BidTriggerNoShow,
	BidTriggerManual,
}

// IsValid reports whether the value matches the canonical bid_trigger enum.
func (t BidTrigger) IsValid() bool {
	for _, candidate := range validBidTriggers {
		if candidate == t {
			return true
		}
	}
	return false
}

// BidWindowStatus maps to the bid_window_status enum in Postgres.
type BidWindowStatus string

const (
	BidWindowOpen     BidWindowStatus = "open"
	BidWindowResolved BidWindowStatus = "resolved"
	BidWindowClosed   BidWindowStatus = "closed"
)

var validBidWindowStatuses = []BidWindowStatus{BidWindowOpen, BidWindowResolved, BidWindowClosed}

// IsValid reports whether the value matches the canonical bid_window_status enum.
func (s BidWindowStatus) IsValid() bool {
	for _, candidate := range validBidWindowStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// BidStatus maps to the bid_status enum in Postgres.
type BidStatus string

const (
	BidPending BidStatus = "pending"
	BidWon     BidStatus = "won"
	BidLost    BidStatus = "lost"
)

var validBidStatuses = []BidStatus{BidPending, BidWon, BidLost}

// IsValid reports whether the value matches the canonical bid_status enum.
func (s BidStatus) IsValid() bool {
	for _, candidate := range validBidStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
