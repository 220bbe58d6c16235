package enums

import "fmt"

// AssignmentStatus maps to the assignment_status enum in Postgres.
type AssignmentStatus string

const (
	AssignmentScheduled AssignmentStatus = "scheduled"
	AssignmentConfirmed AssignmentStatus = "confirmed"
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
	AssignmentUnfilled  AssignmentStatus = "unfilled"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentScheduled,
	AssignmentConfirmed,
	AssignmentActive,
	AssignmentCompleted,
	AssignmentCancelled,
	AssignmentUnfilled,
}

// IsValid reports whether the value matches the canonical assignment_status enum.
func (s AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether an assignment in this status can no longer progress.
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentCompleted || s == AssignmentCancelled
}

// HoldsDriver reports whether the status blocks the driver's calendar for the day.
func (s AssignmentStatus) HoldsDriver() bool {
	switch s {
	case AssignmentScheduled, AssignmentConfirmed, AssignmentActive, AssignmentCompleted:
		return true
	}
	return false
}

// ParseAssignmentStatus converts raw input into AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}

// AssignedBy maps to the assigned_by enum in Postgres.
type AssignedBy string

const (
	AssignedBySchedule AssignedBy = "schedule"
	AssignedByBid      AssignedBy = "bid"
	AssignedByManual   AssignedBy = "manual"
)

var validAssignedBy = []AssignedBy{AssignedBySchedule, AssignedByBid, AssignedByManual}

// IsValid reports whether the value matches the canonical assigned_by enum.
func (a AssignedBy) IsValid() bool {
	for _, candidate := range validAssignedBy {
		if candidate == a {
			return true
		}
	}
	return false
}

// CancelType maps to the cancel_type enum in Postgres.
type CancelType string

const (
	CancelDriver   CancelType = "driver"
	CancelLate     CancelType = "late"
	CancelAutoDrop CancelType = "auto_drop"
)

var validCancelTypes = []CancelType{CancelDriver, CancelLate, CancelAutoDrop}

// IsValid reports whether the value matches the canonical cancel_type enum.
func (c CancelType) IsValid() bool {
	for _, candidate := range validCancelTypes {
		if candidate == c {
			return true
		}
	}
	return false
}
