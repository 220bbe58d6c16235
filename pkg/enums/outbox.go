package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateAssignment  OutboxAggregateType = "assignment"
	AggregateBidWindow   OutboxAggregateType = "bid_window"
	AggregateDriver      OutboxAggregateType = "driver"
	AggregateHealthState OutboxAggregateType = "health_state"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateAssignment,
	AggregateBidWindow,
	AggregateDriver,
	AggregateHealthState,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}
