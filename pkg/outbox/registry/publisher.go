package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/orro3790/drive-sub004/pkg/config"
	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
	"github.com/orro3790/drive-sub004/pkg/outbox"
	"github.com/orro3790/drive-sub004/pkg/outbox/payloads"
)

// EventDescriptor links a notification type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.NotificationType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported notification type to its descriptor.
type EventRegistry struct {
	entries map[enums.NotificationType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic name.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("notification topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.NotificationType]EventDescriptor)}
	topic := cfg.NotificationTopic

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.NotificationAssignmentConfirmed,
			AggregateType:  enums.AggregateAssignment,
			PayloadFactory: func() interface{} { return &payloads.AssignmentConfirmedData{} },
		},
		{
			EventType:      enums.NotificationScheduleLocked,
			AggregateType:  enums.AggregateDriver,
			PayloadFactory: func() interface{} { return &payloads.ScheduleLockedData{} },
		},
		{
			EventType:      enums.NotificationConfirmReminder,
			AggregateType:  enums.AggregateAssignment,
			PayloadFactory: func() interface{} { return &payloads.ConfirmReminderData{} },
		},
		{
			EventType:      enums.NotificationShiftAutoDropped,
			AggregateType:  enums.AggregateAssignment,
			PayloadFactory: func() interface{} { return &payloads.ShiftAutoDroppedData{} },
		},
		{
			EventType:      enums.NotificationBidOpen,
			AggregateType:  enums.AggregateBidWindow,
			PayloadFactory: func() interface{} { return &payloads.BidOpenData{} },
		},
		{
			EventType:      enums.NotificationBidWon,
			AggregateType:  enums.AggregateBidWindow,
			PayloadFactory: func() interface{} { return &payloads.BidWonData{} },
		},
		{
			EventType:      enums.NotificationBidLost,
			AggregateType:  enums.AggregateBidWindow,
			PayloadFactory: func() interface{} { return &payloads.BidLostData{} },
		},
		{
			EventType:      enums.NotificationShiftCancelled,
			AggregateType:  enums.AggregateAssignment,
			PayloadFactory: func() interface{} { return &payloads.ShiftCancelledData{} },
		},
		{
			EventType:      enums.NotificationEmergencyRoute,
			AggregateType:  enums.AggregateBidWindow,
			PayloadFactory: func() interface{} { return &payloads.EmergencyRouteData{} },
		},
		{
			EventType:      enums.NotificationDriverNoShow,
			AggregateType:  enums.AggregateAssignment,
			PayloadFactory: func() interface{} { return &payloads.DriverNoShowData{} },
		},
		{
			EventType:      enums.NotificationStreakAdvanced,
			AggregateType:  enums.AggregateHealthState,
			PayloadFactory: func() interface{} { return &payloads.StreakAdvancedData{} },
		},
		{
			EventType:      enums.NotificationStreakReset,
			AggregateType:  enums.AggregateHealthState,
			PayloadFactory: func() interface{} { return &payloads.StreakResetData{} },
		},
		{
			EventType:      enums.NotificationBonusEligible,
			AggregateType:  enums.AggregateDriver,
			PayloadFactory: func() interface{} { return &payloads.BonusEligibleData{} },
		},
		{
			EventType:      enums.NotificationCorrectiveWarning,
			AggregateType:  enums.AggregateDriver,
			PayloadFactory: func() interface{} { return &payloads.CorrectiveWarningData{} },
		},
		{
			EventType:      enums.NotificationWindowUnresolved,
			AggregateType:  enums.AggregateBidWindow,
			PayloadFactory: func() interface{} { return &payloads.WindowUnresolvedData{} },
		},
	} {
		desc.Topic = topic
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
