package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orro3790/drive-sub004/pkg/config"
	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
	"github.com/orro3790/drive-sub004/pkg/outbox"
	"github.com/orro3790/drive-sub004/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	routeID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.BidWonData{
		WindowID:     uuid.New(),
		AssignmentID: uuid.New(),
		RouteID:      routeID,
		Date:         time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Score:        0.78,
	})

	event := models.OutboxEvent{
		EventType:     enums.NotificationBidWon,
		AggregateType: enums.AggregateBidWindow,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "dispatch-notifications" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	if resolved.Descriptor.EventType != enums.NotificationBidWon {
		t.Fatalf("unexpected event type %s", resolved.Descriptor.EventType)
	}
	payload, ok := resolved.Payload.(*payloads.BidWonData)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.RouteID != routeID {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
	if resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing occurred_at")
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.NotificationType("driver_birthday"),
		AggregateType: enums.AggregateDriver,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{}`)),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %T", err)
	}
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.NotificationBidWon,
		AggregateType: enums.AggregateDriver,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"window_id":"00000000-0000-0000-0000-000000000000"}`)),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestEventRegistryResolveMissingAggregateID(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.NotificationBidWon,
		AggregateType: enums.AggregateBidWindow,
		AggregateID:   uuid.Nil,
		Payload:       mustEnvelope(t, []byte(`{}`)),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestEventRegistryResolveNullPayload(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.NotificationBidWon,
		AggregateType: enums.AggregateBidWindow,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte("null")),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestEventRegistryCoversAllNotificationTypes(t *testing.T) {
	reg := newTestEventRegistry(t)

	for _, eventType := range []enums.NotificationType{
		enums.NotificationAssignmentConfirmed,
		enums.NotificationScheduleLocked,
		enums.NotificationConfirmReminder,
		enums.NotificationShiftAutoDropped,
		enums.NotificationBidOpen,
		enums.NotificationBidWon,
		enums.NotificationBidLost,
		enums.NotificationShiftCancelled,
		enums.NotificationEmergencyRoute,
		enums.NotificationDriverNoShow,
		enums.NotificationStreakAdvanced,
		enums.NotificationStreakReset,
		enums.NotificationBonusEligible,
		enums.NotificationCorrectiveWarning,
		enums.NotificationWindowUnresolved,
	} {
		if _, ok := reg.entries[eventType]; !ok {
			t.Fatalf("missing descriptor for %s", eventType)
		}
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	cfg := config.PubSubConfig{
		NotificationTopic:        "dispatch-notifications",
		NotificationSubscription: "dispatch-notifications-sub",
	}
	reg, err := NewEventRegistry(cfg)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:     1,
		EventID:     uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		RecipientID: uuid.New(),
		Data:        payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
