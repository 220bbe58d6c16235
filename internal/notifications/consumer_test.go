package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
	"github.com/orro3790/drive-sub004/pkg/logger"
	"github.com/orro3790/drive-sub004/pkg/outbox"
	"github.com/orro3790/drive-sub004/pkg/outbox/idempotency"
	"github.com/orro3790/drive-sub004/pkg/outbox/payloads"
)

type recordingRepo struct {
	created   []*models.Notification
	createErr error
}

func (r *recordingRepo) Create(ctx context.Context, notification *models.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, notification)
	return nil
}

type memoryStore struct {
	keys map[string]struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: make(map[string]struct{})}
}

func (s *memoryStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (s *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = struct{}{}
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "ds:idempotency:" + scope + ":" + id
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func newTestConsumer(t *testing.T, repo repository) *Consumer {
	t.Helper()

	manager, err := idempotency.NewManager(newMemoryStore(), time.Hour)
	require.NoError(t, err)
	return &Consumer{
		repo:        repo,
		idempotency: manager,
		logg:        logger.New(logger.Options{ServiceName: "consumer-test"}),
	}
}

func bidOpenMessage(t *testing.T, orgID, recipientID uuid.UUID) *pubsub.Message {
	t.Helper()

	closesAt := time.Date(2026, time.March, 19, 9, 0, 0, 0, time.UTC)
	data, err := json.Marshal(payloads.BidOpenData{
		WindowID:        uuid.New(),
		AssignmentID:    uuid.New(),
		RouteID:         uuid.New(),
		Date:            time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC),
		Mode:            enums.BidModeCompetitive,
		ClosesAt:        closesAt,
		PayBonusPercent: decimal.Zero,
	})
	require.NoError(t, err)

	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:     1,
		EventID:     uuid.NewString(),
		OccurredAt:  time.Date(2026, time.March, 17, 12, 0, 0, 0, time.UTC),
		RecipientID: recipientID,
		Data:        data,
	})
	require.NoError(t, err)

	return &pubsub.Message{
		Data: envelope,
		Attributes: map[string]string{
			"event_type": string(enums.NotificationBidOpen),
			"org_id":     orgID.String(),
		},
	}
}

func TestProcessStoresNotification(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo)

	orgID := uuid.New()
	recipientID := uuid.New()
	result := consumer.process(context.Background(), bidOpenMessage(t, orgID, recipientID))

	assert.True(t, result.ack)
	assert.False(t, result.nack)
	require.Len(t, repo.created, 1)
	stored := repo.created[0]
	assert.Equal(t, orgID, stored.OrgID)
	assert.Equal(t, recipientID, stored.RecipientID)
	assert.Equal(t, enums.NotificationBidOpen, stored.Type)
	assert.Equal(t, "Open shift available", stored.Title)
	assert.Contains(t, stored.Message, "open for bids")
}

func TestProcessDuplicateEventAcksWithoutSecondRow(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo)

	msg := bidOpenMessage(t, uuid.New(), uuid.New())
	first := consumer.process(context.Background(), msg)
	second := consumer.process(context.Background(), msg)

	assert.True(t, first.ack)
	assert.True(t, second.ack)
	assert.Len(t, repo.created, 1)
}

func TestProcessUnknownEventTypeAcks(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo)

	msg := bidOpenMessage(t, uuid.New(), uuid.New())
	msg.Attributes["event_type"] = "something_else"

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.Empty(t, repo.created)
}

func TestProcessMalformedEnvelopeAcks(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo)

	msg := bidOpenMessage(t, uuid.New(), uuid.New())
	msg.Data = []byte("{not json")

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.Empty(t, repo.created)
}

func TestProcessStoreFailureNacksAndReleasesEvent(t *testing.T) {
	repo := &recordingRepo{createErr: assert.AnError}
	consumer := newTestConsumer(t, repo)

	msg := bidOpenMessage(t, uuid.New(), uuid.New())
	result := consumer.process(context.Background(), msg)
	assert.True(t, result.nack)

	// The idempotency key is released on failure, so a redelivery succeeds.
	repo.createErr = nil
	result = consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.Len(t, repo.created, 1)
}

func TestRenderCoversEveryNotificationType(t *testing.T) {
	date := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		eventType enums.NotificationType
		payload   any
		title     string
	}{
		{enums.NotificationAssignmentConfirmed, payloads.AssignmentConfirmedData{Date: date}, "Shift confirmed"},
		{enums.NotificationScheduleLocked, payloads.ScheduleLockedData{WeekStart: date, AssignmentCount: 4}, "Schedule published"},
		{enums.NotificationConfirmReminder, payloads.ConfirmReminderData{Date: date, DeadlineAt: date}, "Confirmation deadline approaching"},
		{enums.NotificationShiftAutoDropped, payloads.ShiftAutoDroppedData{Date: date}, "Shift released"},
		{enums.NotificationBidOpen, payloads.BidOpenData{Date: date, ClosesAt: date, PayBonusPercent: decimal.Zero}, "Open shift available"},
		{enums.NotificationBidWon, payloads.BidWonData{Date: date}, "Bid won"},
		{enums.NotificationBidLost, payloads.BidLostData{Date: date}, "Bid not selected"},
		{enums.NotificationShiftCancelled, payloads.ShiftCancelledData{Date: date, CancelType: enums.CancelDriver}, "Shift cancelled"},
		{enums.NotificationEmergencyRoute, payloads.EmergencyRouteData{Date: date, PayBonusPercent: decimal.NewFromInt(25)}, "Emergency route available"},
		{enums.NotificationDriverNoShow, payloads.DriverNoShowData{Date: date}, "Driver no-show"},
		{enums.NotificationStreakAdvanced, payloads.StreakAdvancedData{Stars: 2, StreakWeeks: 5, WeekStart: date}, "Streak advanced"},
		{enums.NotificationStreakReset, payloads.StreakResetData{Reason: "no-show", OccurredAt: date}, "Streak reset"},
		{enums.NotificationBonusEligible, payloads.BonusEligibleData{WeeklyCap: 5, AttendanceRate: decimal.NewFromInt(97)}, "Weekly cap raised"},
		{enums.NotificationCorrectiveWarning, payloads.CorrectiveWarningData{AttendanceRate: decimal.NewFromInt(82), Threshold: decimal.NewFromInt(90), GraceEndsAt: date}, "Attendance warning"},
		{enums.NotificationWindowUnresolved, payloads.WindowUnresolvedData{Date: date, Mode: enums.BidModeInstant}, "Shift still uncovered"},
	}

	for _, tc := range cases {
		t.Run(string(tc.eventType), func(t *testing.T) {
			data, err := json.Marshal(tc.payload)
			require.NoError(t, err)

			title, message, err := renderNotification(tc.eventType, data)
			require.NoError(t, err)
			assert.Equal(t, tc.title, title)
			assert.NotEmpty(t, message)
		})
	}
}

func TestRenderEmergencyRouteMentionsBonus(t *testing.T) {
	data, err := json.Marshal(payloads.EmergencyRouteData{
		RouteID:         uuid.New(),
		Date:            time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC),
		PayBonusPercent: decimal.RequireFromString("25"),
	})
	require.NoError(t, err)

	_, message, err := renderNotification(enums.NotificationEmergencyRoute, data)
	require.NoError(t, err)
	assert.Contains(t, message, "25% bonus")
}
