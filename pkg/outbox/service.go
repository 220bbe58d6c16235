package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/orro3790/drive-sub004/pkg/db"
	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/enums"
	"github.com/orro3790/drive-sub004/pkg/logger"
)

// Intent is one typed notification the engine wants delivered. The engine
// decides what to send and to whom; delivery belongs to the publisher.
type Intent struct {
	Type          enums.NotificationType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	RecipientID   uuid.UUID
	OrgID         uuid.UUID
	Data          interface{}
	Version       int
	OccurredAt    time.Time

	// DedupSuffix distinguishes recurring events on the same aggregate
	// (weekly evaluations, repeated resets). Leave empty for one-shot
	// events keyed by the aggregate alone.
	DedupSuffix string
}

// DedupKey derives the at-most-once key for (recipient, event).
func (i Intent) DedupKey() string {
	key := fmt.Sprintf("%s:%s:%s", i.Type, i.AggregateID, i.RecipientID)
	if i.DedupSuffix != "" {
		key += ":" + i.DedupSuffix
	}
	return key
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit queues the intent inside the caller's transaction. A duplicate
// (recipient, event) pair is silently dropped so that re-run sweeps never
// fan out twice.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, intent Intent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !intent.Type.IsValid() {
		return fmt.Errorf("invalid notification type %q", intent.Type)
	}
	payload, err := json.Marshal(intent.Data)
	if err != nil {
		return err
	}
	if intent.OccurredAt.IsZero() {
		intent.OccurredAt = time.Now()
	}
	if intent.Version == 0 {
		intent.Version = 1
	}
	envelope := PayloadEnvelope{
		Version:     intent.Version,
		EventID:     uuid.NewString(),
		OccurredAt:  intent.OccurredAt,
		RecipientID: intent.RecipientID,
		Data:        payload,
	}
	payloadJSON, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := models.OutboxEvent{
		OrgID:         intent.OrgID,
		EventType:     intent.Type,
		AggregateType: intent.AggregateType,
		AggregateID:   intent.AggregateID,
		RecipientID:   intent.RecipientID,
		DedupKey:      intent.DedupKey(),
		Payload:       json.RawMessage(payloadJSON),
	}
	if err := s.repo.Insert(tx, row); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_outbox_events_dedup_key") {
			return nil
		}
		return err
	}
	if s.logg != nil {
		fields := map[string]any{
			"event_id":     envelope.EventID,
			"event_type":   intent.Type,
			"aggregate_id": intent.AggregateID.String(),
			"recipient_id": intent.RecipientID.String(),
		}
		logCtx := s.logg.WithFields(ctx, fields)
		s.logg.Info(logCtx, "notification intent queued")
	}
	return nil
}

// EmitIfNotExists checks the dedup key before inserting, avoiding the
// constraint round-trip on hot re-run paths.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, intent Intent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	exists, err := s.repo.ExistsTx(tx, intent.DedupKey())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.Emit(ctx, tx, intent)
}
