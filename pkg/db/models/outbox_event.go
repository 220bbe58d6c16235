package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/orro3790/drive-sub004/pkg/enums"
)

// OutboxEvent is one queued notification intent, written in the same
// transaction as the domain mutation that caused it. The unique dedup_key
// guarantees at most one intent per (recipient, event).
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID         uuid.UUID                 `gorm:"column:org_id;type:uuid;not null"`
	EventType     enums.NotificationType    `gorm:"column:event_type;type:notification_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:aggregate_type;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	RecipientID   uuid.UUID                 `gorm:"column:recipient_id;type:uuid;not null"`
	DedupKey      string                    `gorm:"column:dedup_key;type:text;not null;uniqueIndex:ux_outbox_events_dedup_key"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}

// OutboxDLQ stores intents that exhausted their publish attempts.
type OutboxDLQ struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID   uuid.UUID       `gorm:"column:event_id;type:uuid;not null;uniqueIndex:ux_outbox_dlq_event"`
	EventType string          `gorm:"column:event_type;type:text;not null"`
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	Reason    string          `gorm:"column:reason;type:text;not null"`
	Attempts  int             `gorm:"column:attempts;not null"`
	FailedAt  time.Time       `gorm:"column:failed_at;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
