package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orro3790/drive-sub004/pkg/enums"
)

// Notification stores in-app notification payloads scoped to recipients.
// Rows are materialized by the intent consumer, not by the engine itself.
type Notification struct {
	ID          uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID       uuid.UUID              `gorm:"type:uuid;not null"`
	RecipientID uuid.UUID              `gorm:"type:uuid;not null"`
	Type        enums.NotificationType `gorm:"type:notification_type;not null"`
	Title       string                 `gorm:"type:text;not null"`
	Message     string                 `gorm:"type:text;not null"`
	ReadAt      *time.Time             `gorm:"type:timestamptz"`
	CreatedAt   time.Time              `gorm:"type:timestamptz;default:now()"`
}
