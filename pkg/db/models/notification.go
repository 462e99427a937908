package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mpbooks/mpbooks-backend/pkg/enums"
)

// Notification stores in-app notification rows. UserID is nil for rows that
// belong to the admin feed. Rows are append-only except for read_at.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    *uuid.UUID             `gorm:"column:user_id;type:uuid;index"`
	Type      enums.NotificationType `gorm:"type:notification_type;not null"`
	Title     string                 `gorm:"type:text;not null"`
	Message   string                 `gorm:"type:text;not null"`
	OrderID   *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	MessageID *uuid.UUID             `gorm:"column:message_id;type:uuid"`
	ReadAt    *time.Time             `gorm:"type:timestamptz"`
	CreatedAt time.Time              `gorm:"type:timestamptz;default:now()"`
}
