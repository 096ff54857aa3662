package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecoswap/ecoswap-api/pkg/enums"
)

// Notification stores in-app notification payloads scoped to a recipient.
type Notification struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey"`
	RecipientID uuid.UUID              `gorm:"type:uuid;not null"`
	Type        enums.NotificationType `gorm:"type:text;not null"`
	Title       string                 `gorm:"type:text;not null"`
	Message     string                 `gorm:"type:text;not null"`
	ExchangeID  *uuid.UUID             `gorm:"type:uuid"`
	ReadAt      *time.Time             `gorm:"column:read_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
