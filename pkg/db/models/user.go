package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the marketplace profile keyed by the identity provider subject.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"type:text;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	Avatar    *string   `gorm:"column:avatar"`
	Location  *string   `gorm:"column:location"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
