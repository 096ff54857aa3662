package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ecoswap/ecoswap-api/pkg/enums"
)

// Product represents a listed secondhand item.
type Product struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID              `gorm:"column:owner_id;type:uuid;not null"`
	Title       string                 `gorm:"column:title;not null"`
	Description string                 `gorm:"column:description;not null"`
	Category    enums.ProductCategory  `gorm:"column:category;type:text;not null"`
	Condition   enums.ProductCondition `gorm:"column:condition;type:text;not null"`
	Images      pq.StringArray         `gorm:"column:images;type:text[];not null"`
	Location    string                 `gorm:"column:location;not null"`
	Status      enums.ProductStatus    `gorm:"column:status;type:text;not null;default:'Available'"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
