package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecoswap/ecoswap-api/pkg/enums"
)

// Exchange is a request by one user to obtain another user's listing.
type Exchange struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ProductID           uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	OwnerID             uuid.UUID            `gorm:"column:owner_id;type:uuid;not null"`
	RequesterID         uuid.UUID            `gorm:"column:requester_id;type:uuid;not null"`
	Type                enums.ExchangeType   `gorm:"column:type;type:text;not null"`
	ExchangeItemDetails *string              `gorm:"column:exchange_item_details"`
	Message             string               `gorm:"column:message;not null"`
	Status              enums.ExchangeStatus `gorm:"column:status;type:text;not null;default:'Pending'"`
	MeetupLocation      *string              `gorm:"column:meetup_location"`
	MeetupTime          *time.Time           `gorm:"column:meetup_time"`
	OwnerFeedback       Feedback             `gorm:"embedded;embeddedPrefix:owner_feedback_"`
	RequesterFeedback   Feedback             `gorm:"embedded;embeddedPrefix:requester_feedback_"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// Feedback is one party's rating of a completed exchange. A nil Rating means
// the slot has not been filled.
type Feedback struct {
	Rating      *int       `gorm:"column:rating"`
	Comment     *string    `gorm:"column:comment"`
	SubmittedAt *time.Time `gorm:"column:submitted_at"`
}

// Submitted reports whether the slot holds a rating.
func (f Feedback) Submitted() bool {
	return f.Rating != nil
}
