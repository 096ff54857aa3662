package notifications

import (
	"time"

	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// RecordInput describes a notification produced by another domain inside its transaction.
type RecordInput struct {
	RecipientID uuid.UUID
	Type        enums.NotificationType
	Title       string
	Message     string
	ExchangeID  *uuid.UUID
}

// Notification is the inbox entry returned to clients.
type Notification struct {
	ID         uuid.UUID              `json:"id"`
	Type       enums.NotificationType `json:"type"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	ExchangeID *uuid.UUID             `json:"exchange_id,omitempty"`
	Read       bool                   `json:"read"`
	ReadAt     *time.Time             `json:"read_at,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []Notification `json:"items"`
	Cursor string         `json:"cursor,omitempty"`
}

func fromModel(m models.Notification) Notification {
	return Notification{
		ID:         m.ID,
		Type:       m.Type,
		Title:      m.Title,
		Message:    m.Message,
		ExchangeID: m.ExchangeID,
		Read:       m.ReadAt != nil,
		ReadAt:     m.ReadAt,
		CreatedAt:  m.CreatedAt,
	}
}

func fromModels(rows []models.Notification) []Notification {
	return lo.Map(rows, func(m models.Notification, _ int) Notification {
		return fromModel(m)
	})
}
