package exchanges

import (
	"time"

	"github.com/ecoswap/ecoswap-api/internal/products"
	"github.com/ecoswap/ecoswap-api/internal/users"
	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	"github.com/google/uuid"
)

// Role identifies which side of an exchange an actor is on.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleRequester Role = "requester"
)

func (r Role) columnPrefix() string {
	if r == RoleOwner {
		return "owner_feedback_"
	}
	return "requester_feedback_"
}

// roleOf resolves the actor's side by identity. ok is false for outsiders.
func roleOf(exchange *models.Exchange, actorID uuid.UUID) (Role, bool) {
	switch actorID {
	case exchange.OwnerID:
		return RoleOwner, true
	case exchange.RequesterID:
		return RoleRequester, true
	default:
		return "", false
	}
}

// Meetup is where and when the parties hand over the item.
type Meetup struct {
	Location string
	Time     time.Time
}

// CreateInput carries a new exchange request. The owner is derived from the product.
type CreateInput struct {
	ProductID           uuid.UUID
	RequesterID         uuid.UUID
	Type                enums.ExchangeType
	Message             string
	ExchangeItemDetails *string
}

// UpdateStatusInput asks for a status change on behalf of ActorID.
type UpdateStatusInput struct {
	ExchangeID     uuid.UUID
	ActorID        uuid.UUID
	Status         enums.ExchangeStatus
	MeetupLocation *string
	MeetupTime     *time.Time
}

// FeedbackInput rates the counterparty of a completed exchange.
type FeedbackInput struct {
	ExchangeID uuid.UUID
	ActorID    uuid.UUID
	Rating     int
	Comment    *string
}

// FeedbackDTO is one party's rating.
type FeedbackDTO struct {
	Rating      int        `json:"rating"`
	Comment     *string    `json:"comment,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// ExchangeDTO is the populated exchange returned by every read and write.
type ExchangeDTO struct {
	ID                  uuid.UUID            `json:"id"`
	Type                enums.ExchangeType   `json:"type"`
	Status              enums.ExchangeStatus `json:"status"`
	Message             string               `json:"message"`
	ExchangeItemDetails *string              `json:"exchange_item_details,omitempty"`
	MeetupLocation      *string              `json:"meetup_location,omitempty"`
	MeetupTime          *time.Time           `json:"meetup_time,omitempty"`
	Product             *products.Summary    `json:"product"`
	Owner               users.Summary        `json:"owner"`
	Requester           users.Summary        `json:"requester"`
	OwnerFeedback       *FeedbackDTO         `json:"owner_feedback,omitempty"`
	RequesterFeedback   *FeedbackDTO         `json:"requester_feedback,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

func feedbackFromModel(f models.Feedback) *FeedbackDTO {
	if !f.Submitted() {
		return nil
	}
	return &FeedbackDTO{
		Rating:      *f.Rating,
		Comment:     f.Comment,
		SubmittedAt: f.SubmittedAt,
	}
}

func summaryOrID(summaries map[uuid.UUID]users.Summary, id uuid.UUID) users.Summary {
	if summary, ok := summaries[id]; ok {
		return summary
	}
	return users.Summary{ID: id}
}

func populate(e *models.Exchange, product *models.Product, summaries map[uuid.UUID]users.Summary) *ExchangeDTO {
	return &ExchangeDTO{
		ID:                  e.ID,
		Type:                e.Type,
		Status:              e.Status,
		Message:             e.Message,
		ExchangeItemDetails: e.ExchangeItemDetails,
		MeetupLocation:      e.MeetupLocation,
		MeetupTime:          e.MeetupTime,
		Product:             products.SummaryFromModel(product),
		Owner:               summaryOrID(summaries, e.OwnerID),
		Requester:           summaryOrID(summaries, e.RequesterID),
		OwnerFeedback:       feedbackFromModel(e.OwnerFeedback),
		RequesterFeedback:   feedbackFromModel(e.RequesterFeedback),
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}
