package exchanges

import (
	"context"
	"time"

	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the exchanges table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, exchange *models.Exchange) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Exchange, error)
	HasActive(ctx context.Context, productID, requesterID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.ExchangeStatus, meetup *Meetup) (bool, error)
	SubmitFeedback(ctx context.Context, id uuid.UUID, role Role, feedback models.Feedback) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Exchange, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an exchanges repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, exchange *models.Exchange) error {
	return r.db.WithContext(ctx).Create(exchange).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Exchange, error) {
	var exchange models.Exchange
	if err := r.db.WithContext(ctx).First(&exchange, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &exchange, nil
}

// HasActive reports whether the requester already holds a Pending or Accepted
// exchange for the product.
func (r *repositoryImpl) HasActive(ctx context.Context, productID, requesterID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Exchange{}).
		Where("product_id = ? AND requester_id = ? AND status IN ?", productID, requesterID, enums.ActiveExchangeStatuses).
		Count(&count).Error
	return count > 0, err
}

// UpdateStatus moves the exchange from one status to another only if it is
// still in from. It reports false when another writer got there first.
func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.ExchangeStatus, meetup *Meetup) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if meetup != nil && meetup.Location != "" {
		updates["meetup_location"] = meetup.Location
	}
	if meetup != nil && !meetup.Time.IsZero() {
		updates["meetup_time"] = meetup.Time.UTC()
	}

	result := r.db.WithContext(ctx).
		Model(&models.Exchange{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SubmitFeedback fills the role's feedback slot on a completed exchange. It
// reports false when the slot is already taken.
func (r *repositoryImpl) SubmitFeedback(ctx context.Context, id uuid.UUID, role Role, feedback models.Feedback) (bool, error) {
	prefix := role.columnPrefix()
	result := r.db.WithContext(ctx).
		Model(&models.Exchange{}).
		Where("id = ? AND status = ? AND "+prefix+"rating IS NULL", id, enums.ExchangeStatusCompleted).
		Updates(map[string]any{
			prefix + "rating":       feedback.Rating,
			prefix + "comment":      feedback.Comment,
			prefix + "submitted_at": feedback.SubmittedAt,
			"updated_at":            time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListForUser returns every exchange the user takes part in, newest first.
func (r *repositoryImpl) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Exchange, error) {
	var rows []models.Exchange
	err := r.db.WithContext(ctx).
		Where("(owner_id = ? OR requester_id = ?)", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}
