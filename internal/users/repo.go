package users

import (
	"context"

	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs loads the users that exist among ids.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Exists reports whether a profile row exists for id.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// Upsert inserts the profile or overwrites the editable columns of an existing one.
func (r *Repository) Upsert(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "name", "avatar", "location", "updated_at"}),
		}).
		Create(user).Error
}

// RatingsReceived returns every rating left for the user by their counterparties.
func (r *Repository) RatingsReceived(ctx context.Context, id uuid.UUID) ([]int, error) {
	var ratings []int
	err := r.db.WithContext(ctx).Raw(`
SELECT owner_feedback_rating AS rating FROM exchanges
WHERE requester_id = ? AND owner_feedback_rating IS NOT NULL
UNION ALL
SELECT requester_feedback_rating AS rating FROM exchanges
WHERE owner_id = ? AND requester_feedback_rating IS NOT NULL`, id, id).
		Scan(&ratings).Error
	return ratings, err
}
