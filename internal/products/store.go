package products

import (
	"context"

	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store exposes product reads and status writes to callers that own the
// surrounding transaction, such as the exchange lifecycle.
type Store struct {
	repo *Repository
}

// NewStore wraps a repository for transactional callers.
func NewStore(repo *Repository) *Store {
	return &Store{repo: repo}
}

func (s *Store) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	return s.repo.WithTx(tx).FindByID(ctx, id)
}

func (s *Store) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	return s.repo.FindByIDs(ctx, ids)
}

// UpdateStatus returns gorm.ErrRecordNotFound when the product no longer exists.
func (s *Store) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.ProductStatus) error {
	rows, err := s.repo.WithTx(tx).UpdateStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if rows == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
