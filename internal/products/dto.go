package products

import (
	"time"

	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ProductDTO is the listing payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID              `json:"id"`
	OwnerID     uuid.UUID              `json:"owner_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Category    enums.ProductCategory  `json:"category"`
	Condition   enums.ProductCondition `json:"condition"`
	Images      []string               `json:"images"`
	Location    string                 `json:"location"`
	Status      enums.ProductStatus    `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Summary is the product view embedded in exchange payloads.
type Summary struct {
	ID          uuid.UUID              `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Images      []string               `json:"images"`
	Location    string                 `json:"location"`
	Category    enums.ProductCategory  `json:"category"`
	Condition   enums.ProductCondition `json:"condition"`
	Status      enums.ProductStatus    `json:"status"`
}

// ProductListResult wraps a page of listings.
type ProductListResult struct {
	Items  []ProductDTO `json:"items"`
	Cursor string       `json:"cursor,omitempty"`
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Condition:   p.Condition,
		Images:      imagesOf(p),
		Location:    p.Location,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromModels(rows []models.Product) []ProductDTO {
	return lo.Map(rows, func(p models.Product, _ int) ProductDTO {
		return *FromModel(&p)
	})
}

// SummaryFromModel builds the compact view used by exchanges.
func SummaryFromModel(p *models.Product) *Summary {
	if p == nil {
		return nil
	}
	return &Summary{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Images:      imagesOf(p),
		Location:    p.Location,
		Category:    p.Category,
		Condition:   p.Condition,
		Status:      p.Status,
	}
}

func imagesOf(p *models.Product) []string {
	if len(p.Images) == 0 {
		return []string{}
	}
	return append([]string(nil), p.Images...)
}
