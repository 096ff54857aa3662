package products

import (
	"context"
	"errors"
	"strings"

	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	pkgerrors "github.com/ecoswap/ecoswap-api/pkg/errors"
	"github.com/ecoswap/ecoswap-api/pkg/pagination"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Service exposes listing operations to the HTTP layer.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	Browse(ctx context.Context, input BrowseInput) (*ProductListResult, error)
	ListMine(ctx context.Context, ownerID uuid.UUID) ([]ProductDTO, error)
	Update(ctx context.Context, ownerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, ownerID, productID uuid.UUID) error
}

type productRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListAvailable(ctx context.Context, params browseParams) ([]models.Product, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error)
	CountRetainedExchanges(ctx context.Context, productID uuid.UUID) (int64, error)
}

// ProfileChecker reports whether a marketplace profile exists for the user.
type ProfileChecker interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

type service struct {
	repo     productRepository
	profiles ProfileChecker
}

// CreateProductInput carries a new listing.
type CreateProductInput struct {
	Title       string
	Description string
	Category    enums.ProductCategory
	Condition   enums.ProductCondition
	Images      []string
	Location    string
}

// UpdateProductInput carries a partial listing update; nil fields are left untouched.
type UpdateProductInput struct {
	Title       *string
	Description *string
	Category    *enums.ProductCategory
	Condition   *enums.ProductCondition
	Images      []string
	Location    *string
	Status      *enums.ProductStatus
}

// BrowseInput filters public listings. Empty or "All" filters match everything.
type BrowseInput struct {
	Category  string
	Condition string
	Limit     int
	Cursor    string
}

// NewService wires the product repository with the profile lookup.
func NewService(repo productRepository, profiles ProfileChecker) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product repository required")
	}
	if profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "profile checker required")
	}
	return &service{repo: repo, profiles: profiles}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	product := &models.Product{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Condition:   input.Condition,
		Images:      pq.StringArray(cleanImages(input.Images)),
		Location:    strings.TrimSpace(input.Location),
		Status:      enums.ProductStatusAvailable,
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	exists, err := s.profiles.Exists(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user profile")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "complete your profile before listing products")
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return FromModel(product), nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

func (s *service) Browse(ctx context.Context, input BrowseInput) (*ProductListResult, error) {
	params := browseParams{Limit: input.Limit}

	if category := strings.TrimSpace(input.Category); category != "" && category != enums.FilterAll {
		parsed, err := enums.ParseProductCategory(category)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category filter")
		}
		params.Category = &parsed
	}
	if condition := strings.TrimSpace(input.Condition); condition != "" && condition != enums.FilterAll {
		parsed, err := enums.ParseProductCondition(condition)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition filter")
		}
		params.Condition = &parsed
	}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	rows, err := s.repo.ListAvailable(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	page := pagination.Trim(rows, input.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &ProductListResult{
		Items:  FromModels(page.Items),
		Cursor: page.NextCursor,
	}, nil
}

func (s *service) ListMine(ctx context.Context, ownerID uuid.UUID) ([]ProductDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owned products")
	}
	return FromModels(rows), nil
}

func (s *service) Update(ctx context.Context, ownerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.loadOwned(ctx, ownerID, productID)
	if err != nil {
		return nil, err
	}
	if product.Status == enums.ProductStatusExchanged {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "exchanged products cannot be edited")
	}

	updates := map[string]any{}
	if input.Title != nil {
		product.Title = strings.TrimSpace(*input.Title)
		updates["title"] = product.Title
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
		updates["description"] = product.Description
	}
	if input.Category != nil {
		product.Category = *input.Category
		updates["category"] = product.Category
	}
	if input.Condition != nil {
		product.Condition = *input.Condition
		updates["condition"] = product.Condition
	}
	if input.Images != nil {
		product.Images = pq.StringArray(cleanImages(input.Images))
		updates["images"] = product.Images
	}
	if input.Location != nil {
		product.Location = strings.TrimSpace(*input.Location)
		updates["location"] = product.Location
	}
	if input.Status != nil {
		// Exchanged is only reached by completing an exchange.
		if *input.Status == enums.ProductStatusExchanged {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "products become exchanged by completing an exchange")
		}
		product.Status = *input.Status
		updates["status"] = product.Status
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, product.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return s.Get(ctx, product.ID)
}

func (s *service) Delete(ctx context.Context, ownerID, productID uuid.UUID) error {
	product, err := s.loadOwned(ctx, ownerID, productID)
	if err != nil {
		return err
	}
	if product.Status == enums.ProductStatusExchanged {
		return pkgerrors.New(pkgerrors.CodeInvalidOperation, "exchanged products are kept with their exchange history")
	}
	retained, err := s.repo.CountRetainedExchanges(ctx, product.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count exchanges")
	}
	if retained > 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidOperation, "product has exchanges in progress or completed")
	}
	if err := s.repo.Delete(ctx, product.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) load(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) loadOwned(ctx context.Context, ownerID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can modify this product")
	}
	return product, nil
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Title == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	case p.Description == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	case !p.Category.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	case !p.Condition.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid condition")
	case len(p.Images) == 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one image is required")
	case p.Location == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	case !p.Status.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	return nil
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, image := range images {
		if trimmed := strings.TrimSpace(image); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
