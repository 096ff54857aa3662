package products

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	pkgerrors "github.com/ecoswap/ecoswap-api/pkg/errors"
	"github.com/ecoswap/ecoswap-api/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeRepo struct {
	products     map[uuid.UUID]*models.Product
	openCount    int64
	createErr    error
	lastUpdates  map[string]any
	lastBrowse   browseParams
	browseResult []models.Product
	deleted      []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[uuid.UUID]*models.Product{}}
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakeRepo) Create(ctx context.Context, product *models.Product) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.products[product.ID] = product
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	f.lastUpdates = updates
	p := f.products[id]
	if v, ok := updates["title"]; ok {
		p.Title = v.(string)
	}
	if v, ok := updates["status"]; ok {
		p.Status = v.(enums.ProductStatus)
	}
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	delete(f.products, id)
	return nil
}

func (f *fakeRepo) ListAvailable(ctx context.Context, params browseParams) ([]models.Product, error) {
	f.lastBrowse = params
	return f.browseResult, nil
}

func (f *fakeRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountRetainedExchanges(ctx context.Context, productID uuid.UUID) (int64, error) {
	return f.openCount, nil
}

type fakeProfiles struct {
	exists bool
	err    error
}

func (f fakeProfiles) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f.exists, f.err
}

func validInput() CreateProductInput {
	return CreateProductInput{
		Title:       " Oak chair ",
		Description: "Solid oak, minor scratches",
		Category:    enums.ProductCategoryFurniture,
		Condition:   enums.ProductConditionGood,
		Images:      []string{"https://img.example.com/chair.jpg", " "},
		Location:    "Springfield",
	}
}

func seedProduct(repo *fakeRepo, ownerID uuid.UUID, status enums.ProductStatus) *models.Product {
	p := &models.Product{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       "Lamp",
		Description: "Desk lamp",
		Category:    enums.ProductCategoryElectronics,
		Condition:   enums.ProductConditionFair,
		Images:      []string{"https://img.example.com/lamp.jpg"},
		Location:    "Shelbyville",
		Status:      status,
	}
	repo.products[p.ID] = p
	return p
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := pkgerrors.CodeOf(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, fakeProfiles{}); err == nil {
		t.Fatal("expected error without repository")
	}
	if _, err := NewService(newFakeRepo(), nil); err == nil {
		t.Fatal("expected error without profile checker")
	}
}

func TestCreateProductSuccess(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := NewService(repo, fakeProfiles{exists: true})
	ownerID := uuid.New()

	dto, err := svc.Create(context.Background(), ownerID, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Title != "Oak chair" {
		t.Fatalf("expected trimmed title, got %q", dto.Title)
	}
	if dto.Status != enums.ProductStatusAvailable {
		t.Fatalf("expected Available, got %s", dto.Status)
	}
	if dto.OwnerID != ownerID {
		t.Fatalf("owner mismatch")
	}
	if len(dto.Images) != 1 {
		t.Fatalf("expected blank images dropped, got %v", dto.Images)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := NewService(newFakeRepo(), fakeProfiles{exists: true})

	input := validInput()
	input.Images = nil
	_, err := svc.Create(context.Background(), uuid.New(), input)
	assertCode(t, err, pkgerrors.CodeValidation)

	input = validInput()
	input.Category = "Vehicles"
	_, err = svc.Create(context.Background(), uuid.New(), input)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateProductRequiresProfile(t *testing.T) {
	svc, _ := NewService(newFakeRepo(), fakeProfiles{exists: false})

	_, err := svc.Create(context.Background(), uuid.New(), validInput())
	assertCode(t, err, pkgerrors.CodeInvalidOperation)
}

func TestCreateProductRepoFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("boom")
	svc, _ := NewService(repo, fakeProfiles{exists: true})

	_, err := svc.Create(context.Background(), uuid.New(), validInput())
	assertCode(t, err, pkgerrors.CodeDependency)
}

func TestGetProductNotFound(t *testing.T) {
	svc, _ := NewService(newFakeRepo(), fakeProfiles{})

	_, err := svc.Get(context.Background(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestBrowseFilters(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := NewService(repo, fakeProfiles{})

	if _, err := svc.Browse(context.Background(), BrowseInput{Category: "All", Condition: "Like New"}); err != nil {
		t.Fatalf("browse: %v", err)
	}
	if repo.lastBrowse.Category != nil {
		t.Fatalf("expected All to disable category filter")
	}
	if repo.lastBrowse.Condition == nil || *repo.lastBrowse.Condition != enums.ProductConditionLikeNew {
		t.Fatalf("expected Like New condition filter, got %v", repo.lastBrowse.Condition)
	}

	_, err := svc.Browse(context.Background(), BrowseInput{Category: "Vehicles"})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Browse(context.Background(), BrowseInput{Cursor: "%%%"})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestBrowseReturnsCursorWhenMoreRows(t *testing.T) {
	repo := newFakeRepo()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		repo.browseResult = append(repo.browseResult, models.Product{
			ID:        uuid.New(),
			Status:    enums.ProductStatusAvailable,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	svc, _ := NewService(repo, fakeProfiles{})

	result, err := svc.Browse(context.Background(), BrowseInput{Limit: 2})
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	cursor, err := pagination.ParseCursor(result.Cursor)
	if err != nil || cursor == nil {
		t.Fatalf("expected valid cursor, got %q (%v)", result.Cursor, err)
	}
	if cursor.ID != repo.browseResult[1].ID {
		t.Fatalf("expected cursor on last kept row")
	}
}

func TestUpdateProductOwnerOnly(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	product := seedProduct(repo, owner, enums.ProductStatusAvailable)
	svc, _ := NewService(repo, fakeProfiles{})

	title := "Brass lamp"
	_, err := svc.Update(context.Background(), uuid.New(), product.ID, UpdateProductInput{Title: &title})
	assertCode(t, err, pkgerrors.CodeForbidden)

	dto, err := svc.Update(context.Background(), owner, product.ID, UpdateProductInput{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if dto.Title != title {
		t.Fatalf("expected updated title, got %q", dto.Title)
	}
}

func TestUpdateProductRejectsManualExchanged(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	product := seedProduct(repo, owner, enums.ProductStatusAvailable)
	svc, _ := NewService(repo, fakeProfiles{})

	status := enums.ProductStatusExchanged
	_, err := svc.Update(context.Background(), owner, product.ID, UpdateProductInput{Status: &status})
	assertCode(t, err, pkgerrors.CodeInvalidOperation)
	if repo.lastUpdates != nil {
		t.Fatalf("expected no write")
	}
}

func TestUpdateExchangedProductRejected(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	product := seedProduct(repo, owner, enums.ProductStatusExchanged)
	svc, _ := NewService(repo, fakeProfiles{})

	title := "new title"
	_, err := svc.Update(context.Background(), owner, product.ID, UpdateProductInput{Title: &title})
	assertCode(t, err, pkgerrors.CodeInvalidOperation)
}

func TestDeleteProduct(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	product := seedProduct(repo, owner, enums.ProductStatusAvailable)
	svc, _ := NewService(repo, fakeProfiles{})

	repo.openCount = 1
	err := svc.Delete(context.Background(), owner, product.ID)
	assertCode(t, err, pkgerrors.CodeInvalidOperation)

	repo.openCount = 0
	if err := svc.Delete(context.Background(), owner, product.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != product.ID {
		t.Fatalf("expected product deleted, got %v", repo.deleted)
	}
}

func TestDeleteExchangedProductKeepsHistory(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	product := seedProduct(repo, owner, enums.ProductStatusExchanged)
	svc, _ := NewService(repo, fakeProfiles{})

	err := svc.Delete(context.Background(), owner, product.ID)
	assertCode(t, err, pkgerrors.CodeInvalidOperation)
	if len(repo.deleted) != 0 {
		t.Fatalf("exchanged product must not be deleted, got %v", repo.deleted)
	}
}
