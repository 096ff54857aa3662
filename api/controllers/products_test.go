package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	productsvc "github.com/ecoswap/ecoswap-api/internal/products"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	pkgerrors "github.com/ecoswap/ecoswap-api/pkg/errors"
)

type stubProductService struct {
	createFn func(ctx context.Context, ownerID uuid.UUID, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error)
	browseFn func(ctx context.Context, input productsvc.BrowseInput) (*productsvc.ProductListResult, error)
	updateFn func(ctx context.Context, ownerID, productID uuid.UUID, input productsvc.UpdateProductInput) (*productsvc.ProductDTO, error)
	deleteFn func(ctx context.Context, ownerID, productID uuid.UUID) error
}

func (s *stubProductService) Create(ctx context.Context, ownerID uuid.UUID, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	return s.createFn(ctx, ownerID, input)
}

func (s *stubProductService) Get(ctx context.Context, productID uuid.UUID) (*productsvc.ProductDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubProductService) Browse(ctx context.Context, input productsvc.BrowseInput) (*productsvc.ProductListResult, error) {
	return s.browseFn(ctx, input)
}

func (s *stubProductService) ListMine(ctx context.Context, ownerID uuid.UUID) ([]productsvc.ProductDTO, error) {
	return []productsvc.ProductDTO{}, nil
}

func (s *stubProductService) Update(ctx context.Context, ownerID, productID uuid.UUID, input productsvc.UpdateProductInput) (*productsvc.ProductDTO, error) {
	return s.updateFn(ctx, ownerID, productID, input)
}

func (s *stubProductService) Delete(ctx context.Context, ownerID, productID uuid.UUID) error {
	return s.deleteFn(ctx, ownerID, productID)
}

func TestBrowseProductsForwardsFilters(t *testing.T) {
	var captured productsvc.BrowseInput
	svc := &stubProductService{
		browseFn: func(ctx context.Context, input productsvc.BrowseInput) (*productsvc.ProductListResult, error) {
			captured = input
			return &productsvc.ProductListResult{Items: []productsvc.ProductDTO{}}, nil
		},
	}

	req := newRequest(http.MethodGet, "/api/v1/products?category=Books&condition=All&limit=5", nil, "", nil)
	rec := httptest.NewRecorder()
	BrowseProducts(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if captured.Category != "Books" || captured.Condition != "All" || captured.Limit != 5 {
		t.Fatalf("unexpected browse input %+v", captured)
	}
}

func TestBrowseProductsRejectsHugeLimit(t *testing.T) {
	req := newRequest(http.MethodGet, "/api/v1/products?limit=1000", nil, "", nil)
	rec := httptest.NewRecorder()
	BrowseProducts(&stubProductService{}, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCreateProductRequiresImages(t *testing.T) {
	body := `{"title":"Desk","description":"Oak desk","category":"Furniture","condition":"Good","images":[],"location":"Lyon"}`
	req := newRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body), uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	CreateProduct(&stubProductService{}, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCreateProductSuccess(t *testing.T) {
	ownerID := uuid.New()
	svc := &stubProductService{
		createFn: func(ctx context.Context, gotOwner uuid.UUID, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
			if gotOwner != ownerID {
				t.Fatalf("owner should come from the token")
			}
			if input.Category != enums.ProductCategory("Furniture") || input.Condition != enums.ProductCondition("Good") {
				t.Fatalf("unexpected enums %+v", input)
			}
			return &productsvc.ProductDTO{ID: uuid.New(), Title: input.Title}, nil
		},
	}
	body := `{"title":"Desk","description":"Oak desk","category":"Furniture","condition":"Good","images":["https://img.example.com/desk.jpg"],"location":"Lyon"}`
	req := newRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body), ownerID.String(), nil)
	rec := httptest.NewRecorder()
	CreateProduct(svc, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateProductConvertsStatus(t *testing.T) {
	productID := uuid.New()
	svc := &stubProductService{
		updateFn: func(ctx context.Context, ownerID, gotProduct uuid.UUID, input productsvc.UpdateProductInput) (*productsvc.ProductDTO, error) {
			if gotProduct != productID {
				t.Fatalf("unexpected product %s", gotProduct)
			}
			if input.Status == nil || *input.Status != enums.ProductStatusReserved {
				t.Fatalf("expected Reserved status, got %v", input.Status)
			}
			if input.Title != nil {
				t.Fatalf("title should be untouched")
			}
			return &productsvc.ProductDTO{ID: productID}, nil
		},
	}
	req := newRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"Reserved"}`), uuid.NewString(), map[string]string{"productId": productID.String()})
	rec := httptest.NewRecorder()
	UpdateProduct(svc, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteProduct(t *testing.T) {
	productID := uuid.New()

	t.Run("missing user", func(t *testing.T) {
		req := newRequest(http.MethodDelete, "/", nil, "", map[string]string{"productId": productID.String()})
		rec := httptest.NewRecorder()
		DeleteProduct(&stubProductService{}, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 got %d", rec.Code)
		}
	})

	t.Run("not owner", func(t *testing.T) {
		svc := &stubProductService{
			deleteFn: func(ctx context.Context, ownerID, productID uuid.UUID) error {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can delete this product")
			},
		}
		req := newRequest(http.MethodDelete, "/", nil, uuid.NewString(), map[string]string{"productId": productID.String()})
		rec := httptest.NewRecorder()
		DeleteProduct(svc, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		svc := &stubProductService{
			deleteFn: func(ctx context.Context, ownerID, productID uuid.UUID) error {
				return nil
			},
		}
		req := newRequest(http.MethodDelete, "/", nil, uuid.NewString(), map[string]string{"productId": productID.String()})
		rec := httptest.NewRecorder()
		DeleteProduct(svc, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
	})
}
