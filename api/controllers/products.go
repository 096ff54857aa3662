package controllers

import (
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/ecoswap/ecoswap-api/api/responses"
	"github.com/ecoswap/ecoswap-api/api/validators"
	productsvc "github.com/ecoswap/ecoswap-api/internal/products"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	pkgerrors "github.com/ecoswap/ecoswap-api/pkg/errors"
	"github.com/ecoswap/ecoswap-api/pkg/logger"
	"github.com/ecoswap/ecoswap-api/pkg/pagination"
)

const maxFilterLength = 32

type createProductRequest struct {
	Title       string   `json:"title" validate:"required,max=120"`
	Description string   `json:"description" validate:"required,max=2000"`
	Category    string   `json:"category" validate:"required"`
	Condition   string   `json:"condition" validate:"required"`
	Images      []string `json:"images" validate:"required,min=1,dive,required,url"`
	Location    string   `json:"location" validate:"required"`
}

func (r createProductRequest) toInput() productsvc.CreateProductInput {
	return productsvc.CreateProductInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    enums.ProductCategory(strings.TrimSpace(r.Category)),
		Condition:   enums.ProductCondition(strings.TrimSpace(r.Condition)),
		Images:      r.Images,
		Location:    r.Location,
	}
}

type updateProductRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,max=120"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category    *string  `json:"category,omitempty"`
	Condition   *string  `json:"condition,omitempty"`
	Images      []string `json:"images,omitempty" validate:"omitempty,dive,required,url"`
	Location    *string  `json:"location,omitempty"`
	Status      *string  `json:"status,omitempty"`
}

func (r updateProductRequest) toInput() productsvc.UpdateProductInput {
	input := productsvc.UpdateProductInput{
		Title:       r.Title,
		Description: r.Description,
		Images:      r.Images,
		Location:    r.Location,
	}
	if r.Category != nil {
		input.Category = lo.ToPtr(enums.ProductCategory(strings.TrimSpace(*r.Category)))
	}
	if r.Condition != nil {
		input.Condition = lo.ToPtr(enums.ProductCondition(strings.TrimSpace(*r.Condition)))
	}
	if r.Status != nil {
		input.Status = lo.ToPtr(enums.ProductStatus(strings.TrimSpace(*r.Status)))
	}
	return input
}

// BrowseProducts lists available products, newest first.
func BrowseProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		result, err := svc.Browse(r.Context(), productsvc.BrowseInput{
			Category:  validators.SanitizeString(query.Get("category"), maxFilterLength),
			Condition: validators.SanitizeString(query.Get("condition"), maxFilterLength),
			Limit:     limit,
			Cursor:    strings.TrimSpace(query.Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		uid, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), uid, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ListMyProducts returns every listing of the caller regardless of status.
func ListMyProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		uid, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListMine(r.Context(), uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		uid, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), uid, productID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		uid, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), uid, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
