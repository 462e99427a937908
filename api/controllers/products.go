package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mpbooks/mpbooks-backend/api/middleware"
	"github.com/mpbooks/mpbooks-backend/api/responses"
	"github.com/mpbooks/mpbooks-backend/api/validators"
	"github.com/mpbooks/mpbooks-backend/internal/catalog"
	"github.com/mpbooks/mpbooks-backend/pkg/enums"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
	"github.com/mpbooks/mpbooks-backend/pkg/logger"
)

type createProductRequest struct {
	Name             string           `json:"name" validate:"required,max=200"`
	Description      *string          `json:"description" validate:"omitempty,max=5000"`
	Category         string           `json:"category" validate:"required"`
	SubCategory      *string          `json:"sub_category" validate:"omitempty,max=120"`
	AcademicCategory *string          `json:"academic_category" validate:"omitempty,max=120"`
	Class            *string          `json:"class" validate:"omitempty,max=60"`
	Author           *string          `json:"author" validate:"omitempty,max=160"`
	MarketPrice      *decimal.Decimal `json:"market_price"`
	PriceToSell      *decimal.Decimal `json:"price_to_sell"`
	PricePerPacket   *decimal.Decimal `json:"price_per_packet"`
	PricePerPiece    *decimal.Decimal `json:"price_per_piece"`
	Images           []string         `json:"images" validate:"omitempty,dive,max=500"`
	Stock            int              `json:"stock" validate:"min=0"`
	IsActive         *bool            `json:"is_active"`
}

func (req createProductRequest) toInput(category enums.ProductCategory) catalog.CreateProductInput {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return catalog.CreateProductInput{
		Name:             req.Name,
		Description:      req.Description,
		Category:         category,
		SubCategory:      req.SubCategory,
		AcademicCategory: req.AcademicCategory,
		Class:            req.Class,
		Author:           req.Author,
		MarketPrice:      req.MarketPrice,
		PriceToSell:      req.PriceToSell,
		PricePerPacket:   req.PricePerPacket,
		PricePerPiece:    req.PricePerPiece,
		Images:           req.Images,
		Stock:            req.Stock,
		IsActive:         active,
	}
}

type updateProductRequest struct {
	Name             *string          `json:"name" validate:"omitempty,max=200"`
	Description      *string          `json:"description" validate:"omitempty,max=5000"`
	SubCategory      *string          `json:"sub_category" validate:"omitempty,max=120"`
	AcademicCategory *string          `json:"academic_category" validate:"omitempty,max=120"`
	Class            *string          `json:"class" validate:"omitempty,max=60"`
	Author           *string          `json:"author" validate:"omitempty,max=160"`
	PriceToSell      *decimal.Decimal `json:"price_to_sell"`
	PricePerPacket   *decimal.Decimal `json:"price_per_packet"`
	PricePerPiece    *decimal.Decimal `json:"price_per_piece"`
	Images           *[]string        `json:"images" validate:"omitempty,dive,max=500"`
	Stock            *int             `json:"stock" validate:"omitempty,min=0"`
	IsActive         *bool            `json:"is_active"`
}

func (req updateProductRequest) toInput() catalog.UpdateProductInput {
	return catalog.UpdateProductInput{
		Name:             req.Name,
		Description:      req.Description,
		SubCategory:      req.SubCategory,
		AcademicCategory: req.AcademicCategory,
		Class:            req.Class,
		Author:           req.Author,
		PriceToSell:      req.PriceToSell,
		PricePerPacket:   req.PricePerPacket,
		PricePerPiece:    req.PricePerPiece,
		Images:           req.Images,
		Stock:            req.Stock,
		IsActive:         req.IsActive,
	}
}

type reviewRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// ProductsList serves the public storefront listing; admins pass
// include_inactive=true to see hidden rows.
func ProductsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input := catalog.ListProductsInput{
			Pagination: page,
			Query:      r.URL.Query().Get("q"),
		}
		if raw := r.URL.Query().Get("category"); raw != "" {
			category, err := enums.ParseProductCategory(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown product category"))
				return
			}
			input.Category = &category
		}
		if middleware.RoleFromContext(ctx) == enums.UserRoleAdmin.String() {
			includeInactive, err := validators.ParseQueryBool(r, "include_inactive")
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			input.IncludeInactive = includeInactive
		}
		result, err := svc.ListProducts(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ProductsGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productID"), "product_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		product, err := svc.GetProduct(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductsBestSellers(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 10, 1, 50)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		products, err := svc.BestSellers(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

func ProductsRecent(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 10, 1, 50)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		products, err := svc.RecentProducts(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

func ProductsCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		category, err := enums.ParseProductCategory(body.Category)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown product category"))
			return
		}
		product, err := svc.CreateProduct(ctx, body.toInput(category))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ProductsUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productID"), "product_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(ctx, productID, body.toInput())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductsDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productID"), "product_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteProduct(ctx, productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func ReviewsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productID"), "product_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		reviews, err := svc.ListReviews(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"reviews": reviews})
	}
}

func ReviewsUpsert(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productID"), "product_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		userID, err := authedUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body reviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		review, err := svc.UpsertReview(ctx, productID, userID, catalog.ReviewInput{Rating: body.Rating, Comment: body.Comment})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, review)
	}
}

func ReviewsDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		reviewID, err := validators.ParseUUIDParam(chi.URLParam(r, "reviewID"), "review_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		requesterID, err := authedUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		role := enums.UserRole(middleware.RoleFromContext(ctx))
		if err := svc.DeleteReview(ctx, reviewID, requesterID, role); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
