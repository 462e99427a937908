package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mpbooks/mpbooks-backend/pkg/db"
	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
	"github.com/mpbooks/mpbooks-backend/pkg/enums"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
	"github.com/mpbooks/mpbooks-backend/pkg/pagination"
)

// Service exposes catalog management and storefront read operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	BestSellers(ctx context.Context, limit int) ([]ProductDTO, error)
	RecentProducts(ctx context.Context, limit int) ([]ProductDTO, error)

	UpsertReview(ctx context.Context, productID, userID uuid.UUID, input ReviewInput) (*ReviewDTO, error)
	DeleteReview(ctx context.Context, reviewID, requesterID uuid.UUID, requesterRole enums.UserRole) error
	ListReviews(ctx context.Context, productID uuid.UUID) ([]ReviewDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name             string
	Description      *string
	Category         enums.ProductCategory
	SubCategory      *string
	AcademicCategory *string
	Class            *string
	Author           *string
	MarketPrice      *decimal.Decimal
	PriceToSell      *decimal.Decimal
	PricePerPacket   *decimal.Decimal
	PricePerPiece    *decimal.Decimal
	Images           []string
	Stock            int
	IsActive         bool
}

// UpdateProductInput holds optional mutation values. MarketPrice is absent on
// purpose: the column is write-once and the update path never touches it.
type UpdateProductInput struct {
	Name             *string
	Description      *string
	SubCategory      *string
	AcademicCategory *string
	Class            *string
	Author           *string
	PriceToSell      *decimal.Decimal
	PricePerPacket   *decimal.Decimal
	PricePerPiece    *decimal.Decimal
	Images           *[]string
	Stock            *int
	IsActive         *bool
}

// ListProductsInput carries storefront/back-office list parameters.
type ListProductsInput struct {
	Pagination pagination.Params
	Category   *enums.ProductCategory
	Query      string
	// IncludeInactive is reserved for admin reads.
	IncludeInactive bool
}

// ReviewInput is the reviewer-supplied payload.
type ReviewInput struct {
	Rating  int
	Comment *string
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

// CreateProduct validates category-conditional pricing and inserts the row.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product category")
	}
	if err := validateCategoryPricing(input.Category, input.PriceToSell, input.PricePerPacket, input.PricePerPiece); err != nil {
		return nil, err
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	product := &models.Product{
		Name:             input.Name,
		Description:      input.Description,
		Category:         input.Category,
		SubCategory:      input.SubCategory,
		AcademicCategory: input.AcademicCategory,
		Class:            input.Class,
		Author:           input.Author,
		MarketPrice:      input.MarketPrice,
		PriceToSell:      input.PriceToSell,
		PricePerPacket:   input.PricePerPacket,
		PricePerPiece:    input.PricePerPiece,
		Images:           input.Images,
		Stock:            input.Stock,
		IsActive:         input.IsActive,
	}
	if !input.Category.IsBook() {
		product.MarketPrice = nil
		product.PriceToSell = nil
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(created), nil
}

// UpdateProduct applies the provided fields. market_price never changes once set.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.SubCategory != nil {
		product.SubCategory = input.SubCategory
	}
	if input.AcademicCategory != nil {
		product.AcademicCategory = input.AcademicCategory
	}
	if input.Class != nil {
		product.Class = input.Class
	}
	if input.Author != nil {
		product.Author = input.Author
	}
	if input.PriceToSell != nil {
		if !product.Category.IsBook() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_to_sell only applies to books")
		}
		product.PriceToSell = input.PriceToSell
	}
	if input.PricePerPacket != nil {
		if product.Category.IsBook() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_per_packet does not apply to books")
		}
		product.PricePerPacket = input.PricePerPacket
	}
	if input.PricePerPiece != nil {
		if product.Category.IsBook() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_per_piece does not apply to books")
		}
		product.PricePerPiece = input.PricePerPiece
	}
	if input.Images != nil {
		product.Images = *input.Images
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		product.Stock = *input.Stock
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return NewProductDTO(updated), nil
}

// DeleteProduct removes the product and its dependent rows.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	return nil
}

// GetProduct loads a single product.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return NewProductDTO(product), nil
}

// ListProducts returns a cursor page honoring search and category filters.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if input.Category != nil && !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product category")
	}

	rows, nextCursor, err := s.repo.List(ctx, productListQuery{
		Pagination: input.Pagination,
		Filters: ProductListFilters{
			Category:   input.Category,
			Query:      input.Query,
			ActiveOnly: !input.IncludeInactive,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}

	products := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		products = append(products, *NewProductDTO(&rows[i]))
	}
	return &ProductListResult{Products: products, NextCursor: nextCursor}, nil
}

// BestSellers returns the top-selling active products.
func (s *service) BestSellers(ctx context.Context, limit int) ([]ProductDTO, error) {
	rows, err := s.repo.BestSellers(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: best sellers")
	}
	return toDTOs(rows), nil
}

// RecentProducts returns the newest active products.
func (s *service) RecentProducts(ctx context.Context, limit int) ([]ProductDTO, error) {
	rows, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: recent products")
	}
	return toDTOs(rows), nil
}

// UpsertReview writes the user's review (one per product) and refreshes the
// product mean inside the same transaction.
func (s *service) UpsertReview(ctx context.Context, productID, userID uuid.UUID, input ReviewInput) (*ReviewDTO, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	var stored *models.Review
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		review, err := txRepo.UpsertReview(ctx, &models.Review{
			ProductID: productID,
			UserID:    userID,
			Rating:    input.Rating,
			Comment:   input.Comment,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert review")
		}
		stored = review

		if err := txRepo.RefreshRatingStats(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: refresh rating stats")
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return NewReviewDTO(stored), nil
}

// DeleteReview removes the review and refreshes the product mean.
func (s *service) DeleteReview(ctx context.Context, reviewID, requesterID uuid.UUID, requesterRole enums.UserRole) error {
	review, err := s.repo.FindReviewByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load review")
	}
	if review.UserID != requesterID && requesterRole != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another user")
	}

	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.DeleteReview(ctx, reviewID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete review")
		}
		if err := txRepo.RefreshRatingStats(ctx, review.ProductID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: refresh rating stats")
		}
		return nil
	})
}

// ListReviews returns a product's reviews newest first.
func (s *service) ListReviews(ctx context.Context, productID uuid.UUID) ([]ReviewDTO, error) {
	rows, err := s.repo.ListReviews(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list reviews")
	}
	reviews := make([]ReviewDTO, 0, len(rows))
	for i := range rows {
		reviews = append(reviews, *NewReviewDTO(&rows[i]))
	}
	return reviews, nil
}

func toDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductDTO(&rows[i]))
	}
	return out
}

func validateCategoryPricing(category enums.ProductCategory, priceToSell, perPacket, perPiece *decimal.Decimal) error {
	if category.IsBook() {
		if priceToSell == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "books require price_to_sell")
		}
		if perPacket != nil || perPiece != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "unit prices do not apply to books")
		}
		return nil
	}
	if priceToSell != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "price_to_sell only applies to books")
	}
	if perPacket == nil && perPiece == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "non-book products require price_per_packet or price_per_piece")
	}
	return nil
}
