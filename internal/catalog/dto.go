package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
)

// ProductDTO represents the catalog product payload returned to clients.
type ProductDTO struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	Description      *string          `json:"description,omitempty"`
	Category         string           `json:"category"`
	SubCategory      *string          `json:"sub_category,omitempty"`
	AcademicCategory *string          `json:"academic_category,omitempty"`
	Class            *string          `json:"class,omitempty"`
	Author           *string          `json:"author,omitempty"`
	MarketPrice      *decimal.Decimal `json:"market_price,omitempty"`
	PriceToSell      *decimal.Decimal `json:"price_to_sell,omitempty"`
	PricePerPacket   *decimal.Decimal `json:"price_per_packet,omitempty"`
	PricePerPiece    *decimal.Decimal `json:"price_per_piece,omitempty"`
	Images           []string         `json:"images"`
	Stock            int              `json:"stock"`
	SalesCount       int              `json:"sales_count"`
	Ratings          float64          `json:"ratings"`
	NumReviews       int              `json:"num_reviews"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// ReviewDTO is the review payload returned to clients.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductListResult pages product summaries by cursor.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:               product.ID,
		Name:             product.Name,
		Description:      product.Description,
		Category:         string(product.Category),
		SubCategory:      product.SubCategory,
		AcademicCategory: product.AcademicCategory,
		Class:            product.Class,
		Author:           product.Author,
		MarketPrice:      product.MarketPrice,
		PriceToSell:      product.PriceToSell,
		PricePerPacket:   product.PricePerPacket,
		PricePerPiece:    product.PricePerPiece,
		Images:           append([]string{}, product.Images...),
		Stock:            product.Stock,
		SalesCount:       product.SalesCount,
		Ratings:          product.Ratings,
		NumReviews:       product.NumReviews,
		IsActive:         product.IsActive,
		CreatedAt:        product.CreatedAt,
		UpdatedAt:        product.UpdatedAt,
	}
}

// NewReviewDTO builds a DTO from the persisted review.
func NewReviewDTO(review *models.Review) *ReviewDTO {
	return &ReviewDTO{
		ID:        review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
}
