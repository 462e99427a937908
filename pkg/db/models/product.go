package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/mpbooks/mpbooks-backend/pkg/enums"
)

// Product represents a catalog listing. Pricing fields depend on the
// category: books carry market_price/price_to_sell, everything else sells
// per packet and/or per piece.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                `gorm:"column:name;not null"`
	Description *string               `gorm:"column:description"`
	Category    enums.ProductCategory `gorm:"column:category;type:product_category;not null"`

	// Book-only fields. MarketPrice is write-once: the update path never
	// touches the column after it is first set.
	SubCategory      *string          `gorm:"column:sub_category"`
	AcademicCategory *string          `gorm:"column:academic_category"`
	Class            *string          `gorm:"column:class"`
	Author           *string          `gorm:"column:author"`
	MarketPrice      *decimal.Decimal `gorm:"column:market_price;type:numeric(10,2)"`
	PriceToSell      *decimal.Decimal `gorm:"column:price_to_sell;type:numeric(10,2)"`

	// Non-book pricing per unit type.
	PricePerPacket *decimal.Decimal `gorm:"column:price_per_packet;type:numeric(10,2)"`
	PricePerPiece  *decimal.Decimal `gorm:"column:price_per_piece;type:numeric(10,2)"`

	Images     pq.StringArray `gorm:"column:images;type:text[];not null;default:ARRAY[]::text[]"`
	Stock      int            `gorm:"column:stock;not null;default:0"`
	SalesCount int            `gorm:"column:sales_count;not null;default:0"`
	Ratings    float64        `gorm:"column:ratings;type:numeric(3,2);not null;default:0"`
	NumReviews int            `gorm:"column:num_reviews;not null;default:0"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceFor resolves the purchase price for a cart line. Books ignore the
// unit type; other categories price by packet or piece.
func (p Product) PriceFor(unitType *enums.UnitType) (decimal.Decimal, bool) {
	if p.Category.IsBook() {
		if p.PriceToSell == nil {
			return decimal.Zero, false
		}
		return *p.PriceToSell, true
	}
	if unitType == nil {
		return decimal.Zero, false
	}
	switch *unitType {
	case enums.UnitTypePacket:
		if p.PricePerPacket == nil {
			return decimal.Zero, false
		}
		return *p.PricePerPacket, true
	case enums.UnitTypePiece:
		if p.PricePerPiece == nil {
			return decimal.Zero, false
		}
		return *p.PricePerPiece, true
	}
	return decimal.Zero, false
}
