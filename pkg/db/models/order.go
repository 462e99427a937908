package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mpbooks/mpbooks-backend/pkg/enums"
)

// Order is a placed order with its captured line snapshots.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string              `gorm:"column:code;type:char(4);not null;uniqueIndex:orders_code_key"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Status        enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'processing'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(10,2);not null"`

	// Set exactly once on the first joint entry into delivered+paid so
	// sales counters never double increment.
	SalesCountedAt *time.Time `gorm:"column:sales_counted_at"`

	DeliveredAt *time.Time  `gorm:"column:delivered_at"`
	CancelledAt *time.Time  `gorm:"column:cancelled_at"`
	Items       []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem captures the product snapshot at purchase time. PurchasePrice is
// the category-resolved price at placement and never changes afterwards.
type OrderItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID     *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	Name          string          `gorm:"column:name;not null"`
	UnitType      *enums.UnitType `gorm:"column:unit_type;type:unit_type"`
	PurchasePrice decimal.Decimal `gorm:"column:purchase_price;type:numeric(10,2);not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	LineTotal     decimal.Decimal `gorm:"column:line_total;type:numeric(10,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
