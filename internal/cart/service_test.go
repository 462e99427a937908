package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mpbooks/mpbooks-backend/internal/catalog"
	"github.com/mpbooks/mpbooks-backend/pkg/db"
	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
	"github.com/mpbooks/mpbooks-backend/pkg/enums"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
)

func setupCartTest(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  sub_category TEXT,
  academic_category TEXT,
  class TEXT,
  author TEXT,
  market_price TEXT,
  price_to_sell TEXT,
  price_per_packet TEXT,
  price_per_piece TEXT,
  images TEXT NOT NULL DEFAULT '{}',
  stock INTEGER NOT NULL DEFAULT 0,
  sales_count INTEGER NOT NULL DEFAULT 0,
  ratings REAL NOT NULL DEFAULT 0,
  num_reviews INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_type TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn), db.NewWithConn(conn))
	require.NoError(t, err)
	return svc, conn
}

func createBook(t *testing.T, conn *gorm.DB, price int64) *models.Product {
	t.Helper()
	sell := decimal.NewFromInt(price)
	product := &models.Product{
		ID:          uuid.New(),
		Name:        "Intro to Algorithms",
		Category:    enums.ProductCategoryBook,
		PriceToSell: &sell,
		IsActive:    true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func createStationery(t *testing.T, conn *gorm.DB, packetPrice, piecePrice int64) *models.Product {
	t.Helper()
	packet := decimal.NewFromInt(packetPrice)
	piece := decimal.NewFromInt(piecePrice)
	product := &models.Product{
		ID:             uuid.New(),
		Name:           "Ballpoint Pens",
		Category:       enums.ProductCategoryStationery,
		PricePerPacket: &packet,
		PricePerPiece:  &piece,
		IsActive:       true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func unitTypePtr(u enums.UnitType) *enums.UnitType {
	return &u
}

func TestAddItemBookMergesOnProduct(t *testing.T) {
	svc, conn := setupCartTest(t)
	ctx := context.Background()
	userID := uuid.New()
	book := createBook(t, conn, 400)

	cart, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: book.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	cart, err = svc.AddItem(ctx, userID, AddItemInput{ProductID: book.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(1200)))
}

func TestAddItemBookRejectsUnitType(t *testing.T) {
	svc, conn := setupCartTest(t)
	book := createBook(t, conn, 400)

	_, err := svc.AddItem(context.Background(), uuid.New(), AddItemInput{
		ProductID: book.ID,
		Quantity:  1,
		UnitType:  unitTypePtr(enums.UnitTypePiece),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestAddItemNonBookRequiresUnitTypeAndMergesPerUnit(t *testing.T) {
	svc, conn := setupCartTest(t)
	ctx := context.Background()
	userID := uuid.New()
	pens := createStationery(t, conn, 100, 12)

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: pens.ID, Quantity: 1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	cart, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: pens.ID, Quantity: 2, UnitType: unitTypePtr(enums.UnitTypePacket)})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	// Same product, different unit type appends a separate line.
	cart, err = svc.AddItem(ctx, userID, AddItemInput{ProductID: pens.ID, Quantity: 5, UnitType: unitTypePtr(enums.UnitTypePiece)})
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)

	// Same (product, unit type) merges.
	cart, err = svc.AddItem(ctx, userID, AddItemInput{ProductID: pens.ID, Quantity: 3, UnitType: unitTypePtr(enums.UnitTypePacket)})
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)

	var packetQty, pieceQty int
	for _, item := range cart.Items {
		switch *item.UnitType {
		case enums.UnitTypePacket.String():
			packetQty = item.Quantity
		case enums.UnitTypePiece.String():
			pieceQty = item.Quantity
		}
	}
	assert.Equal(t, 5, packetQty)
	assert.Equal(t, 5, pieceQty)
	// 5 packets * 100 + 5 pieces * 12
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(560)))
}

func TestUpdateItemQuantityReplaces(t *testing.T) {
	svc, conn := setupCartTest(t)
	ctx := context.Background()
	userID := uuid.New()
	book := createBook(t, conn, 250)

	cart, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: book.ID, Quantity: 4})
	require.NoError(t, err)

	qty := 2
	cart, err = svc.UpdateItem(ctx, userID, cart.Items[0].ID, UpdateItemInput{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestUpdateItemUnitTypeChangeMergesIntoTarget(t *testing.T) {
	svc, conn := setupCartTest(t)
	ctx := context.Background()
	userID := uuid.New()
	pens := createStationery(t, conn, 100, 12)

	cart, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: pens.ID, Quantity: 2, UnitType: unitTypePtr(enums.UnitTypePacket)})
	require.NoError(t, err)
	cart, err = svc.AddItem(ctx, userID, AddItemInput{ProductID: pens.ID, Quantity: 3, UnitType: unitTypePtr(enums.UnitTypePiece)})
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)

	var packetLine CartItemDTO
	for _, item := range cart.Items {
		if *item.UnitType == enums.UnitTypePacket.String() {
			packetLine = item
		}
	}

	// Moving the packet line to piece merges into the existing piece line.
	cart, err = svc.UpdateItem(ctx, userID, packetLine.ID, UpdateItemInput{UnitType: unitTypePtr(enums.UnitTypePiece)})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, enums.UnitTypePiece.String(), *cart.Items[0].UnitType)
}

func TestUpdateItemUnitTypeChangeWithoutTargetRewrites(t *testing.T) {
	svc, conn := setupCartTest(t)
	ctx := context.Background()
	userID := uuid.New()
	pens := createStationery(t, conn, 100, 12)

	cart, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: pens.ID, Quantity: 2, UnitType: unitTypePtr(enums.UnitTypePacket)})
	require.NoError(t, err)

	cart, err = svc.UpdateItem(ctx, userID, cart.Items[0].ID, UpdateItemInput{UnitType: unitTypePtr(enums.UnitTypePiece)})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, enums.UnitTypePiece.String(), *cart.Items[0].UnitType)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestUpdateItemBookRejectsUnitTypeChange(t *testing.T) {
	svc, conn := setupCartTest(t)
	ctx := context.Background()
	userID := uuid.New()
	book := createBook(t, conn, 250)

	cart, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: book.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, userID, cart.Items[0].ID, UpdateItemInput{UnitType: unitTypePtr(enums.UnitTypePiece)})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestGetCartMissingReadsEmpty(t *testing.T) {
	svc, _ := setupCartTest(t)
	userID := uuid.New()

	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, cart.UserID)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())
}

func TestClearMissingCartIsNoOp(t *testing.T) {
	svc, _ := setupCartTest(t)
	require.NoError(t, svc.Clear(context.Background(), uuid.New()))
}

func TestRemoveItemNotFound(t *testing.T) {
	svc, conn := setupCartTest(t)
	ctx := context.Background()
	userID := uuid.New()
	book := createBook(t, conn, 250)

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: book.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.RemoveItem(ctx, userID, uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
