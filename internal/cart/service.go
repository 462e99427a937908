package cart

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
)

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// Service exposes cart operations for the authenticated user.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// AddItemInput is the payload to add a line to the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitType  *enums.UnitType
}

// UpdateItemInput carries the replacement values for a line. Quantity
// replaces the stored value outright.
type UpdateItemInput struct {
	Quantity *int
	UnitType *enums.UnitType
}

type service struct {
	repo     *Repository
	products productReader
	dbClient *db.Client
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, products productReader, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, products: products, dbClient: dbClient}, nil
}

// GetCart returns the hydrated cart; a missing cart reads as empty.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyCartDTO(userID), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	return s.hydrate(ctx, cart)
}

// AddItem validates the unit-type rules and merges into an existing line
// when one matches.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	unitType, err := resolveUnitType(product, input.UnitType)
	if err != nil {
		return nil, err
	}
	if _, ok := product.PriceFor(unitType); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no price for the requested unit type")
	}

	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
		}
		cart, err = s.repo.Create(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create cart")
		}
	}

	existing, err := s.repo.FindLine(ctx, cart.ID, product.ID, unitType)
	switch {
	case err == nil:
		existing.Quantity += input.Quantity
		if _, err := s.repo.UpdateItem(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: merge cart line")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if _, err := s.repo.CreateItem(ctx, &models.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  input.Quantity,
			UnitType:  unitType,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert cart line")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find cart line")
	}

	return s.reload(ctx, userID)
}

// UpdateItem replaces quantity and/or moves the line to another unit type,
// merging when the target line already exists.
func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error) {
	if input.Quantity == nil && input.UnitType == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if input.Quantity != nil && *input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart item")
	}

	if input.Quantity != nil {
		item.Quantity = *input.Quantity
	}

	if input.UnitType != nil {
		product, err := s.loadProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product.Category.IsBook() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "books do not carry a unit type")
		}
		if !input.UnitType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit type")
		}
		if _, ok := product.PriceFor(input.UnitType); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no price for the requested unit type")
		}

		if item.UnitType == nil || *item.UnitType != *input.UnitType {
			if err := s.moveLine(ctx, cart.ID, item, *input.UnitType); err != nil {
				return nil, err
			}
			return s.reload(ctx, userID)
		}
	}

	if _, err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart line")
	}
	return s.reload(ctx, userID)
}

// moveLine rewrites the line under the target unit type, merging into an
// existing (product, unit_type) line when present.
func (s *service) moveLine(ctx context.Context, cartID uuid.UUID, item *models.CartItem, target enums.UnitType) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		existing, err := txRepo.FindLine(ctx, cartID, item.ProductID, &target)
		switch {
		case err == nil && existing.ID != item.ID:
			existing.Quantity += item.Quantity
			if _, err := txRepo.UpdateItem(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: merge cart line")
			}
			if err := txRepo.DeleteItem(ctx, item.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: drop merged line")
			}
			return nil
		case err == nil || errors.Is(err, gorm.ErrRecordNotFound):
			item.UnitType = &target
			if _, err := txRepo.UpdateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: rewrite cart line")
			}
			return nil
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find target line")
		}
	})
}

// RemoveItem deletes the line from the user's cart.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	if _, err := s.repo.FindItem(ctx, cart.ID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart item")
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart line")
	}
	return s.reload(ctx, userID)
}

// Clear removes every line; clearing a missing cart is a no-op.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	if err := s.repo.DeleteItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
	}
	return nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	return product, nil
}

func (s *service) reload(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload cart")
	}
	return s.hydrate(ctx, cart)
}

func (s *service) hydrate(ctx context.Context, cart *models.Cart) (*CartDTO, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	dto := &CartDTO{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     make([]CartItemDTO, 0, len(cart.Items)),
		Total:     decimal.Zero,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			// Product deleted out from under the cart; skip the line.
			continue
		}
		price, ok := product.PriceFor(item.UnitType)
		if !ok {
			continue
		}
		lineTotal := price.Mul(decimal.NewFromInt(int64(item.Quantity)))

		var unitType *string
		if item.UnitType != nil {
			v := item.UnitType.String()
			unitType = &v
		}
		dto.Items = append(dto.Items, CartItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: product.Name,
			Category:    string(product.Category),
			Quantity:    item.Quantity,
			UnitType:    unitType,
			UnitPrice:   price,
			LineTotal:   lineTotal,
		})
		dto.Total = dto.Total.Add(lineTotal)
	}
	return dto, nil
}

func resolveUnitType(product *models.Product, unitType *enums.UnitType) (*enums.UnitType, error) {
	if product.Category.IsBook() {
		if unitType != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "books do not carry a unit type")
		}
		return nil, nil
	}
	if unitType == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit type is required for this product")
	}
	if !unitType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit type")
	}
	return unitType, nil
}
