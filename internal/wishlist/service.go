package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
)

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// ItemDTO is one wishlist entry with a product summary attached.
type ItemDTO struct {
	ProductID uuid.UUID        `json:"product_id"`
	Name      string           `json:"name"`
	Category  string           `json:"category"`
	Image     *string          `json:"image,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Ratings   float64          `json:"ratings"`
	SavedAt   time.Time        `json:"saved_at"`
}

// Service manages per-user wishlists.
type Service interface {
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error)
}

type service struct {
	repo     *Repository
	products productReader
}

func NewService(repo *Repository, products productReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	return &service{repo: repo, products: products}, nil
}

// Add saves the product for the user. Adding an already saved product is a
// no-op.
func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: add wishlist item")
	}
	return nil
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	removed, err := s.repo.Remove(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: remove wishlist item")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
	}
	return nil
}

// List returns the saved products with display summaries. Entries whose
// product has since been deleted are skipped.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list wishlist")
	}
	if len(items) == 0 {
		return []ItemDTO{}, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load wishlist products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			continue
		}
		dto := ItemDTO{
			ProductID: product.ID,
			Name:      product.Name,
			Category:  string(product.Category),
			Ratings:   product.Ratings,
			SavedAt:   item.CreatedAt,
		}
		if len(product.Images) > 0 {
			image := product.Images[0]
			dto.Image = &image
		}
		if price, ok := product.PriceFor(nil); ok {
			dto.Price = &price
		} else if product.PricePerPiece != nil {
			dto.Price = product.PricePerPiece
		} else if product.PricePerPacket != nil {
			dto.Price = product.PricePerPacket
		}
		out = append(out, dto)
	}
	return out, nil
}
