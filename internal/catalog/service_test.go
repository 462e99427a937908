package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mpbooks/mpbooks-backend/pkg/db"
	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
	"github.com/mpbooks/mpbooks-backend/pkg/enums"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
)

func decimalPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestValidateCategoryPricing(t *testing.T) {
	t.Run("bookRequiresPriceToSell", func(t *testing.T) {
		err := validateCategoryPricing(enums.ProductCategoryBook, nil, nil, nil)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("bookRejectsUnitPrices", func(t *testing.T) {
		err := validateCategoryPricing(enums.ProductCategoryBook, decimalPtr(300), decimalPtr(100), nil)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("bookValid", func(t *testing.T) {
		if err := validateCategoryPricing(enums.ProductCategoryBook, decimalPtr(300), nil, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("nonBookRequiresUnitPrice", func(t *testing.T) {
		err := validateCategoryPricing(enums.ProductCategoryGift, nil, nil, nil)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("nonBookRejectsPriceToSell", func(t *testing.T) {
		err := validateCategoryPricing(enums.ProductCategorySport, decimalPtr(200), decimalPtr(100), nil)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("nonBookValidWithEitherUnitPrice", func(t *testing.T) {
		if err := validateCategoryPricing(enums.ProductCategoryStationery, nil, decimalPtr(50), nil); err != nil {
			t.Fatalf("expected no error for packet price, got %v", err)
		}
		if err := validateCategoryPricing(enums.ProductCategoryStationery, nil, nil, decimalPtr(5)); err != nil {
			t.Fatalf("expected no error for piece price, got %v", err)
		}
	})
}

func TestDeleteReviewAccessControl(t *testing.T) {
	conn := setupCatalogTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn))
	require.NoError(t, err)
	ctx := context.Background()

	product := mustCreateTestProduct(t, conn, enums.ProductCategoryBook, time.Now().UTC())
	owner := uuid.New()
	stranger := uuid.New()

	review, err := repo.UpsertReview(ctx, &models.Review{ProductID: product.ID, UserID: owner, Rating: 5})
	require.NoError(t, err)

	err = svc.DeleteReview(ctx, review.ID, stranger, enums.UserRoleUser)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	// An admin can remove any review; the owner path is the same check.
	require.NoError(t, svc.DeleteReview(ctx, review.ID, stranger, enums.UserRoleAdmin))

	err = svc.DeleteReview(ctx, review.ID, owner, enums.UserRoleUser)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
