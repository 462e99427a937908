package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mpbooks/mpbooks-backend/pkg/db"
	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
	"github.com/mpbooks/mpbooks-backend/pkg/enums"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
	"github.com/mpbooks/mpbooks-backend/pkg/logger"
	"github.com/mpbooks/mpbooks-backend/pkg/pagination"
)

const (
	codeInsertAttempts = 5
	codeRetryBackoff   = 10 * time.Millisecond
)

type cartReader interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
}

type productReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier records in-app notifications for order lifecycle events.
type Notifier interface {
	OrderPlaced(ctx context.Context, userID, orderID uuid.UUID, code string) error
	PaymentReceived(ctx context.Context, userID, orderID uuid.UUID, code string) error
}

// Mailer sends order lifecycle emails.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to, name, code string, total decimal.Decimal) error
	SendPickupReady(ctx context.Context, to, name, code string) error
}

// Service exposes order placement and lifecycle operations.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID) (*OrderDTO, error)
	GetOrder(ctx context.Context, orderID, requesterID uuid.UUID, requesterRole enums.UserRole) (*OrderDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error)
	ListAdmin(ctx context.Context, params pagination.Params, status *enums.OrderStatus) (*OrderListResult, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, input UpdateOrderInput) (*OrderDTO, error)
	CancelOrder(ctx context.Context, orderID, requesterID uuid.UUID) (*OrderDTO, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
}

// UpdateOrderInput carries the admin status mutation.
type UpdateOrderInput struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

type service struct {
	repo     *Repository
	carts    cartReader
	products productReader
	users    userReader
	dbClient *db.Client
	notifier Notifier
	mailer   Mailer
	logg     *logger.Logger
}

// ServiceParams bundles the order service dependencies.
type ServiceParams struct {
	Repo     *Repository
	Carts    cartReader
	Products productReader
	Users    userReader
	DBClient *db.Client
	Notifier Notifier
	Mailer   Mailer
	Logger   *logger.Logger
}

// NewService constructs an order service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user reader required")
	}
	if params.DBClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		carts:    params.Carts,
		products: params.Products,
		users:    params.Users,
		dbClient: params.DBClient,
		notifier: params.Notifier,
		mailer:   params.Mailer,
		logg:     params.Logger,
	}, nil
}

// PlaceOrder snapshots the cart into an order, captures purchase prices, and
// deletes the cart in the same transaction. The 4-char code keyspace is tiny,
// so inserts retry with a fresh code on unique violations.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID) (*OrderDTO, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	items, total, err := s.captureItems(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	var placed *models.Order
	backoff := retry.WithMaxRetries(codeInsertAttempts-1, retry.NewConstant(codeRetryBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, codeErr := GenerateOrderCode()
		if codeErr != nil {
			return codeErr
		}
		order := &models.Order{
			Code:          code,
			UserID:        userID,
			Status:        enums.OrderStatusProcessing,
			PaymentStatus: enums.PaymentStatusPending,
			Total:         total,
			Items:         items,
		}
		txErr := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			if _, err := txRepo.Create(ctx, order); err != nil {
				return err
			}
			return txRepo.DeleteCart(ctx, cart.ID)
		})
		if txErr != nil {
			if pkgerrors.IsUniqueViolation(txErr, "orders_code_key") {
				return retry.RetryableError(txErr)
			}
			return txErr
		}
		placed = order
		return nil
	})
	if err != nil {
		if pkgerrors.IsUniqueViolation(err, "orders_code_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order code space exhausted")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: place order")
	}

	// Side effects are best effort: the order stands even if they fail.
	if err := s.notifier.OrderPlaced(ctx, userID, placed.ID, placed.Code); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "order_id", placed.ID.String()), "order placed notification failed")
	}
	if user, userErr := s.users.FindByID(ctx, userID); userErr == nil {
		if err := s.mailer.SendOrderConfirmation(ctx, user.Email, user.FirstName, placed.Code, placed.Total); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "order_id", placed.ID.String()), "order confirmation email failed")
		}
	}

	return NewOrderDTO(placed), nil
}

func (s *service) captureItems(ctx context.Context, lines []models.CartItem) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "cart references a missing product")
		}
		price, ok := product.PriceFor(line.UnitType)
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %q has no price for the cart line", product.Name))
		}
		lineTotal := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		productID := product.ID
		items = append(items, models.OrderItem{
			ProductID:     &productID,
			Name:          product.Name,
			UnitType:      line.UnitType,
			PurchasePrice: price,
			Quantity:      line.Quantity,
			LineTotal:     lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return items, total, nil
}

// GetOrder loads an order readable by its owner or an admin.
func (s *service) GetOrder(ctx context.Context, orderID, requesterID uuid.UUID, requesterRole enums.UserRole) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != requesterID && requesterRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return NewOrderDTO(order), nil
}

// ListMine returns the requesting user's orders.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error) {
	rows, nextCursor, err := s.repo.List(ctx, params, ListFilters{UserID: &userID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return listResult(rows, nextCursor), nil
}

// ListAdmin returns all orders with an optional status filter.
func (s *service) ListAdmin(ctx context.Context, params pagination.Params, status *enums.OrderStatus) (*OrderListResult, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	rows, nextCursor, err := s.repo.List(ctx, params, ListFilters{Status: status})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return listResult(rows, nextCursor), nil
}

// UpdateOrder applies admin status/payment changes, enforcing the transition
// graph. The first joint entry into delivered+paid bumps each product's
// sales counter exactly once.
func (s *service) UpdateOrder(ctx context.Context, orderID uuid.UUID, input UpdateOrderInput) (*OrderDTO, error) {
	if input.Status == nil && input.PaymentStatus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	statusChanged := false
	if input.Status != nil && *input.Status != order.Status {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
		}
		if !order.Status.CanTransitionTo(*input.Status) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, *input.Status))
		}
		order.Status = *input.Status
		statusChanged = true
		now := time.Now().UTC()
		switch *input.Status {
		case enums.OrderStatusDelivered:
			order.DeliveredAt = &now
		case enums.OrderStatusCancelled:
			order.CancelledAt = &now
		}
	}

	paymentCaptured := false
	if input.PaymentStatus != nil && *input.PaymentStatus != order.PaymentStatus {
		if !input.PaymentStatus.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
		}
		if *input.PaymentStatus == enums.PaymentStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment cannot move back to pending")
		}
		order.PaymentStatus = enums.PaymentStatusPaid
		paymentCaptured = true
	}

	countSales := order.Status == enums.OrderStatusDelivered &&
		order.PaymentStatus == enums.PaymentStatusPaid &&
		order.SalesCountedAt == nil
	if countSales {
		now := time.Now().UTC()
		order.SalesCountedAt = &now
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order")
		}
		if countSales {
			for _, productID := range distinctProducts(order.Items) {
				if err := txRepo.IncrementSalesCount(ctx, productID, 1); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: increment sales count")
				}
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if statusChanged && order.Status == enums.OrderStatusReadyForPickup {
		if user, userErr := s.users.FindByID(ctx, order.UserID); userErr == nil {
			if err := s.mailer.SendPickupReady(ctx, user.Email, user.FirstName, order.Code); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "order_id", order.ID.String()), "pickup ready email failed")
			}
		}
	}
	if paymentCaptured {
		if err := s.notifier.PaymentReceived(ctx, order.UserID, order.ID, order.Code); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "order_id", order.ID.String()), "payment notification failed")
		}
	}

	return NewOrderDTO(order), nil
}

// CancelOrder lets the owner cancel an order that has not reached a terminal
// state.
func (s *service) CancelOrder(ctx context.Context, orderID, requesterID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is already %s", order.Status))
	}

	now := time.Now().UTC()
	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now
	if _, err := s.repo.Update(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cancel order")
	}
	return NewOrderDTO(order), nil
}

// DeleteOrder removes the order outright (admin back-office).
func (s *service) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	if _, err := s.loadOrder(ctx, orderID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, orderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete order")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	return order, nil
}

func listResult(rows []models.Order, nextCursor string) *OrderListResult {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewOrderDTO(&rows[i]))
	}
	return &OrderListResult{Orders: out, NextCursor: nextCursor}
}

// distinctProducts lists each product referenced by the order once, so a
// delivered-and-paid order bumps sales_count by one per product regardless
// of line quantity or how many lines share a product.
func distinctProducts(items []models.OrderItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	out := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		if _, ok := seen[*item.ProductID]; ok {
			continue
		}
		seen[*item.ProductID] = struct{}{}
		out = append(out, *item.ProductID)
	}
	return out
}
