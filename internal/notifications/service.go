package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
	"github.com/mpbooks/mpbooks-backend/pkg/enums"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
	"github.com/mpbooks/mpbooks-backend/pkg/pagination"
)

// NotificationDTO is one feed entry.
type NotificationDTO struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	MessageID *uuid.UUID `json:"message_id,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ListResult pages notifications by cursor.
type ListResult struct {
	Notifications []NotificationDTO `json:"notifications"`
	NextCursor    string            `json:"next_cursor,omitempty"`
}

// Service manages the per-user and admin notification feeds. The Order*,
// Payment* and ContactMessage* methods are the side-effect hooks other
// services call; failures there never fail the caller's operation.
type Service interface {
	OrderPlaced(ctx context.Context, userID, orderID uuid.UUID, code string) error
	PaymentReceived(ctx context.Context, userID, orderID uuid.UUID, code string) error
	ContactMessageReceived(ctx context.Context, messageID uuid.UUID, senderName string) error

	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params, unreadOnly bool) (*ListResult, error)
	ListAdminFeed(ctx context.Context, params pagination.Params, unreadOnly bool) (*ListResult, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAdminRead(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) OrderPlaced(ctx context.Context, userID, orderID uuid.UUID, code string) error {
	// One row for the buyer, one for the admin feed.
	buyer := &models.Notification{
		UserID:  &userID,
		Type:    enums.NotificationTypeOrder,
		Title:   "Order placed",
		Message: fmt.Sprintf("Your order %s has been received and is being processed.", code),
		OrderID: &orderID,
	}
	if _, err := s.repo.Create(ctx, buyer); err != nil {
		return err
	}
	admin := &models.Notification{
		Type:    enums.NotificationTypeOrder,
		Title:   "New order",
		Message: fmt.Sprintf("Order %s is awaiting processing.", code),
		OrderID: &orderID,
	}
	_, err := s.repo.Create(ctx, admin)
	return err
}

func (s *service) PaymentReceived(ctx context.Context, userID, orderID uuid.UUID, code string) error {
	notification := &models.Notification{
		UserID:  &userID,
		Type:    enums.NotificationTypePayment,
		Title:   "Payment received",
		Message: fmt.Sprintf("Payment for order %s has been confirmed.", code),
		OrderID: &orderID,
	}
	_, err := s.repo.Create(ctx, notification)
	return err
}

func (s *service) ContactMessageReceived(ctx context.Context, messageID uuid.UUID, senderName string) error {
	notification := &models.Notification{
		Type:      enums.NotificationTypeMessage,
		Title:     "New contact message",
		Message:   fmt.Sprintf("%s sent a message through the contact form.", senderName),
		MessageID: &messageID,
	}
	_, err := s.repo.Create(ctx, notification)
	return err
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params, unreadOnly bool) (*ListResult, error) {
	rows, nextCursor, err := s.repo.List(ctx, params, ListFilters{UserID: &userID, UnreadOnly: unreadOnly})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list notifications")
	}
	return toListResult(rows, nextCursor), nil
}

func (s *service) ListAdminFeed(ctx context.Context, params pagination.Params, unreadOnly bool) (*ListResult, error) {
	rows, nextCursor, err := s.repo.List(ctx, params, ListFilters{AdminFeed: true, UnreadOnly: unreadOnly})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list admin notifications")
	}
	return toListResult(rows, nextCursor), nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count unread notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	marked, err := s.repo.MarkRead(ctx, id, &userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark notification read")
	}
	if !marked {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found or already read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	marked, err := s.repo.MarkAllRead(ctx, &userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark notifications read")
	}
	return marked, nil
}

func (s *service) MarkAdminRead(ctx context.Context, id uuid.UUID) error {
	marked, err := s.repo.MarkRead(ctx, id, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark admin notification read")
	}
	if !marked {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found or already read")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load notification")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete notification")
	}
	return nil
}

func toListResult(rows []models.Notification, nextCursor string) *ListResult {
	out := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NotificationDTO{
			ID:        row.ID,
			Type:      string(row.Type),
			Title:     row.Title,
			Message:   row.Message,
			OrderID:   row.OrderID,
			MessageID: row.MessageID,
			ReadAt:    row.ReadAt,
			CreatedAt: row.CreatedAt,
		})
	}
	return &ListResult{Notifications: out, NextCursor: nextCursor}
}
