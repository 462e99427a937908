package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
	"github.com/mpbooks/mpbooks-backend/pkg/logger"
	"github.com/mpbooks/mpbooks-backend/pkg/pagination"
)

type notifier interface {
	ContactMessageReceived(ctx context.Context, messageID uuid.UUID, senderName string) error
}

type mailer interface {
	SendContactReply(ctx context.Context, to, name, subject, reply string) error
}

// MessageDTO is a contact-form message with its reply state.
type MessageDTO struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Subject      string     `json:"subject"`
	Body         string     `json:"body"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	ReplyMessage *string    `json:"reply_message,omitempty"`
	RepliedAt    *time.Time `json:"replied_at,omitempty"`
	RepliedBy    *uuid.UUID `json:"replied_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ListResult pages messages by cursor.
type ListResult struct {
	Messages   []MessageDTO `json:"messages"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// CreateInput is the public contact-form payload.
type CreateInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=5000"`
}

// Service handles contact messages and their admin workflow.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*MessageDTO, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*MessageDTO, error)
	MarkRead(ctx context.Context, id uuid.UUID) (*MessageDTO, error)
	Reply(ctx context.Context, id, adminID uuid.UUID, reply string) (*MessageDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	notifier notifier
	mailer   mailer
	logg     *logger.Logger
}

func NewService(repo *Repository, notif notifier, mail mailer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("message repository required")
	}
	if notif == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, notifier: notif, mailer: mail, logg: logg}, nil
}

// Create stores the submission and pushes an admin-feed notification.
func (s *service) Create(ctx context.Context, input CreateInput) (*MessageDTO, error) {
	message := &models.Message{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Subject: strings.TrimSpace(input.Subject),
		Body:    input.Body,
	}
	if message.Name == "" || message.Subject == "" || strings.TrimSpace(message.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, subject and body are required")
	}

	stored, err := s.repo.Create(ctx, message)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create message")
	}

	if err := s.notifier.ContactMessageReceived(ctx, stored.ID, stored.Name); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "message_id", stored.ID.String()), "contact message notification failed")
	}
	return toDTO(stored), nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*ListResult, error) {
	rows, nextCursor, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list messages")
	}
	out := make([]MessageDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return &ListResult{Messages: out, NextCursor: nextCursor}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*MessageDTO, error) {
	message, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(message), nil
}

// MarkRead stamps read_at on first read and is a no-op afterwards.
func (s *service) MarkRead(ctx context.Context, id uuid.UUID) (*MessageDTO, error) {
	message, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if message.ReadAt == nil {
		now := time.Now().UTC()
		message.ReadAt = &now
		if _, err := s.repo.Update(ctx, message); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark message read")
		}
	}
	return toDTO(message), nil
}

// Reply records the admin response and emails the sender. The reply state is
// persisted even when the email fails, with the failure logged.
func (s *service) Reply(ctx context.Context, id, adminID uuid.UUID, reply string) (*MessageDTO, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reply message is required")
	}

	message, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if message.RepliedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "message already replied to")
	}

	now := time.Now().UTC()
	message.ReplyMessage = &reply
	message.RepliedAt = &now
	message.RepliedBy = &adminID
	if message.ReadAt == nil {
		message.ReadAt = &now
	}
	if _, err := s.repo.Update(ctx, message); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reply to message")
	}

	if err := s.mailer.SendContactReply(ctx, message.Email, message.Name, message.Subject, reply); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "message_id", message.ID.String()), "contact reply email failed")
	}
	return toDTO(message), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete message")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load message")
	}
	return message, nil
}

func toDTO(message *models.Message) *MessageDTO {
	return &MessageDTO{
		ID:           message.ID,
		Name:         message.Name,
		Email:        message.Email,
		Subject:      message.Subject,
		Body:         message.Body,
		ReadAt:       message.ReadAt,
		ReplyMessage: message.ReplyMessage,
		RepliedAt:    message.RepliedAt,
		RepliedBy:    message.RepliedBy,
		CreatedAt:    message.CreatedAt,
	}
}
