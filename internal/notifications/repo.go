package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
	"github.com/mpbooks/mpbooks-backend/pkg/pagination"
)

// ListFilters narrows notification listings. UserID nil selects the admin
// feed rows (user_id IS NULL).
type ListFilters struct {
	UserID     *uuid.UUID
	AdminFeed  bool
	UnreadOnly bool
}

// Repository persists notification rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, err
	}
	return notification, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *Repository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Notification, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Notification{})
	if filters.AdminFeed {
		query = query.Where("user_id IS NULL")
	} else if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, "", err
		}
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Notification
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error; err != nil {
		return nil, "", err
	}

	keep, hasMore := pagination.TrimPage(len(rows), limit)
	rows = rows[:keep]
	nextCursor := ""
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

// MarkRead stamps read_at if unset and reports whether the row matched the
// filter.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	} else {
		query = query.Where("user_id IS NULL")
	}
	result := query.Where("read_at IS NULL").Update("read_at", time.Now().UTC())
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) MarkAllRead(ctx context.Context, userID *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{})
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	} else {
		query = query.Where("user_id IS NULL")
	}
	result := query.Where("read_at IS NULL").Update("read_at", time.Now().UTC())
	return result.RowsAffected, result.Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Notification{}, "id = ?", id).Error
}

func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}
