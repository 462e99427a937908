package posters

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
)

// Repository persists poster rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, poster *models.Poster) (*models.Poster, error) {
	if poster.ID == uuid.Nil {
		poster.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(poster).Error; err != nil {
		return nil, err
	}
	return poster, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Poster, error) {
	var poster models.Poster
	if err := r.db.WithContext(ctx).First(&poster, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &poster, nil
}

func (r *Repository) Update(ctx context.Context, poster *models.Poster) (*models.Poster, error) {
	if err := r.db.WithContext(ctx).Save(poster).Error; err != nil {
		return nil, err
	}
	return poster, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Poster{}, "id = ?", id).Error
}

// List returns posters newest first, optionally active-only for the public
// storefront.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.Poster, error) {
	query := r.db.WithContext(ctx).Model(&models.Poster{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.Poster
	err := query.Order("created_at DESC").Find(&rows).Error
	return rows, err
}
