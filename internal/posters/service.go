package posters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpbooks/mpbooks-backend/pkg/config"
	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
	"github.com/mpbooks/mpbooks-backend/pkg/logger"
)

const postersSubdir = "posters"

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// PosterDTO is a promotional banner entry.
type PosterDTO struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	ImagePath string    `json:"image_path"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadInput carries the multipart upload fields.
type UploadInput struct {
	Title    string
	Filename string
	Size     int64
	File     io.Reader
}

// Service manages poster images on local disk plus their DB rows.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*PosterDTO, error)
	ListActive(ctx context.Context) ([]PosterDTO, error)
	ListAll(ctx context.Context) ([]PosterDTO, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*PosterDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	uploads  config.UploadsConfig
	logg     *logger.Logger
}

func NewService(repo *Repository, uploads config.UploadsConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("poster repository required")
	}
	if uploads.Dir == "" {
		return nil, fmt.Errorf("uploads directory required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, uploads: uploads, logg: logg}, nil
}

// Upload stores the image under <uploads>/posters/<uuid><ext> and records the
// row. The file is removed again if the insert fails.
func (s *service) Upload(ctx context.Context, input UploadInput) (*PosterDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	ext := strings.ToLower(filepath.Ext(input.Filename))
	if !allowedExtensions[ext] {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type")
	}
	maxBytes := int64(s.uploads.MaxUploadMB) * 1024 * 1024
	if maxBytes > 0 && input.Size > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("image exceeds the %dMB upload limit", s.uploads.MaxUploadMB))
	}

	dir := filepath.Join(s.uploads.Dir, postersSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create uploads directory")
	}

	id := uuid.New()
	relPath := filepath.Join(postersSubdir, id.String()+ext)
	fullPath := filepath.Join(s.uploads.Dir, relPath)

	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create poster file")
	}
	_, copyErr := io.Copy(dst, input.File)
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		s.removeFile(ctx, fullPath)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, errors.Join(copyErr, closeErr), "write poster file")
	}

	poster := &models.Poster{
		ID:        id,
		Title:     title,
		ImagePath: relPath,
		IsActive:  true,
	}
	stored, err := s.repo.Create(ctx, poster)
	if err != nil {
		s.removeFile(ctx, fullPath)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create poster")
	}
	return toDTO(stored), nil
}

func (s *service) ListActive(ctx context.Context) ([]PosterDTO, error) {
	return s.list(ctx, true)
}

func (s *service) ListAll(ctx context.Context) ([]PosterDTO, error) {
	return s.list(ctx, false)
}

func (s *service) list(ctx context.Context, activeOnly bool) ([]PosterDTO, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list posters")
	}
	out := make([]PosterDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*PosterDTO, error) {
	poster, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if poster.IsActive != active {
		poster.IsActive = active
		if _, err := s.repo.Update(ctx, poster); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update poster")
		}
	}
	return toDTO(poster), nil
}

// Delete removes the row first, then the file. A failed file removal is
// logged but does not fail the request.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	poster, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete poster")
	}
	s.removeFile(ctx, filepath.Join(s.uploads.Dir, poster.ImagePath))
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Poster, error) {
	poster, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "poster not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load poster")
	}
	return poster, nil
}

func (s *service) removeFile(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logg.Warn(s.logg.WithField(ctx, "path", path), "removing poster file failed")
	}
}

func toDTO(poster *models.Poster) *PosterDTO {
	return &PosterDTO{
		ID:        poster.ID,
		Title:     poster.Title,
		ImagePath: filepath.ToSlash(poster.ImagePath),
		IsActive:  poster.IsActive,
		CreatedAt: poster.CreatedAt,
	}
}
