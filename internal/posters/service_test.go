package posters

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mpbooks/mpbooks-backend/pkg/config"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
	"github.com/mpbooks/mpbooks-backend/pkg/logger"
)

func setupPosterTest(t *testing.T) (Service, string) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`
CREATE TABLE IF NOT EXISTS posters (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  image_path TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)

	dir := t.TempDir()
	svc, err := NewService(
		NewRepository(conn),
		config.UploadsConfig{Dir: dir, MaxUploadMB: 1},
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	)
	require.NoError(t, err)
	return svc, dir
}

func uploadPoster(t *testing.T, svc Service, title string) *PosterDTO {
	t.Helper()
	dto, err := svc.Upload(context.Background(), UploadInput{
		Title:    title,
		Filename: "banner.png",
		Size:     64,
		File:     strings.NewReader("png bytes"),
	})
	require.NoError(t, err)
	return dto
}

func TestUploadWritesFileAndRow(t *testing.T) {
	svc, dir := setupPosterTest(t)

	dto := uploadPoster(t, svc, "Back to School")
	assert.True(t, strings.HasPrefix(dto.ImagePath, "posters/"))
	assert.True(t, strings.HasSuffix(dto.ImagePath, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(dto.ImagePath)))
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))
}

func TestUploadRejectsBadExtension(t *testing.T) {
	svc, _ := setupPosterTest(t)

	_, err := svc.Upload(context.Background(), UploadInput{
		Title:    "Malware",
		Filename: "banner.exe",
		Size:     10,
		File:     strings.NewReader("nope"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc, _ := setupPosterTest(t)

	_, err := svc.Upload(context.Background(), UploadInput{
		Title:    "Huge",
		Filename: "banner.jpg",
		Size:     2 * 1024 * 1024,
		File:     strings.NewReader("big"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListActiveHidesDeactivated(t *testing.T) {
	svc, _ := setupPosterTest(t)
	ctx := context.Background()

	visible := uploadPoster(t, svc, "Visible")
	hidden := uploadPoster(t, svc, "Hidden")
	_, err := svc.SetActive(ctx, hidden.ID, false)
	require.NoError(t, err)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, visible.ID, active[0].ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteRemovesRowAndFile(t *testing.T) {
	svc, dir := setupPosterTest(t)
	ctx := context.Background()

	dto := uploadPoster(t, svc, "Ephemeral")
	fullPath := filepath.Join(dir, filepath.FromSlash(dto.ImagePath))
	_, err := os.Stat(fullPath)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, dto.ID))

	_, err = os.Stat(fullPath)
	assert.True(t, os.IsNotExist(err))

	err = svc.Delete(ctx, dto.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	err = svc.Delete(ctx, uuid.New())
	require.Error(t, err)
}
