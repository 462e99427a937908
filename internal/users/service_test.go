package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
	"github.com/mpbooks/mpbooks-backend/pkg/enums"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
	"github.com/mpbooks/mpbooks-backend/pkg/pagination"
)

func setupUserTest(t *testing.T) (Service, *Repository) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL DEFAULT 'user',
  verified INTEGER NOT NULL DEFAULT 0,
  verification_code TEXT,
  verification_expires_at DATETIME,
  reset_code TEXT,
  reset_code_expires_at DATETIME,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)

	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func seedUser(t *testing.T, repo *Repository, email, phone string, role enums.UserRole) *models.User {
	t.Helper()
	user, err := repo.Create(context.Background(), &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		Phone:        phone,
		Role:         role,
		Verified:     true,
	})
	require.NoError(t, err)
	return user
}

func TestChangeRolePromotes(t *testing.T) {
	svc, repo := setupUserTest(t)
	ctx := context.Background()
	admin := seedUser(t, repo, "admin@example.com", "0300-0000001", enums.UserRoleAdmin)
	member := seedUser(t, repo, "member@example.com", "0300-0000002", enums.UserRoleUser)

	dto, err := svc.ChangeRole(ctx, member.ID, enums.UserRoleAdmin, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, string(enums.UserRoleAdmin), dto.Role)
}

func TestChangeRoleSelfForbidden(t *testing.T) {
	svc, repo := setupUserTest(t)
	admin := seedUser(t, repo, "admin@example.com", "0300-0000001", enums.UserRoleAdmin)

	_, err := svc.ChangeRole(context.Background(), admin.ID, enums.UserRoleUser, admin.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestDeleteSelfForbidden(t *testing.T) {
	svc, repo := setupUserTest(t)
	admin := seedUser(t, repo, "admin@example.com", "0300-0000001", enums.UserRoleAdmin)

	err := svc.Delete(context.Background(), admin.ID, admin.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestDeleteRemovesUser(t *testing.T) {
	svc, repo := setupUserTest(t)
	ctx := context.Background()
	admin := seedUser(t, repo, "admin@example.com", "0300-0000001", enums.UserRoleAdmin)
	member := seedUser(t, repo, "member@example.com", "0300-0000002", enums.UserRoleUser)

	require.NoError(t, svc.Delete(ctx, member.ID, admin.ID))

	_, err := svc.Get(ctx, member.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListFiltersByQuery(t *testing.T) {
	svc, repo := setupUserTest(t)
	ctx := context.Background()
	seedUser(t, repo, "ayesha@example.com", "0300-0000001", enums.UserRoleUser)
	seedUser(t, repo, "bilal@example.com", "0300-0000002", enums.UserRoleUser)

	result, err := svc.List(ctx, pagination.Params{}, ListFilters{Query: "ayesha"})
	require.NoError(t, err)
	require.Len(t, result.Users, 1)
	assert.Equal(t, "ayesha@example.com", result.Users[0].Email)
}

func TestDTONeverCarriesSecrets(t *testing.T) {
	svc, repo := setupUserTest(t)
	ctx := context.Background()
	code := "123456"
	user, err := repo.Create(ctx, &models.User{
		ID:               uuid.New(),
		Email:            "pending@example.com",
		PasswordHash:     "hash",
		FirstName:        "Pending",
		LastName:         "User",
		Phone:            "0300-0000009",
		Role:             enums.UserRoleUser,
		VerificationCode: &code,
	})
	require.NoError(t, err)

	dto, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending@example.com", dto.Email)
	assert.False(t, dto.Verified)
}
