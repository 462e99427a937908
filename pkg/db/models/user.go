package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mpbooks/mpbooks-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	FirstName    string         `gorm:"column:first_name;not null"`
	LastName     string         `gorm:"column:last_name;not null"`
	Phone        string         `gorm:"column:phone;not null;uniqueIndex"`
	Role         enums.UserRole `gorm:"column:role;type:user_role;not null;default:'user'"`
	Verified     bool           `gorm:"column:verified;not null;default:false"`

	// One-shot codes. Consumed (cleared) on successful verification/reset.
	VerificationCode      *string    `gorm:"column:verification_code"`
	VerificationExpiresAt *time.Time `gorm:"column:verification_expires_at"`
	ResetCode             *string    `gorm:"column:reset_code"`
	ResetCodeExpiresAt    *time.Time `gorm:"column:reset_code_expires_at"`

	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
