package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpbooks/mpbooks-backend/internal/users"
	pkgauth "github.com/mpbooks/mpbooks-backend/pkg/auth"
	"github.com/mpbooks/mpbooks-backend/pkg/auth/session"
	"github.com/mpbooks/mpbooks-backend/pkg/config"
	"github.com/mpbooks/mpbooks-backend/pkg/db/models"
	"github.com/mpbooks/mpbooks-backend/pkg/enums"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
	"github.com/mpbooks/mpbooks-backend/pkg/logger"
	"github.com/mpbooks/mpbooks-backend/pkg/security"
)

type userStore interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
}

// SessionManager records and revokes active sessions keyed by token jti.
type SessionManager interface {
	Generate(ctx context.Context, accessID, userID string) error
	Revoke(ctx context.Context, accessID string) error
}

// Mailer sends account lifecycle emails. Verification and reset sends are
// critical; welcome mail is best effort.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, name, code string) error
	SendWelcome(ctx context.Context, to, name string) error
	SendPasswordResetCode(ctx context.Context, to, name, code string) error
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"required,max=80"`
	LastName  string `json:"last_name" validate:"required,max=80"`
	Phone     string `json:"phone" validate:"required,max=32"`
}

// LoginInput is the credential payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileInput carries partial profile edits.
type UpdateProfileInput struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=80"`
	LastName  *string `json:"last_name" validate:"omitempty,max=80"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
}

// ChangePasswordInput requires the current password before replacing it.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// LoginResult carries the minted token alongside the profile.
type LoginResult struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *users.UserDTO `json:"user"`
}

// Service implements account registration, verification and sessions.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error)
	VerifyEmail(ctx context.Context, email, code string) (*users.UserDTO, error)
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, accessID string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*users.UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error
}

type service struct {
	store        userStore
	sessions     SessionManager
	mailer       Mailer
	jwtCfg       config.JWTConfig
	passwordCfg  config.PasswordConfig
	verification config.VerificationConfig
	logg         *logger.Logger
	now          func() time.Time
}

// ServiceParams bundles the auth service dependencies.
type ServiceParams struct {
	Store        userStore
	Sessions     SessionManager
	Mailer       Mailer
	JWT          config.JWTConfig
	Password     config.PasswordConfig
	Verification config.VerificationConfig
	Logger       *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("user store required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Verification.EmailCodeTTL <= 0 || params.Verification.ResetCodeTTL <= 0 {
		return nil, fmt.Errorf("verification code TTLs must be positive")
	}
	return &service{
		store:        params.Store,
		sessions:     params.Sessions,
		mailer:       params.Mailer,
		jwtCfg:       params.JWT,
		passwordCfg:  params.Password,
		verification: params.Verification,
		logg:         params.Logger,
		now:          time.Now,
	}, nil
}

// Register creates an unverified account and emails its verification code.
// The account persists even when the email fails so a resend can recover.
func (s *service) Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	code, err := security.GenerateNumericCode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	expiresAt := s.now().UTC().Add(s.verification.EmailCodeTTL)

	user := &models.User{
		Email:                 email,
		PasswordHash:          hash,
		FirstName:             strings.TrimSpace(input.FirstName),
		LastName:              strings.TrimSpace(input.LastName),
		Phone:                 strings.TrimSpace(input.Phone),
		Role:                  enums.UserRoleUser,
		VerificationCode:      &code,
		VerificationExpiresAt: &expiresAt,
	}
	stored, err := s.store.Create(ctx, user)
	if err != nil {
		if pkgerrors.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email or phone already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create user")
	}

	if err := s.mailer.SendVerificationCode(ctx, stored.Email, stored.FirstName, code); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send verification email")
	}
	return users.NewUserDTO(stored), nil
}

// VerifyEmail consumes the pending code, marking the account verified.
func (s *service) VerifyEmail(ctx context.Context, email, code string) (*users.UserDTO, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.Verified {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "account is already verified")
	}
	if user.VerificationCode == nil || user.VerificationExpiresAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no verification is pending")
	}
	if s.now().UTC().After(*user.VerificationExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verification code has expired")
	}
	if strings.TrimSpace(code) != *user.VerificationCode {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid verification code")
	}

	user.Verified = true
	user.VerificationCode = nil
	user.VerificationExpiresAt = nil
	if _, err := s.store.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: verify user")
	}

	if err := s.mailer.SendWelcome(ctx, user.Email, user.FirstName); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "welcome email failed")
	}
	return users.NewUserDTO(user), nil
}

// ResendVerification issues a fresh code, replacing any pending one.
func (s *service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Verified {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "account is already verified")
	}

	code, err := security.GenerateNumericCode()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	expiresAt := s.now().UTC().Add(s.verification.EmailCodeTTL)
	user.VerificationCode = &code
	user.VerificationExpiresAt = &expiresAt
	if _, err := s.store.Update(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: store verification code")
	}

	if err := s.mailer.SendVerificationCode(ctx, user.Email, user.FirstName, code); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send verification email")
	}
	return nil
}

// Login checks credentials and mints a session-backed access token. Unknown
// accounts and bad passwords share one error message.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	invalid := pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")

	user, err := s.store.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	match, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !match {
		return nil, invalid
	}
	if !user.Verified {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "verify your email before logging in")
	}

	now := s.now().UTC()
	accessID := session.NewAccessID()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	if err := s.sessions.Generate(ctx, accessID, user.ID.String()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: store session")
	}

	user.LastLoginAt = &now
	if _, err := s.store.Update(ctx, user); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "recording last login failed")
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: now.Add(s.jwtCfg.AccessTokenTTL()),
		User:      users.NewUserDTO(user),
	}, nil
}

// Logout revokes the session behind the access token.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: revoke session")
	}
	return nil
}

// ForgotPassword stores a reset code and emails it. Unknown emails return
// success so the endpoint cannot be used to enumerate accounts. A failed send
// clears the stored code before propagating.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	code, err := security.GenerateNumericCode()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset code")
	}
	expiresAt := s.now().UTC().Add(s.verification.ResetCodeTTL)
	user.ResetCode = &code
	user.ResetCodeExpiresAt = &expiresAt
	if _, err := s.store.Update(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: store reset code")
	}

	if err := s.mailer.SendPasswordResetCode(ctx, user.Email, user.FirstName, code); err != nil {
		user.ResetCode = nil
		user.ResetCodeExpiresAt = nil
		if _, clearErr := s.store.Update(ctx, user); clearErr != nil {
			s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "clearing reset code failed", clearErr)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send reset email")
	}
	return nil
}

// ResetPassword consumes the reset code and replaces the password. All
// existing behavior for the account's sessions is untouched; tokens expire on
// their own TTL.
func (s *service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.ResetCode == nil || user.ResetCodeExpiresAt == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "no password reset is pending")
	}
	if s.now().UTC().After(*user.ResetCodeExpiresAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset code has expired")
	}
	if strings.TrimSpace(code) != *user.ResetCode {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid reset code")
	}

	hash, err := security.HashPassword(newPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user.PasswordHash = hash
	user.ResetCode = nil
	user.ResetCodeExpiresAt = nil
	if _, err := s.store.Update(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reset password")
	}
	return nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.findByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return users.NewUserDTO(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*users.UserDTO, error) {
	user, err := s.findByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}
	if user.FirstName == "" || user.LastName == "" || user.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and phone cannot be blank")
	}
	if _, err := s.store.Update(ctx, user); err != nil {
		if pkgerrors.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "phone number already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update profile")
	}
	return users.NewUserDTO(user), nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	user, err := s.findByID(ctx, userID)
	if err != nil {
		return err
	}
	match, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !match {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := security.HashPassword(input.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user.PasswordHash = hash
	if _, err := s.store.Update(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: change password")
	}
	return nil
}

func (s *service) findByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}
	return user, nil
}

func (s *service) findByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}
	return user, nil
}
