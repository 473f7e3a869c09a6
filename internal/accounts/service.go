package accounts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shaibs3/careportal/internal/apperror"
	"github.com/shaibs3/careportal/internal/auth"
	"github.com/shaibs3/careportal/internal/database"
	"github.com/shaibs3/careportal/internal/db_model"
	"github.com/shaibs3/careportal/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegisterRequest struct {
	FirstName string `json:"firstName" label:"First Name" validate:"required"`
	LastName  string `json:"lastName" label:"Last Name" validate:"required"`
	Email     string `json:"email" label:"Email" validate:"required,email"`
	AltEmail  string `json:"altemail" label:"Alternate Email" validate:"omitempty,email"`
	DOB       string `json:"dob" label:"Date of Birth" validate:"required,datetime=2006-01-02"`
	Gender    string `json:"gender" label:"Gender" validate:"required"`
	Phone     string `json:"phone" label:"Phone Number" validate:"required"`
	AltPhone  string `json:"altPhone" label:"Alternate Phone Number"`
	Password  string `json:"password" label:"Password" validate:"required"`
}

// Profile is an account without its credentials
type Profile struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	AltEmail  *string `json:"altEmail"`
	DOB       string  `json:"dob"`
	Gender    string  `json:"gender"`
	Phone     string  `json:"phone"`
	AltPhone  *string `json:"altPhone"`
}

func profileOf(a *db_model.Account) *Profile {
	return &Profile{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		AltEmail:  a.AltEmail,
		DOB:       a.DOB,
		Gender:    a.Gender,
		Phone:     a.Phone,
		AltPhone:  a.AltPhone,
	}
}

type Service struct {
	db          *gorm.DB
	guard       *database.Guard
	validate    *validator.Validate
	notifier    Notifier
	frontendURL string
	resetTTL    time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

type Config struct {
	FrontendURL   string
	ResetTokenTTL time.Duration
}

func NewService(db *gorm.DB, guard *database.Guard, notifier Notifier, cfg Config, logger *zap.Logger) *Service {
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = 15 * time.Minute
	}
	return &Service{
		db:          db,
		guard:       guard,
		validate:    validation.New(),
		notifier:    notifier,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		resetTTL:    cfg.ResetTokenTTL,
		now:         time.Now,
		logger:      logger.Named("accounts"),
	}
}

// Register creates an account and returns its id
func (s *Service) Register(ctx context.Context, req RegisterRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, apperror.Validation(validation.Message(err))
	}
	email := normalizeEmail(req.Email)

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return 0, apperror.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	account := db_model.Account{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        email,
		AltEmail:     optional(req.AltEmail),
		DOB:          req.DOB,
		Gender:       req.Gender,
		Phone:        req.Phone,
		AltPhone:     optional(req.AltPhone),
		PasswordHash: hash,
	}

	err = s.guard.Write(ctx, "accounts.register", func() error {
		return s.db.WithContext(ctx).Create(&account).Error
	})
	if database.IsDuplicateKey(err) {
		return 0, apperror.Conflict("Email already exists", "")
	}
	if err != nil {
		return 0, s.internal("register", err)
	}

	s.logger.Info("account registered", zap.Int64("id", account.ID))
	return account.ID, nil
}

// Login checks the credentials and returns the account
func (s *Service) Login(ctx context.Context, email, password string) (*db_model.Account, error) {
	if email == "" || password == "" {
		return nil, apperror.Validation("Email and password are required")
	}

	account, err := s.byEmail(ctx, normalizeEmail(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, s.internal("login", err)
	}
	if !auth.CheckPassword(password, account.PasswordHash) {
		return nil, apperror.Unauthorized("Invalid email or password")
	}
	return account, nil
}

func (s *Service) Profile(ctx context.Context, id int64) (*Profile, error) {
	var account db_model.Account
	err := s.guard.Read(ctx, "accounts.profile", func() error {
		return s.db.WithContext(ctx).First(&account, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("User not found")
	}
	if err != nil {
		return nil, s.internal("profile", err)
	}
	return profileOf(&account), nil
}

// ForgotPassword stores a fresh reset token for email, replacing any earlier
// one, and hands the reset link to the notifier.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperror.Validation("Email is required")
	}
	email = normalizeEmail(email)

	_, err := s.byEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("User not found")
	}
	if err != nil {
		return s.internal("forgot password", err)
	}

	token, err := newResetToken()
	if err != nil {
		return s.internal("forgot password", err)
	}

	row := db_model.PasswordResetToken{
		Email:     email,
		Token:     token,
		ExpiresAt: s.now().UTC().Add(s.resetTTL),
	}
	err = s.guard.Write(ctx, "accounts.reset_token", func() error {
		return s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at"}),
		}).Create(&row).Error
	})
	if err != nil {
		return s.internal("forgot password", err)
	}

	link := s.frontendURL + "/reset-password?token=" + token
	if err := s.notifier.SendPasswordReset(ctx, email, link); err != nil {
		return s.internal("send reset link", err)
	}
	return nil
}

// ResetPassword sets a new password for the owner of a live token and
// invalidates every token of that email.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return apperror.Validation("Token and new password are required")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperror.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	err = s.guard.Write(ctx, "accounts.reset_password", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var row db_model.PasswordResetToken
			err := tx.Where("token = ? AND expires_at > ?", token, s.now().UTC()).First(&row).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Validation("Invalid or expired token")
			}
			if err != nil {
				return err
			}

			if err := tx.Model(&db_model.Account{}).
				Where("email = ?", row.Email).
				Update("password_hash", hash).Error; err != nil {
				return err
			}
			return tx.Where("email = ?", row.Email).Delete(&db_model.PasswordResetToken{}).Error
		})
	})
	if apperror.IsDomain(err) {
		return err
	}
	if err != nil {
		return s.internal("reset password", err)
	}
	return nil
}

func (s *Service) byEmail(ctx context.Context, email string) (*db_model.Account, error) {
	var account db_model.Account
	err := s.guard.Read(ctx, "accounts.by_email", func() error {
		return s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Service) internal(op string, err error) error {
	s.logger.Error("accounts operation failed", zap.String("op", op), zap.Error(err))
	return apperror.Internal(fmt.Errorf("accounts %s: %w", op, err))
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
