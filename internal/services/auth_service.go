package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/auth"
	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/pkg/crypto"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
	"github.com/charlesng35/catalogadmin/pkg/metrics"
)

// LoginResult is returned after a successful login.
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        models.User `json:"user"`
}

// AuthService authenticates administrators with email and password.
type AuthService struct {
	db  *gorm.DB
	jwt *auth.JWTService
	now func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, jwt *auth.JWTService) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if jwt == nil {
		return nil, errors.New("auth service: jwt service is required")
	}
	return &AuthService{db: db, jwt: jwt, now: time.Now}, nil
}

// Login verifies the credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (result *LoginResult, err error) {
	ctx = ensureContext(ctx)
	defer func() { metrics.AuthAttempts.WithLabelValues(metrics.Result(err)).Inc() }()

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		crypto.RejectPassword(password)
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: load user: %w", err)
	}
	if !user.IsActive || !crypto.VerifyPassword(user.Password, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.jwt.Issue(auth.Subject{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("auth service: issue token: %w", err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("auth service: record login: %w", err)
	}
	user.LastLoginAt = &now

	return &LoginResult{AccessToken: token.Value, TokenType: "Bearer", ExpiresAt: token.ExpiresAt, User: user}, nil
}

// CurrentUser loads the user identified by a validated token.
func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ensureContext(ctx)).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("auth service: load user %d: %w", userID, err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrUnauthorized
	}
	return &user, nil
}
