package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/catalogadmin/internal/auth"
	"github.com/charlesng35/catalogadmin/internal/database/testutil"
	"github.com/charlesng35/catalogadmin/internal/models"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
)

func TestAuthServiceLogin(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAdmin("Admin@Example.com", "s3cret-pass"))
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})
	require.NoError(t, err)
	svc, err := NewAuthService(db, jwtSvc)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Login(ctx, "admin@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	result, err := svc.Login(ctx, " ADMIN@example.com ", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, "Bearer", result.TokenType)
	require.NotNil(t, result.User.LastLoginAt)

	claims, err := jwtSvc.Verify(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, result.User.ID, claims.UserID)

	user, err := svc.CurrentUser(ctx, claims.UserID)
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", user.Email)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)
	_, err = svc.CurrentUser(ctx, user.ID)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = svc.Login(ctx, "admin@example.com", "s3cret-pass")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
