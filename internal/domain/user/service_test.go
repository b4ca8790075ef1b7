package user

import (
	"context"
	"testing"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/config"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database/dbtest"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/auth"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, rotate bool) *Service {
	t.Helper()
	db := dbtest.Open(t, &User{})
	tokens := auth.NewJWTManager(config.JWTConfig{
		Secret:               "0123456789abcdef0123456789abcdef",
		AccessTokenExpiry:    time.Hour,
		RefreshTokenExpiry:   24 * time.Hour,
		RefreshTokenRotation: rotate,
	}, "kusina-test")
	return NewService(db, auth.NewPasswordManager(bcrypt.MinCost), tokens, logger.Discard())
}

func register(t *testing.T, svc *Service) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Email:           " Maria@Example.com ",
		Password:        "Sinigang42",
		ConfirmPassword: "Sinigang42",
		Name:            "Maria Santos",
		Phone:           "09171234567",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()

	resp := register(t, svc)
	assert.Equal(t, "maria@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)
	assert.EqualValues(t, 3600, resp.ExpiresIn)

	_, err := svc.Register(ctx, &RegisterRequest{
		Email: "maria@example.com", Password: "Sinigang42", ConfirmPassword: "Sinigang42", Name: "Other",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := svc.Login(ctx, &LoginRequest{Email: "MARIA@example.com", Password: "Sinigang42"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
	assert.NotNil(t, login.User.LastLoginAt)

	_, err = svc.Login(ctx, &LoginRequest{Email: "maria@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "Sinigang42"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Email: "a@b.co", Password: "Sinigang42", ConfirmPassword: "Sinigang43", Name: "A"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Register(ctx, &RegisterRequest{Email: "a@b.co", Password: "weak", ConfirmPassword: "weak", Name: "A"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Register(ctx, &RegisterRequest{Email: "a@b.co", Password: "Sinigang42", ConfirmPassword: "Sinigang42", Name: "  "})
	assert.True(t, apperrors.IsValidation(err))
}

func TestRefreshToken(t *testing.T) {
	ctx := context.Background()

	rotating := newTestService(t, true)
	resp := register(t, rotating)
	refreshed, err := rotating.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = rotating.RefreshToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	fixed := newTestService(t, false)
	resp = register(t, fixed)
	refreshed, err = fixed.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, resp.RefreshToken, refreshed.RefreshToken)
}

func TestUpdateProfile(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()
	resp := register(t, svc)

	name := "Maria C. Santos"
	updated, err := svc.UpdateProfile(ctx, resp.User.ID, &UpdateProfileRequest{
		Name: &name,
		DefaultAddress: &Address{
			Line1:    "123 Rizal St",
			Barangay: "Poblacion",
			City:     "Amadeo",
			Province: "Cavite",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Maria C. Santos", updated.Name)
	assert.Equal(t, "09171234567", updated.Phone)
	assert.Equal(t, "Amadeo", updated.DefaultAddress.City)

	blank := " "
	_, err = svc.UpdateProfile(ctx, resp.User.ID, &UpdateProfileRequest{Name: &blank})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.UpdateProfile(ctx, 999, &UpdateProfileRequest{Name: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()
	resp := register(t, svc)

	err := svc.ChangePassword(ctx, resp.User.ID, "wrong", "Kaldereta77")
	assert.True(t, apperrors.IsValidation(err))

	require.NoError(t, svc.ChangePassword(ctx, resp.User.ID, "Sinigang42", "Kaldereta77"))
	_, err = svc.Login(ctx, &LoginRequest{Email: "maria@example.com", Password: "Kaldereta77"})
	assert.NoError(t, err)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin@kusinadeamadeo.com", "Adobo2024", "Admin")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin@kusinadeamadeo.com", "Adobo2024", "Admin")
	require.NoError(t, err)
	assert.False(t, created)

	login, err := svc.Login(ctx, &LoginRequest{Email: "admin@kusinadeamadeo.com", Password: "Adobo2024"})
	require.NoError(t, err)
	assert.True(t, login.User.IsAdmin)

	created, err = svc.EnsureAdmin(ctx, "admin2@kusinadeamadeo.com", "", "Admin")
	require.NoError(t, err)
	assert.False(t, created)
}
