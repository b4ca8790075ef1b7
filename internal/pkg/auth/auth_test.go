package auth

import (
	"testing"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/config"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testJWT() *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:             "0123456789abcdef0123456789abcdef",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	}, "kusina-test")
}

func TestAccessTokenRoundTrip(t *testing.T) {
	j := testJWT()

	token, err := j.GenerateAccessToken(7, "ana@example.com", "Ana", true)
	require.NoError(t, err)

	claims, err := j.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, "Ana", claims.Name)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "kusina-test", claims.Issuer)

	_, err = j.ValidateRefreshToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenCarriesNoAdmin(t *testing.T) {
	j := testJWT()

	token, err := j.GenerateRefreshToken(7, "ana@example.com")
	require.NoError(t, err)
	claims, err := j.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin)

	_, err = j.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredAndForeignTokens(t *testing.T) {
	j := testJWT()
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return issued }

	token, err := j.GenerateAccessToken(1, "a@b.co", "", false)
	require.NoError(t, err)

	j.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = j.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	other := NewJWTManager(config.JWTConfig{Secret: "another-secret-another-secret-xx", AccessTokenExpiry: time.Hour}, "x")
	foreign, err := other.GenerateAccessToken(1, "a@b.co", "", false)
	require.NoError(t, err)
	_, err = testJWT().ValidateAccessToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader(""))
}

func TestPasswordRules(t *testing.T) {
	p := NewPasswordManager(bcrypt.MinCost)

	tests := []struct {
		password string
		ok       bool
	}{
		{"Sinigang42", true},
		{"short1A", false},
		{"alllowercase1", false},
		{"ALLUPPERCASE1", false},
		{"NoNumbersHere", false},
		{"MyPassword1", false},
		{"Adoboooo12", false},
	}
	for _, tt := range tests {
		err := p.ValidatePassword(tt.password)
		if tt.ok {
			assert.NoError(t, err, tt.password)
		} else {
			assert.True(t, apperrors.IsValidation(err), tt.password)
		}
	}
}

func TestHashAndVerify(t *testing.T) {
	p := NewPasswordManager(bcrypt.MinCost)

	hash, err := p.HashPassword("Sinigang42")
	require.NoError(t, err)
	assert.NoError(t, p.VerifyPassword("Sinigang42", hash))
	assert.Error(t, p.VerifyPassword("Sinigang43", hash))
}
