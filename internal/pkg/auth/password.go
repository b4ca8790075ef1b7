// internal/pkg/auth/password.go
package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"golang.org/x/crypto/bcrypt"
)

// PasswordManager handles password operations
type PasswordManager struct {
	cost int
}

// NewPasswordManager creates a new password manager
func NewPasswordManager(cost int) *PasswordManager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordManager{cost: cost}
}

// HashPassword validates and hashes a password using bcrypt
func (p *PasswordManager) HashPassword(password string) (string, error) {
	if err := p.ValidatePassword(password); err != nil {
		return "", err
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// VerifyPassword verifies a password against its hash
func (p *PasswordManager) VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ValidatePassword validates password strength
func (p *PasswordManager) ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperrors.Validation("password", "must be at least 8 characters long")
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return apperrors.Validation("password", "must be no more than 72 characters long")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		return apperrors.Validation("password", "must contain at least one uppercase letter")
	}
	if !hasLower {
		return apperrors.Validation("password", "must contain at least one lowercase letter")
	}
	if !hasNumber {
		return apperrors.Validation("password", "must contain at least one number")
	}

	return checkCommonPatterns(password)
}

var commonPasswords = []string{
	"password", "123456", "qwerty", "letmein", "welcome", "admin", "kusina",
}

// checkCommonPatterns rejects easily guessed passwords
func checkCommonPatterns(password string) error {
	lower := strings.ToLower(password)
	for _, common := range commonPasswords {
		if strings.Contains(lower, common) {
			return apperrors.Validation("password", "is too common and easily guessable")
		}
	}

	run := 1
	runes := []rune(password)
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run > 2 {
				return apperrors.Validation("password", "cannot contain more than 2 repeating characters")
			}
		} else {
			run = 1
		}
	}
	return nil
}
