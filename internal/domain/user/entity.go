// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents the user entity
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Email          string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password       string         `gorm:"not null;size:255" json:"-"` // Don't return in JSON
	Name           string         `gorm:"size:150" json:"name"`
	Phone          string         `gorm:"size:20" json:"phone"`
	DefaultAddress Address        `gorm:"embedded;embeddedPrefix:address_" json:"default_address"`
	IsActive       bool           `gorm:"not null" json:"is_active"`
	IsAdmin        bool           `gorm:"not null" json:"is_admin"`
	LastLoginAt    *time.Time     `json:"last_login_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// Address is the customer's saved delivery address, copied into new orders
// by the storefront
type Address struct {
	Line1      string `gorm:"size:255" json:"line1"`
	Line2      string `gorm:"size:255" json:"line2"`
	Barangay   string `gorm:"size:100" json:"barangay"`
	City       string `gorm:"size:100" json:"city"`
	Province   string `gorm:"size:100" json:"province"`
	PostalCode string `gorm:"size:10" json:"postal_code"`
	Landmark   string `gorm:"size:255" json:"landmark"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook to handle business logic before user creation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	// Email should be lowercase
	u.Email = normalizeEmail(u.Email)
	return nil
}

// GetDisplayName returns display name (name or email)
func (u *User) GetDisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
