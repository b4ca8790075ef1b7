// internal/domain/review/entity.go
package review

import (
	"time"
)

// Review is a customer's rating of a menu item. A user reviews a product at
// most once.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID string    `gorm:"not null;size:64;uniqueIndex:idx_review_product_user" json:"product_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_review_product_user;index" json:"user_id"`
	OrderID   *string   `gorm:"size:36" json:"order_id,omitempty"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	UserName  string    `gorm:"size:150" json:"user_name"`
	Verified  bool      `gorm:"not null" json:"verified"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Review) TableName() string {
	return "reviews"
}

// AllModels lists the review tables for migration
func AllModels() []interface{} {
	return []interface{}{&Review{}}
}
