// internal/domain/cart/entity.go
package cart

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is a reserved cart line for an authenticated user. Its quantity is
// held out of the product's inventory until checkout or removal.
type CartItem struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	UserID    uint            `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID string          `gorm:"not null;size:64;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Name      string          `gorm:"not null;size:255" json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Image     string          `gorm:"size:500" json:"image"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// Subtotal returns price x quantity
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the view over a user's or guest's lines
type Cart struct {
	UserID    uint       `json:"user_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Total sums price x quantity over all lines, rounded to centavos
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}

// Count sums quantities over all lines
func (c *Cart) Count() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// MarshalJSON adds the computed total and count
func (c *Cart) MarshalJSON() ([]byte, error) {
	type view Cart
	return json.Marshal(struct {
		*view
		Total string `json:"total"`
		Count int    `json:"count"`
	}{
		view:  (*view)(c),
		Total: c.Total().StringFixed(2),
		Count: c.Count(),
	})
}

// Line is a product and quantity pair taken out of a cart at checkout
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// SessionCart is a guest cart stored in Redis. It holds no reservation.
type SessionCart struct {
	SessionID string            `json:"session_id"`
	Items     []SessionCartItem `json:"items"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// SessionCartItem represents a cart line for guest users
type SessionCartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}

// View converts the guest cart into the common cart view
func (s *SessionCart) View() *Cart {
	items := make([]CartItem, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, CartItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Image:     item.Image,
			Quantity:  item.Quantity,
			CreatedAt: item.AddedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}
	return &Cart{SessionID: s.SessionID, Items: items, UpdatedAt: s.UpdatedAt}
}

// MergePolicy decides how a guest cart folds into an account cart
type MergePolicy string

const (
	// MergeKeepAccount adds only products the account cart does not have
	MergeKeepAccount MergePolicy = "keep_account"
	// MergeReplace discards the account cart in favour of the guest cart
	MergeReplace MergePolicy = "replace"
	// MergeSum adds guest quantities onto account quantities
	MergeSum MergePolicy = "sum"
)

// IsValid reports whether p is a known policy
func (p MergePolicy) IsValid() bool {
	switch p {
	case MergeKeepAccount, MergeReplace, MergeSum:
		return true
	}
	return false
}
