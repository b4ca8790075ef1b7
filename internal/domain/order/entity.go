// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusDelivering     OrderStatus = "delivering"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "pending"
	PaymentStatusProofSubmitted PaymentStatus = "proof_submitted"
	PaymentStatusPaid           PaymentStatus = "paid"
	PaymentStatusFailed         PaymentStatus = "failed"
)

// PaymentMethod is how the customer settles the order
type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "cod"
	PaymentMethodGCash PaymentMethod = "gcash"
)

// IsValid reports whether m is a supported payment method
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodGCash
}

// OrderType distinguishes delivery, pickup and scheduled orders
type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
	OrderTypePreorder OrderType = "preorder"
)

// IsValid reports whether t is a supported order type
func (t OrderType) IsValid() bool {
	return t == OrderTypeDelivery || t == OrderTypePickup || t == OrderTypePreorder
}

// Order represents the order entity. Everything but the status fields and
// payment proof is fixed at creation.
type Order struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	OrderNumber   string          `gorm:"uniqueIndex;not null;size:40" json:"order_number"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Status        OrderStatus     `gorm:"not null;size:32;index" json:"status"`
	PaymentStatus PaymentStatus   `gorm:"not null;size:32;index" json:"payment_status"`
	PaymentMethod PaymentMethod   `gorm:"not null;size:16" json:"payment_method"`
	OrderType     OrderType       `gorm:"not null;size:16" json:"order_type"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_amount"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	Contact         Contact `gorm:"embedded;embeddedPrefix:contact_" json:"contact"`

	// Preorder schedule, local store time
	DeliveryDate        string `gorm:"size:10" json:"delivery_date,omitempty"`
	DeliveryTime        string `gorm:"size:5" json:"delivery_time,omitempty"`
	SpecialInstructions string `gorm:"type:text" json:"special_instructions"`

	PaymentProof PaymentProof `gorm:"embedded;embeddedPrefix:payment_proof_" json:"payment_proof"`

	DeliveredAt *time.Time `json:"delivered_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is a line snapshot with the unit price frozen at order time
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   string          `gorm:"not null;size:36;index" json:"order_id"`
	ProductID string          `gorm:"not null;size:64;index" json:"product_id"`
	Name      string          `gorm:"not null;size:255" json:"name"`
	Image     string          `gorm:"size:500" json:"image"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   string      `gorm:"not null;size:36;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null;size:32" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy uint        `gorm:"index" json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// Address represents the delivery address (embedded in Order)
type Address struct {
	Line1      string `gorm:"size:255" json:"line1"`
	Line2      string `gorm:"size:255" json:"line2"`
	Barangay   string `gorm:"size:100" json:"barangay"`
	City       string `gorm:"size:100" json:"city"`
	Province   string `gorm:"size:100" json:"province"`
	PostalCode string `gorm:"size:10" json:"postal_code"`
	Landmark   string `gorm:"size:255" json:"landmark"`
}

// Contact is who the store calls about the order
type Contact struct {
	Name  string `gorm:"size:150" json:"name"`
	Email string `gorm:"size:255" json:"email"`
	Phone string `gorm:"size:20" json:"phone"`
}

// PaymentProof holds the manual GCash submission and its review
type PaymentProof struct {
	ReferenceNumber string     `gorm:"size:64" json:"reference_number,omitempty"`
	ScreenshotURL   string     `gorm:"size:500" json:"screenshot_url,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	VerifiedBy      *uint      `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	Note            string     `gorm:"type:text" json:"note,omitempty"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// Business methods for Order

// IsPaid reports whether the order has been settled
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// CanBeCancelledByCustomer checks if the customer may still cancel
func (o *Order) CanBeCancelledByCustomer() bool {
	return o.Status == OrderStatusPending
}

// ItemCount sums quantities over the order items
func (o *Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// AllModels lists the order tables for migration
func AllModels() []interface{} {
	return []interface{}{&Order{}, &OrderItem{}, &OrderStatusHistory{}}
}
