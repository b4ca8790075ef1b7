// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// MovementType represents the direction of a stock movement
type MovementType string

const (
	MovementTypeInbound  MovementType = "inbound"  // Restock, return, adjustment increase
	MovementTypeOutbound MovementType = "outbound" // Spoilage, adjustment decrease
)

// MovementReason represents why stock moved
type MovementReason string

const (
	ReasonRestock    MovementReason = "restock"
	ReasonReturn     MovementReason = "return"
	ReasonSpoilage   MovementReason = "spoilage"
	ReasonAdjustment MovementReason = "adjustment"
)

// IsValid reports whether r is a known reason
func (r MovementReason) IsValid() bool {
	switch r {
	case ReasonRestock, ReasonReturn, ReasonSpoilage, ReasonAdjustment:
		return true
	}
	return false
}

// Movement is an audit record of a manual stock change
type Movement struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ProductID        string         `gorm:"not null;size:64;index" json:"product_id"`
	MovementType     MovementType   `gorm:"not null;size:16" json:"movement_type"`
	Reason           MovementReason `gorm:"not null;size:32" json:"reason"`
	Quantity         int            `gorm:"not null" json:"quantity"`
	PreviousQuantity int            `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int            `gorm:"not null" json:"new_quantity"`
	Notes            string         `gorm:"type:text" json:"notes"`
	CreatedBy        uint           `gorm:"index" json:"created_by"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
}

// TableName overrides the table name
func (Movement) TableName() string { return "inventory_movements" }
