// internal/domain/loyalty/entity.go
package loyalty

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is a loyalty rank derived from points
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Tier thresholds in points
const (
	SilverThreshold   int64 = 1000
	GoldThreshold     int64 = 5000
	PlatinumThreshold int64 = 10000
)

// CalculateTier returns the highest tier whose threshold does not exceed points
func CalculateTier(points int64) Tier {
	switch {
	case points >= PlatinumThreshold:
		return TierPlatinum
	case points >= GoldThreshold:
		return TierGold
	case points >= SilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// NextTier returns the next tier and the points still needed to reach it.
// Platinum has no next tier.
func NextTier(points int64) (Tier, int64) {
	switch CalculateTier(points) {
	case TierBronze:
		return TierSilver, SilverThreshold - points
	case TierSilver:
		return TierGold, GoldThreshold - points
	case TierGold:
		return TierPlatinum, PlatinumThreshold - points
	}
	return "", 0
}

// Profile is a user's loyalty balance
type Profile struct {
	UserID     uint            `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Points     int64           `gorm:"not null" json:"points"`
	Tier       Tier            `gorm:"not null;size:16" json:"tier"`
	TotalSpent decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_spent"`
	Rewards    []Reward        `gorm:"foreignKey:UserID;references:UserID" json:"rewards"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Reward is a redeemed reward voucher
type Reward struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	Code       string     `gorm:"not null;size:32" json:"code"`
	Name       string     `gorm:"not null;size:100" json:"name"`
	PointsCost int64      `gorm:"not null" json:"points_cost"`
	RedeemedAt time.Time  `gorm:"not null" json:"redeemed_at"`
	ExpiresAt  time.Time  `gorm:"not null;index" json:"expires_at"`
	Used       bool       `gorm:"not null" json:"used"`
	UsedAt     *time.Time `json:"used_at"`
}

// IsExpired reports whether the reward can no longer be used at now
func (r *Reward) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Credit records that points for an order were applied. The order id key
// makes crediting idempotent.
type Credit struct {
	OrderID   string          `gorm:"primaryKey;size:36" json:"order_id"`
	UserID    uint            `gorm:"not null;index" json:"user_id"`
	Points    int64           `gorm:"not null" json:"points"`
	Amount    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName overrides
func (Profile) TableName() string { return "loyalty_profiles" }
func (Reward) TableName() string  { return "loyalty_rewards" }
func (Credit) TableName() string  { return "loyalty_credits" }

// CatalogReward is a reward customers can redeem points for
type CatalogReward struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PointsCost  int64  `json:"points_cost"`
}

// Rewards is the fixed reward catalog
var Rewards = []CatalogReward{
	{Code: "free_drink", Name: "Free Drink", Description: "Any drink from the menu", PointsCost: 500},
	{Code: "free_dessert", Name: "Free Dessert", Description: "Turon or any merienda item", PointsCost: 800},
	{Code: "discount_100", Name: "PHP 100 Off", Description: "PHP 100 off your next order", PointsCost: 1000},
	{Code: "free_meal", Name: "Free Rice Meal", Description: "Any rice meal from the menu", PointsCost: 2500},
	{Code: "family_bundle", Name: "Family Bundle", Description: "Four rice meals, pancit and drinks", PointsCost: 5000},
}

// FindReward looks a reward up by code
func FindReward(code string) (CatalogReward, bool) {
	for _, r := range Rewards {
		if r.Code == code {
			return r, true
		}
	}
	return CatalogReward{}, false
}

// AllModels lists the loyalty tables for migration
func AllModels() []interface{} {
	return []interface{}{&Profile{}, &Reward{}, &Credit{}}
}
