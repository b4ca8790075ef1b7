// internal/domain/catalog/entity.go
package catalog

import (
	"math"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
)

// Category is one of the fixed menu sections
type Category string

const (
	CategoryRiceMeals Category = "rice_meals"
	CategoryNoodles   Category = "noodles"
	CategorySnacks    Category = "snacks"
	CategoryDrinks    Category = "drinks"
)

// Categories lists every menu section in display order
var Categories = []Category{CategoryRiceMeals, CategoryNoodles, CategorySnacks, CategoryDrinks}

// IsValid reports whether c is a known category
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ErrProductNotFound is returned when a product id does not exist
var ErrProductNotFound = apperrors.NotFound("product not found")

// Product represents a menu item and its live inventory counter
type Product struct {
	ID          string          `gorm:"primaryKey;size:64" json:"id"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Category    Category        `gorm:"not null;size:32;index" json:"category"`
	Description string          `gorm:"type:text" json:"description"`
	Image       string          `gorm:"size:500" json:"image"`
	Inventory   int             `gorm:"not null;default:0" json:"inventory"`
	Available   bool            `gorm:"not null" json:"available"`
	Rating      Rating          `gorm:"embedded;embeddedPrefix:rating_" json:"rating"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}

// InStock reports whether at least qty units can be reserved
func (p *Product) InStock(qty int) bool {
	return p.Available && p.Inventory >= qty
}

// Rating is the review aggregate stored alongside each product
type Rating struct {
	Average      float64 `gorm:"not null;default:0" json:"average"`
	TotalReviews int     `gorm:"not null;default:0" json:"total_reviews"`
	OneStar      int     `gorm:"not null;default:0" json:"one_star"`
	TwoStar      int     `gorm:"not null;default:0" json:"two_star"`
	ThreeStar    int     `gorm:"not null;default:0" json:"three_star"`
	FourStar     int     `gorm:"not null;default:0" json:"four_star"`
	FiveStar     int     `gorm:"not null;default:0" json:"five_star"`
}

// Histogram returns star -> count for stars 1 through 5
func (r Rating) Histogram() map[int]int {
	return map[int]int{
		1: r.OneStar,
		2: r.TwoStar,
		3: r.ThreeStar,
		4: r.FourStar,
		5: r.FiveStar,
	}
}

// Add returns the aggregate after counting one more review of stars
func (r Rating) Add(stars int) Rating {
	r.bucket(stars, 1)
	return r.recompute()
}

// Remove returns the aggregate after discounting one review of stars
func (r Rating) Remove(stars int) Rating {
	r.bucket(stars, -1)
	return r.recompute()
}

func (r *Rating) bucket(stars, delta int) {
	switch stars {
	case 1:
		r.OneStar = max(r.OneStar+delta, 0)
	case 2:
		r.TwoStar = max(r.TwoStar+delta, 0)
	case 3:
		r.ThreeStar = max(r.ThreeStar+delta, 0)
	case 4:
		r.FourStar = max(r.FourStar+delta, 0)
	case 5:
		r.FiveStar = max(r.FiveStar+delta, 0)
	}
}

func (r Rating) recompute() Rating {
	total := r.OneStar + r.TwoStar + r.ThreeStar + r.FourStar + r.FiveStar
	r.TotalReviews = total
	if total == 0 {
		r.Average = 0
		return r
	}
	weighted := r.OneStar + 2*r.TwoStar + 3*r.ThreeStar + 4*r.FourStar + 5*r.FiveStar
	r.Average = math.Round(float64(weighted)/float64(total)*100) / 100
	return r
}
