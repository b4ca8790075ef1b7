// internal/domain/share/entity.go
package share

import "time"

// Platform is where a product link was shared
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
	PlatformMessenger Platform = "messenger"
	PlatformCopyLink  Platform = "copy_link"
)

// Platforms lists the accepted share targets
var Platforms = []Platform{PlatformFacebook, PlatformTwitter, PlatformMessenger, PlatformCopyLink}

// IsValid reports whether p is a known platform
func (p Platform) IsValid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// Share records one share action. Anonymous visitors have no user id.
type Share struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID string    `gorm:"not null;size:64;index" json:"product_id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	Platform  Platform  `gorm:"not null;size:20" json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the table name
func (Share) TableName() string {
	return "social_shares"
}
