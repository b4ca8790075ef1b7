// internal/domain/share/service.go
package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service records and counts product shares
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new share service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// RecordRequest represents a share action
type RecordRequest struct {
	Platform Platform `json:"platform" binding:"required"`
}

// Counts is the per-platform share tally for a product
type Counts struct {
	ProductID  string             `json:"product_id"`
	Total      int64              `json:"total"`
	ByPlatform map[Platform]int64 `json:"by_platform"`
}

// Record stores a share of productID. userID is nil for anonymous visitors.
func (s *Service) Record(ctx context.Context, productID string, userID *uint, platform Platform) (*Share, error) {
	if !platform.IsValid() {
		return nil, apperrors.Validation("platform", "unsupported platform %q", platform)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&catalog.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check product: %w", err)
	}
	if count == 0 {
		return nil, catalog.ErrProductNotFound
	}

	share := Share{ProductID: productID, UserID: userID, Platform: platform}
	if err := s.db.WithContext(ctx).Create(&share).Error; err != nil {
		return nil, fmt.Errorf("failed to record share: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"platform":   platform,
	}).Debug("Share recorded")
	return &share, nil
}

// CountsByProduct returns how often productID was shared per platform
func (s *Service) CountsByProduct(ctx context.Context, productID string) (*Counts, error) {
	var product catalog.Product
	if err := s.db.WithContext(ctx).Select("id").Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	var rows []struct {
		Platform Platform
		Count    int64
	}
	err := s.db.WithContext(ctx).Model(&Share{}).
		Select("platform, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Group("platform").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count shares: %w", err)
	}

	counts := &Counts{ProductID: productID, ByPlatform: make(map[Platform]int64, len(Platforms))}
	for _, p := range Platforms {
		counts.ByPlatform[p] = 0
	}
	for _, r := range rows {
		counts.ByPlatform[r.Platform] = r.Count
		counts.Total += r.Count
	}
	return counts, nil
}
