// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StockAdjuster changes a product's stock inside a transaction
type StockAdjuster interface {
	AdjustInventoryTx(tx *gorm.DB, id string, delta int) (*catalog.Product, error)
	InvalidateCache(ctx context.Context)
}

// Service records manual stock changes
type Service struct {
	db                *gorm.DB
	tx                database.Transactor
	stock             StockAdjuster
	lowStockThreshold int
	logger            *logrus.Logger
	now               func() time.Time
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, tx database.Transactor, stock StockAdjuster, lowStockThreshold int, logger *logrus.Logger) *Service {
	return &Service{
		db:                db,
		tx:                tx,
		stock:             stock,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// AdjustRequest adds Delta units (negative to remove)
type AdjustRequest struct {
	Delta  int            `json:"delta"`
	Reason MovementReason `json:"reason"`
	Notes  string         `json:"notes"`
}

// AdjustResult is the product after the change and the recorded movement
type AdjustResult struct {
	Product  *catalog.Product `json:"product"`
	Movement *Movement        `json:"movement"`
}

// HistoryResponse is a page of movements, newest first
type HistoryResponse struct {
	Movements []Movement `json:"movements"`
	Total     int64      `json:"total"`
	Page      int        `json:"page"`
	Limit     int        `json:"limit"`
}

// Adjust changes stock and records the movement in one transaction
func (s *Service) Adjust(ctx context.Context, productID string, req *AdjustRequest, actorID uint) (*AdjustResult, error) {
	if req.Delta == 0 {
		return nil, apperrors.Validation("delta", "must not be zero")
	}
	if req.Reason == "" {
		req.Reason = ReasonAdjustment
	}
	if !req.Reason.IsValid() {
		return nil, apperrors.Validation("reason", "unknown reason %q", req.Reason)
	}
	if req.Reason == ReasonRestock && req.Delta < 0 {
		return nil, apperrors.Validation("delta", "restock must add stock")
	}
	if req.Reason == ReasonSpoilage && req.Delta > 0 {
		return nil, apperrors.Validation("delta", "spoilage must remove stock")
	}

	var result AdjustResult
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		product, err := s.stock.AdjustInventoryTx(tx, productID, req.Delta)
		if err != nil {
			return err
		}

		movement := &Movement{
			ProductID:        product.ID,
			MovementType:     MovementTypeInbound,
			Reason:           req.Reason,
			Quantity:         req.Delta,
			PreviousQuantity: product.Inventory - req.Delta,
			NewQuantity:      product.Inventory,
			Notes:            strings.TrimSpace(req.Notes),
			CreatedBy:        actorID,
			CreatedAt:        s.now(),
		}
		if req.Delta < 0 {
			movement.MovementType = MovementTypeOutbound
			movement.Quantity = -req.Delta
		}
		if err := tx.Create(movement).Error; err != nil {
			return fmt.Errorf("failed to record movement: %w", err)
		}

		result = AdjustResult{Product: product, Movement: movement}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.stock.InvalidateCache(ctx)

	fields := logrus.Fields{
		"product_id": productID,
		"delta":      req.Delta,
		"reason":     req.Reason,
		"inventory":  result.Product.Inventory,
		"actor_id":   actorID,
	}
	s.logger.WithFields(fields).Info("Inventory adjusted")
	if result.Product.Inventory <= s.lowStockThreshold {
		s.logger.WithFields(fields).Warn("Product is running low")
	}
	return &result, nil
}

// History lists the recorded movements of a product
func (s *Service) History(ctx context.Context, productID string, page, limit int) (*HistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Movement{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count movements: %w", err)
	}

	movements := []Movement{}
	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}

	return &HistoryResponse{
		Movements: movements,
		Total:     total,
		Page:      page,
		Limit:     limit,
	}, nil
}
