// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CachePrefix is shared by every cached product listing
const CachePrefix = "products:"

var productIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// Service handles catalog business logic
type Service struct {
	db     *gorm.DB
	tx     database.Transactor
	cache  cache.Cache
	ttl    time.Duration
	logger *logrus.Logger
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, tx database.Transactor, c cache.Cache, ttl time.Duration, logger *logrus.Logger) *Service {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Service{
		db:     db,
		tx:     tx,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// ListFilter represents product list query parameters
type ListFilter struct {
	Category      Category `form:"category"`
	AvailableOnly bool     `form:"available"`
}

// UpsertRequest represents admin create-or-update data for a menu item
type UpsertRequest struct {
	ID          string          `json:"id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category" binding:"required"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Inventory   *int            `json:"inventory"`
	Available   *bool           `json:"available"`
}

// SyncStatus reports drift between the static menu and the store
type SyncStatus struct {
	StaticCount int      `json:"static_count"`
	StoredCount int64    `json:"stored_count"`
	Missing     []string `json:"missing"`
	Outdated    []string `json:"outdated"`
	InSync      bool     `json:"in_sync"`
}

// SyncResult reports what a sync run changed
type SyncResult struct {
	Inserted  []string `json:"inserted"`
	Updated   []string `json:"updated"`
	Unchanged int      `json:"unchanged"`
}

func listCacheKey(filter ListFilter) string {
	category := string(filter.Category)
	if category == "" {
		category = "all"
	}
	if filter.AvailableOnly {
		return CachePrefix + "list:" + category + ":available"
	}
	return CachePrefix + "list:" + category
}

// List returns products, served from cache when fresh
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, apperrors.Validation("category", "unknown category %q", filter.Category)
	}

	key := listCacheKey(filter)
	var products []Product
	hit, err := s.cache.Get(ctx, key, &products)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Product cache read failed")
	} else if hit {
		return products, nil
	}

	query := s.db.WithContext(ctx).Model(&Product{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.AvailableOnly {
		query = query.Where("available = ?", true)
	}
	if err := query.Order("category ASC, name ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	if err := s.cache.Set(ctx, key, products, s.ttl); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Product cache write failed")
	}
	return products, nil
}

// Get retrieves a single product
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	var product Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// Upsert creates or updates a menu item
func (s *Service) Upsert(ctx context.Context, req *UpsertRequest) (*Product, error) {
	// Validate request
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if !productIDPattern.MatchString(req.ID) {
		return nil, apperrors.Validation("id", "must be a lowercase slug")
	}
	if req.Name == "" {
		return nil, apperrors.Validation("name", "is required")
	}
	if !req.Price.IsPositive() {
		return nil, apperrors.Validation("price", "must be greater than zero")
	}
	if !req.Category.IsValid() {
		return nil, apperrors.Validation("category", "unknown category %q", req.Category)
	}
	if req.Inventory != nil && *req.Inventory < 0 {
		return nil, apperrors.Validation("inventory", "cannot be negative")
	}

	var product Product
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		err := tx.Where("id = ?", req.ID).First(&product).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			product = Product{
				ID:          req.ID,
				Name:        req.Name,
				Price:       req.Price.Round(2),
				Category:    req.Category,
				Description: req.Description,
				Image:       req.Image,
				Available:   true,
			}
			if req.Inventory != nil {
				product.Inventory = *req.Inventory
			}
			if req.Available != nil {
				product.Available = *req.Available
			}
			if err := tx.Create(&product).Error; err != nil {
				return fmt.Errorf("failed to create product: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to get product: %w", err)
		}

		updates := map[string]interface{}{
			"name":        req.Name,
			"price":       req.Price.Round(2),
			"category":    req.Category,
			"description": req.Description,
			"image":       req.Image,
		}
		if req.Inventory != nil {
			updates["inventory"] = *req.Inventory
		}
		if req.Available != nil {
			updates["available"] = *req.Available
		}
		if err := tx.Model(&product).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return tx.Where("id = ?", req.ID).First(&product).Error
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateCache(ctx)
	s.logger.WithField("product_id", product.ID).Info("Menu item saved")
	return &product, nil
}

// SyncStatus compares the static menu against stored products
func (s *Service) SyncStatus(ctx context.Context) (*SyncStatus, error) {
	static, err := StaticMenu()
	if err != nil {
		return nil, err
	}

	stored, err := s.storedByID(s.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	status := &SyncStatus{
		StaticCount: len(static),
		StoredCount: int64(len(stored)),
		Missing:     []string{},
		Outdated:    []string{},
	}
	for _, item := range static {
		existing, ok := stored[item.ID]
		if !ok {
			status.Missing = append(status.Missing, item.ID)
			continue
		}
		if differs(existing, item) {
			status.Outdated = append(status.Outdated, item.ID)
		}
	}
	status.InSync = len(status.Missing) == 0 && len(status.Outdated) == 0
	return status, nil
}

// Sync writes the static menu into the store. Existing inventory and ratings
// are left untouched so the call can be repeated safely.
func (s *Service) Sync(ctx context.Context) (*SyncResult, error) {
	static, err := StaticMenu()
	if err != nil {
		return nil, err
	}

	var result SyncResult
	err = s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		result = SyncResult{Inserted: []string{}, Updated: []string{}}

		stored, err := s.storedByID(tx)
		if err != nil {
			return err
		}

		for i := range static {
			item := static[i]
			existing, ok := stored[item.ID]
			if !ok {
				if err := tx.Create(&item).Error; err != nil {
					return fmt.Errorf("failed to insert %s: %w", item.ID, err)
				}
				result.Inserted = append(result.Inserted, item.ID)
				continue
			}
			if !differs(existing, item) {
				result.Unchanged++
				continue
			}
			if err := tx.Model(&Product{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
				"name":        item.Name,
				"price":       item.Price,
				"category":    item.Category,
				"description": item.Description,
				"image":       item.Image,
			}).Error; err != nil {
				return fmt.Errorf("failed to update %s: %w", item.ID, err)
			}
			result.Updated = append(result.Updated, item.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateCache(ctx)
	s.logger.WithFields(logrus.Fields{
		"inserted":  len(result.Inserted),
		"updated":   len(result.Updated),
		"unchanged": result.Unchanged,
	}).Info("Menu synced")
	return &result, nil
}

// AdjustInventory restocks (positive delta) or writes off (negative delta) units
func (s *Service) AdjustInventory(ctx context.Context, id string, delta int) (*Product, error) {
	var product *Product
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		product, err = s.AdjustInventoryTx(tx, id, delta)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateCache(ctx)
	s.logger.WithFields(logrus.Fields{
		"product_id": id,
		"delta":      delta,
		"inventory":  product.Inventory,
	}).Info("Inventory adjusted")
	return product, nil
}

// AdjustInventoryTx applies delta inside the caller's transaction. Stock never
// drops below zero.
func (s *Service) AdjustInventoryTx(tx *gorm.DB, id string, delta int) (*Product, error) {
	if delta == 0 {
		return nil, apperrors.Validation("delta", "must not be zero")
	}

	var product Product
	res := tx.Model(&Product{}).
		Where("id = ? AND inventory + ? >= 0", id, delta).
		Update("inventory", gorm.Expr("inventory + ?", delta))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to adjust inventory: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, fmt.Errorf("failed to get product: %w", err)
		}
		return nil, apperrors.Validation("delta", "inventory of %s cannot drop below zero (have %d)", id, product.Inventory)
	}
	if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// Count returns the number of stored products
func (s *Service) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Product{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// InvalidateCache drops every cached listing. Failures are logged only.
func (s *Service) InvalidateCache(ctx context.Context) {
	if err := s.cache.InvalidatePrefix(ctx, CachePrefix); err != nil {
		s.logger.WithError(err).Warn("Product cache invalidation failed")
	}
}

func (s *Service) storedByID(db *gorm.DB) (map[string]Product, error) {
	var products []Product
	if err := db.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

func differs(stored, static Product) bool {
	return stored.Name != static.Name ||
		!stored.Price.Equal(static.Price) ||
		stored.Category != static.Category ||
		stored.Description != static.Description ||
		stored.Image != static.Image
}
