// internal/domain/cart/service.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const guestCartTTL = 24 * time.Hour

var (
	// ErrInsufficientInventory aborts a mutation that would reserve more than is in stock
	ErrInsufficientInventory = apperrors.Conflict("insufficient inventory")
	// ErrProductUnavailable is returned for products hidden from the menu
	ErrProductUnavailable = apperrors.Conflict("product unavailable")
	// ErrItemNotInCart is returned when updating or removing a missing line
	ErrItemNotInCart = apperrors.NotFound("item not found in cart")
)

// Service handles cart business logic
type Service struct {
	db          *gorm.DB
	tx          database.Transactor
	redisClient *redis.Client
	cache       cache.Cache
	logger      *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, tx database.Transactor, redisClient *redis.Client, c cache.Cache, logger *logrus.Logger) *Service {
	return &Service{
		db:          db,
		tx:          tx,
		redisClient: redisClient,
		cache:       c,
		logger:      logger,
	}
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"omitempty,min=1"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// MergeRequest represents a guest cart merge request
type MergeRequest struct {
	Policy MergePolicy `json:"policy" binding:"required"`
}

// GetCart retrieves the cart of an authenticated user
func (s *Service) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	return s.loadCart(s.db.WithContext(ctx), userID)
}

// Total returns the cart total for a user
func (s *Service) Total(ctx context.Context, userID uint) (decimal.Decimal, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Total(), nil
}

// Count returns the number of units in a user's cart
func (s *Service) Count(ctx context.Context, userID uint) (int, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// AddItem reserves qty units of a product and adds them to the user's cart.
// A zero qty means one.
func (s *Service) AddItem(ctx context.Context, userID uint, productID string, qty int) (*Cart, error) {
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, apperrors.Validation("quantity", "must be positive")
	}

	var result *Cart
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		product, err := loadProduct(tx, productID)
		if err != nil {
			return err
		}
		if err := reserve(tx, productID, qty); err != nil {
			return err
		}
		if err := addLine(tx, userID, product, qty); err != nil {
			return err
		}
		result, err = s.loadCart(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProducts(ctx)
	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   qty,
	}).Debug("Cart item added")
	return result, nil
}

// UpdateQuantity sets a line's quantity, reserving or releasing the
// difference. Zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID uint, productID string, qty int) (*Cart, error) {
	if qty < 0 {
		return nil, apperrors.Validation("quantity", "cannot be negative")
	}
	if qty == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	var result *Cart
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		line, err := findLine(tx, userID, productID)
		if err != nil {
			return err
		}

		delta := qty - line.Quantity
		switch {
		case delta > 0:
			if err := reserve(tx, productID, delta); err != nil {
				return err
			}
		case delta < 0:
			if err := release(tx, productID, -delta); err != nil {
				return err
			}
		default:
			result, err = s.loadCart(tx, userID)
			return err
		}

		res := tx.Model(&CartItem{}).
			Where("id = ? AND quantity = ?", line.ID, line.Quantity).
			Updates(map[string]interface{}{"quantity": qty, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return fmt.Errorf("failed to update cart item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return database.ErrConflict
		}

		result, err = s.loadCart(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProducts(ctx)
	return result, nil
}

// RemoveItem deletes a line and returns its quantity to inventory
func (s *Service) RemoveItem(ctx context.Context, userID uint, productID string) (*Cart, error) {
	var result *Cart
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		line, err := findLine(tx, userID, productID)
		if err != nil {
			return err
		}
		if err := deleteLine(tx, line); err != nil {
			return err
		}
		result, err = s.loadCart(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProducts(ctx)
	return result, nil
}

// Clear empties the user's cart and returns every held unit to inventory
func (s *Service) Clear(ctx context.Context, userID uint) error {
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		var lines []CartItem
		if err := tx.Where("user_id = ?", userID).Find(&lines).Error; err != nil {
			return fmt.Errorf("failed to retrieve user cart: %w", err)
		}
		for i := range lines {
			if err := deleteLine(tx, &lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateProducts(ctx)
	return nil
}

// CheckoutTx converts the user's reservations into a sale inside the caller's
// transaction. Ordered quantity already reserved is consumed, any excess is
// taken from inventory, and reservations for lines not ordered are released.
// The cart is emptied. Net inventory drops by exactly the ordered quantities.
func (s *Service) CheckoutTx(tx *gorm.DB, userID uint, lines []Line) error {
	var held []CartItem
	if err := tx.Where("user_id = ?", userID).Find(&held).Error; err != nil {
		return fmt.Errorf("failed to retrieve user cart: %w", err)
	}
	reserved := make(map[string]int, len(held))
	for _, item := range held {
		reserved[item.ProductID] = item.Quantity
	}

	ordered := make(map[string]int, len(lines))
	for _, line := range lines {
		ordered[line.ProductID] += line.Quantity
	}

	for productID, qty := range ordered {
		have := reserved[productID]
		switch {
		case qty > have:
			if err := reserve(tx, productID, qty-have); err != nil {
				return fmt.Errorf("%s: %w", productID, err)
			}
		case qty < have:
			if err := release(tx, productID, have-qty); err != nil {
				return err
			}
		}
		delete(reserved, productID)
	}

	// Lines left in the cart but not ordered give their stock back
	for productID, have := range reserved {
		if err := release(tx, productID, have); err != nil {
			return err
		}
	}

	if err := tx.Where("user_id = ?", userID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// GetGuestCart returns the guest cart for a session, empty when absent
func (s *Service) GetGuestCart(ctx context.Context, sessionID string) (*Cart, error) {
	sessionCart, err := s.getGuestCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sessionCart.View(), nil
}

// AddGuestItem adds to a guest cart after checking current stock. Nothing is
// reserved until the guest signs in and merges.
func (s *Service) AddGuestItem(ctx context.Context, sessionID, productID string, qty int) (*Cart, error) {
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, apperrors.Validation("quantity", "must be positive")
	}

	sessionCart, err := s.getGuestCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	product, err := loadProduct(s.db.WithContext(ctx), productID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range sessionCart.Items {
		if sessionCart.Items[i].ProductID != productID {
			continue
		}
		if product.Inventory < sessionCart.Items[i].Quantity+qty {
			return nil, ErrInsufficientInventory
		}
		sessionCart.Items[i].Quantity += qty
		sessionCart.Items[i].Price = product.Price
		found = true
		break
	}
	if !found {
		if product.Inventory < qty {
			return nil, ErrInsufficientInventory
		}
		sessionCart.Items = append(sessionCart.Items, SessionCartItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  qty,
			AddedAt:   time.Now().UTC(),
		})
	}

	if err := s.saveGuestCart(ctx, sessionCart); err != nil {
		return nil, err
	}
	return sessionCart.View(), nil
}

// UpdateGuestQuantity sets a guest line quantity. Zero removes the line.
func (s *Service) UpdateGuestQuantity(ctx context.Context, sessionID, productID string, qty int) (*Cart, error) {
	if qty < 0 {
		return nil, apperrors.Validation("quantity", "cannot be negative")
	}

	sessionCart, err := s.getGuestCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i := range sessionCart.Items {
		if sessionCart.Items[i].ProductID == productID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrItemNotInCart
	}

	if qty == 0 {
		sessionCart.Items = append(sessionCart.Items[:index], sessionCart.Items[index+1:]...)
	} else {
		product, err := loadProduct(s.db.WithContext(ctx), productID)
		if err != nil {
			return nil, err
		}
		if product.Inventory < qty {
			return nil, ErrInsufficientInventory
		}
		sessionCart.Items[index].Quantity = qty
	}

	if err := s.saveGuestCart(ctx, sessionCart); err != nil {
		return nil, err
	}
	return sessionCart.View(), nil
}

// ClearGuestCart deletes a guest session cart
func (s *Service) ClearGuestCart(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.Validation("session_id", "is required")
	}
	return s.redisClient.Del(ctx, guestCartKey(sessionID)).Err()
}

// MergeGuestCart folds a guest cart into the user's cart under an explicit
// policy. The merge reserves stock like AddItem and either applies fully or
// not at all. The guest session is deleted once the merge commits.
func (s *Service) MergeGuestCart(ctx context.Context, userID uint, sessionID string, policy MergePolicy) (*Cart, error) {
	if !policy.IsValid() {
		return nil, apperrors.Validation("policy", "must be one of keep_account, replace, sum")
	}

	guest, err := s.getGuestCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var result *Cart
	err = s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		var existing []CartItem
		if err := tx.Where("user_id = ?", userID).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to retrieve user cart: %w", err)
		}
		inAccount := make(map[string]bool, len(existing))
		for _, item := range existing {
			inAccount[item.ProductID] = true
		}

		if policy == MergeReplace {
			for i := range existing {
				if err := deleteLine(tx, &existing[i]); err != nil {
					return err
				}
			}
			inAccount = map[string]bool{}
		}

		for _, item := range guest.Items {
			if policy == MergeKeepAccount && inAccount[item.ProductID] {
				continue
			}
			product, err := loadProduct(tx, item.ProductID)
			if err != nil {
				return fmt.Errorf("%s: %w", item.ProductID, err)
			}
			if err := reserve(tx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("%s: %w", item.ProductID, err)
			}
			if err := addLine(tx, userID, product, item.Quantity); err != nil {
				return err
			}
		}

		result, err = s.loadCart(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.redisClient.Del(ctx, guestCartKey(sessionID)).Err(); err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to delete merged guest cart")
	}
	s.invalidateProducts(ctx)

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"policy":  policy,
		"lines":   len(guest.Items),
	}).Info("Guest cart merged")
	return result, nil
}

// Private helper methods

func (s *Service) loadCart(db *gorm.DB, userID uint) (*Cart, error) {
	var items []CartItem
	if err := db.Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve user cart: %w", err)
	}

	c := &Cart{UserID: userID, Items: items}
	for _, item := range items {
		if item.UpdatedAt.After(c.UpdatedAt) {
			c.UpdatedAt = item.UpdatedAt
		}
	}
	return c, nil
}

func (s *Service) invalidateProducts(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePrefix(ctx, catalog.CachePrefix); err != nil {
		s.logger.WithError(err).Warn("Product cache invalidation failed")
	}
}

func guestCartKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

func (s *Service) getGuestCart(ctx context.Context, sessionID string) (*SessionCart, error) {
	if sessionID == "" {
		return nil, apperrors.Validation("session_id", "is required for guest cart")
	}

	data, err := s.redisClient.Get(ctx, guestCartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		now := time.Now().UTC()
		return &SessionCart{
			SessionID: sessionID,
			Items:     []SessionCartItem{},
			CreatedAt: now,
			UpdatedAt: now,
			ExpiresAt: now.Add(guestCartTTL),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}

	var sessionCart SessionCart
	if err := json.Unmarshal(data, &sessionCart); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	return &sessionCart, nil
}

func (s *Service) saveGuestCart(ctx context.Context, sessionCart *SessionCart) error {
	now := time.Now().UTC()
	sessionCart.UpdatedAt = now
	sessionCart.ExpiresAt = now.Add(guestCartTTL)

	data, err := json.Marshal(sessionCart)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}
	return s.redisClient.Set(ctx, guestCartKey(sessionCart.SessionID), data, guestCartTTL).Err()
}

func loadProduct(db *gorm.DB, productID string) (*catalog.Product, error) {
	var product catalog.Product
	if err := db.Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if !product.Available {
		return nil, ErrProductUnavailable
	}
	return &product, nil
}

// reserve takes n units out of inventory, failing without effect when fewer remain
func reserve(tx *gorm.DB, productID string, n int) error {
	res := tx.Model(&catalog.Product{}).
		Where("id = ? AND inventory >= ?", productID, n).
		Update("inventory", gorm.Expr("inventory - ?", n))
	if res.Error != nil {
		return fmt.Errorf("failed to reserve inventory: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientInventory
	}
	return nil
}

func release(tx *gorm.DB, productID string, n int) error {
	err := tx.Model(&catalog.Product{}).
		Where("id = ?", productID).
		Update("inventory", gorm.Expr("inventory + ?", n)).Error
	if err != nil {
		return fmt.Errorf("failed to release inventory: %w", err)
	}
	return nil
}

func findLine(tx *gorm.DB, userID uint, productID string) (*CartItem, error) {
	var line CartItem
	if err := tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotInCart
		}
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return &line, nil
}

func addLine(tx *gorm.DB, userID uint, product *catalog.Product, qty int) error {
	now := time.Now().UTC()
	line := CartItem{
		UserID:    userID,
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", qty),
			"name":       product.Name,
			"price":      product.Price,
			"image":      product.Image,
			"updated_at": now,
		}),
	}).Create(&line).Error
	if err != nil {
		return fmt.Errorf("failed to save cart item: %w", err)
	}
	return nil
}

// deleteLine removes a line guarded on its observed quantity and releases it
func deleteLine(tx *gorm.DB, line *CartItem) error {
	res := tx.Where("id = ? AND quantity = ?", line.ID, line.Quantity).Delete(&CartItem{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return database.ErrConflict
	}
	return release(tx, line.ProductID, line.Quantity)
}
