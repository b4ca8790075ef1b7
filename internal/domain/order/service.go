// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/cart"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrOrderNotFound is returned when an order does not exist or is not visible to the caller
	ErrOrderNotFound = apperrors.NotFound("order not found")
	// ErrCannotCancel is returned when a customer cancels an order already being worked on
	ErrCannotCancel = apperrors.Conflict("order can only be cancelled while pending")
)

// Notifier is told about order events after they commit. Implementations
// must not block the caller.
type Notifier interface {
	OrderCreated(ctx context.Context, order *Order)
	OrderStatusChanged(ctx context.Context, order *Order, status OrderStatus)
}

// PointsCreditor credits loyalty points inside the transaction that marks an
// order paid. Crediting the same order twice must be a no-op.
type PointsCreditor interface {
	CreditPurchaseTx(tx *gorm.DB, userID uint, orderID string, amount decimal.Decimal) error
}

// CartCheckout settles the user's cart reservations inside the order transaction
type CartCheckout interface {
	CheckoutTx(tx *gorm.DB, userID uint, lines []cart.Line) error
}

// Service handles order business logic
type Service struct {
	db       *gorm.DB
	tx       database.Transactor
	carts    CartCheckout
	points   PointsCreditor
	notifier Notifier
	cache    cache.Cache
	logger   *logrus.Logger
	now      func() time.Time
}

// NewService creates a new order service
func NewService(db *gorm.DB, tx database.Transactor, carts CartCheckout, points PointsCreditor, notifier Notifier, c cache.Cache, logger *logrus.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		db:       db,
		tx:       tx,
		carts:    carts,
		points:   points,
		notifier: notifier,
		cache:    c,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NopNotifier discards order events
type NopNotifier struct{}

func (NopNotifier) OrderCreated(context.Context, *Order)                    {}
func (NopNotifier) OrderStatusChanged(context.Context, *Order, OrderStatus) {}

// ItemRequest is one requested order line
type ItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest represents order creation data
type CreateOrderRequest struct {
	Items               []ItemRequest `json:"items"`
	ShippingAddress     Address       `json:"shipping_address"`
	Contact             Contact       `json:"contact"`
	PaymentMethod       PaymentMethod `json:"payment_method"`
	OrderType           OrderType     `json:"order_type"`
	DeliveryDate        string        `json:"delivery_date"`
	DeliveryTime        string        `json:"delivery_time"`
	SpecialInstructions string        `json:"special_instructions"`
}

// Validate checks the request before anything is written
func (r *CreateOrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return apperrors.Validation("items", "cart is empty")
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return apperrors.Validation(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if item.Quantity <= 0 {
			return apperrors.Validation(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
	}

	if strings.TrimSpace(r.Contact.Name) == "" {
		return apperrors.Validation("contact.name", "is required")
	}
	if strings.TrimSpace(r.Contact.Email) == "" {
		return apperrors.Validation("contact.email", "is required")
	}
	if _, err := mail.ParseAddress(r.Contact.Email); err != nil {
		return apperrors.Validation("contact.email", "is not a valid email address")
	}
	if strings.TrimSpace(r.Contact.Phone) == "" {
		return apperrors.Validation("contact.phone", "is required")
	}

	if r.OrderType == "" {
		r.OrderType = OrderTypeDelivery
	}
	if !r.OrderType.IsValid() {
		return apperrors.Validation("order_type", "must be delivery, pickup or preorder")
	}
	if !r.PaymentMethod.IsValid() {
		return apperrors.Validation("payment_method", "must be cod or gcash")
	}

	if r.OrderType != OrderTypePickup {
		if strings.TrimSpace(r.ShippingAddress.Line1) == "" {
			return apperrors.Validation("shipping_address.line1", "is required")
		}
		if strings.TrimSpace(r.ShippingAddress.City) == "" {
			return apperrors.Validation("shipping_address.city", "is required")
		}
	}

	if r.OrderType == OrderTypePreorder {
		if r.DeliveryDate == "" {
			return apperrors.Validation("delivery_date", "is required for preorders")
		}
		if r.DeliveryTime == "" {
			return apperrors.Validation("delivery_time", "is required for preorders")
		}
		if _, err := time.Parse("2006-01-02", r.DeliveryDate); err != nil {
			return apperrors.Validation("delivery_date", "must be YYYY-MM-DD")
		}
		if _, err := time.Parse("15:04", r.DeliveryTime); err != nil {
			return apperrors.Validation("delivery_time", "must be HH:MM")
		}
	}
	return nil
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page          int           `form:"page,default=1"`
	Limit         int           `form:"limit,default=20"`
	Status        OrderStatus   `form:"status"`
	PaymentStatus PaymentStatus `form:"payment_status"`
	UserID        uint          `form:"user_id"`
	SortBy        string        `form:"sort_by,default=created_at"`
	SortOrder     string        `form:"sort_order,default=desc"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// CreateOrder turns the requested lines into an order. The order row, its
// items, the inventory settlement and the cart clear commit together or not
// at all. Loyalty points follow once the order is paid.
func (s *Service) CreateOrder(ctx context.Context, userID uint, req *CreateOrderRequest) (*Order, error) {
	// Validate before touching storage
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lines := mergeLines(req.Items)

	var order *Order
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		now := s.now()
		number, err := GenerateOrderNumber(now)
		if err != nil {
			return err
		}

		order = &Order{
			ID:                  uuid.NewString(),
			OrderNumber:         number,
			UserID:              userID,
			Status:              OrderStatusPending,
			PaymentStatus:       PaymentStatusPending,
			PaymentMethod:       req.PaymentMethod,
			OrderType:           req.OrderType,
			ShippingAddress:     req.ShippingAddress,
			Contact:             req.Contact,
			DeliveryDate:        req.DeliveryDate,
			DeliveryTime:        req.DeliveryTime,
			SpecialInstructions: strings.TrimSpace(req.SpecialInstructions),
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		// Freeze prices from the current catalog
		total := decimal.Zero
		items := make([]OrderItem, 0, len(lines))
		for _, line := range lines {
			var product catalog.Product
			if err := tx.Where("id = ?", line.ProductID).First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%s: %w", line.ProductID, catalog.ErrProductNotFound)
				}
				return fmt.Errorf("failed to get product: %w", err)
			}
			if !product.Available {
				return fmt.Errorf("%s: %w", line.ProductID, cart.ErrProductUnavailable)
			}

			subtotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
			total = total.Add(subtotal)
			items = append(items, OrderItem{
				OrderID:   order.ID,
				ProductID: product.ID,
				Name:      product.Name,
				Image:     product.Image,
				Quantity:  line.Quantity,
				Price:     product.Price,
				Subtotal:  subtotal,
				CreatedAt: now,
			})
		}
		order.TotalAmount = total.Round(2)

		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		if err := tx.Create(&OrderStatusHistory{
			OrderID:   order.ID,
			Status:    OrderStatusPending,
			Comment:   "Order created",
			CreatedBy: userID,
			CreatedAt: now,
		}).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}

		// Settle inventory and empty the cart
		if err := s.carts.CheckoutTx(tx, userID, lines); err != nil {
			return err
		}

		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProducts(ctx)
	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      userID,
		"total":        order.TotalAmount.StringFixed(2),
	}).Info("Order created")

	s.notifier.OrderCreated(ctx, order)
	return order, nil
}

// GetOrderByID retrieves a single order by ID
func (s *Service) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	return s.findOrder(s.db.WithContext(ctx), "id = ?", id)
}

// GetOrderByNumber retrieves a single order by order number
func (s *Service) GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return s.findOrder(s.db.WithContext(ctx), "order_number = ?", orderNumber)
}

// GetUserOrder retrieves an order only if it belongs to userID
func (s *Service) GetUserOrder(ctx context.Context, id string, userID uint) (*Order, error) {
	order, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders retrieves orders with filtering and pagination
func (s *Service) ListOrders(ctx context.Context, req *OrderListRequest) (*OrderResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	var orders []Order
	var total int64

	// Build query
	query := s.db.WithContext(ctx).Model(&Order{})

	// Apply filters
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.PaymentStatus != "" {
		query = query.Where("payment_status = ?", req.PaymentStatus)
	}
	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}

	// Count total records
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	// Apply sorting and pagination
	offset := (req.Page - 1) * req.Limit
	err := query.Preload("Items").
		Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetUserOrders retrieves orders for a specific user
func (s *Service) GetUserOrders(ctx context.Context, userID uint, page, limit int) (*OrderResponse, error) {
	return s.ListOrders(ctx, &OrderListRequest{
		Page:   page,
		Limit:  limit,
		UserID: userID,
	})
}

// UpdateOrderStatus moves an order along its status machine. Repeating the
// current status is a no-op. Cancelling restores inventory and delivering a
// cash-on-delivery order marks it paid and credits its points.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus, actorID uint, comment string) (*Order, error) {
	if !status.IsValid() {
		return nil, apperrors.Validation("status", "unknown status %q", status)
	}
	return s.transition(ctx, orderID, status, actorID, comment, nil)
}

// CancelOrder lets a customer cancel their own order while it is still pending
func (s *Service) CancelOrder(ctx context.Context, orderID string, userID uint, reason string) (*Order, error) {
	comment := "Cancelled by customer"
	if reason = strings.TrimSpace(reason); reason != "" {
		comment = fmt.Sprintf("Cancelled by customer: %s", reason)
	}

	return s.transition(ctx, orderID, OrderStatusCancelled, userID, comment, func(o *Order) error {
		if o.UserID != userID {
			return ErrOrderNotFound
		}
		if !o.CanBeCancelledByCustomer() && o.Status != OrderStatusCancelled {
			return ErrCannotCancel
		}
		return nil
	})
}

// SubmitPaymentProof records a GCash reference and screenshot for review
func (s *Service) SubmitPaymentProof(ctx context.Context, orderID string, userID uint, reference, screenshotURL string) (*Order, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperrors.Validation("reference_number", "is required")
	}
	if strings.TrimSpace(screenshotURL) == "" {
		return nil, apperrors.Validation("screenshot_url", "is required")
	}

	var order *Order
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.findOrder(tx, "id = ?", orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return ErrOrderNotFound
		}
		if order.PaymentMethod != PaymentMethodGCash {
			return apperrors.Validation("payment_method", "payment proof is only accepted for GCash orders")
		}
		if order.Status == OrderStatusCancelled {
			return fmt.Errorf("%w: order is cancelled", ErrInvalidPaymentTransition)
		}
		if !CanTransitionPayment(order.PaymentMethod, order.PaymentStatus, PaymentStatusProofSubmitted) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidPaymentTransition, order.PaymentStatus, PaymentStatusProofSubmitted)
		}

		now := s.now()
		if err := s.guardedUpdate(tx, order, "payment_status", string(order.PaymentStatus), map[string]interface{}{
			"payment_status":                 PaymentStatusProofSubmitted,
			"payment_proof_reference_number": reference,
			"payment_proof_screenshot_url":   screenshotURL,
			"payment_proof_submitted_at":     now,
			"updated_at":                     now,
		}); err != nil {
			return err
		}
		return tx.Create(&OrderStatusHistory{
			OrderID:   order.ID,
			Status:    order.Status,
			Comment:   fmt.Sprintf("GCash payment proof submitted (ref %s)", reference),
			CreatedBy: userID,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":  orderID,
		"reference": reference,
	}).Info("Payment proof submitted")
	return s.GetOrderByID(ctx, orderID)
}

// VerifyPayment approves or rejects a submitted GCash proof
func (s *Service) VerifyPayment(ctx context.Context, orderID string, adminID uint, approved bool, note string) (*Order, error) {
	target := PaymentStatusFailed
	if approved {
		target = PaymentStatusPaid
	}

	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		order, err := s.findOrder(tx, "id = ?", orderID)
		if err != nil {
			return err
		}
		// Cash on delivery is settled by the delivery itself
		if order.PaymentMethod != PaymentMethodGCash {
			return fmt.Errorf("%w: %s orders are not verified", ErrInvalidPaymentTransition, order.PaymentMethod)
		}
		if order.Status == OrderStatusCancelled {
			return fmt.Errorf("%w: order is cancelled", ErrInvalidPaymentTransition)
		}
		if !CanTransitionPayment(order.PaymentMethod, order.PaymentStatus, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidPaymentTransition, order.PaymentStatus, target)
		}

		now := s.now()
		if err := s.guardedUpdate(tx, order, "payment_status", string(order.PaymentStatus), map[string]interface{}{
			"payment_status":            target,
			"payment_proof_verified_by": adminID,
			"payment_proof_verified_at": now,
			"payment_proof_note":        strings.TrimSpace(note),
			"updated_at":                now,
		}); err != nil {
			return err
		}
		if approved {
			if err := s.creditPaid(tx, order); err != nil {
				return err
			}
		}

		comment := "GCash payment verified"
		if !approved {
			comment = "GCash payment rejected"
		}
		if note != "" {
			comment += ": " + note
		}
		return tx.Create(&OrderStatusHistory{
			OrderID:   order.ID,
			Status:    order.Status,
			Comment:   comment,
			CreatedBy: adminID,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"admin_id": adminID,
		"approved": approved,
	}).Info("Payment reviewed")
	return s.GetOrderByID(ctx, orderID)
}

// Private helper methods

func (s *Service) transition(ctx context.Context, orderID string, status OrderStatus, actorID uint, comment string, check func(*Order) error) (*Order, error) {
	var (
		order     *Order
		changed   bool
		refundDue bool
	)
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		changed, refundDue = false, false
		order, err = s.findOrder(tx, "id = ?", orderID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(order); err != nil {
				return err
			}
		}
		if order.Status == status {
			return nil
		}
		if !CanTransition(order.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
		}

		now := s.now()
		updates := map[string]interface{}{
			"status":     status,
			"updated_at": now,
		}
		codPaid := false
		switch status {
		case OrderStatusDelivered:
			updates["delivered_at"] = now
			if order.PaymentMethod == PaymentMethodCOD && order.PaymentStatus == PaymentStatusPending {
				updates["payment_status"] = PaymentStatusPaid
				codPaid = true
			}
		case OrderStatusCancelled:
			updates["cancelled_at"] = now
			refundDue = order.PaymentStatus == PaymentStatusPaid
		}

		if err := s.guardedUpdate(tx, order, "status", string(order.Status), updates); err != nil {
			return err
		}

		if codPaid {
			if err := s.creditPaid(tx, order); err != nil {
				return err
			}
		}

		if status == OrderStatusCancelled {
			if err := restoreInventory(tx, order.Items); err != nil {
				return err
			}
		}

		if comment == "" {
			comment = fmt.Sprintf("Status changed from %s to %s", order.Status, status)
		}
		if refundDue {
			comment += fmt.Sprintf(" (refund of PHP %s due)", order.TotalAmount.StringFixed(2))
		}
		if err := tx.Create(&OrderStatusHistory{
			OrderID:   order.ID,
			Status:    status,
			Comment:   comment,
			CreatedBy: actorID,
			CreatedAt: now,
		}).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}

		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return order, nil
	}

	if status == OrderStatusCancelled {
		s.invalidateProducts(ctx)
	}
	if refundDue {
		s.logger.WithFields(logrus.Fields{
			"order_id":       orderID,
			"payment_method": order.PaymentMethod,
			"amount":         order.TotalAmount.StringFixed(2),
		}).Warn("Paid order cancelled, refund due")
	}

	updated, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"status":   status,
		"actor_id": actorID,
	}).Info("Order status updated")

	s.notifier.OrderStatusChanged(ctx, updated, status)
	return updated, nil
}

// creditPaid awards points for an order that has just become paid
func (s *Service) creditPaid(tx *gorm.DB, order *Order) error {
	if err := s.points.CreditPurchaseTx(tx, order.UserID, order.ID, order.TotalAmount); err != nil {
		return fmt.Errorf("failed to credit loyalty points: %w", err)
	}
	return nil
}

// guardedUpdate writes updates only if column still holds observed. A lost
// race surfaces database.ErrConflict so the transaction is re-run.
func (s *Service) guardedUpdate(tx *gorm.DB, order *Order, column, observed string, updates map[string]interface{}) error {
	res := tx.Model(&Order{}).
		Where("id = ? AND "+column+" = ?", order.ID, observed).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return database.ErrConflict
	}
	return nil
}

func (s *Service) findOrder(db *gorm.DB, query string, arg interface{}) (*Order, error) {
	var order Order
	err := db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where(query, arg).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

func (s *Service) invalidateProducts(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePrefix(ctx, catalog.CachePrefix); err != nil {
		s.logger.WithError(err).Warn("Product cache invalidation failed")
	}
}

func restoreInventory(tx *gorm.DB, items []OrderItem) error {
	for _, item := range items {
		err := tx.Model(&catalog.Product{}).
			Where("id = ?", item.ProductID).
			Update("inventory", gorm.Expr("inventory + ?", item.Quantity)).Error
		if err != nil {
			return fmt.Errorf("failed to restore inventory: %w", err)
		}
	}
	return nil
}

// mergeLines folds duplicate product lines, keeping first-seen order
func mergeLines(items []ItemRequest) []cart.Line {
	index := make(map[string]int, len(items))
	lines := make([]cart.Line, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ProductID)
		if i, ok := index[id]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[id] = len(lines)
		lines = append(lines, cart.Line{ProductID: id, Quantity: item.Quantity})
	}
	return lines
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total_amount": true,
		"status":       true,
		"order_number": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
