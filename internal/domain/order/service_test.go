package order_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/cart"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/loyalty"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database/dbtest"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu       sync.Mutex
	created  []string
	statuses []order.OrderStatus
}

func (n *recordingNotifier) OrderCreated(_ context.Context, o *order.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, o.OrderNumber)
}

func (n *recordingNotifier) OrderStatusChanged(_ context.Context, _ *order.Order, status order.OrderStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, status)
}

type failingCreditor struct{}

func (failingCreditor) CreditPurchaseTx(*gorm.DB, uint, string, decimal.Decimal) error {
	return errors.New("loyalty store unavailable")
}

// failingCheckout settles the cart and then fails, leaving work to roll back
type failingCheckout struct {
	next order.CartCheckout
}

func (c failingCheckout) CheckoutTx(tx *gorm.DB, userID uint, lines []cart.Line) error {
	if err := c.next.CheckoutTx(tx, userID, lines); err != nil {
		return err
	}
	return errors.New("checkout interrupted")
}

type fixture struct {
	db       *gorm.DB
	carts    *cart.Service
	loyalty  *loyalty.Service
	orders   *order.Service
	notifier *recordingNotifier
}

func setup(t *testing.T, creditor order.PointsCreditor) *fixture {
	t.Helper()
	models := append([]interface{}{&catalog.Product{}, &cart.CartItem{}}, order.AllModels()...)
	models = append(models, loyalty.AllModels()...)
	db := dbtest.Open(t, models...)
	tx := dbtest.Transactor(db)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, db.Create([]catalog.Product{
		{ID: "kwek-kwek", Name: "Kwek-Kwek", Price: decimal.NewFromInt(60), Category: catalog.CategorySnacks, Inventory: 10, Available: true},
		{ID: "lomi", Name: "Lomi", Price: decimal.NewFromInt(100), Category: catalog.CategoryNoodles, Inventory: 10, Available: true},
	}).Error)

	f := &fixture{
		db:       db,
		carts:    cart.NewService(db, tx, client, nil, logger.Discard()),
		loyalty:  loyalty.NewService(db, tx, 0, logger.Discard()),
		notifier: &recordingNotifier{},
	}
	if creditor == nil {
		creditor = f.loyalty
	}
	f.orders = order.NewService(db, tx, f.carts, creditor, f.notifier, nil, logger.Discard())
	return f
}

func (f *fixture) inventory(t *testing.T, id string) int {
	t.Helper()
	var p catalog.Product
	require.NoError(t, f.db.Where("id = ?", id).First(&p).Error)
	return p.Inventory
}

func (f *fixture) points(t *testing.T, userID uint) int64 {
	t.Helper()
	p, err := f.loyalty.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	return p.Points
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func validRequest() *order.CreateOrderRequest {
	return &order.CreateOrderRequest{
		Items: []order.ItemRequest{
			{ProductID: "kwek-kwek", Quantity: 1},
			{ProductID: "lomi", Quantity: 2},
		},
		ShippingAddress: order.Address{Line1: "12 Rizal St", Barangay: "Poblacion", City: "Amadeo", Province: "Cavite"},
		Contact:         order.Contact{Name: "Juan dela Cruz", Email: "juan@example.com", Phone: "09171234567"},
		PaymentMethod:   order.PaymentMethodCOD,
		OrderType:       order.OrderTypeDelivery,
	}
}

func (f *fixture) fillCart(t *testing.T, userID uint) {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, userID, "kwek-kwek", 1)
	require.NoError(t, err)
	c, err := f.carts.AddItem(ctx, userID, "lomi", 2)
	require.NoError(t, err)
	require.Equal(t, "260.00", c.Total().StringFixed(2))
}

func TestCreateOrderFromCart(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	f.fillCart(t, 1)

	o, err := f.orders.CreateOrder(ctx, 1, validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Regexp(t, regexp.MustCompile(`^KDA-\d{13}-[0-9A-Z]{6}$`), o.OrderNumber)
	assert.Equal(t, "260.00", o.TotalAmount.StringFixed(2))
	assert.Equal(t, order.OrderStatusPending, o.Status)
	assert.Equal(t, order.PaymentStatusPending, o.PaymentStatus)
	assert.Len(t, o.Items, 2)

	// Inventory reduced by exactly the ordered quantities
	assert.Equal(t, 9, f.inventory(t, "kwek-kwek"))
	assert.Equal(t, 8, f.inventory(t, "lomi"))

	c, err := f.carts.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	// Points wait for payment
	assert.Zero(t, f.points(t, 1))

	stored, err := f.orders.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, stored.OrderNumber)
	require.Len(t, stored.StatusHistory, 1)

	byNumber, err := f.orders.GetOrderByNumber(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, o.ID, byNumber.ID)

	assert.Equal(t, []string{o.OrderNumber}, f.notifier.created)
}

func TestCreateOrderWithoutCartReservation(t *testing.T) {
	f := setup(t, nil)

	o, err := f.orders.CreateOrder(context.Background(), 1, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "260.00", o.TotalAmount.StringFixed(2))
	assert.Equal(t, 9, f.inventory(t, "kwek-kwek"))
	assert.Equal(t, 8, f.inventory(t, "lomi"))
}

func TestCreateOrderIsAllOrNothing(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	f.fillCart(t, 1)

	orders := order.NewService(f.db, dbtest.Transactor(f.db), failingCheckout{next: f.carts}, f.loyalty, f.notifier, nil, logger.Discard())
	_, err := orders.CreateOrder(ctx, 1, validRequest())
	require.Error(t, err)

	assert.Zero(t, f.count(t, &order.Order{}))
	assert.Zero(t, f.count(t, &order.OrderItem{}))
	assert.Zero(t, f.count(t, &order.OrderStatusHistory{}))

	// Reservations and cart are exactly as before the attempt
	assert.Equal(t, 9, f.inventory(t, "kwek-kwek"))
	assert.Equal(t, 8, f.inventory(t, "lomi"))
	c, err := f.carts.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Count())
	assert.Empty(t, f.notifier.created)
}

func TestCreateOrderInsufficientInventory(t *testing.T) {
	f := setup(t, nil)
	req := validRequest()
	req.Items = []order.ItemRequest{{ProductID: "lomi", Quantity: 11}}

	_, err := f.orders.CreateOrder(context.Background(), 1, req)
	assert.ErrorIs(t, err, cart.ErrInsufficientInventory)
	assert.Zero(t, f.count(t, &order.Order{}))
	assert.Equal(t, 10, f.inventory(t, "lomi"))
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *order.CreateOrderRequest)
		field  string
	}{
		{"empty items", func(r *order.CreateOrderRequest) { r.Items = nil }, "items"},
		{"zero quantity", func(r *order.CreateOrderRequest) { r.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"missing name", func(r *order.CreateOrderRequest) { r.Contact.Name = "" }, "contact.name"},
		{"bad email", func(r *order.CreateOrderRequest) { r.Contact.Email = "nope" }, "contact.email"},
		{"missing phone", func(r *order.CreateOrderRequest) { r.Contact.Phone = " " }, "contact.phone"},
		{"unknown payment", func(r *order.CreateOrderRequest) { r.PaymentMethod = "card" }, "payment_method"},
		{"missing address", func(r *order.CreateOrderRequest) { r.ShippingAddress.Line1 = "" }, "shipping_address.line1"},
		{"preorder without time", func(r *order.CreateOrderRequest) {
			r.OrderType = order.OrderTypePreorder
			r.DeliveryDate = "2024-12-24"
		}, "delivery_time"},
		{"preorder without date", func(r *order.CreateOrderRequest) {
			r.OrderType = order.OrderTypePreorder
			r.DeliveryTime = "18:30"
		}, "delivery_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, nil)
			req := validRequest()
			tt.mutate(req)

			_, err := f.orders.CreateOrder(context.Background(), 1, req)
			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)

			// Rejected before any persistence
			assert.Zero(t, f.count(t, &order.Order{}))
			assert.Equal(t, 10, f.inventory(t, "lomi"))
		})
	}
}

func TestPickupNeedsNoAddress(t *testing.T) {
	f := setup(t, nil)
	req := validRequest()
	req.OrderType = order.OrderTypePickup
	req.ShippingAddress = order.Address{}

	_, err := f.orders.CreateOrder(context.Background(), 1, req)
	require.NoError(t, err)
}

func TestUpdateOrderStatusFlow(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	o, err := f.orders.CreateOrder(ctx, 1, validRequest())
	require.NoError(t, err)

	for _, s := range []order.OrderStatus{
		order.OrderStatusConfirmed,
		order.OrderStatusPreparing,
		order.OrderStatusReady,
		order.OrderStatusOutForDelivery,
	} {
		o, err = f.orders.UpdateOrderStatus(ctx, o.ID, s, 99, "")
		require.NoError(t, err)
		assert.Equal(t, s, o.Status)
	}

	// Backwards is rejected
	_, err = f.orders.UpdateOrderStatus(ctx, o.ID, order.OrderStatusPreparing, 99, "")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	assert.Zero(t, f.points(t, 1))

	o, err = f.orders.UpdateOrderStatus(ctx, o.ID, order.OrderStatusDelivered, 99, "")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, o.PaymentStatus, "cash on delivery is paid on delivery")
	assert.NotNil(t, o.DeliveredAt)
	assert.EqualValues(t, 260, f.points(t, 1))

	// Delivered is terminal except for itself
	for _, s := range []order.OrderStatus{order.OrderStatusCancelled, order.OrderStatusPending, order.OrderStatusReady} {
		_, err = f.orders.UpdateOrderStatus(ctx, o.ID, s, 99, "")
		assert.ErrorIs(t, err, order.ErrInvalidTransition, "delivered -> %s", s)
	}
	_, err = f.orders.UpdateOrderStatus(ctx, o.ID, order.OrderStatusDelivered, 99, "")
	require.NoError(t, err)
	assert.EqualValues(t, 260, f.points(t, 1))

	assert.Len(t, f.notifier.statuses, 5)

	stored, err := f.orders.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, stored.StatusHistory, 6)

	_, err = f.orders.UpdateOrderStatus(ctx, o.ID, "shipped", 99, "")
	assert.True(t, apperrors.IsValidation(err))
	_, err = f.orders.UpdateOrderStatus(ctx, "missing", order.OrderStatusConfirmed, 99, "")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestCancelRestoresInventory(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	o, err := f.orders.CreateOrder(ctx, 1, validRequest())
	require.NoError(t, err)
	require.Equal(t, 8, f.inventory(t, "lomi"))

	_, err = f.orders.CancelOrder(ctx, o.ID, 2, "not mine")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	o, err = f.orders.CancelOrder(ctx, o.ID, 1, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCancelled, o.Status)
	assert.Equal(t, 10, f.inventory(t, "lomi"))
	assert.Equal(t, 10, f.inventory(t, "kwek-kwek"))

	// Cancelling twice is a no-op and does not restore stock again
	_, err = f.orders.CancelOrder(ctx, o.ID, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 10, f.inventory(t, "lomi"))
}

func TestCustomerCannotCancelConfirmedOrder(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	o, err := f.orders.CreateOrder(ctx, 1, validRequest())
	require.NoError(t, err)

	_, err = f.orders.UpdateOrderStatus(ctx, o.ID, order.OrderStatusConfirmed, 99, "")
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(ctx, o.ID, 1, "")
	assert.ErrorIs(t, err, order.ErrCannotCancel)

	// Staff may still cancel
	o, err = f.orders.UpdateOrderStatus(ctx, o.ID, order.OrderStatusCancelled, 99, "out of stock")
	require.NoError(t, err)
	assert.NotNil(t, o.CancelledAt)
}

func TestGCashPaymentFlow(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	req := validRequest()
	req.PaymentMethod = order.PaymentMethodGCash
	o, err := f.orders.CreateOrder(ctx, 1, req)
	require.NoError(t, err)

	_, err = f.orders.VerifyPayment(ctx, o.ID, 99, true, "")
	assert.ErrorIs(t, err, order.ErrInvalidPaymentTransition)

	_, err = f.orders.SubmitPaymentProof(ctx, o.ID, 1, "", "https://img/x.png")
	assert.True(t, apperrors.IsValidation(err))

	o, err = f.orders.SubmitPaymentProof(ctx, o.ID, 1, "1029384756", "https://img/x.png")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusProofSubmitted, o.PaymentStatus)
	assert.Equal(t, "1029384756", o.PaymentProof.ReferenceNumber)
	assert.NotNil(t, o.PaymentProof.SubmittedAt)

	_, err = f.orders.SubmitPaymentProof(ctx, o.ID, 1, "again", "https://img/y.png")
	assert.ErrorIs(t, err, order.ErrInvalidPaymentTransition)

	assert.Zero(t, f.points(t, 1))

	o, err = f.orders.VerifyPayment(ctx, o.ID, 99, true, "matched statement")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, o.PaymentStatus)
	require.NotNil(t, o.PaymentProof.VerifiedBy)
	assert.EqualValues(t, 99, *o.PaymentProof.VerifiedBy)
	assert.EqualValues(t, 260, f.points(t, 1))

	// Delivery after verification does not credit again
	_, err = f.orders.UpdateOrderStatus(ctx, o.ID, order.OrderStatusDelivered, 99, "")
	require.NoError(t, err)
	assert.EqualValues(t, 260, f.points(t, 1))

	_, err = f.orders.VerifyPayment(ctx, o.ID, 99, false, "")
	assert.ErrorIs(t, err, order.ErrInvalidPaymentTransition)
}

func TestCancelledOrdersEarnNoPoints(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		o, err := f.orders.CreateOrder(ctx, 1, validRequest())
		require.NoError(t, err)
		_, err = f.orders.CancelOrder(ctx, o.ID, 1, "")
		require.NoError(t, err)
	}

	assert.Zero(t, f.points(t, 1))
	assert.Zero(t, f.count(t, &loyalty.Credit{}))
	assert.Equal(t, 10, f.inventory(t, "lomi"))
}

func TestVerifyPaymentRollsBackWhenCreditFails(t *testing.T) {
	f := setup(t, failingCreditor{})
	ctx := context.Background()
	req := validRequest()
	req.PaymentMethod = order.PaymentMethodGCash
	o, err := f.orders.CreateOrder(ctx, 1, req)
	require.NoError(t, err)
	_, err = f.orders.SubmitPaymentProof(ctx, o.ID, 1, "1029384756", "https://img/x.png")
	require.NoError(t, err)

	_, err = f.orders.VerifyPayment(ctx, o.ID, 99, true, "")
	require.Error(t, err)

	stored, err := f.orders.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusProofSubmitted, stored.PaymentStatus)
	assert.Nil(t, stored.PaymentProof.VerifiedBy)

	// Rejection credits nothing, so it goes through
	stored, err = f.orders.VerifyPayment(ctx, o.ID, 99, false, "blurry screenshot")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusFailed, stored.PaymentStatus)
}

func TestVerifyPaymentOnlyForLiveGCashOrders(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	cod, err := f.orders.CreateOrder(ctx, 1, validRequest())
	require.NoError(t, err)
	_, err = f.orders.VerifyPayment(ctx, cod.ID, 99, true, "")
	assert.ErrorIs(t, err, order.ErrInvalidPaymentTransition)

	stored, err := f.orders.GetOrderByID(ctx, cod.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPending, stored.PaymentStatus)

	req := validRequest()
	req.PaymentMethod = order.PaymentMethodGCash
	gcash, err := f.orders.CreateOrder(ctx, 1, req)
	require.NoError(t, err)
	_, err = f.orders.SubmitPaymentProof(ctx, gcash.ID, 1, "1029384756", "https://img/x.png")
	require.NoError(t, err)
	_, err = f.orders.CancelOrder(ctx, gcash.ID, 1, "")
	require.NoError(t, err)

	_, err = f.orders.VerifyPayment(ctx, gcash.ID, 99, true, "")
	assert.ErrorIs(t, err, order.ErrInvalidPaymentTransition)

	stored, err = f.orders.GetOrderByID(ctx, gcash.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCancelled, stored.Status)
	assert.Equal(t, order.PaymentStatusProofSubmitted, stored.PaymentStatus)
	assert.Zero(t, f.points(t, 1))
}

func TestCancellingPaidOrderFlagsRefund(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	log, hook := test.NewNullLogger()
	orders := order.NewService(f.db, dbtest.Transactor(f.db), f.carts, f.loyalty, f.notifier, nil, log)

	req := validRequest()
	req.PaymentMethod = order.PaymentMethodGCash
	o, err := orders.CreateOrder(ctx, 1, req)
	require.NoError(t, err)
	_, err = orders.SubmitPaymentProof(ctx, o.ID, 1, "1029384756", "https://img/x.png")
	require.NoError(t, err)
	_, err = orders.VerifyPayment(ctx, o.ID, 99, true, "")
	require.NoError(t, err)

	o, err = orders.UpdateOrderStatus(ctx, o.ID, order.OrderStatusCancelled, 99, "kitchen closed")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, o.PaymentStatus)

	last := o.StatusHistory[len(o.StatusHistory)-1]
	assert.Equal(t, order.OrderStatusCancelled, last.Status)
	assert.Contains(t, last.Comment, "refund of PHP 260.00 due")

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "Paid order cancelled, refund due" {
			warned = true
			assert.Equal(t, o.ID, entry.Data["order_id"])
		}
	}
	assert.True(t, warned)

	// Points already earned stay
	assert.EqualValues(t, 260, f.points(t, 1))
}

func TestPaymentProofRejectedForCOD(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	o, err := f.orders.CreateOrder(ctx, 1, validRequest())
	require.NoError(t, err)

	_, err = f.orders.SubmitPaymentProof(ctx, o.ID, 1, "123", "https://img/x.png")
	assert.True(t, apperrors.IsValidation(err))
}

func TestListOrders(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		req := validRequest()
		req.Items = []order.ItemRequest{{ProductID: "kwek-kwek", Quantity: 1}}
		_, err := f.orders.CreateOrder(ctx, 1, req)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	_, err := f.orders.CreateOrder(ctx, 2, validRequest())
	require.NoError(t, err)

	page, err := f.orders.GetUserOrders(ctx, 1, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)
	assert.Len(t, page.Orders, 2)

	all, err := f.orders.ListOrders(ctx, &order.OrderListRequest{Status: order.OrderStatusPending, SortBy: "total_amount", SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, all.Orders, 4)
	assert.Equal(t, "260.00", all.Orders[0].TotalAmount.StringFixed(2))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, order.CanTransition(order.OrderStatusPending, order.OrderStatusPreparing))
	assert.True(t, order.CanTransition(order.OrderStatusReady, order.OrderStatusDelivering))
	assert.False(t, order.CanTransition(order.OrderStatusDelivering, order.OrderStatusOutForDelivery))
	assert.True(t, order.CanTransition(order.OrderStatusReady, order.OrderStatusCancelled))
	assert.False(t, order.CanTransition(order.OrderStatusCancelled, order.OrderStatusPending))
	assert.True(t, order.CanTransition(order.OrderStatusDelivered, order.OrderStatusDelivered))
	assert.False(t, order.CanTransition(order.OrderStatusPending, "shipped"))
}

func TestGenerateOrderNumber(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	n, err := order.GenerateOrderNumber(now)
	require.NoError(t, err)
	assert.Regexp(t, `^KDA-1718000000123-[0-9A-Z]{6}$`, n)

	m, err := order.GenerateOrderNumber(now)
	require.NoError(t, err)
	assert.NotEqual(t, n, m)
}
