package cart_test

import (
	"context"
	"sync"
	"testing"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/cart"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database/dbtest"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/cache"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc   *cart.Service
	db    *gorm.DB
	redis *miniredis.Miniredis
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t, &catalog.Product{}, &cart.CartItem{})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mem := cache.NewMemory(0)
	t.Cleanup(func() { mem.Close() })

	require.NoError(t, db.Create([]catalog.Product{
		{ID: "lumpia", Name: "Lumpia", Price: decimal.NewFromInt(60), Category: catalog.CategorySnacks, Inventory: 10, Available: true},
		{ID: "pancit", Name: "Pancit", Price: decimal.NewFromInt(100), Category: catalog.CategoryNoodles, Inventory: 5, Available: true},
		{ID: "hidden", Name: "Hidden", Price: decimal.NewFromInt(1), Category: catalog.CategoryDrinks, Inventory: 5, Available: false},
	}).Error)

	return &fixture{
		svc:   cart.NewService(db, dbtest.Transactor(db), client, mem, logger.Discard()),
		db:    db,
		redis: mr,
	}
}

func (f *fixture) inventory(t *testing.T, id string) int {
	t.Helper()
	var p catalog.Product
	require.NoError(t, f.db.Where("id = ?", id).First(&p).Error)
	return p.Inventory
}

func TestAddItemReservesAndTotals(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, 1, "lumpia", 0)
	require.NoError(t, err)
	c, err := f.svc.AddItem(ctx, 1, "pancit", 2)
	require.NoError(t, err)

	assert.Equal(t, "260.00", c.Total().StringFixed(2))
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, 9, f.inventory(t, "lumpia"))
	assert.Equal(t, 3, f.inventory(t, "pancit"))

	total, err := f.svc.Total(ctx, 1)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(260)))

	// Adding again to the same line accumulates
	c, err = f.svc.AddItem(ctx, 1, "pancit", 1)
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)
	assert.Equal(t, 4, c.Count())
}

func TestAddItemInsufficientInventoryHasNoEffect(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, 1, "pancit", 3)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, 1, "pancit", 3)
	assert.ErrorIs(t, err, cart.ErrInsufficientInventory)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	c, err := f.svc.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, 2, f.inventory(t, "pancit"))
}

func TestAddItemRejectsUnknownAndHiddenProducts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, 1, "ghost", 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = f.svc.AddItem(ctx, 1, "hidden", 1)
	assert.ErrorIs(t, err, cart.ErrProductUnavailable)

	_, err = f.svc.AddItem(ctx, 1, "lumpia", -2)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateRemoveClearReturnStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, 1, "lumpia", 4)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, 1, "pancit", 2)
	require.NoError(t, err)

	_, err = f.svc.UpdateQuantity(ctx, 1, "lumpia", 7)
	require.NoError(t, err)
	assert.Equal(t, 3, f.inventory(t, "lumpia"))

	_, err = f.svc.UpdateQuantity(ctx, 1, "lumpia", 2)
	require.NoError(t, err)
	assert.Equal(t, 8, f.inventory(t, "lumpia"))

	_, err = f.svc.UpdateQuantity(ctx, 1, "lumpia", 20)
	assert.ErrorIs(t, err, cart.ErrInsufficientInventory)
	assert.Equal(t, 8, f.inventory(t, "lumpia"))

	c, err := f.svc.UpdateQuantity(ctx, 1, "lumpia", 0)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
	assert.Equal(t, 10, f.inventory(t, "lumpia"))

	_, err = f.svc.RemoveItem(ctx, 1, "lumpia")
	assert.ErrorIs(t, err, cart.ErrItemNotInCart)

	require.NoError(t, f.svc.Clear(ctx, 1))
	assert.Equal(t, 5, f.inventory(t, "pancit"))

	count, err := f.svc.Count(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for user := uint(1); user <= 10; user++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := f.svc.AddItem(ctx, userID, "pancit", 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, cart.ErrInsufficientInventory)
				fail++
			}
		}(user)
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 5, fail)
	assert.Equal(t, 0, f.inventory(t, "pancit"))

	var reserved int64
	require.NoError(t, f.db.Model(&cart.CartItem{}).Where("product_id = ?", "pancit").
		Select("COALESCE(SUM(quantity), 0)").Scan(&reserved).Error)
	assert.EqualValues(t, 5, reserved)
}

func TestCheckoutTxNetsOutReservations(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, 1, "lumpia", 2)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, 1, "pancit", 1)
	require.NoError(t, err)

	// Order more lumpia than reserved and no pancit at all
	err = f.db.Transaction(func(tx *gorm.DB) error {
		return f.svc.CheckoutTx(tx, 1, []cart.Line{{ProductID: "lumpia", Quantity: 3}})
	})
	require.NoError(t, err)

	assert.Equal(t, 7, f.inventory(t, "lumpia"))
	assert.Equal(t, 5, f.inventory(t, "pancit"))

	c, err := f.svc.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestCheckoutTxFailureRollsBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, 1, "lumpia", 2)
	require.NoError(t, err)

	err = f.db.Transaction(func(tx *gorm.DB) error {
		return f.svc.CheckoutTx(tx, 1, []cart.Line{
			{ProductID: "lumpia", Quantity: 2},
			{ProductID: "pancit", Quantity: 6},
		})
	})
	assert.ErrorIs(t, err, cart.ErrInsufficientInventory)

	assert.Equal(t, 8, f.inventory(t, "lumpia"))
	assert.Equal(t, 5, f.inventory(t, "pancit"))
	c, err := f.svc.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count())
}

func TestGuestCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.svc.AddGuestItem(ctx, "sess-1", "lumpia", 2)
	require.NoError(t, err)
	assert.Equal(t, "120.00", c.Total().StringFixed(2))
	assert.Equal(t, 10, f.inventory(t, "lumpia"), "guest carts do not reserve")
	assert.True(t, f.redis.Exists("cart:session:sess-1"))

	_, err = f.svc.AddGuestItem(ctx, "sess-1", "pancit", 6)
	assert.ErrorIs(t, err, cart.ErrInsufficientInventory)

	c, err = f.svc.UpdateGuestQuantity(ctx, "sess-1", "lumpia", 0)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = f.svc.UpdateGuestQuantity(ctx, "sess-1", "pancit", 1)
	assert.ErrorIs(t, err, cart.ErrItemNotInCart)

	_, err = f.svc.GetGuestCart(ctx, "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestMergeGuestCartPolicies(t *testing.T) {
	tests := []struct {
		policy     cart.MergePolicy
		wantLumpia int
		wantPancit int
	}{
		{cart.MergeKeepAccount, 1, 2},
		{cart.MergeSum, 4, 2},
		{cart.MergeReplace, 3, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()

			_, err := f.svc.AddItem(ctx, 1, "lumpia", 1)
			require.NoError(t, err)
			_, err = f.svc.AddGuestItem(ctx, "sess", "lumpia", 3)
			require.NoError(t, err)
			_, err = f.svc.AddGuestItem(ctx, "sess", "pancit", 2)
			require.NoError(t, err)

			c, err := f.svc.MergeGuestCart(ctx, 1, "sess", tt.policy)
			require.NoError(t, err)

			got := map[string]int{}
			for _, item := range c.Items {
				got[item.ProductID] = item.Quantity
			}
			assert.Equal(t, tt.wantLumpia, got["lumpia"])
			assert.Equal(t, tt.wantPancit, got["pancit"])

			// Reservations follow the merged cart exactly
			assert.Equal(t, 10-tt.wantLumpia, f.inventory(t, "lumpia"))
			assert.Equal(t, 5-tt.wantPancit, f.inventory(t, "pancit"))
			assert.False(t, f.redis.Exists("cart:session:sess"))
		})
	}
}

func TestMergeGuestCartIsAllOrNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.AddGuestItem(ctx, "sess", "lumpia", 2)
	require.NoError(t, err)
	_, err = f.svc.AddGuestItem(ctx, "sess", "pancit", 5)
	require.NoError(t, err)

	// Someone else takes pancit stock before the merge
	_, err = f.svc.AddItem(ctx, 2, "pancit", 1)
	require.NoError(t, err)

	_, err = f.svc.MergeGuestCart(ctx, 1, "sess", cart.MergeSum)
	assert.ErrorIs(t, err, cart.ErrInsufficientInventory)

	c, err := f.svc.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 10, f.inventory(t, "lumpia"))
	assert.True(t, f.redis.Exists("cart:session:sess"), "guest cart kept for retry")

	_, err = f.svc.MergeGuestCart(ctx, 1, "sess", "union")
	assert.True(t, apperrors.IsValidation(err))
}

func TestCartJSONIncludesTotals(t *testing.T) {
	c := &cart.Cart{Items: []cart.CartItem{
		{ProductID: "a", Price: decimal.NewFromInt(60), Quantity: 1},
		{ProductID: "b", Price: decimal.NewFromInt(100), Quantity: 2},
	}}
	data, err := c.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total":"260.00"`)
	assert.Contains(t, string(data), `"count":3`)
}
