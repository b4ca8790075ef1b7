package catalog_test

import (
	"context"
	"testing"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database/dbtest"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/cache"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*catalog.Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t, &catalog.Product{})
	mem := cache.NewMemory(0)
	t.Cleanup(func() { mem.Close() })
	return catalog.NewService(db, dbtest.Transactor(db), mem, 0, logger.Discard()), db
}

func TestStaticMenuParses(t *testing.T) {
	menu, err := catalog.StaticMenu()
	require.NoError(t, err)
	require.NotEmpty(t, menu)

	seen := map[catalog.Category]bool{}
	for _, p := range menu {
		assert.True(t, p.Price.IsPositive(), p.ID)
		assert.True(t, p.Available, p.ID)
		seen[p.Category] = true
	}
	for _, c := range catalog.Categories {
		assert.True(t, seen[c], "menu has no %s", c)
	}
}

func TestSyncIsIdempotentAndKeepsInventory(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	status, err := svc.SyncStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.InSync)
	assert.Len(t, status.Missing, status.StaticCount)

	first, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Len(t, first.Inserted, status.StaticCount)

	// Sell some stock and drift a price, then resync
	require.NoError(t, db.Model(&catalog.Product{}).Where("id = ?", "tapsilog").
		Updates(map[string]interface{}{"inventory": 3, "price": decimal.NewFromInt(999)}).Error)

	second, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, second.Inserted)
	assert.Equal(t, []string{"tapsilog"}, second.Updated)

	p, err := svc.Get(ctx, "tapsilog")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Inventory)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(110)))

	third, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, third.Updated)
	assert.Equal(t, status.StaticCount, third.Unchanged)

	status, err = svc.SyncStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.InSync)
}

func TestListIsCachedUntilInvalidated(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	drinks, err := svc.List(ctx, catalog.ListFilter{Category: catalog.CategoryDrinks})
	require.NoError(t, err)
	require.Len(t, drinks, 2)

	// A write that bypasses the service is not visible while cached
	require.NoError(t, db.Create(&catalog.Product{
		ID: "buko-juice", Name: "Buko Juice", Price: decimal.NewFromInt(50),
		Category: catalog.CategoryDrinks, Available: true,
	}).Error)
	drinks, err = svc.List(ctx, catalog.ListFilter{Category: catalog.CategoryDrinks})
	require.NoError(t, err)
	assert.Len(t, drinks, 2)

	svc.InvalidateCache(ctx)
	drinks, err = svc.List(ctx, catalog.ListFilter{Category: catalog.CategoryDrinks})
	require.NoError(t, err)
	assert.Len(t, drinks, 3)
}

func TestListRejectsUnknownCategory(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.List(context.Background(), catalog.ListFilter{Category: "desserts"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetMissingProduct(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpsert(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	stock := 10
	hidden := false

	created, err := svc.Upsert(ctx, &catalog.UpsertRequest{
		ID: "halo-halo", Name: "Halo-Halo", Price: decimal.RequireFromString("85.50"),
		Category: catalog.CategorySnacks, Inventory: &stock, Available: &hidden,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, created.Inventory)
	assert.False(t, created.Available)

	updated, err := svc.Upsert(ctx, &catalog.UpsertRequest{
		ID: "halo-halo", Name: "Halo-Halo Special", Price: decimal.NewFromInt(95),
		Category: catalog.CategorySnacks,
	})
	require.NoError(t, err)
	assert.Equal(t, "Halo-Halo Special", updated.Name)
	assert.Equal(t, 10, updated.Inventory, "inventory untouched when omitted")

	cases := []catalog.UpsertRequest{
		{ID: "x", Name: "", Price: decimal.NewFromInt(1), Category: catalog.CategoryDrinks},
		{ID: "x", Name: "X", Price: decimal.Zero, Category: catalog.CategoryDrinks},
		{ID: "x", Name: "X", Price: decimal.NewFromInt(1), Category: "dessert"},
		{ID: "Bad Id", Name: "X", Price: decimal.NewFromInt(1), Category: catalog.CategoryDrinks},
	}
	for _, tc := range cases {
		tc := tc
		_, err := svc.Upsert(ctx, &tc)
		assert.True(t, apperrors.IsValidation(err), "%+v", tc)
	}
}

func TestAdjustInventory(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	p, err := svc.AdjustInventory(ctx, "turon", 5)
	require.NoError(t, err)
	before := p.Inventory

	_, err = svc.AdjustInventory(ctx, "turon", -(before + 1))
	assert.True(t, apperrors.IsValidation(err))

	p, err = svc.Get(ctx, "turon")
	require.NoError(t, err)
	assert.Equal(t, before, p.Inventory)

	_, err = svc.AdjustInventory(ctx, "ghost", 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestRatingAggregate(t *testing.T) {
	var r catalog.Rating
	r = r.Add(5).Add(4).Add(4)
	assert.Equal(t, 3, r.TotalReviews)
	assert.Equal(t, 4.33, r.Average)

	r = r.Remove(5)
	assert.Equal(t, 2, r.TotalReviews)
	assert.Equal(t, 4.0, r.Average)
	assert.Equal(t, 2, r.Histogram()[4])

	r = r.Remove(4).Remove(4).Remove(4)
	assert.Equal(t, 0, r.TotalReviews)
	assert.Equal(t, 0.0, r.Average)
}
