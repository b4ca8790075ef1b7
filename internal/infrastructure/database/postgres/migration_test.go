package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database/dbtest"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMenu struct {
	calls int
	err   error
}

func (f *fakeMenu) Sync(ctx context.Context) (*catalog.SyncResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &catalog.SyncResult{Inserted: []string{"adobo"}}, nil
}

type fakeAdmins struct {
	email string
}

func (f *fakeAdmins) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	f.email = email
	return true, nil
}

func TestRunAutoMigrationsCreatesTables(t *testing.T) {
	db := dbtest.Open(t)
	m := NewMigration(db, logger.Discard())

	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.CreateIndexes())

	for _, table := range []string{
		"users", "products", "cart_items", "inventory_movements", "orders", "order_items", "order_status_history",
		"loyalty_profiles", "loyalty_rewards", "loyalty_credits", "reviews", "social_shares", "uploaded_files",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("orders", "idx_orders_user_created"))

	// Running twice is harmless
	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.CreateIndexes())
}

func TestSeedInitialData(t *testing.T) {
	m := NewMigration(dbtest.Open(t), logger.Discard())
	menu := &fakeMenu{}
	admins := &fakeAdmins{}

	err := m.SeedInitialData(context.Background(), SeedOptions{
		Menu:          menu,
		Admins:        admins,
		AdminEmail:    "owner@kusina.example",
		AdminPassword: "Sinigang2024",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, menu.calls)
	assert.Equal(t, "owner@kusina.example", admins.email)

	// No admin email configured skips the admin step
	admins.email = ""
	require.NoError(t, m.SeedInitialData(context.Background(), SeedOptions{Menu: menu, Admins: admins}))
	assert.Empty(t, admins.email)

	menu.err = errors.New("boom")
	assert.Error(t, m.SeedInitialData(context.Background(), SeedOptions{Menu: menu}))
}
