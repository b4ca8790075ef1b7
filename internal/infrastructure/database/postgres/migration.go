// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"fmt"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/cart"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/inventory"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/loyalty"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/review"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/share"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/upload"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/user"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MenuSyncer reconciles the stored catalog with the static menu
type MenuSyncer interface {
	Sync(ctx context.Context) (*catalog.SyncResult, error)
}

// AdminSeeder creates the bootstrap admin account
type AdminSeeder interface {
	EnsureAdmin(ctx context.Context, email, password, name string) (bool, error)
}

// SeedOptions configures SeedInitialData
type SeedOptions struct {
	Menu          MenuSyncer
	Admins        AdminSeeder
	AdminEmail    string
	AdminPassword string
}

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every table in dependency order
func Models() []interface{} {
	models := []interface{}{
		&user.User{},
		&catalog.Product{},
		&cart.CartItem{},
		&inventory.Movement{},
	}
	models = append(models, order.AllModels()...)
	models = append(models, loyalty.AllModels()...)
	models = append(models, review.AllModels()...)
	models = append(models, &share.Share{}, &upload.UploadedFile{})
	return models
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates the composite indexes the list queries rely on
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_category_available ON products(category, available)",
		"CREATE INDEX IF NOT EXISTS idx_products_inventory ON products(inventory)",

		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment ON orders(payment_method, payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_inventory_movements_product_created ON inventory_movements(product_id, created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_loyalty_rewards_user_used ON loyalty_rewards(user_id, used)",
		"CREATE INDEX IF NOT EXISTS idx_reviews_product_created ON reviews(product_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_social_shares_product_platform ON social_shares(product_id, platform)",
		"CREATE INDEX IF NOT EXISTS idx_uploaded_files_order ON uploaded_files(order_id)",
	}

	failed := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("Failed to create index")
			failed++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": len(indexes) - failed,
		"failed":  failed,
	}).Info("Database indexes ensured")
	return nil
}

// SeedInitialData loads the static menu and the bootstrap admin. Both steps
// are idempotent.
func (m *Migration) SeedInitialData(ctx context.Context, opts SeedOptions) error {
	if opts.Menu != nil {
		result, err := opts.Menu.Sync(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed menu: %w", err)
		}
		m.logger.WithFields(logrus.Fields{
			"inserted":  len(result.Inserted),
			"updated":   len(result.Updated),
			"unchanged": result.Unchanged,
		}).Info("Menu seeded")
	}

	if opts.Admins != nil && opts.AdminEmail != "" {
		created, err := opts.Admins.EnsureAdmin(ctx, opts.AdminEmail, opts.AdminPassword, "Store Admin")
		if err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		if created {
			m.logger.WithField("email", opts.AdminEmail).Info("Created admin user")
		}
	}
	return nil
}
