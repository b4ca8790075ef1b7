// Package app wires the storefront services together.
package app

import (
	"fmt"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/config"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/analytics"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/cart"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/inventory"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/loyalty"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/notification"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/review"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/share"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/upload"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/user"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/http/handlers"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/http/routes"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/auth"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/cache"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/email"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/pdf"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/sms"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container holds the constructed services
type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	Tokens *auth.JWTManager

	Catalog    *catalog.Service
	Inventory  *inventory.Service
	Cart       *cart.Service
	Orders     *order.Service
	Loyalty    *loyalty.Service
	Reviews    *review.Service
	Shares     *share.Service
	Users      *user.Service
	Uploads    *upload.Service
	Analytics  *analytics.Service
	Dispatcher *notification.Dispatcher
	Inbox      *notification.Inbox
	Receipts   *pdf.Service

	closeCache func() error
}

// New builds every service on top of the given connections
func New(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger) (*Container, error) {
	queryCache, closeCache, err := cache.New(cfg.Cache.Driver, redisClient, cfg.Cache.SweepInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	storage, err := upload.NewStorage(cfg.External.Storage)
	if err != nil {
		closeCache()
		return nil, fmt.Errorf("failed to create upload storage: %w", err)
	}

	tx := database.NewTxManager(db, cfg.Database.TxMaxAttempts, cfg.Database.TxBackoff, logger)
	tokens := auth.NewJWTManager(cfg.JWT, cfg.App.Name)
	passwords := auth.NewPasswordManager(cfg.Security.BcryptCost)

	inbox := notification.NewInbox(redisClient, cfg.Notification.InboxLimit, cfg.Notification.InboxTTL)
	dispatcher := notification.NewDispatcher(
		email.NewService(cfg.External.Email, logger),
		sms.NewService(cfg.External.SMS, logger),
		inbox,
		cfg.App.StoreName,
		cfg.Notification.DispatchTimeout,
		logger,
	)

	catalogService := catalog.NewService(db, tx, queryCache, cfg.Cache.TTL, logger)
	cartService := cart.NewService(db, tx, redisClient, queryCache, logger)
	loyaltyService := loyalty.NewService(db, tx, cfg.Loyalty.RewardValidity, logger)
	orderService := order.NewService(db, tx, cartService, loyaltyService, dispatcher, queryCache, logger)

	return &Container{
		Config:     cfg,
		Logger:     logger,
		Tokens:     tokens,
		Catalog:    catalogService,
		Inventory:  inventory.NewService(db, tx, catalogService, cfg.Inventory.LowStockThreshold, logger),
		Cart:       cartService,
		Orders:     orderService,
		Loyalty:    loyaltyService,
		Reviews:    review.NewService(db, tx, queryCache, logger),
		Shares:     share.NewService(db, logger),
		Users:      user.NewService(db, passwords, tokens, logger),
		Uploads:    upload.NewService(db, storage, cfg.Upload, logger),
		Analytics:  analytics.NewService(db, cfg.Inventory.LowStockThreshold, cfg.Location()),
		Dispatcher: dispatcher,
		Inbox:      inbox,
		Receipts:   pdf.NewService(cfg.App, cfg.Location()),
		closeCache: closeCache,
	}, nil
}

// Handlers builds the HTTP handlers. checks are reported by the health and
// diagnostics endpoints.
func (c *Container) Handlers(checks map[string]handlers.HealthChecker) *routes.Handlers {
	log := c.Logger
	return &routes.Handlers{
		Auth:         handlers.NewAuthHandler(c.Users, log),
		Profile:      handlers.NewUserProfileHandler(c.Users, log),
		Product:      handlers.NewProductHandler(c.Catalog, log),
		Cart:         handlers.NewCartHandler(c.Cart, log),
		Order:        handlers.NewOrderHandler(c.Orders, log),
		Upload:       handlers.NewUploadHandler(c.Uploads, c.Orders, log),
		Payment:      handlers.NewPaymentHandler(c.Orders, log),
		Invoice:      handlers.NewInvoiceHandler(c.Orders, c.Receipts, log),
		Inventory:    handlers.NewInventoryHandler(c.Inventory, log),
		Analytics:    handlers.NewAnalyticsHandler(c.Analytics, log),
		Loyalty:      handlers.NewLoyaltyHandler(c.Loyalty, log),
		Review:       handlers.NewReviewHandler(c.Reviews, c.Shares, log),
		Notification: handlers.NewNotificationHandler(c.Dispatcher, c.Inbox, c.Orders, log),
		Diagnostics:  handlers.NewDiagnosticsHandler(checks, c.Catalog, c.Config.App.Version, c.Config.App.Environment, log),
	}
}

// Close waits for background notifications and stops the cache sweeper
func (c *Container) Close() error {
	c.Dispatcher.Wait()
	if c.closeCache != nil {
		return c.closeCache()
	}
	return nil
}
