// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/http/handlers"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/http/middleware"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/auth"
	"github.com/gin-gonic/gin"
)

// OpenPaths are served to any origin
var OpenPaths = []string{"/api/products", "/api/sync-products"}

// Handlers bundles every HTTP handler
type Handlers struct {
	Auth         *handlers.AuthHandler
	Profile      *handlers.UserProfileHandler
	Product      *handlers.ProductHandler
	Cart         *handlers.CartHandler
	Order        *handlers.OrderHandler
	Upload       *handlers.UploadHandler
	Payment      *handlers.PaymentHandler
	Invoice      *handlers.InvoiceHandler
	Inventory    *handlers.InventoryHandler
	Analytics    *handlers.AnalyticsHandler
	Loyalty      *handlers.LoyaltyHandler
	Review       *handlers.ReviewHandler
	Notification *handlers.NotificationHandler
	Diagnostics  *handlers.DiagnosticsHandler
}

// SetupRoutes registers the storefront routes under /api and the REST
// surface under /api/v1
func SetupRoutes(r *gin.Engine, h *Handlers, tokens *auth.JWTManager) {
	r.GET("/health", h.Diagnostics.Health)
	r.GET("/ready", h.Diagnostics.Ready)

	SetupStorefrontRoutes(r.Group("/api"), h, tokens)

	v1 := r.Group("/api/v1")
	SetupAuthRoutes(v1, h, tokens)
	SetupUserRoutes(v1, h, tokens)
	SetupProductRoutes(v1, h, tokens)
	SetupOrderRoutes(v1, h, tokens)
	SetupLoyaltyRoutes(v1, h, tokens)
	SetupNotificationRoutes(v1, h, tokens)
	SetupAdminRoutes(v1, h, tokens)
}

// SetupStorefrontRoutes sets up the /api routes the storefront calls directly
func SetupStorefrontRoutes(rg *gin.RouterGroup, h *Handlers, tokens *auth.JWTManager) {
	requireAuth := middleware.AuthMiddleware(tokens)
	requireAdmin := middleware.AdminMiddleware()

	rg.GET("/menu", h.Product.GetMenu)
	rg.POST("/menu", requireAuth, requireAdmin, h.Product.UpsertMenuItem)

	rg.GET("/products", h.Product.GetProducts)
	rg.GET("/sync-products", h.Product.SyncStatus)
	rg.POST("/sync-products", h.Product.SyncProducts)

	rg.POST("/orders/create", requireAuth, h.Order.CreateOrderCompat)
	rg.PUT("/users/update", requireAuth, h.Profile.UpdateProfile)

	notifications := rg.Group("/notifications")
	notifications.Use(requireAuth, requireAdmin)
	{
		notifications.POST("", h.Notification.NotifyOrder)
		notifications.POST("/email", h.Notification.SendEmail)
		notifications.POST("/sms", h.Notification.SendSMS)
	}

	rg.GET("/test-firebase", h.Diagnostics.StoreDiagnostics)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, h *Handlers, tokens *auth.JWTManager) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.RefreshToken)
	}
}

// SetupUserRoutes sets up user related routes
func SetupUserRoutes(rg *gin.RouterGroup, h *Handlers, tokens *auth.JWTManager) {
	users := rg.Group("/users")
	users.Use(middleware.AuthMiddleware(tokens))
	{
		users.GET("/me", h.Profile.GetProfile)
		users.PUT("/me", h.Profile.UpdateProfile)
		users.PUT("/me/password", h.Profile.ChangePassword)
	}
}

// SetupProductRoutes sets up product, review and share routes
func SetupProductRoutes(rg *gin.RouterGroup, h *Handlers, tokens *auth.JWTManager) {
	requireAuth := middleware.AuthMiddleware(tokens)

	products := rg.Group("/products")
	products.Use(middleware.OptionalAuthMiddleware(tokens))
	{
		products.GET("", h.Product.GetProducts)
		products.GET("/:id", h.Product.GetProduct)

		products.GET("/:id/reviews", h.Review.GetProductReviews)
		products.POST("/:id/reviews", requireAuth, h.Review.CreateReview)

		products.GET("/:id/shares", h.Review.GetShareCounts)
		products.POST("/:id/shares", h.Review.RecordShare)
	}

	rg.DELETE("/reviews/:id", requireAuth, h.Review.DeleteReview)
}

// SetupOrderRoutes sets up order and cart routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *Handlers, tokens *auth.JWTManager) {
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(tokens))
	{
		orders.GET("", h.Order.GetOrders)
		orders.POST("", h.Order.CreateOrder)
		orders.GET("/:id", h.Order.GetOrder)
		orders.POST("/:id/cancel", h.Order.CancelOrder)
		orders.POST("/:id/payment-proof", h.Upload.UploadPaymentProof)
		orders.GET("/:id/receipt", h.Invoice.GetReceipt)
	}

	// Guests get a session cart, signed-in users their account cart
	cart := rg.Group("/cart")
	cart.Use(middleware.OptionalAuthMiddleware(tokens))
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("/items", h.Cart.AddToCart)
		cart.PUT("/items/:product_id", h.Cart.UpdateCartItem)
		cart.DELETE("/items/:product_id", h.Cart.RemoveFromCart)
		cart.DELETE("", h.Cart.ClearCart)
		cart.POST("/merge", middleware.AuthMiddleware(tokens), h.Cart.MergeGuestCart)
	}
}

// SetupLoyaltyRoutes sets up points and rewards routes
func SetupLoyaltyRoutes(rg *gin.RouterGroup, h *Handlers, tokens *auth.JWTManager) {
	rg.GET("/loyalty/rewards", h.Loyalty.GetRewardsCatalog)

	loyalty := rg.Group("/loyalty")
	loyalty.Use(middleware.AuthMiddleware(tokens))
	{
		loyalty.GET("", h.Loyalty.GetProfile)
		loyalty.POST("/redeem", h.Loyalty.RedeemReward)
		loyalty.POST("/rewards/:id/use", h.Loyalty.UseReward)
	}
}

// SetupNotificationRoutes sets up the in-app inbox routes
func SetupNotificationRoutes(rg *gin.RouterGroup, h *Handlers, tokens *auth.JWTManager) {
	inbox := rg.Group("/notifications")
	inbox.Use(middleware.AuthMiddleware(tokens))
	{
		inbox.GET("", h.Notification.GetInbox)
		inbox.PUT("/read-all", h.Notification.MarkAllRead)
		inbox.PUT("/:id/read", h.Notification.MarkRead)
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, h *Handlers, tokens *auth.JWTManager) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokens))
	admin.Use(middleware.AdminMiddleware())
	{
		admin.GET("/dashboard", h.Analytics.GetDashboard)

		orders := admin.Group("/orders")
		{
			orders.GET("", h.Order.AdminGetOrders)
			orders.PUT("/:id/status", h.Order.AdminUpdateOrderStatus)
			orders.POST("/:id/verify-payment", h.Payment.VerifyPayment)
		}

		admin.GET("/products/:id/inventory", h.Inventory.GetHistory)
		admin.PUT("/products/:id/inventory", h.Inventory.AdjustInventory)
	}
}
