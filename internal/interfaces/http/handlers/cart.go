// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/cart"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const sessionCookie = "session_id"

// CartHandler handles cart endpoints. Signed-in users get their reserved
// account cart; guests get a session cart keyed by cookie.
type CartHandler struct {
	cartService *cart.Service
	logger      *logrus.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		result *cart.Cart
		err    error
	)
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		result, err = h.cartService.GetCart(ctx, userID)
	} else {
		result, err = h.cartService.GetGuestCart(ctx, h.getOrCreateSessionID(c))
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    result,
	})
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req cart.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	var (
		result *cart.Cart
		err    error
	)
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		result, err = h.cartService.AddItem(ctx, userID, req.ProductID, req.Quantity)
	} else {
		result, err = h.cartService.AddGuestItem(ctx, h.getOrCreateSessionID(c), req.ProductID, req.Quantity)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart successfully",
		"data":    result,
	})
}

// UpdateCartItem handles PUT /cart/items/:product_id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	var req cart.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	result, err := h.setQuantity(c, c.Param("product_id"), req.Quantity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated successfully",
		"data":    result,
	})
}

// RemoveFromCart handles DELETE /cart/items/:product_id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	ctx := c.Request.Context()
	productID := c.Param("product_id")

	var (
		result *cart.Cart
		err    error
	)
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		result, err = h.cartService.RemoveItem(ctx, userID, productID)
	} else {
		result, err = h.cartService.UpdateGuestQuantity(ctx, h.getOrCreateSessionID(c), productID, 0)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart successfully",
		"data":    result,
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	ctx := c.Request.Context()

	var err error
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		err = h.cartService.Clear(ctx, userID)
	} else {
		err = h.cartService.ClearGuestCart(ctx, h.getOrCreateSessionID(c))
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
	})
}

// MergeGuestCart handles POST /cart/merge, called after sign-in
func (h *CartHandler) MergeGuestCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req cart.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	sessionID, err := c.Cookie(sessionCookie)
	if err != nil || sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No guest cart session",
		})
		return
	}

	result, err := h.cartService.MergeGuestCart(c.Request.Context(), userID, sessionID, req.Policy)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// The guest session is gone once merged
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{
		"message": "Guest cart merged successfully",
		"data":    result,
	})
}

func (h *CartHandler) setQuantity(c *gin.Context, productID string, qty int) (*cart.Cart, error) {
	ctx := c.Request.Context()
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		return h.cartService.UpdateQuantity(ctx, userID, productID, qty)
	}
	return h.cartService.UpdateGuestQuantity(ctx, h.getOrCreateSessionID(c), productID, qty)
}

// getOrCreateSessionID gets session ID from cookie or creates a new one
func (h *CartHandler) getOrCreateSessionID(c *gin.Context) string {
	sessionID, err := c.Cookie(sessionCookie)
	if err != nil || sessionID == "" {
		sessionID = uuid.NewString()
		c.SetCookie(sessionCookie, sessionID, 86400, "/", "", false, true)
	}
	return sessionID
}
