// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ProductHandler handles menu and product endpoints
type ProductHandler struct {
	catalogService *catalog.Service
	logger         *logrus.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalogService *catalog.Service, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// GetMenu handles GET /api/menu. Products come back grouped by category.
func (h *ProductHandler) GetMenu(c *gin.Context) {
	var filter catalog.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindError(c, h.logger, err)
		return
	}

	products, err := h.catalogService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	grouped := make(map[catalog.Category][]catalog.Product)
	for _, p := range products {
		grouped[p.Category] = append(grouped[p.Category], p)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Menu retrieved successfully",
		"data": gin.H{
			"items":      products,
			"categories": grouped,
		},
	})
}

// UpsertMenuItem handles POST /api/menu (admin)
func (h *ProductHandler) UpsertMenuItem(c *gin.Context) {
	var req catalog.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	product, err := h.catalogService.Upsert(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Menu item saved successfully",
		"data":    product,
	})
}

// GetProducts handles GET /api/products and GET /api/v1/products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var filter catalog.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindError(c, h.logger, err)
		return
	}

	products, err := h.catalogService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Products retrieved successfully",
		"data":    products,
		"count":   len(products),
	})
}

// GetProduct handles GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.catalogService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product retrieved successfully",
		"data":    product,
	})
}

// SyncStatus handles GET /api/sync-products
func (h *ProductHandler) SyncStatus(c *gin.Context) {
	status, err := h.catalogService.SyncStatus(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sync status retrieved successfully",
		"data":    status,
	})
}

// SyncProducts handles POST /api/sync-products
func (h *ProductHandler) SyncProducts(c *gin.Context) {
	result, err := h.catalogService.Sync(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"inserted": len(result.Inserted),
		"updated":  len(result.Updated),
	}).Info("Products synced")

	c.JSON(http.StatusOK, gin.H{
		"message": "Products synced successfully",
		"data":    result,
	})
}
