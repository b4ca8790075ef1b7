// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/inventory"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// InventoryHandler handles admin stock adjustments
type InventoryHandler struct {
	inventoryService *inventory.Service
	logger           *logrus.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventory.Service, logger *logrus.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// AdjustInventory handles PUT /admin/products/:id/inventory
func (h *InventoryHandler) AdjustInventory(c *gin.Context) {
	adminID, ok := requireUser(c)
	if !ok {
		return
	}

	var req inventory.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	result, err := h.inventoryService.Adjust(c.Request.Context(), c.Param("id"), &req, adminID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Inventory updated successfully",
		"data":    result,
	})
}

// GetHistory handles GET /admin/products/:id/inventory
func (h *InventoryHandler) GetHistory(c *gin.Context) {
	page, limit := pageParams(c)
	history, err := h.inventoryService.History(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Inventory history retrieved successfully",
		"data":    history,
	})
}
