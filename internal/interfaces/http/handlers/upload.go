// internal/interfaces/http/handlers/upload.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/upload"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UploadHandler handles GCash payment proof uploads
type UploadHandler struct {
	uploadService *upload.Service
	orderService  *order.Service
	logger        *logrus.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService *upload.Service, orderService *order.Service, logger *logrus.Logger) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		orderService:  orderService,
		logger:        logger,
	}
}

// UploadPaymentProof handles POST /orders/:id/payment-proof. The multipart
// form carries reference_number and the screenshot file.
func (h *UploadHandler) UploadPaymentProof(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	orderID := c.Param("id")

	// Check ownership before anything is stored
	if _, err := h.orderService.GetUserOrder(ctx, orderID, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	reference := strings.TrimSpace(c.PostForm("reference_number"))
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "reference_number: is required",
			"field": "reference_number",
		})
		return
	}

	header, err := c.FormFile("screenshot")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "screenshot: file is required",
			"field": "screenshot",
		})
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer file.Close()

	stored, err := h.uploadService.StorePaymentProof(ctx, userID, orderID, file, header)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	updated, err := h.orderService.SubmitPaymentProof(ctx, orderID, userID, reference, stored.URL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment proof submitted successfully",
		"data": gin.H{
			"order": updated,
			"file":  stored,
		},
	})
}
