// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"net/http"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaymentHandler handles admin review of GCash payments
type PaymentHandler struct {
	orderService *order.Service
	logger       *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(orderService *order.Service, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// VerifyPaymentRequest is an admin decision on a payment proof
type VerifyPaymentRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Note     string `json:"note"`
}

// VerifyPayment handles POST /admin/orders/:id/verify-payment
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	adminID, ok := requireUser(c)
	if !ok {
		return
	}

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	updated, err := h.orderService.VerifyPayment(c.Request.Context(), c.Param("id"), adminID, *req.Approved, req.Note)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "Payment verified successfully"
	if !*req.Approved {
		message = "Payment rejected"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    updated,
	})
}
