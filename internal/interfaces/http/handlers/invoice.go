// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/http/middleware"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/pdf"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// InvoiceHandler serves order receipts
type InvoiceHandler struct {
	orderService *order.Service
	pdfService   *pdf.Service
	logger       *logrus.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orderService *order.Service, pdfService *pdf.Service, logger *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orderService,
		pdfService:   pdfService,
		logger:       logger,
	}
}

// GetReceipt handles GET /orders/:id/receipt. ?format=html returns the page
// without converting it to PDF.
func (h *InvoiceHandler) GetReceipt(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var (
		found *order.Order
		err   error
	)
	if middleware.IsAdminFromContext(c) {
		found, err = h.orderService.GetOrderByID(ctx, c.Param("id"))
	} else {
		found, err = h.orderService.GetUserOrder(ctx, c.Param("id"), userID)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if c.Query("format") == "html" {
		page, err := h.pdfService.RenderReceiptHTML(found)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
		return
	}

	buf, err := h.pdfService.GenerateReceipt(found)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("receipt-%s.pdf", found.OrderNumber)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
