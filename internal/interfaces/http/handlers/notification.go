package handlers

import (
	"errors"
	"net/http"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/notification"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/email"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/sms"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NotificationHandler sends order notifications and serves the in-app inbox
type NotificationHandler struct {
	dispatcher   *notification.Dispatcher
	inbox        *notification.Inbox
	orderService *order.Service
	logger       *logrus.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(dispatcher *notification.Dispatcher, inbox *notification.Inbox, orderService *order.Service, logger *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{
		dispatcher:   dispatcher,
		inbox:        inbox,
		orderService: orderService,
		logger:       logger,
	}
}

// OrderNotificationRequest asks for a status notification about an order.
// Status defaults to the order's current status.
type OrderNotificationRequest struct {
	OrderID string            `json:"orderId" binding:"required"`
	Status  order.OrderStatus `json:"status"`
}

// EmailRequest is a direct email
type EmailRequest struct {
	To      string `json:"to" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// SMSRequest is a direct text message
type SMSRequest struct {
	To      string `json:"to" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// NotifyOrder handles POST /api/notifications
func (h *NotificationHandler) NotifyOrder(c *gin.Context) {
	var req OrderNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	found, err := h.orderService.GetOrderByID(c.Request.Context(), req.OrderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := req.Status
	if status == "" {
		status = found.Status
	}
	if !status.IsValid() {
		respondError(c, h.logger, apperrors.Validation("status", "unknown status %q", status))
		return
	}

	result := h.dispatcher.NotifyOrder(c.Request.Context(), found, status)
	c.JSON(http.StatusOK, gin.H{
		"message": "Notification processed",
		"data": gin.H{
			"success": result.Success(),
			"email":   result.Email,
			"sms":     result.SMS,
		},
	})
}

// SendEmail handles POST /api/notifications/email
func (h *NotificationHandler) SendEmail(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	if err := h.dispatcher.SendEmail(c.Request.Context(), req.To, req.Subject, req.HTML, req.Text); err != nil {
		h.deliveryError(c, "email", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email sent successfully",
		"data":    gin.H{"success": true},
	})
}

// SendSMS handles POST /api/notifications/sms
func (h *NotificationHandler) SendSMS(c *gin.Context) {
	var req SMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	if err := h.dispatcher.SendSMS(c.Request.Context(), req.To, req.Message); err != nil {
		h.deliveryError(c, "sms", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "SMS sent successfully",
		"data":    gin.H{"success": true},
	})
}

// GetInbox handles GET /notifications
func (h *NotificationHandler) GetInbox(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	entries, err := h.inbox.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	unread := 0
	for _, e := range entries {
		if !e.IsRead {
			unread++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notifications retrieved successfully",
		"data": gin.H{
			"notifications": entries,
			"unread_count":  unread,
		},
	})
}

// MarkRead handles PUT /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.inbox.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification marked as read",
	})
}

// MarkAllRead handles PUT /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.inbox.MarkAllRead(c.Request.Context(), userID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "All notifications marked as read",
	})
}

// deliveryError reports a failed direct send. Provider failures are a bad
// gateway rather than our own fault.
func (h *NotificationHandler) deliveryError(c *gin.Context, channel string, err error) {
	switch {
	case apperrors.IsValidation(err):
		respondError(c, h.logger, err)
	case errors.Is(err, email.ErrNotConfigured), errors.Is(err, sms.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": channel + " provider is not configured",
		})
	default:
		h.logger.WithField("channel", channel).WithError(err).Warn("Direct notification failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to send " + channel,
		})
	}
}
