// internal/interfaces/http/handlers/review.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/review"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/share"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReviewHandler handles product reviews and social shares
type ReviewHandler struct {
	reviewService *review.Service
	shareService  *share.Service
	logger        *logrus.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *review.Service, shareService *share.Service, logger *logrus.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		shareService:  shareService,
		logger:        logger,
	}
}

// GetProductReviews handles GET /products/:id/reviews
func (h *ReviewHandler) GetProductReviews(c *gin.Context) {
	page, limit := pageParams(c)

	response, err := h.reviewService.ListReviews(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reviews retrieved successfully",
		"data":    response,
	})
}

// CreateReview handles POST /products/:id/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req review.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	req.ProductID = c.Param("id")

	created, err := h.reviewService.CreateReview(c.Request.Context(), userID, middleware.GetUserNameFromContext(c), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Review created successfully",
		"data":    created,
	})
}

// DeleteReview handles DELETE /reviews/:id. Admins may delete any review.
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	reviewID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid review ID",
		})
		return
	}

	if err := h.reviewService.DeleteReview(c.Request.Context(), uint(reviewID), userID, middleware.IsAdminFromContext(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Review deleted successfully",
	})
}

// RecordShare handles POST /products/:id/shares. Anonymous shares are allowed.
func (h *ReviewHandler) RecordShare(c *gin.Context) {
	var req share.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	var userID *uint
	if id, ok := middleware.GetUserIDFromContext(c); ok {
		userID = &id
	}

	recorded, err := h.shareService.Record(c.Request.Context(), c.Param("id"), userID, req.Platform)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Share recorded successfully",
		"data":    recorded,
	})
}

// GetShareCounts handles GET /products/:id/shares
func (h *ReviewHandler) GetShareCounts(c *gin.Context) {
	counts, err := h.shareService.CountsByProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Share counts retrieved successfully",
		"data":    counts,
	})
}
