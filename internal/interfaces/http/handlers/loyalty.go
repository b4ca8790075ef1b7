package handlers

import (
	"net/http"
	"strconv"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/loyalty"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LoyaltyHandler handles points and rewards
type LoyaltyHandler struct {
	loyaltyService *loyalty.Service
	logger         *logrus.Logger
}

// NewLoyaltyHandler creates a new loyalty handler
func NewLoyaltyHandler(loyaltyService *loyalty.Service, logger *logrus.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{
		loyaltyService: loyaltyService,
		logger:         logger,
	}
}

// GetProfile handles GET /loyalty
func (h *LoyaltyHandler) GetProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	profile, err := h.loyaltyService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Loyalty profile retrieved successfully",
		"data":    profile,
	})
}

// GetRewardsCatalog handles GET /loyalty/rewards
func (h *LoyaltyHandler) GetRewardsCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Rewards retrieved successfully",
		"data":    loyalty.Rewards,
	})
}

// RedeemReward handles POST /loyalty/redeem
func (h *LoyaltyHandler) RedeemReward(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req loyalty.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	reward, err := h.loyaltyService.RedeemReward(c.Request.Context(), userID, req.RewardCode)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Reward redeemed successfully",
		"data":    reward,
	})
}

// UseReward handles POST /loyalty/rewards/:id/use
func (h *LoyaltyHandler) UseReward(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	rewardID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid reward ID",
		})
		return
	}

	reward, err := h.loyaltyService.UseReward(c.Request.Context(), userID, uint(rewardID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reward used successfully",
		"data":    reward,
	})
}
