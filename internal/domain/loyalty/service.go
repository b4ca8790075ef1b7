// internal/domain/loyalty/service.go
package loyalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultRewardValidity = 30 * 24 * time.Hour

var (
	// ErrInsufficientPoints is returned when a redemption costs more than the balance
	ErrInsufficientPoints = apperrors.Conflict("insufficient points")
	// ErrRewardNotFound is returned for unknown or foreign reward ids
	ErrRewardNotFound = apperrors.NotFound("reward not found")
	// ErrRewardUsed is returned when using a reward twice
	ErrRewardUsed = apperrors.Conflict("reward already used")
	// ErrRewardExpired is returned when using a reward past its expiry
	ErrRewardExpired = apperrors.Conflict("reward expired")
)

// Service handles loyalty business logic
type Service struct {
	db       *gorm.DB
	tx       database.Transactor
	validity time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

// NewService creates a new loyalty service
func NewService(db *gorm.DB, tx database.Transactor, rewardValidity time.Duration, logger *logrus.Logger) *Service {
	if rewardValidity <= 0 {
		rewardValidity = defaultRewardValidity
	}
	return &Service{
		db:       db,
		tx:       tx,
		validity: rewardValidity,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RedeemRequest represents a reward redemption request
type RedeemRequest struct {
	RewardCode string `json:"reward_code" binding:"required"`
}

// ProfileResponse is a profile plus progress to the next tier
type ProfileResponse struct {
	*Profile
	NextTier         Tier  `json:"next_tier,omitempty"`
	PointsToNextTier int64 `json:"points_to_next_tier"`
}

// GetProfile returns the user's profile. Users who never ordered get an
// unsaved bronze profile.
func (s *Service) GetProfile(ctx context.Context, userID uint) (*ProfileResponse, error) {
	var profile Profile
	err := s.db.WithContext(ctx).
		Preload("Rewards", func(db *gorm.DB) *gorm.DB {
			return db.Order("redeemed_at DESC, id DESC")
		}).
		Where("user_id = ?", userID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = newProfile(userID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get loyalty profile: %w", err)
	}
	if profile.Rewards == nil {
		profile.Rewards = []Reward{}
	}

	next, remaining := NextTier(profile.Points)
	return &ProfileResponse{
		Profile:          &profile,
		NextTier:         next,
		PointsToNextTier: remaining,
	}, nil
}

// AddPointsFromPurchase credits floor(amount) points for an order once
func (s *Service) AddPointsFromPurchase(ctx context.Context, userID uint, orderID string, amount decimal.Decimal) (*ProfileResponse, error) {
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		return s.CreditPurchaseTx(tx, userID, orderID, amount)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// CreditPurchaseTx credits an order inside the caller's transaction. A second
// credit for the same order id changes nothing.
func (s *Service) CreditPurchaseTx(tx *gorm.DB, userID uint, orderID string, amount decimal.Decimal) error {
	if orderID == "" {
		return apperrors.Validation("order_id", "is required")
	}
	if amount.IsNegative() {
		return apperrors.Validation("amount", "cannot be negative")
	}

	now := s.now()
	points := amount.Floor().IntPart()

	// Claim the order id first; losing the insert means it was already credited
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&Credit{
		OrderID:   orderID,
		UserID:    userID,
		Points:    points,
		Amount:    amount,
		CreatedAt: now,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to record loyalty credit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		s.logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"order_id": orderID,
		}).Debug("Loyalty credit already applied")
		return nil
	}

	if err := ensureProfile(tx, userID, now); err != nil {
		return err
	}

	err := tx.Model(&Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"points":      gorm.Expr("points + ?", points),
			"total_spent": gorm.Expr("total_spent + ?", amount),
			"updated_at":  now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to credit points: %w", err)
	}

	tier, err := syncTier(tx, userID)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"order_id": orderID,
		"points":   points,
		"tier":     tier,
	}).Info("Loyalty points credited")
	return nil
}

// RedeemReward trades points for a reward voucher valid for the configured
// period. Insufficient points leaves the profile untouched.
func (s *Service) RedeemReward(ctx context.Context, userID uint, rewardCode string) (*Reward, error) {
	item, ok := FindReward(rewardCode)
	if !ok {
		return nil, apperrors.Validation("reward_code", "unknown reward %q", rewardCode)
	}

	var reward Reward
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		now := s.now()
		res := tx.Model(&Profile{}).
			Where("user_id = ? AND points >= ?", userID, item.PointsCost).
			Updates(map[string]interface{}{
				"points":     gorm.Expr("points - ?", item.PointsCost),
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to deduct points: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientPoints
		}

		if _, err := syncTier(tx, userID); err != nil {
			return err
		}

		reward = Reward{
			UserID:     userID,
			Code:       item.Code,
			Name:       item.Name,
			PointsCost: item.PointsCost,
			RedeemedAt: now,
			ExpiresAt:  now.Add(s.validity),
		}
		if err := tx.Create(&reward).Error; err != nil {
			return fmt.Errorf("failed to create reward: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"reward":  item.Code,
		"cost":    item.PointsCost,
	}).Info("Reward redeemed")
	return &reward, nil
}

// UseReward marks a redeemed reward as spent
func (s *Service) UseReward(ctx context.Context, userID, rewardID uint) (*Reward, error) {
	var reward Reward
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", rewardID, userID).First(&reward).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRewardNotFound
			}
			return fmt.Errorf("failed to get reward: %w", err)
		}

		now := s.now()
		if reward.Used {
			return ErrRewardUsed
		}
		if reward.IsExpired(now) {
			return ErrRewardExpired
		}

		res := tx.Model(&Reward{}).
			Where("id = ? AND used = ?", reward.ID, false).
			Updates(map[string]interface{}{"used": true, "used_at": now})
		if res.Error != nil {
			return fmt.Errorf("failed to use reward: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return database.ErrConflict
		}
		reward.Used = true
		reward.UsedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

func newProfile(userID uint) Profile {
	return Profile{
		UserID:     userID,
		Tier:       TierBronze,
		TotalSpent: decimal.Zero,
	}
}

func ensureProfile(tx *gorm.DB, userID uint, now time.Time) error {
	profile := newProfile(userID)
	profile.CreatedAt = now
	profile.UpdatedAt = now
	if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&profile).Error; err != nil {
		return fmt.Errorf("failed to create loyalty profile: %w", err)
	}
	return nil
}

// syncTier recomputes the stored tier from the stored points
func syncTier(tx *gorm.DB, userID uint) (Tier, error) {
	var profile Profile
	if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return "", fmt.Errorf("failed to get loyalty profile: %w", err)
	}
	tier := CalculateTier(profile.Points)
	if tier == profile.Tier {
		return tier, nil
	}
	if err := tx.Model(&Profile{}).Where("user_id = ?", userID).Update("tier", tier).Error; err != nil {
		return "", fmt.Errorf("failed to update tier: %w", err)
	}
	return tier, nil
}
