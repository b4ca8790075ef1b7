// internal/domain/review/service.go
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/cache"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxCommentLength = 2000

var (
	// ErrAlreadyReviewed is returned when the user already reviewed the product
	ErrAlreadyReviewed = apperrors.Conflict("you have already reviewed this product")
	// ErrReviewNotFound is returned for unknown review ids
	ErrReviewNotFound = apperrors.NotFound("review not found")
	// ErrNotPurchased is returned when the order does not prove a delivered purchase
	ErrNotPurchased = apperrors.Validation("order_id", "order not found, not delivered, or does not contain this product")
)

// Service handles review business logic
type Service struct {
	db     *gorm.DB
	tx     database.Transactor
	cache  cache.Cache
	logger *logrus.Logger
}

// NewService creates a new review service
func NewService(db *gorm.DB, tx database.Transactor, c cache.Cache, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		tx:     tx,
		cache:  c,
		logger: logger,
	}
}

// CreateReviewRequest represents review creation data
type CreateReviewRequest struct {
	ProductID string  `json:"-"`
	OrderID   *string `json:"order_id"`
	Rating    int     `json:"rating" binding:"required"`
	Comment   string  `json:"comment"`
}

// Validate checks the request before any write
func (r *CreateReviewRequest) Validate() error {
	if r.ProductID == "" {
		return apperrors.Validation("product_id", "is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return apperrors.Validation("rating", "must be between 1 and 5")
	}
	r.Comment = strings.TrimSpace(r.Comment)
	if len(r.Comment) > maxCommentLength {
		return apperrors.Validation("comment", "must be at most %d characters", maxCommentLength)
	}
	if r.OrderID != nil && strings.TrimSpace(*r.OrderID) == "" {
		r.OrderID = nil
	}
	return nil
}

// ListResponse is one page of reviews plus the product's rating summary
type ListResponse struct {
	Reviews    []Review         `json:"reviews"`
	Summary    catalog.Rating   `json:"summary"`
	Histogram  map[int]int      `json:"histogram"`
	Pagination order.Pagination `json:"pagination"`
}

// CreateReview stores a review and folds it into the product rating
func (s *Service) CreateReview(ctx context.Context, userID uint, userName string, req *CreateReviewRequest) (*Review, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var review Review
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		product, err := findProduct(tx, req.ProductID)
		if err != nil {
			return err
		}

		verified := false
		if req.OrderID != nil {
			ok, err := purchased(tx, *req.OrderID, userID, req.ProductID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrNotPurchased
			}
			verified = true
		}

		review = Review{
			ProductID: req.ProductID,
			UserID:    userID,
			OrderID:   req.OrderID,
			Rating:    req.Rating,
			Comment:   req.Comment,
			UserName:  strings.TrimSpace(userName),
			Verified:  verified,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&review)
		if res.Error != nil {
			return fmt.Errorf("failed to create review: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReviewed
		}

		return updateRating(tx, product, product.Rating.Add(req.Rating))
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProducts(ctx)
	s.logger.WithFields(logrus.Fields{
		"review_id":  review.ID,
		"product_id": review.ProductID,
		"user_id":    userID,
		"rating":     review.Rating,
		"verified":   review.Verified,
	}).Info("Review created")
	return &review, nil
}

// DeleteReview removes a review and reverses its rating contribution. Only
// the author or an admin may delete.
func (s *Service) DeleteReview(ctx context.Context, reviewID, userID uint, isAdmin bool) error {
	err := s.tx.RunInTransaction(ctx, func(tx *gorm.DB) error {
		var review Review
		if err := tx.First(&review, reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReviewNotFound
			}
			return fmt.Errorf("failed to get review: %w", err)
		}
		if !isAdmin && review.UserID != userID {
			return apperrors.ErrForbidden
		}

		res := tx.Delete(&Review{}, review.ID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete review: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return database.ErrConflict
		}

		product, err := findProduct(tx, review.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return updateRating(tx, product, product.Rating.Remove(review.Rating))
	})
	if err != nil {
		return err
	}

	s.invalidateProducts(ctx)
	s.logger.WithFields(logrus.Fields{
		"review_id": reviewID,
		"user_id":   userID,
		"admin":     isAdmin,
	}).Info("Review deleted")
	return nil
}

// ListReviews returns a product's reviews newest first
func (s *Service) ListReviews(ctx context.Context, productID string, page, limit int) (*ListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	product, err := findProduct(s.db.WithContext(ctx), productID)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&Review{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count reviews: %w", err)
	}

	reviews := []Review{}
	err = query.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve reviews: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ListResponse{
		Reviews:   reviews,
		Summary:   product.Rating,
		Histogram: product.Rating.Histogram(),
		Pagination: order.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

func findProduct(db *gorm.DB, id string) (*catalog.Product, error) {
	var product catalog.Product
	if err := db.Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// purchased reports whether orderID belongs to userID, was delivered and
// contains productID
func purchased(tx *gorm.DB, orderID string, userID uint, productID string) (bool, error) {
	var count int64
	err := tx.Model(&order.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.id = ? AND orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?",
			orderID, userID, order.OrderStatusDelivered, productID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to verify purchase: %w", err)
	}
	return count > 0, nil
}

// updateRating writes the new aggregate only if the stored histogram is still
// the one read with the product. A matching total alone is not enough: a
// delete and a create in between leave the total unchanged.
func updateRating(tx *gorm.DB, product *catalog.Product, next catalog.Rating) error {
	prev := product.Rating
	res := tx.Model(&catalog.Product{}).
		Where("id = ? AND rating_total_reviews = ?", product.ID, prev.TotalReviews).
		Where("rating_one_star = ? AND rating_two_star = ? AND rating_three_star = ? AND rating_four_star = ? AND rating_five_star = ?",
			prev.OneStar, prev.TwoStar, prev.ThreeStar, prev.FourStar, prev.FiveStar).
		Updates(map[string]interface{}{
			"rating_average":       next.Average,
			"rating_total_reviews": next.TotalReviews,
			"rating_one_star":      next.OneStar,
			"rating_two_star":      next.TwoStar,
			"rating_three_star":    next.ThreeStar,
			"rating_four_star":     next.FourStar,
			"rating_five_star":     next.FiveStar,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update product rating: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return database.ErrConflict
	}
	return nil
}

func (s *Service) invalidateProducts(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePrefix(ctx, catalog.CachePrefix); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate product cache")
	}
}
