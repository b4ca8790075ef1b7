// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const topProductsLimit = 5

// Service handles admin dashboard queries
type Service struct {
	db                *gorm.DB
	lowStockThreshold int
	location          *time.Location
	now               func() time.Time
}

// NewService creates a new analytics service. Day boundaries are computed in
// loc, the store's local time.
func NewService(db *gorm.DB, lowStockThreshold int, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		db:                db,
		lowStockThreshold: lowStockThreshold,
		location:          loc,
		now:               time.Now,
	}
}

// DashboardStats represents the admin dashboard
type DashboardStats struct {
	TotalOrders    int64                       `json:"total_orders"`
	OrdersByStatus map[order.OrderStatus]int64 `json:"orders_by_status"`
	TotalRevenue   decimal.Decimal             `json:"total_revenue"`
	PendingProofs  int64                       `json:"pending_payment_proofs"`

	OrdersToday  int64           `json:"orders_today"`
	RevenueToday decimal.Decimal `json:"revenue_today"`

	TopProducts      []ProductSalesData `json:"top_products"`
	LowStockProducts []LowStockData     `json:"low_stock_products"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// ProductSalesData is a best seller row
type ProductSalesData struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// LowStockData is a product close to selling out
type LowStockData struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Inventory int    `json:"inventory"`
	Available bool   `json:"available"`
}

// revenueCondition selects settled orders: paid ones, plus delivered COD
const revenueCondition = "(payment_status = ? OR (payment_method = ? AND status = ?))"

// Dashboard gathers the dashboard figures concurrently
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	now := s.now().In(s.location)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location).UTC()

	stats := &DashboardStats{
		OrdersByStatus: make(map[order.OrderStatus]int64),
		GeneratedAt:    now.UTC(),
	}
	revenueArgs := []interface{}{order.PaymentStatusPaid, order.PaymentMethodCOD, order.OrderStatusDelivered}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var rows []struct {
			Status order.OrderStatus
			Count  int64
		}
		err := s.db.WithContext(ctx).Model(&order.Order{}).
			Select("status, COUNT(*) AS count").
			Group("status").
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("failed to count orders by status: %w", err)
		}
		for _, r := range rows {
			stats.OrdersByStatus[r.Status] = r.Count
			stats.TotalOrders += r.Count
		}
		return nil
	})

	g.Go(func() error {
		total, err := s.sumRevenue(ctx, s.db.WithContext(ctx).Model(&order.Order{}).Where(revenueCondition, revenueArgs...))
		if err != nil {
			return err
		}
		stats.TotalRevenue = total
		return nil
	})

	g.Go(func() error {
		err := s.db.WithContext(ctx).Model(&order.Order{}).
			Where("payment_method = ? AND payment_status = ?", order.PaymentMethodGCash, order.PaymentStatusProofSubmitted).
			Count(&stats.PendingProofs).Error
		if err != nil {
			return fmt.Errorf("failed to count pending proofs: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := s.db.WithContext(ctx).Model(&order.Order{}).
			Where("created_at >= ?", startOfDay).
			Count(&stats.OrdersToday).Error
		if err != nil {
			return fmt.Errorf("failed to count today's orders: %w", err)
		}
		today, err := s.sumRevenue(ctx, s.db.WithContext(ctx).Model(&order.Order{}).
			Where("created_at >= ?", startOfDay).
			Where(revenueCondition, revenueArgs...))
		if err != nil {
			return err
		}
		stats.RevenueToday = today
		return nil
	})

	g.Go(func() error {
		top, err := s.topProducts(ctx)
		if err != nil {
			return err
		}
		stats.TopProducts = top
		return nil
	})

	g.Go(func() error {
		low, err := s.lowStock(ctx)
		if err != nil {
			return err
		}
		stats.LowStockProducts = low
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) sumRevenue(ctx context.Context, query *gorm.DB) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	if err := query.Select("COALESCE(SUM(total_amount), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return row.Total.Round(2), nil
}

// topProducts ranks products by units sold on orders that were not cancelled
func (s *Service) topProducts(ctx context.Context) ([]ProductSalesData, error) {
	var rows []ProductSalesData
	err := s.db.WithContext(ctx).Model(&order.OrderItem{}).
		Select("order_items.product_id AS product_id, MAX(order_items.name) AS product_name, "+
			"SUM(order_items.quantity) AS quantity_sold, SUM(order_items.subtotal) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ?", order.OrderStatusCancelled).
		Group("order_items.product_id").
		Order("quantity_sold DESC, product_id").
		Limit(topProductsLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank products: %w", err)
	}
	for i := range rows {
		rows[i].Revenue = rows[i].Revenue.Round(2)
	}
	if rows == nil {
		rows = []ProductSalesData{}
	}
	return rows, nil
}

func (s *Service) lowStock(ctx context.Context) ([]LowStockData, error) {
	var products []catalog.Product
	err := s.db.WithContext(ctx).
		Where("inventory <= ?", s.lowStockThreshold).
		Order("inventory, id").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}

	low := make([]LowStockData, 0, len(products))
	for _, p := range products {
		low = append(low, LowStockData{
			ProductID: p.ID,
			Name:      p.Name,
			Inventory: p.Inventory,
			Available: p.Available,
		})
	}
	return low, nil
}
