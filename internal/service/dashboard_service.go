package service

import (
	"context"
	"time"

	"toko-beras-pos/internal/repository"

	"github.com/shopspring/decimal"
)

type DashboardStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
	CompletedSales int64           `json:"completed_sales"`
	Revenue        decimal.Decimal `json:"revenue"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
}

type DashboardService interface {
	GetStockMovement(ctx context.Context, days int) ([]repository.DailyFlow, error)
	GetDashboardStats(ctx context.Context, from, to time.Time) (*DashboardStats, error)
}

type dashboardService struct {
	store repository.Store
}

func NewDashboardService(store repository.Store) DashboardService {
	return &dashboardService{store: store}
}

func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.DailyFlow, error) {
	if days <= 0 || days > 366 {
		return nil, invalid("days must be between 1 and 366")
	}
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	return s.store.Movements().DailyFlow(ctx, startDate, endDate)
}

func (s *dashboardService) GetDashboardStats(ctx context.Context, from, to time.Time) (*DashboardStats, error) {
	if to.Before(from) {
		return nil, invalid("date range is reversed")
	}
	stock, err := s.store.Products().Stats(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.store.Sales().Summary(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{
		TotalProducts:  stock.TotalProducts,
		LowStockCount:  stock.LowStockCount,
		TotalValuation: stock.TotalValuation,
		CompletedSales: sales.CompletedCount,
		Revenue:        sales.Revenue,
		From:           from,
		To:             to,
	}, nil
}
