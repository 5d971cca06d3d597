package service

import (
	"context"
	"time"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"
)

const (
	defaultLowStockThreshold = 10
	defaultExpiryWindow      = 30 * 24 * time.Hour
)

type DashboardStats struct {
	Products   *repository.ProductStats `json:"products"`
	SalesToday *repository.SalesSummary `json:"sales_today"`
	Outbound   *model.OutboundStats     `json:"outbound"`
	Popular    []model.PopularItem      `json:"popular"`
}

// DailySales is one day of the sales trend.
type DailySales struct {
	Date string `json:"date"`
	repository.SalesSummary
}

type DashboardService interface {
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
	GetSalesTrend(ctx context.Context, days int) ([]DailySales, error)
}

type dashboardService struct {
	store             repository.Store
	lowStockThreshold int
	expiryWindow      time.Duration
	now               func() time.Time
}

func NewDashboardService(store repository.Store, lowStockThreshold int) DashboardService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = defaultLowStockThreshold
	}
	return &dashboardService{
		store:             store,
		lowStockThreshold: lowStockThreshold,
		expiryWindow:      defaultExpiryWindow,
		now:               time.Now,
	}
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	now := s.now()
	today := startOfDay(now)

	products, err := s.store.Products().Stats(ctx, s.lowStockThreshold, now.Add(s.expiryWindow))
	if err != nil {
		return nil, err
	}
	sales, err := s.store.Orders().SalesSummary(ctx, today, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	outbound, err := s.store.Outbound().Stats(ctx, today)
	if err != nil {
		return nil, err
	}
	popular, err := s.store.Outbound().Popular(ctx, 5)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{
		Products:   products,
		SalesToday: sales,
		Outbound:   outbound,
		Popular:    popular,
	}, nil
}

// GetSalesTrend returns completed sales per day, oldest first, ending today.
func (s *dashboardService) GetSalesTrend(ctx context.Context, days int) ([]DailySales, error) {
	if days <= 0 {
		days = 7
	}
	if days > 90 {
		return nil, apperr.Validation("days must be at most 90")
	}

	today := startOfDay(s.now())
	trend := make([]DailySales, 0, days)
	for i := days - 1; i >= 0; i-- {
		from := today.AddDate(0, 0, -i)
		summary, err := s.store.Orders().SalesSummary(ctx, from, from.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		trend = append(trend, DailySales{Date: from.Format(dateLayout), SalesSummary: *summary})
	}
	return trend, nil
}
