package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"retail-service/internal/entity"
	"retail-service/internal/query"
)

const (
	topCategoryCount = 5
	recentSaleCount  = 5
	weeklyWindow     = 7 * 24 * time.Hour
)

// DashboardService computes the reporting aggregates.
type DashboardService struct {
	stats    StatsStore
	cache    Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewDashboardService(stats StatsStore, cache Cache, cacheTTL time.Duration) *DashboardService {
	return &DashboardService{stats: stats, cache: cache, cacheTTL: cacheTTL, now: time.Now}
}

// WithClock replaces the time source that anchors the current month and the weekly window.
func (d *DashboardService) WithClock(now func() time.Time) *DashboardService {
	d.now = now
	return d
}

// MonthBounds returns the start of the month containing t, the start of the previous month and the start of the
// next one, all in UTC.
func MonthBounds(t time.Time) (current, previous, next time.Time) {
	t = t.UTC()
	current = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return current, current.AddDate(0, -1, 0), current.AddDate(0, 1, 0)
}

// Growth is the percentage change from previous to current rounded to one decimal. It is 0 when previous is 0.
func Growth(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return math.Round((current-previous)/previous*1000) / 10
}

// Stats returns the dashboard overview: this month against last month, the last seven days, the top categories,
// the regional split and the latest sales. The six lookups run concurrently.
func (d *DashboardService) Stats(ctx context.Context) (*entity.DashboardStats, error) {
	var cached entity.DashboardStats
	found, err := d.cache.Get(ctx, dashboardStatsKey, &cached)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting dashboard stats from cache")
	}
	if found {
		return &cached, nil
	}

	now := d.now().UTC()
	monthStart, prevMonthStart, nextMonthStart := MonthBounds(now)

	var (
		current, previous entity.PeriodTotals
		daily             []entity.DailyRevenue
		categories        []entity.CategoryRevenue
		regions           []entity.RegionRevenue
		recent            []entity.Sale
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = d.stats.PeriodTotals(gctx, monthStart, nextMonthStart)
		return wrap("current month totals", err)
	})
	g.Go(func() error {
		var err error
		previous, err = d.stats.PeriodTotals(gctx, prevMonthStart, monthStart)
		return wrap("previous month totals", err)
	})
	g.Go(func() error {
		var err error
		daily, err = d.stats.DailyRevenue(gctx, now.Add(-weeklyWindow))
		return wrap("weekly revenue", err)
	})
	g.Go(func() error {
		var err error
		categories, err = d.stats.CategoryRevenue(gctx, topCategoryCount)
		return wrap("top categories", err)
	})
	g.Go(func() error {
		var err error
		regions, err = d.stats.RegionRevenue(gctx)
		return wrap("region revenue", err)
	})
	g.Go(func() error {
		var err error
		recent, err = d.stats.Recent(gctx, recentSaleCount)
		return wrap("recent sales", err)
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Error fetching dashboard stats")
		return nil, fmt.Errorf("fetch dashboard stats: %w", err)
	}

	stats := ComposeDashboard(current, previous, daily, categories, regions, recent)

	if err := d.cache.Set(ctx, dashboardStatsKey, stats, d.cacheTTL); err != nil {
		logger.Error().Err(err).Msg("Error setting dashboard stats in cache")
	}
	return stats, nil
}

// ComposeDashboard shapes the raw aggregates into the dashboard response. Amounts are rounded to whole units.
func ComposeDashboard(current, previous entity.PeriodTotals, daily []entity.DailyRevenue,
	categories []entity.CategoryRevenue, regions []entity.RegionRevenue, recent []entity.Sale) *entity.DashboardStats {
	stats := &entity.DashboardStats{
		Stats: entity.DashboardTotals{
			TotalSales:    math.Round(current.TotalSales),
			TotalRevenue:  math.Round(current.TotalRevenue),
			TotalOrders:   current.TotalOrders,
			AvgOrderValue: math.Round(current.AvgOrderValue),
			Growths: entity.Growths{
				Sales:    Growth(current.TotalSales, previous.TotalSales),
				Revenue:  Growth(current.TotalRevenue, previous.TotalRevenue),
				Orders:   Growth(float64(current.TotalOrders), float64(previous.TotalOrders)),
				AvgOrder: Growth(current.AvgOrderValue, previous.AvgOrderValue),
			},
		},
		WeeklyStats:    make([]entity.WeeklyStat, 0, len(daily)),
		TopProducts:    make([]entity.TopProduct, 0, len(categories)),
		RegionStats:    make([]entity.RegionStat, 0, len(regions)),
		RecentActivity: make([]entity.Activity, 0, len(recent)),
	}

	for _, day := range daily {
		stats.WeeklyStats = append(stats.WeeklyStats, entity.WeeklyStat{Date: day.Date, Sales: math.Round(day.Sales)})
	}

	for _, c := range categories {
		stats.TopProducts = append(stats.TopProducts, entity.TopProduct{
			Name:  c.Category,
			Sales: math.Round(c.Sales),
			Count: c.Count,
		})
	}

	var regionTotal float64
	for _, r := range regions {
		regionTotal += r.Value
	}
	for _, r := range regions {
		stat := entity.RegionStat{Region: r.Region, Value: math.Round(r.Value)}
		if regionTotal > 0 {
			stat.Percentage = math.Round(r.Value / regionTotal * 100)
		}
		stats.RegionStats = append(stats.RegionStats, stat)
	}

	for _, s := range recent {
		stats.RecentActivity = append(stats.RecentActivity, entity.Activity{
			Action: fmt.Sprintf("%s purchased %s", s.CustomerName, s.ProductName),
			Amount: math.Round(s.FinalAmount),
			Status: s.OrderStatus,
			Time:   s.Date,
		})
	}

	return stats
}

// Trends buckets sales by timeframe. dateFrom counts from the start of its day and dateTo through the end of its
// day.
func (d *DashboardService) Trends(ctx context.Context, timeframe string, dateFrom, dateTo *time.Time) (*entity.Trends, error) {
	timeframe, ok := query.ParseTimeframe(timeframe)
	if !ok {
		return nil, entity.Invalid("Invalid timeframe")
	}

	var from, to *time.Time
	if dateFrom != nil {
		t := query.StartOfDay(*dateFrom)
		from = &t
	}
	if dateTo != nil {
		t := query.EndOfDay(*dateTo)
		to = &t
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, entity.Invalid("dateFrom must not be after dateTo")
	}

	groupKey, timeframe := query.TrendGroupKey(timeframe)
	buckets, err := d.stats.Trend(ctx, groupKey, from, to)
	if err != nil {
		logger.Error().Err(err).Msgf("Error fetching %s sales trends", timeframe)
		return nil, fmt.Errorf("fetch sales trends: %w", err)
	}

	label := query.TrendLabel(timeframe)
	points := make([]entity.TrendPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, entity.TrendPoint{
			Label:         label,
			Period:        b.Key,
			Revenue:       b.Revenue,
			OrderCount:    b.OrderCount,
			AvgOrderValue: b.AvgOrderValue,
		})
	}

	return &entity.Trends{Timeframe: timeframe, Summary: SummarizeTrend(points), Data: points}, nil
}

// SummarizeTrend totals a series. AvgOrderValue is the plain mean of the bucket averages and
// WeightedAvgOrderValue is revenue per order. Growth compares the last two buckets.
func SummarizeTrend(points []entity.TrendPoint) entity.TrendSummary {
	var summary entity.TrendSummary
	if len(points) == 0 {
		return summary
	}

	var avgSum float64
	for _, p := range points {
		summary.TotalRevenue += p.Revenue
		summary.TotalOrders += p.OrderCount
		avgSum += p.AvgOrderValue
	}
	summary.AvgOrderValue = avgSum / float64(len(points))
	if summary.TotalOrders > 0 {
		summary.WeightedAvgOrderValue = summary.TotalRevenue / float64(summary.TotalOrders)
	}

	if n := len(points); n >= 2 && points[n-2].Revenue != 0 {
		summary.Growth = (points[n-1].Revenue - points[n-2].Revenue) / points[n-2].Revenue * 100
	}
	return summary
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
