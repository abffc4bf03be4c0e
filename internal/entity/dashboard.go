package entity

import (
	"encoding/json"
	"time"
)

// PeriodTotals aggregates the sales of one period.
type PeriodTotals struct {
	TotalSales    float64 `bson:"totalSales"`
	TotalRevenue  float64 `bson:"totalRevenue"`
	TotalOrders   int64   `bson:"totalOrders"`
	AvgOrderValue float64 `bson:"avgOrderValue"`
}

type DailyRevenue struct {
	Date  string  `bson:"_id"`
	Sales float64 `bson:"sales"`
}

type CategoryRevenue struct {
	Category string  `bson:"_id"`
	Sales    float64 `bson:"sales"`
	Count    int64   `bson:"count"`
}

type RegionRevenue struct {
	Region string  `bson:"_id"`
	Value  float64 `bson:"value"`
}

// TrendBucket is one time bucket of a trend series. Key is a string for daily, weekly and monthly buckets and a
// number for yearly ones.
type TrendBucket struct {
	Key           any     `bson:"_id"`
	Revenue       float64 `bson:"revenue"`
	OrderCount    int64   `bson:"orderCount"`
	AvgOrderValue float64 `bson:"avgOrderValue"`
}

type Growths struct {
	Sales    float64 `json:"sales"`
	Revenue  float64 `json:"revenue"`
	Orders   float64 `json:"orders"`
	AvgOrder float64 `json:"avgOrder"`
}

type DashboardTotals struct {
	TotalSales    float64 `json:"totalSales"`
	TotalRevenue  float64 `json:"totalRevenue"`
	TotalOrders   int64   `json:"totalOrders"`
	AvgOrderValue float64 `json:"avgOrderValue"`
	Growths       Growths `json:"growths"`
}

type WeeklyStat struct {
	Date  string  `json:"date"`
	Sales float64 `json:"sales"`
}

type TopProduct struct {
	Name  string  `json:"name"`
	Sales float64 `json:"sales"`
	Count int64   `json:"count"`
}

type RegionStat struct {
	Region     string  `json:"region"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

type Activity struct {
	Action string    `json:"action"`
	Amount float64   `json:"amount"`
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

type DashboardStats struct {
	Stats          DashboardTotals `json:"stats"`
	WeeklyStats    []WeeklyStat    `json:"weeklyStats"`
	TopProducts    []TopProduct    `json:"topProducts"`
	RegionStats    []RegionStat    `json:"regionStats"`
	RecentActivity []Activity      `json:"recentActivity"`
}

type TrendSummary struct {
	TotalRevenue          float64 `json:"totalRevenue"`
	TotalOrders           int64   `json:"totalOrders"`
	AvgOrderValue         float64 `json:"avgOrderValue"`
	WeightedAvgOrderValue float64 `json:"weightedAvgOrderValue"`
	Growth                float64 `json:"growth"`
}

// TrendPoint is a bucket as served to clients. Label names the JSON key carrying Period, e.g. "month".
type TrendPoint struct {
	Label         string
	Period        any
	Revenue       float64
	OrderCount    int64
	AvgOrderValue float64
}

func (p TrendPoint) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"period":        p.Period,
		"revenue":       p.Revenue,
		"orderCount":    p.OrderCount,
		"avgOrderValue": p.AvgOrderValue,
	}
	if p.Label != "" {
		m[p.Label] = p.Period
	}
	return json.Marshal(m)
}

type Trends struct {
	Timeframe string       `json:"timeframe"`
	Summary   TrendSummary `json:"summary"`
	Data      []TrendPoint `json:"data"`
}
