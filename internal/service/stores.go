package service

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"retail-service/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type SaleStore interface {
	Find(ctx context.Context, filter, sort bson.D, skip, limit int64) ([]entity.Sale, error)
	Count(ctx context.Context, filter bson.D) (int64, error)
	InsertMany(ctx context.Context, sales []entity.Sale) (int, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Sale, error)
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (*entity.Sale, error)
	Distinct(ctx context.Context, field string) ([]string, error)
	AgeRange(ctx context.Context) (entity.AgeRange, bool, error)
	History(ctx context.Context, f entity.OrderHistoryFilter) ([]entity.Sale, error)
}

type StatsStore interface {
	PeriodTotals(ctx context.Context, from, to time.Time) (entity.PeriodTotals, error)
	DailyRevenue(ctx context.Context, since time.Time) ([]entity.DailyRevenue, error)
	CategoryRevenue(ctx context.Context, limit int) ([]entity.CategoryRevenue, error)
	RegionRevenue(ctx context.Context) ([]entity.RegionRevenue, error)
	Recent(ctx context.Context, limit int64) ([]entity.Sale, error)
	Trend(ctx context.Context, groupKey any, from, to *time.Time) ([]entity.TrendBucket, error)
}

type ProductStore interface {
	GetProducts(ctx context.Context) ([]entity.Product, error)
	LowStock(ctx context.Context, threshold int) ([]entity.Product, error)
	GetProductByName(ctx context.Context, name string) (*entity.Product, error)
	CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error)
	UpdateProduct(ctx context.Context, id primitive.ObjectID, input entity.ProductInput) (*entity.Product, error)
	DeleteProduct(ctx context.Context, id primitive.ObjectID) (*entity.Product, error)
	AdjustStock(ctx context.Context, filter bson.D, delta int) (*entity.Product, error)
	ConsumeStock(ctx context.Context, name string, quantity int) (*entity.Product, error)
}

type ImportLog interface {
	Record(ctx context.Context, run *entity.ImportRun) (*entity.ImportRun, error)
	Recent(ctx context.Context, limit int) ([]entity.ImportRun, error)
}

// Cache is a JSON value cache with one-shot claims for idempotency keys.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

const (
	filterOptionsKey  = "sales:filter-options"
	dashboardStatsKey = "sales:dashboard-stats"
	idempotencyTTL    = 24 * time.Hour
)

// EvictSalesAggregates drops every cached view derived from the sales collection.
func EvictSalesAggregates(ctx context.Context, c Cache) {
	if err := c.Delete(ctx, filterOptionsKey, dashboardStatsKey); err != nil {
		logger.Warn().Err(err).Msg("Error evicting sales aggregates from cache")
	}
}

func parseObjectID(id, resource string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, entity.Invalid("Invalid %s id %q", resource, id)
	}
	return oid, nil
}
