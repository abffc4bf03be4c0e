package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"retail-service/internal/entity"
)

// PeriodTotals sums sales dated in [from, to).
func (r *SaleRepository) PeriodTotals(ctx context.Context, from, to time.Time) (entity.PeriodTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "date", Value: bson.D{
			{Key: "$gte", Value: from},
			{Key: "$lt", Value: to},
		}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalSales", Value: bson.D{{Key: "$sum", Value: "$totalAmount"}}},
			{Key: "totalRevenue", Value: bson.D{{Key: "$sum", Value: "$finalAmount"}}},
			{Key: "totalOrders", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgOrderValue", Value: bson.D{{Key: "$avg", Value: "$finalAmount"}}},
		}}},
	}

	rows, err := aggregate[entity.PeriodTotals](ctx, r.coll, pipeline)
	if err != nil || len(rows) == 0 {
		return entity.PeriodTotals{}, err
	}
	return rows[0], nil
}

func (r *SaleRepository) DailyRevenue(ctx context.Context, since time.Time) ([]entity.DailyRevenue, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "date", Value: bson.D{{Key: "$gte", Value: since}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$date"},
			}}}},
			{Key: "sales", Value: bson.D{{Key: "$sum", Value: "$finalAmount"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	return aggregate[entity.DailyRevenue](ctx, r.coll, pipeline)
}

func (r *SaleRepository) CategoryRevenue(ctx context.Context, limit int) ([]entity.CategoryRevenue, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$productCategory"},
			{Key: "sales", Value: bson.D{{Key: "$sum", Value: "$finalAmount"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "sales", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
	return aggregate[entity.CategoryRevenue](ctx, r.coll, pipeline)
}

func (r *SaleRepository) RegionRevenue(ctx context.Context) ([]entity.RegionRevenue, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$customerRegion"},
			{Key: "value", Value: bson.D{{Key: "$sum", Value: "$finalAmount"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "value", Value: -1}}}},
	}
	return aggregate[entity.RegionRevenue](ctx, r.coll, pipeline)
}

func (r *SaleRepository) Recent(ctx context.Context, limit int64) ([]entity.Sale, error) {
	return r.Find(ctx, bson.D{}, bson.D{{Key: "date", Value: -1}}, 0, limit)
}

// Trend groups sales by groupKey, optionally restricted to a date range, in ascending bucket order.
func (r *SaleRepository) Trend(ctx context.Context, groupKey any, from, to *time.Time) ([]entity.TrendBucket, error) {
	date := bson.D{{Key: "$exists", Value: true}}
	if from != nil || to != nil {
		date = bson.D{}
		if from != nil {
			date = append(date, bson.E{Key: "$gte", Value: *from})
		}
		if to != nil {
			date = append(date, bson.E{Key: "$lte", Value: *to})
		}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "date", Value: date}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: groupKey},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$totalAmount"}}},
			{Key: "orderCount", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgOrderValue", Value: bson.D{{Key: "$avg", Value: "$totalAmount"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	return aggregate[entity.TrendBucket](ctx, r.coll, pipeline)
}
