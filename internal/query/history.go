package query

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"retail-service/internal/entity"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
)

// History builds the filter, sort and limit of an order history listing. Orders are newest first unless
// SortOrder is "asc". Status matches case-insensitively and search looks at customer and product names.
func History(f entity.OrderHistoryFilter) (bson.D, bson.D, int64) {
	q := bson.D{}

	if f.Status != "" && f.Status != "all" {
		q = append(q, bson.E{Key: "orderStatus", Value: primitive.Regex{
			Pattern: "^" + regexp.QuoteMeta(f.Status) + "$",
			Options: "i",
		}})
	}

	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q = append(q, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "customerName", Value: pattern}},
			bson.D{{Key: "productName", Value: pattern}},
		}})
	}

	direction := -1
	if f.SortOrder == "asc" {
		direction = 1
	}

	limit := f.Limit
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	return q, bson.D{{Key: "createdAt", Value: direction}, {Key: "_id", Value: direction}}, int64(limit)
}
