package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the sales listing and product reconciliation rely on. A failing index, such
// as the unique product name over existing duplicates, is logged and skipped.
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	sales := []mongo.IndexModel{
		{Keys: bson.D{{Key: "customerName", Value: 1}}},
		{Keys: bson.D{{Key: "phoneNumber", Value: 1}}},
		{Keys: bson.D{{Key: "customerRegion", Value: 1}}},
		{Keys: bson.D{{Key: "gender", Value: 1}}},
		{Keys: bson.D{{Key: "productCategory", Value: 1}}},
		{Keys: bson.D{{Key: "paymentMethod", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	products := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "quantity", Value: 1}}},
	}

	createIndexes(ctx, db.Collection(SalesCollection), sales)
	createIndexes(ctx, db.Collection(ProductsCollection), products)
}

func createIndexes(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) {
	for _, model := range models {
		name, err := coll.Indexes().CreateOne(ctx, model)
		if err != nil {
			logger.Warn().Err(err).Msgf("Failed to create index on %s", coll.Name())
			continue
		}
		logger.Debug().Msgf("Index %s ready on %s", name, coll.Name())
	}
}
