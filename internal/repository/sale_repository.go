package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"retail-service/internal/entity"
	"retail-service/internal/query"
)

const SalesCollection = "sales"

type SaleRepository struct {
	coll *mongo.Collection
}

func NewSaleRepository(db *mongo.Database) *SaleRepository {
	return &SaleRepository{coll: db.Collection(SalesCollection)}
}

func (r *SaleRepository) Find(ctx context.Context, filter, sortBy bson.D, skip, limit int64) ([]entity.Sale, error) {
	opts := options.Find().SetSort(sortBy)
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	sales := []entity.Sale{}
	if err := cur.All(ctx, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *SaleRepository) Count(ctx context.Context, filter bson.D) (int64, error) {
	return r.coll.CountDocuments(ctx, filter)
}

// InsertMany performs an unordered insert, so one bad document does not stop the rest. On a partial failure it
// returns the number of documents the server accepted along with the error.
func (r *SaleRepository) InsertMany(ctx context.Context, sales []entity.Sale) (int, error) {
	if len(sales) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(sales))
	for i := range sales {
		docs[i] = sales[i]
	}

	res, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(res.InsertedIDs), nil
	}

	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		return len(sales) - len(bulkErr.WriteErrors), err
	}
	return 0, err
}

func (r *SaleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Sale, error) {
	var sale entity.Sale
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&sale)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &entity.NotFoundError{Resource: "Order"}
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *SaleRepository) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// UpdateStatus sets the order status and returns the sale as it was before the update.
func (r *SaleRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (*entity.Sale, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "orderStatus", Value: status},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}

	var before entity.Sale
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.Before)).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &entity.NotFoundError{Resource: "Order"}
	}
	if err != nil {
		return nil, err
	}
	return &before, nil
}

// Distinct returns the sorted non-empty string values of field.
func (r *SaleRepository) Distinct(ctx context.Context, field string) ([]string, error) {
	raw, err := r.coll.Distinct(ctx, field, bson.D{})
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			values = append(values, s)
		}
	}
	sort.Strings(values)
	return values, nil
}

// AgeRange reports the youngest and oldest customer ages. ok is false for an empty collection.
func (r *SaleRepository) AgeRange(ctx context.Context) (entity.AgeRange, bool, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "minAge", Value: bson.D{{Key: "$min", Value: "$age"}}},
			{Key: "maxAge", Value: bson.D{{Key: "$max", Value: "$age"}}},
		}}},
	}

	rows, err := aggregate[entity.AgeRange](ctx, r.coll, pipeline)
	if err != nil || len(rows) == 0 {
		return entity.AgeRange{}, false, err
	}
	return rows[0], true, nil
}

func (r *SaleRepository) History(ctx context.Context, f entity.OrderHistoryFilter) ([]entity.Sale, error) {
	filter, sortBy, limit := query.History(f)
	return r.Find(ctx, filter, sortBy, 0, limit)
}

func aggregate[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
