package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"retail-service/internal/entity"
)

const ProductsCollection = "products"

type ProductRepository struct {
	coll *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(ProductsCollection)}
}

func (r *ProductRepository) GetProducts(ctx context.Context) ([]entity.Product, error) {
	return r.find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

// LowStock lists products at or below threshold, scarcest first.
func (r *ProductRepository) LowStock(ctx context.Context, threshold int) ([]entity.Product, error) {
	filter := bson.D{{Key: "quantity", Value: bson.D{{Key: "$lte", Value: threshold}}}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "quantity", Value: 1}, {Key: "name", Value: 1}}))
}

func (r *ProductRepository) GetProductByName(ctx context.Context, name string) (*entity.Product, error) {
	return r.findOne(ctx, bson.D{{Key: "name", Value: name}})
}

func (r *ProductRepository) CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now

	res, err := r.coll.InsertOne(ctx, product)
	if mongo.IsDuplicateKeyError(err) {
		return nil, entity.Invalid("Product %q already exists", product.Name)
	}
	if err != nil {
		return nil, err
	}

	product.ID = res.InsertedID.(primitive.ObjectID)
	return product, nil
}

// UpdateProduct applies the non-nil fields of input and returns the updated product.
func (r *ProductRepository) UpdateProduct(ctx context.Context, id primitive.ObjectID, input entity.ProductInput) (*entity.Product, error) {
	set := bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}
	if input.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *input.Name})
	}
	if input.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *input.Category})
	}
	if input.Price != nil {
		set = append(set, bson.E{Key: "price", Value: *input.Price})
	}
	if input.Quantity != nil {
		set = append(set, bson.E{Key: "quantity", Value: *input.Quantity})
	}
	if input.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *input.Description})
	}

	var product entity.Product
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&product)
	if mongo.IsDuplicateKeyError(err) {
		return nil, entity.Invalid("Product name already exists")
	}
	return r.decoded(&product, err)
}

func (r *ProductRepository) DeleteProduct(ctx context.Context, id primitive.ObjectID) (*entity.Product, error) {
	var product entity.Product
	err := r.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&product)
	return r.decoded(&product, err)
}

// AdjustStock moves stock by delta in one atomic update, clamping at zero.
func (r *ProductRepository) AdjustStock(ctx context.Context, filter bson.D, delta int) (*entity.Product, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "quantity", Value: clampedQuantity(delta)},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}

	var product entity.Product
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&product)
	return r.decoded(&product, err)
}

// ConsumeStock takes quantity off the named product in one atomic update, clamping at zero. An unknown name
// creates a placeholder product with no stock.
func (r *ProductRepository) ConsumeStock(ctx context.Context, name string, quantity int) (*entity.Product, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "quantity", Value: clampedQuantity(-quantity)},
			{Key: "category", Value: ifNull("$category", entity.DefaultProductCategory)},
			{Key: "price", Value: ifNull("$price", 0)},
			{Key: "description", Value: ifNull("$description", entity.AutoCreatedDescription)},
			{Key: "createdAt", Value: ifNull("$createdAt", "$$NOW")},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}

	var product entity.Product
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "name", Value: name}}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(&product)
	if err != nil {
		return nil, fmt.Errorf("consume stock of %q: %w", name, err)
	}
	return &product, nil
}

func clampedQuantity(delta int) bson.D {
	return bson.D{{Key: "$max", Value: bson.A{
		0,
		bson.D{{Key: "$add", Value: bson.A{ifNull("$quantity", 0), delta}}},
	}}}
}

func ifNull(field string, fallback any) bson.D {
	return bson.D{{Key: "$ifNull", Value: bson.A{field, fallback}}}
}

func (r *ProductRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]entity.Product, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	products := []entity.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) findOne(ctx context.Context, filter bson.D) (*entity.Product, error) {
	var product entity.Product
	err := r.coll.FindOne(ctx, filter).Decode(&product)
	return r.decoded(&product, err)
}

func (r *ProductRepository) decoded(product *entity.Product, err error) (*entity.Product, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &entity.NotFoundError{Resource: "Product"}
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}
