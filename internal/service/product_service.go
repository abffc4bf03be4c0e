package service

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"retail-service/internal/entity"
)

type ProductService struct {
	products ProductStore
}

// NewProductService creates a new instance of ProductService.
func NewProductService(products ProductStore) *ProductService {
	return &ProductService{products: products}
}

func (p *ProductService) GetProducts(ctx context.Context) ([]entity.Product, error) {
	products, err := p.products.GetProducts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting products")
		return nil, err
	}
	return products, nil
}

// LowStock lists products whose stock is at or below threshold. A threshold of 0 or less uses the default level.
func (p *ProductService) LowStock(ctx context.Context, threshold int) ([]entity.Product, error) {
	if threshold <= 0 {
		threshold = entity.DefaultLowStockLevel
	}
	products, err := p.products.LowStock(ctx, threshold)
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting products below %d", threshold)
		return nil, err
	}
	return products, nil
}

func (p *ProductService) CreateProduct(ctx context.Context, input entity.ProductInput) (*entity.Product, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" || input.Price == nil || input.Quantity == nil {
		return nil, entity.Invalid("Missing required fields")
	}
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product := &entity.Product{
		Name:     strings.TrimSpace(*input.Name),
		Category: entity.DefaultProductCategory,
		Price:    *input.Price,
		Quantity: *input.Quantity,
	}
	if input.Category != nil && strings.TrimSpace(*input.Category) != "" {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}

	created, err := p.products.CreateProduct(ctx, product)
	if err != nil {
		logger.Error().Err(err).Msgf("Error creating product %s", product.Name)
		return nil, err
	}

	logger.Info().Msgf("Created product %s with stock %d", created.Name, created.Quantity)
	return created, nil
}

func (p *ProductService) UpdateProduct(ctx context.Context, id string, input entity.ProductInput) (*entity.Product, error) {
	oid, err := parseObjectID(id, "product")
	if err != nil {
		return nil, err
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, entity.Invalid("Product name must not be empty")
	}
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := p.products.UpdateProduct(ctx, oid, input)
	if err != nil {
		logger.Error().Err(err).Msgf("Error updating product %s", id)
		return nil, err
	}
	return product, nil
}

func (p *ProductService) DeleteProduct(ctx context.Context, id string) (*entity.Product, error) {
	oid, err := parseObjectID(id, "product")
	if err != nil {
		return nil, err
	}

	product, err := p.products.DeleteProduct(ctx, oid)
	if err != nil {
		logger.Error().Err(err).Msgf("Error deleting product %s", id)
		return nil, err
	}
	return product, nil
}

// AdjustStock applies every adjustment independently and reports one result per item.
func (p *ProductService) AdjustStock(ctx context.Context, items []entity.StockAdjustment) ([]entity.StockAdjustmentResult, error) {
	if len(items) == 0 {
		return nil, entity.Invalid("No stock adjustments provided")
	}

	results := make([]entity.StockAdjustmentResult, 0, len(items))
	for _, item := range items {
		res := entity.StockAdjustmentResult{ID: item.ID, Name: item.Name}

		filter, err := stockFilter(item)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		product, err := p.products.AdjustStock(ctx, filter, item.Delta)
		if err != nil {
			logger.Error().Err(err).Msgf("Error adjusting stock of %s%s by %d", item.ID, item.Name, item.Delta)
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		res.ID, res.Name, res.Quantity = product.ID.Hex(), product.Name, product.Quantity
		results = append(results, res)
	}
	return results, nil
}

// ReserveStock takes quantity off the named product, creating it when unknown.
func (p *ProductService) ReserveStock(ctx context.Context, name string, quantity int) (*entity.Product, error) {
	product, err := p.products.ConsumeStock(ctx, name, quantity)
	if err != nil {
		logger.Error().Err(err).Msgf("Error reserving %d of %s", quantity, name)
		return nil, err
	}

	if product.Quantity == 0 {
		logger.Warn().Msgf("Product %s out of stock", name)
	}
	logger.Info().Msgf("Reserved %d of %s, %d left", quantity, name, product.Quantity)
	return product, nil
}

// ReleaseStock puts quantity back on the named product.
func (p *ProductService) ReleaseStock(ctx context.Context, name string, quantity int) (*entity.Product, error) {
	product, err := p.products.AdjustStock(ctx, bson.D{{Key: "name", Value: name}}, quantity)
	if err != nil {
		logger.Error().Err(err).Msgf("Error releasing %d of %s", quantity, name)
		return nil, err
	}

	logger.Info().Msgf("Released %d of %s, %d in stock", quantity, name, product.Quantity)
	return product, nil
}

func validateProductInput(input entity.ProductInput) error {
	if input.Price != nil && *input.Price < 0 {
		return entity.Invalid("Price must not be negative")
	}
	if input.Quantity != nil && *input.Quantity < 0 {
		return entity.Invalid("Quantity must not be negative")
	}
	return nil
}

func stockFilter(item entity.StockAdjustment) (bson.D, error) {
	if item.ID != "" {
		oid, err := parseObjectID(item.ID, "product")
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "_id", Value: oid}}, nil
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil, entity.Invalid("Stock adjustment needs a product id or name")
	}
	return bson.D{{Key: "name", Value: item.Name}}, nil
}
