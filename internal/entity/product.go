package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultProductCategory = "Uncategorized"
	AutoCreatedDescription = "Auto-created from sale"
	DefaultLowStockLevel   = 10
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name        string             `bson:"name" json:"name"`
	Category    string             `bson:"category" json:"category"`
	Price       float64            `bson:"price" json:"price"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Description string             `bson:"description" json:"description"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProductInput is the create/update payload. Nil fields are left untouched on update.
type ProductInput struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
	Description *string  `json:"description"`
}

// StockAdjustment moves a product's stock by Delta. The product is addressed by ID, or by Name when ID is empty.
type StockAdjustment struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Delta int    `json:"delta"`
}

type StockAdjustmentResult struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Quantity int    `json:"quantity"`
	Error    string `json:"error,omitempty"`
}
