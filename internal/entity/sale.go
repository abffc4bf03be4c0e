package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses accepted by the status update endpoint. Stored statuses are free-form.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusShipped    = "shipped"
	StatusCancelled  = "cancelled"
)

var OrderStatuses = []string{StatusPending, StatusProcessing, StatusCompleted, StatusShipped, StatusCancelled}

// Sale is one sold line item.
type Sale struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	CustomerID         string             `bson:"customerId" json:"customerId"`
	CustomerName       string             `bson:"customerName" json:"customerName"`
	PhoneNumber        string             `bson:"phoneNumber" json:"phoneNumber"`
	Email              string             `bson:"email,omitempty" json:"email,omitempty"`
	Gender             string             `bson:"gender" json:"gender"`
	Age                int                `bson:"age" json:"age"`
	CustomerRegion     string             `bson:"customerRegion" json:"customerRegion"`
	CustomerType       string             `bson:"customerType" json:"customerType"`
	ProductID          string             `bson:"productId" json:"productId"`
	ProductName        string             `bson:"productName" json:"productName"`
	Brand              string             `bson:"brand" json:"brand"`
	ProductCategory    string             `bson:"productCategory" json:"productCategory"`
	Tags               []string           `bson:"tags" json:"tags"`
	Quantity           int                `bson:"quantity" json:"quantity"`
	PricePerUnit       float64            `bson:"pricePerUnit" json:"pricePerUnit"`
	DiscountPercentage float64            `bson:"discountPercentage" json:"discountPercentage"`
	TotalAmount        float64            `bson:"totalAmount" json:"totalAmount"`
	FinalAmount        float64            `bson:"finalAmount" json:"finalAmount"`
	Date               time.Time          `bson:"date" json:"date"`
	PaymentMethod      string             `bson:"paymentMethod" json:"paymentMethod"`
	OrderStatus        string             `bson:"orderStatus" json:"orderStatus"`
	DeliveryType       string             `bson:"deliveryType" json:"deliveryType"`
	StoreID            string             `bson:"storeId" json:"storeId"`
	StoreLocation      string             `bson:"storeLocation" json:"storeLocation"`
	SalespersonID      string             `bson:"salespersonId" json:"salespersonId"`
	EmployeeName       string             `bson:"employeeName" json:"employeeName"`
	OrderID            string             `bson:"orderId,omitempty" json:"orderId,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SaleFields lists the stored field names of a Sale, in export column order.
var SaleFields = []string{
	"customerId", "customerName", "phoneNumber", "email", "gender", "age", "customerRegion", "customerType",
	"productId", "productName", "brand", "productCategory", "tags", "quantity", "pricePerUnit",
	"discountPercentage", "totalAmount", "finalAmount", "date", "paymentMethod", "orderStatus", "deliveryType",
	"storeId", "storeLocation", "salespersonId", "employeeName", "orderId", "createdAt", "updatedAt",
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

type SalesPage struct {
	Sales      []Sale     `json:"sales"`
	Pagination Pagination `json:"pagination"`
}

type AgeRange struct {
	MinAge int `bson:"minAge" json:"minAge"`
	MaxAge int `bson:"maxAge" json:"maxAge"`
}

// FilterOptions are the distinct values offered by the sales filter panel.
type FilterOptions struct {
	Regions        []string `json:"regions"`
	Genders        []string `json:"genders"`
	Categories     []string `json:"categories"`
	Tags           []string `json:"tags"`
	PaymentMethods []string `json:"paymentMethods"`
	AgeRange       AgeRange `json:"ageRange"`
}

// OrderHistoryFilter drives the order history listing.
type OrderHistoryFilter struct {
	SortOrder string
	Status    string
	Search    string
	Limit     int
}

// SaleSummary is the trimmed view of a sale used by the debug listing.
type SaleSummary struct {
	CustomerName    string    `json:"customerName"`
	PhoneNumber     string    `json:"phoneNumber"`
	ProductName     string    `json:"productName"`
	ProductCategory string    `json:"productCategory"`
	Quantity        int       `json:"quantity"`
	FinalAmount     float64   `json:"finalAmount"`
	Date            time.Time `json:"date"`
}

type SalesDebug struct {
	Total  int64         `json:"total"`
	Sample []SaleSummary `json:"sample"`
}
