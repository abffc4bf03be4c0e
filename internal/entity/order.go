package entity

import (
	"bytes"
	"encoding/json"
)

// Loose accepts a JSON string or number and keeps its text form.
type Loose string

func (l *Loose) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Loose(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Loose(n.String())
	return nil
}

type QuickOrderItem struct {
	ProductName        string `json:"productName"`
	ProductCategory    string `json:"productCategory"`
	Quantity           Loose  `json:"quantity"`
	PricePerUnit       Loose  `json:"pricePerUnit"`
	DiscountPercentage Loose  `json:"discountPercentage"`
}

type QuickOrderRequest struct {
	CustomerName   string           `json:"customerName"`
	PhoneNumber    string           `json:"phoneNumber"`
	Email          string           `json:"email"`
	CustomerRegion string           `json:"customerRegion"`
	Gender         string           `json:"gender"`
	Age            Loose            `json:"age"`
	PaymentMethod  string           `json:"paymentMethod"`
	Items          []QuickOrderItem `json:"items"`
	IdempotentKey  string           `json:"-"`
}

type QuickOrderResult struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Count    int      `json:"count"`
	OrderID  string   `json:"orderId"`
	Warnings []string `json:"warnings,omitempty"`
}

type UploadResult struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Count     int      `json:"count"`
	Processed int      `json:"processed"`
	Errors    []string `json:"errors,omitempty"`
	NewFields []string `json:"newFields,omitempty"`
}

type BulkDeleteResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

func (l Loose) String() string { return string(l) }

