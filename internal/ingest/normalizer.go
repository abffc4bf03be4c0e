package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"retail-service/internal/entity"
)

// Row is one loosely-typed input record keyed by column header.
type Row map[string]string

// Profile tunes the normalizer for one input source.
type Profile struct {
	Name         string
	TagDelimiter string
	// Defaults overrides the literal fallback of a canonical field.
	Defaults map[string]string
	// TagsFromCategory fills empty tags with the lowercased category.
	TagsFromCategory bool
}

var (
	UploadProfile = Profile{
		Name:         "upload",
		TagDelimiter: ";",
		Defaults:     map[string]string{"employeeName": "CSV Upload"},
	}

	SeedProfile = Profile{
		Name:         "seed",
		TagDelimiter: ",",
		Defaults:     map[string]string{"employeeName": "CSV Import"},
	}

	QuickOrderProfile = Profile{
		Name:         "quick-order",
		TagDelimiter: ";",
		Defaults: map[string]string{
			"customerName":    "Guest",
			"phoneNumber":     "0000000000",
			"customerRegion":  "North",
			"productCategory": "Electronics",
			"employeeName":    "Quick Order",
			"quantity":        "1",
		},
		TagsFromCategory: true,
	}
)

type fieldRule struct {
	field string
	keys  []string
	def   string
}

// Ordered candidate headers per canonical field: canonical key first, then legacy spellings.
var fieldRules = []fieldRule{
	{"customerId", []string{"customerId", "Customer ID", "customer_id"}, ""},
	{"customerName", []string{"customerName", "Customer Name", "Customer name", "customer_name"}, "Unknown"},
	{"phoneNumber", []string{"phoneNumber", "Phone Number", "Phone", "phone"}, ""},
	{"email", []string{"email", "Email"}, ""},
	{"gender", []string{"gender", "Gender"}, "Other"},
	{"age", []string{"age", "Age"}, "0"},
	{"customerRegion", []string{"customerRegion", "Customer Region", "Region", "region"}, "Unknown"},
	{"customerType", []string{"customerType", "Customer Type"}, "Regular"},
	{"productId", []string{"productId", "Product ID", "product_id"}, ""},
	{"productName", []string{"productName", "Product Name", "Product", "product"}, ""},
	{"brand", []string{"brand", "Brand"}, "Generic"},
	{"productCategory", []string{"productCategory", "Product Category", "Category", "category"}, "General"},
	{"tags", []string{"tags", "Tags"}, ""},
	{"quantity", []string{"quantity", "Quantity", "Qty"}, "0"},
	{"pricePerUnit", []string{"pricePerUnit", "Price per Unit", "Price Per Unit", "Unit Price", "price"}, "0"},
	{"discountPercentage", []string{"discountPercentage", "Discount Percentage", "Discount %", "Discount"}, "0"},
	{"totalAmount", []string{"totalAmount", "Total Amount"}, "0"},
	{"finalAmount", []string{"finalAmount", "Final Amount"}, "0"},
	{"date", []string{"date", "Date"}, ""},
	{"paymentMethod", []string{"paymentMethod", "Payment Method"}, "Cash"},
	{"orderStatus", []string{"orderStatus", "Order Status", "Status", "status"}, "Completed"},
	{"deliveryType", []string{"deliveryType", "Delivery Type"}, "Standard"},
	{"storeId", []string{"storeId", "Store ID"}, "STORE-001"},
	{"storeLocation", []string{"storeLocation", "Store Location"}, ""},
	{"salespersonId", []string{"salespersonId", "Salesperson ID"}, ""},
	{"employeeName", []string{"employeeName", "Employee Name"}, "System"},
	{"orderId", []string{"orderId", "Order ID"}, ""},
}

// RowError is a non-fatal problem with a single input row.
type RowError struct {
	Row     int
	Message string
}

func (e *RowError) Error() string { return fmt.Sprintf("Row %d: %s", e.Row, e.Message) }

// IDGenerator synthesizes identifiers that never repeat within a process.
type IDGenerator struct {
	seq atomic.Uint64
	now func() time.Time
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

func (g *IDGenerator) Next(prefix string) string {
	n := g.seq.Add(1)
	return fmt.Sprintf("%s-%d-%d-%s", prefix, g.now().UnixMilli(), n, uuid.NewString()[:8])
}

var defaultIDs = NewIDGenerator()

// NewID returns a process-unique identifier such as CUST-1700000000000-1-1a2b3c4d.
func NewID(prefix string) string { return defaultIDs.Next(prefix) }

type Normalizer struct {
	profile Profile
	ids     *IDGenerator
	now     func() time.Time
}

func NewNormalizer(profile Profile) *Normalizer {
	return &Normalizer{profile: profile, ids: defaultIDs, now: time.Now}
}

// WithClock replaces the time source used for default dates and timestamps.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

func (n *Normalizer) Profile() Profile { return n.profile }

// Normalize maps a raw row onto a canonical sale. rowIndex is the 1-based data row number used in errors.
func (n *Normalizer) Normalize(row Row, rowIndex int) (entity.Sale, error) {
	if isBlank(row) {
		return entity.Sale{}, &RowError{Row: rowIndex, Message: "empty row"}
	}

	folded := make(map[string]string, len(row))
	for k, v := range row {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := foldKey(k)
		if _, ok := folded[key]; !ok {
			folded[key] = v
		}
	}

	values := make(map[string]string, len(fieldRules))
	for _, rule := range fieldRules {
		values[rule.field] = n.pick(row, folded, rule)
	}

	now := n.now()
	sale := entity.Sale{
		CustomerID:         values["customerId"],
		CustomerName:       values["customerName"],
		PhoneNumber:        values["phoneNumber"],
		Email:              values["email"],
		Gender:             values["gender"],
		Age:                int(ParseNumber(values["age"], 0)),
		CustomerRegion:     values["customerRegion"],
		CustomerType:       values["customerType"],
		ProductID:          values["productId"],
		ProductName:        values["productName"],
		Brand:              values["brand"],
		ProductCategory:    values["productCategory"],
		Tags:               SplitTags(values["tags"], n.profile.TagDelimiter),
		Quantity:           int(ParseNumber(values["quantity"], 0)),
		PricePerUnit:       ParseNumber(values["pricePerUnit"], 0),
		DiscountPercentage: ParseNumber(values["discountPercentage"], 0),
		TotalAmount:        ParseNumber(values["totalAmount"], 0),
		FinalAmount:        ParseNumber(values["finalAmount"], 0),
		PaymentMethod:      values["paymentMethod"],
		OrderStatus:        values["orderStatus"],
		DeliveryType:       values["deliveryType"],
		StoreID:            values["storeId"],
		StoreLocation:      values["storeLocation"],
		SalespersonID:      values["salespersonId"],
		EmployeeName:       values["employeeName"],
		OrderID:            values["orderId"],
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if sale.Quantity < 0 {
		return entity.Sale{}, &RowError{Row: rowIndex, Message: "quantity must not be negative"}
	}
	if sale.PricePerUnit < 0 {
		return entity.Sale{}, &RowError{Row: rowIndex, Message: "price per unit must not be negative"}
	}
	if sale.DiscountPercentage < 0 || sale.DiscountPercentage > 100 {
		return entity.Sale{}, &RowError{Row: rowIndex, Message: "discount percentage must be between 0 and 100"}
	}

	sale.Date = now
	if raw := values["date"]; raw != "" {
		date, ok := ParseDate(raw)
		if !ok {
			return entity.Sale{}, &RowError{Row: rowIndex, Message: fmt.Sprintf("invalid date %q", raw)}
		}
		sale.Date = date
	}

	if sale.ProductName == "" {
		sale.ProductName = "Unknown Product"
	}
	if sale.StoreLocation == "" {
		sale.StoreLocation = sale.CustomerRegion
	}
	if len(sale.Tags) == 0 {
		sale.Tags = []string{}
		if n.profile.TagsFromCategory {
			sale.Tags = []string{strings.ToLower(sale.ProductCategory)}
		}
	}

	if sale.CustomerID == "" {
		sale.CustomerID = n.ids.Next("CUST")
	}
	if sale.ProductID == "" {
		sale.ProductID = n.ids.Next("PROD")
	}
	if sale.SalespersonID == "" {
		sale.SalespersonID = n.ids.Next("EMP")
	}

	sale.TotalAmount, sale.FinalAmount = RepairAmounts(sale.Quantity, sale.PricePerUnit, sale.DiscountPercentage,
		sale.TotalAmount, sale.FinalAmount)

	return sale, nil
}

func (n *Normalizer) pick(row Row, folded map[string]string, rule fieldRule) string {
	for _, key := range rule.keys {
		if v := strings.TrimSpace(row[key]); v != "" {
			return v
		}
	}
	for _, key := range rule.keys {
		if v, ok := folded[foldKey(key)]; ok {
			return v
		}
	}
	if def, ok := n.profile.Defaults[rule.field]; ok {
		return def
	}
	return rule.def
}

// RepairAmounts derives missing totals. A zero total becomes quantity x price, and a zero final amount becomes
// total less the discount.
func RepairAmounts(quantity int, price, discount, total, final float64) (float64, float64) {
	totalDec := decimal.NewFromFloat(total)
	if total == 0 {
		totalDec = decimal.NewFromInt(int64(quantity)).Mul(decimal.NewFromFloat(price)).Round(2)
	}

	finalDec := decimal.NewFromFloat(final)
	if final == 0 {
		cut := totalDec.Mul(decimal.NewFromFloat(discount)).Div(decimal.NewFromInt(100))
		finalDec = totalDec.Sub(cut).Round(2)
	}

	return totalDec.InexactFloat64(), finalDec.InexactFloat64()
}

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// ParseNumber keeps digits, dots and minus signs and parses what is left. Anything unparseable yields def.
func ParseNumber(s string, def float64) float64 {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned == "" {
		return def
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// SplitTags splits on delim and drops blanks.
func SplitTags(s, delim string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if delim == "" {
		delim = ";"
	}
	var tags []string
	for _, tag := range strings.Split(s, delim) {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseDate accepts the date spellings seen in sales exports. Zone-less values are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func foldKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(strings.TrimPrefix(k, "\ufeff"))) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isBlank(row Row) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
