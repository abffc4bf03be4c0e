package ingest

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestNormalizer(p Profile) *Normalizer {
	return NewNormalizer(p).WithClock(func() time.Time { return fixedNow })
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	n := newTestNormalizer(UploadProfile)

	sale, err := n.Normalize(Row{"Customer Name": "Ann"}, 1)
	require.NoError(t, err)

	assert.Equal(t, "Ann", sale.CustomerName)
	assert.Equal(t, "Cash", sale.PaymentMethod)
	assert.Equal(t, "Completed", sale.OrderStatus)
	assert.Equal(t, "Other", sale.Gender)
	assert.Equal(t, "Unknown", sale.CustomerRegion)
	assert.Equal(t, "Unknown", sale.StoreLocation)
	assert.Equal(t, "General", sale.ProductCategory)
	assert.Equal(t, "Unknown Product", sale.ProductName)
	assert.Equal(t, "CSV Upload", sale.EmployeeName)
	assert.Equal(t, fixedNow, sale.Date)
	assert.Equal(t, fixedNow, sale.CreatedAt)
	assert.Empty(t, sale.Tags)
	assert.NotNil(t, sale.Tags)

	assert.True(t, strings.HasPrefix(sale.CustomerID, "CUST-"))
	assert.True(t, strings.HasPrefix(sale.ProductID, "PROD-"))
	assert.True(t, strings.HasPrefix(sale.SalespersonID, "EMP-"))
}

func TestNormalizeFallbackOrder(t *testing.T) {
	n := newTestNormalizer(UploadProfile)

	sale, err := n.Normalize(Row{
		"customerName":  "Canonical",
		"Customer Name": "Legacy",
		"Region":        "East",
		"Product":       "Lamp",
		"Discount %":    "5",
		"Status":        "Pending",
		"CUSTOMER ID":   "C-9",
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, "Canonical", sale.CustomerName)
	assert.Equal(t, "East", sale.CustomerRegion)
	assert.Equal(t, "Lamp", sale.ProductName)
	assert.Equal(t, 5.0, sale.DiscountPercentage)
	assert.Equal(t, "Pending", sale.OrderStatus)
	assert.Equal(t, "C-9", sale.CustomerID)
}

func TestNormalizeDerivesAmounts(t *testing.T) {
	n := newTestNormalizer(UploadProfile)

	sale, err := n.Normalize(Row{"quantity": "2", "pricePerUnit": "50", "discountPercentage": "10"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 100.0, sale.TotalAmount)
	assert.Equal(t, 90.0, sale.FinalAmount)

	sale, err = n.Normalize(Row{"quantity": "3", "pricePerUnit": "0.1"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.3, sale.TotalAmount)
	assert.Equal(t, 0.3, sale.FinalAmount)

	sale, err = n.Normalize(Row{"quantity": "2", "pricePerUnit": "50", "totalAmount": "120", "finalAmount": "99"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 120.0, sale.TotalAmount)
	assert.Equal(t, 99.0, sale.FinalAmount)
}

func TestNormalizeIsStableOnCanonicalInput(t *testing.T) {
	n := newTestNormalizer(UploadProfile)

	first, err := n.Normalize(Row{"quantity": "7", "pricePerUnit": "19.99", "discountPercentage": "15"}, 1)
	require.NoError(t, err)

	again, err := n.Normalize(Row{
		"customerId":         first.CustomerID,
		"productId":          first.ProductID,
		"quantity":           strconv.Itoa(first.Quantity),
		"pricePerUnit":       strconv.FormatFloat(first.PricePerUnit, 'f', -1, 64),
		"discountPercentage": strconv.FormatFloat(first.DiscountPercentage, 'f', -1, 64),
		"totalAmount":        strconv.FormatFloat(first.TotalAmount, 'f', -1, 64),
		"finalAmount":        strconv.FormatFloat(first.FinalAmount, 'f', -1, 64),
	}, 1)
	require.NoError(t, err)

	assert.InDelta(t, first.TotalAmount, again.TotalAmount, 1e-9)
	assert.InDelta(t, first.FinalAmount, again.FinalAmount, 1e-9)
	assert.InDelta(t, again.TotalAmount*(1-again.DiscountPercentage/100), again.FinalAmount, 0.01)
	assert.Equal(t, first.CustomerID, again.CustomerID)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		def  float64
		want float64
	}{
		{"42", 0, 42},
		{"$1,200.50", 0, 1200.5},
		{" 12 kg", 0, 12},
		{"-3", 0, -3},
		{"abc", 7, 7},
		{"", 1, 1},
		{"1.2.3", 5, 5},
		{"-", 9, 9},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseNumber(tt.in, tt.def), "input %q", tt.in)
	}
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitTags("a; b;;c ", ";"))
	assert.Equal(t, []string{"organic", "skincare"}, SplitTags("organic, skincare", ","))
	assert.Nil(t, SplitTags("  ", ","))

	n := newTestNormalizer(SeedProfile)
	sale, err := n.Normalize(Row{"Tags": "x,y", "Customer Name": "B"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, sale.Tags)
	assert.Equal(t, "CSV Import", sale.EmployeeName)
}

func TestNormalizeQuickOrderProfile(t *testing.T) {
	n := newTestNormalizer(QuickOrderProfile)

	sale, err := n.Normalize(Row{"productName": "Widget", "pricePerUnit": "50"}, 1)
	require.NoError(t, err)

	assert.Equal(t, "Guest", sale.CustomerName)
	assert.Equal(t, "0000000000", sale.PhoneNumber)
	assert.Equal(t, "North", sale.CustomerRegion)
	assert.Equal(t, "Electronics", sale.ProductCategory)
	assert.Equal(t, []string{"electronics"}, sale.Tags)
	assert.Equal(t, "Quick Order", sale.EmployeeName)
	assert.Equal(t, 1, sale.Quantity)
	assert.Equal(t, 50.0, sale.TotalAmount)
}

func TestNormalizeRowErrors(t *testing.T) {
	n := newTestNormalizer(UploadProfile)

	tests := []struct {
		name string
		row  Row
		msg  string
	}{
		{"blank", Row{"customerName": "  ", "quantity": ""}, "Row 4: empty row"},
		{"negative quantity", Row{"quantity": "-2"}, "Row 4: quantity must not be negative"},
		{"negative price", Row{"pricePerUnit": "-1"}, "Row 4: price per unit must not be negative"},
		{"discount", Row{"discountPercentage": "150"}, "Row 4: discount percentage must be between 0 and 100"},
		{"date", Row{"date": "not a date"}, `Row 4: invalid date "not a date"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.row, 4)
			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr))
			assert.Equal(t, 4, rowErr.Row)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestNormalizeSynthesizedIDsAreUnique(t *testing.T) {
	n := newTestNormalizer(UploadProfile)

	seen := make(map[string]bool)
	for i := 1; i <= 2000; i++ {
		sale, err := n.Normalize(Row{"customerName": "x"}, i)
		require.NoError(t, err)
		require.False(t, seen[sale.ProductID], "duplicate id %s", sale.ProductID)
		seen[sale.ProductID] = true
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-01-15T10:30:00Z", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-01-15T10:30:00.250Z", time.Date(2024, 1, 15, 10, 30, 0, 250_000_000, time.UTC)},
		{"2024-01-15 10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"01/15/2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		require.True(t, ok, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}

	_, ok := ParseDate("yesterday")
	assert.False(t, ok)
}
