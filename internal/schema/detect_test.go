package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		name    string
		samples []string
		want    Type
		isInt   bool
	}{
		{"integers", []string{"1", "2", "300"}, Number, true},
		{"decimals", []string{"123", "45.6", "7"}, Number, false},
		{"dates", []string{"2024-01-15", "2024-02-01", "2023-12-31"}, Date, false},
		{"booleans", []string{"yes", "No", "TRUE", "false"}, Boolean, false},
		{"mixed", []string{"abc", "12", "2024-01-01", "true", "x"}, String, false},
		{"empty", nil, String, false},
		{"mostly numeric", []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "n/a"}, Number, true},
		{"at threshold", []string{"1", "2", "3", "4", "a"}, String, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, isInt := DetectType(tt.samples)
			assert.Equal(t, tt.want, typ)
			assert.Equal(t, tt.isInt, isInt)
		})
	}
}

func TestNormalizeFieldName(t *testing.T) {
	tests := map[string]string{
		"Customer Name":       "customerName",
		"  price per UNIT ":   "pricePerUnit",
		"Discount %":          "discount",
		"Loyalty-Tier Level":  "loyaltytierLevel",
		"customerName":        "customername",
		"%%%":                 "",
		"Store  ID":           "storeId",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizeFieldName(in), "header %q", in)
	}
}

func TestDetect(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	d := &Detector{now: func() time.Time { return now }}

	input := "Customer Name,Quantity,Price,Date,Is Member,Loyalty Tier\n" +
		"Ann,2,10.5,2024-01-15,yes,gold\n" +
		"Bob,3,12,2024-01-16,no,\n" +
		"Cid,1,8.25,2024-01-17,yes,silver\n"

	schema, err := d.Detect(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, schema, 6)

	assert.Equal(t, Field{OriginalName: "Quantity", Type: Number, Default: 0, IsInteger: true}, schema["quantity"])
	assert.Equal(t, Field{OriginalName: "Price", Type: Number, Default: 0}, schema["price"])
	assert.Equal(t, Field{OriginalName: "Date", Type: Date, Default: now}, schema["date"])
	assert.Equal(t, Boolean, schema["isMember"].Type)
	assert.Equal(t, String, schema["loyaltyTier"].Type)
	assert.Equal(t, "", schema["customerName"].Default)
}

func TestDetectSamplesAtMostOneThousandRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("code\n")
	for i := 0; i < 1000; i++ {
		b.WriteString("1\n")
	}
	for i := 0; i < 500; i++ {
		b.WriteString("text\n")
	}

	schema, err := NewDetector().Detect(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, Number, schema["code"].Type)
}

func TestDetectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("Customer Name,Quantity\nA,1\n"), 0o600))

	schema, err := NewDetector().DetectFile(path)
	require.NoError(t, err)
	assert.Contains(t, schema, "customerName")

	_, err = NewDetector().DetectFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	schema := Schema{
		"customerName": {OriginalName: "Customer Name", Type: String},
		"customername": {OriginalName: "customerName", Type: String},
		"loyaltyTier":  {OriginalName: "Loyalty Tier", Type: String},
		"points":       {OriginalName: "Points", Type: Number, IsInteger: true},
	}

	cmp := Diff(schema, []string{"customerName", "quantity"})
	assert.True(t, cmp.HasNewFields)
	assert.Equal(t, []NewField{
		{Name: "loyaltyTier", Type: String, OriginalName: "Loyalty Tier"},
		{Name: "points", Type: Number, OriginalName: "Points"},
	}, cmp.NewFields)
	assert.Equal(t, []string{"loyaltyTier", "points"}, cmp.Names())

	cmp = Diff(Schema{"quantity": {OriginalName: "Quantity", Type: Number}}, []string{"quantity"})
	assert.False(t, cmp.HasNewFields)
	assert.Empty(t, cmp.NewFields)
}

func TestColumnMapping(t *testing.T) {
	mapping := ColumnMapping(Schema{"customerName": {OriginalName: "Customer Name"}})
	assert.Equal(t, map[string]string{"Customer Name": "customerName"}, mapping)
}

func ExampleNormalizeFieldName() {
	fmt.Println(NormalizeFieldName("Product Category"))
	// Output: productCategory
}
