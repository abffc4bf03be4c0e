package service

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"retail-service/internal/entity"
)

const (
	emptyExport     = "No data to export\n"
	exportTimestamp = "2006-01-02T15:04:05.000Z07:00"
	exportFlushRows = 1000
)

// EncodeSalesCSV writes sales with one column per entry of entity.SaleFields. Tags are joined with ";" and times
// are written as UTC timestamps with milliseconds.
func EncodeSalesCSV(sales []entity.Sale) ([]byte, error) {
	if len(sales) == 0 {
		return []byte(emptyExport), nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(entity.SaleFields); err != nil {
		return nil, err
	}

	for i := range sales {
		if err := w.Write(saleRecord(&sales[i])); err != nil {
			return nil, err
		}
		if (i+1)%exportFlushRows == 0 {
			w.Flush()
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func saleRecord(s *entity.Sale) []string {
	return []string{
		s.CustomerID,
		s.CustomerName,
		s.PhoneNumber,
		s.Email,
		s.Gender,
		strconv.Itoa(s.Age),
		s.CustomerRegion,
		s.CustomerType,
		s.ProductID,
		s.ProductName,
		s.Brand,
		s.ProductCategory,
		strings.Join(s.Tags, ";"),
		strconv.Itoa(s.Quantity),
		formatAmount(s.PricePerUnit),
		formatAmount(s.DiscountPercentage),
		formatAmount(s.TotalAmount),
		formatAmount(s.FinalAmount),
		formatTime(s.Date),
		s.PaymentMethod,
		s.OrderStatus,
		s.DeliveryType,
		s.StoreID,
		s.StoreLocation,
		s.SalespersonID,
		s.EmployeeName,
		s.OrderID,
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	}
}

func formatAmount(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(exportTimestamp)
}
