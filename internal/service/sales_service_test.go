package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"retail-service/internal/entity"
	"retail-service/internal/events"
	"retail-service/internal/ingest"
	"retail-service/internal/query"
)

func newSalesService(store *fakeSaleStore, opts SalesOptions) (*SalesService, *fakeCache, *fakePublisher, *fakeImportLog) {
	cache := newFakeCache()
	pub := &fakePublisher{}
	log := &fakeImportLog{}
	pipeline := ingest.NewPipeline(store, ingest.NewNormalizer(ingest.UploadProfile), 2)
	return NewSalesService(store, pipeline, cache, pub, log, opts), cache, pub, log
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name                   string
		page, limit            int
		total                  int64
		wantPages              int
		wantNext, wantPrevious bool
	}{
		{"empty", 1, 10, 0, 0, false, false},
		{"single page", 1, 10, 10, 1, false, false},
		{"first of three", 1, 10, 21, 3, true, false},
		{"middle", 2, 10, 21, 3, true, true},
		{"last", 3, 10, 21, 3, false, true},
		{"past the end", 5, 10, 21, 3, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantNext, p.HasNextPage)
			assert.Equal(t, tt.wantPrevious, p.HasPrevPage)
			assert.Equal(t, tt.total, p.TotalItems)
			assert.Equal(t, tt.limit, p.ItemsPerPage)
		})
	}
}

func TestListPagesCoverResultSet(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeSaleStore{sorted: true}
	for i := 0; i < 12; i++ {
		date := day
		if i%4 == 0 {
			date = day.AddDate(0, 0, 1)
		}
		store.sales = append(store.sales, entity.Sale{ID: primitive.NewObjectID(), Quantity: i % 3, Date: date})
	}
	svc, _, _, _ := newSalesService(store, SalesOptions{})

	for _, sortBy := range []string{"date", "quantity"} {
		f := entity.FilterSpec{SortBy: sortBy}
		var walked []entity.Sale
		seen := map[primitive.ObjectID]bool{}
		for page := 1; ; page++ {
			res, err := svc.List(context.Background(), page, 5, f)
			require.NoError(t, err)
			for _, sale := range res.Sales {
				assert.False(t, seen[sale.ID], "sale %s repeated on page %d", sale.ID.Hex(), page)
				seen[sale.ID] = true
			}
			walked = append(walked, res.Sales...)
			if !res.Pagination.HasNextPage {
				assert.Equal(t, 3, res.Pagination.TotalPages)
				break
			}
		}

		assert.Equal(t, sortSales(store.sales, query.Sort(sortBy, "")), walked, "sortBy=%s", sortBy)
	}
}

func TestListDefaultsAndClamp(t *testing.T) {
	store := &fakeSaleStore{sales: make([]entity.Sale, 25)}
	svc, _, _, _ := newSalesService(store, SalesOptions{MaxPageSize: 20})

	page, err := svc.List(context.Background(), 0, 0, entity.FilterSpec{})
	require.NoError(t, err)
	assert.Len(t, page.Sales, 10)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
	assert.Equal(t, 3, page.Pagination.TotalPages)

	page, err = svc.List(context.Background(), 2, 500, entity.FilterSpec{})
	require.NoError(t, err)
	assert.Equal(t, 20, page.Pagination.ItemsPerPage)
	assert.Len(t, page.Sales, 5)

	last := store.finds[len(store.finds)-1]
	assert.Equal(t, int64(20), last.skip)
	assert.Equal(t, int64(20), last.limit)
}

func TestExportRoundTrip(t *testing.T) {
	stamp := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	original := []entity.Sale{
		{
			CustomerID: "CUST-1", CustomerName: "Ana, Jr.", PhoneNumber: "555-0100", Email: "ana@example.com",
			Gender: "Female", Age: 31, CustomerRegion: "East", CustomerType: "Member",
			ProductID: "PROD-1", ProductName: `Desk "Pro"`, Brand: "Acme", ProductCategory: "Furniture",
			Tags: []string{"office", "wood"}, Quantity: 3, PricePerUnit: 120.5, DiscountPercentage: 10,
			TotalAmount: 361.5, FinalAmount: 325.35, Date: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			PaymentMethod: "Card", OrderStatus: "Completed", DeliveryType: "Express", StoreID: "STORE-7",
			StoreLocation: "Boston", SalespersonID: "EMP-9", EmployeeName: "Bo", OrderID: "ORD-1",
			CreatedAt: stamp, UpdatedAt: stamp,
		},
		{
			CustomerID: "CUST-2", CustomerName: "Cy", PhoneNumber: "555-0101", Gender: "Male", Age: 40,
			CustomerRegion: "West", CustomerType: "Regular", ProductID: "PROD-2", ProductName: "Lamp",
			Brand: "Generic", ProductCategory: "Home", Tags: []string{}, Quantity: 1, PricePerUnit: 20,
			TotalAmount: 20, FinalAmount: 20, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			PaymentMethod: "Cash", OrderStatus: "Pending", DeliveryType: "Standard", StoreID: "STORE-1",
			StoreLocation: "West", SalespersonID: "EMP-1", EmployeeName: "Di", CreatedAt: stamp, UpdatedAt: stamp,
		},
	}

	data, err := EncodeSalesCSV(original)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), strings.Join(entity.SaleFields, ",")+"\n"))

	store := &fakeSaleStore{}
	normalizer := ingest.NewNormalizer(ingest.UploadProfile).WithClock(func() time.Time { return stamp })
	res, err := ingest.NewPipeline(store, normalizer, 10).Ingest(context.Background(), bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Zero(t, res.ErrorCount)

	require.Len(t, store.sales, 2)
	for i := range store.sales {
		got := store.sales[i]
		got.ID = primitive.NilObjectID
		assert.Equal(t, original[i], got)
	}
}

func TestEncodeSalesCSVEmpty(t *testing.T) {
	data, err := EncodeSalesCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "No data to export\n", string(data))
}

func TestFilterOptionsAreCached(t *testing.T) {
	store := &fakeSaleStore{
		distinct: map[string][]string{
			"customerRegion": {"East", "West"},
			"gender":         {"Female"},
			"tags":           {"office"},
		},
		ages: &entity.AgeRange{MinAge: 18, MaxAge: 70},
	}
	svc, cache, _, _ := newSalesService(store, SalesOptions{CacheTTL: time.Minute})

	opts, err := svc.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"East", "West"}, opts.Regions)
	assert.Equal(t, entity.AgeRange{MinAge: 18, MaxAge: 70}, opts.AgeRange)
	assert.Equal(t, 5, store.distincts)

	_, err = svc.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, store.distincts)

	EvictSalesAggregates(context.Background(), cache)
	_, err = svc.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, store.distincts)
}

func TestFilterOptionsDefaultAgeRange(t *testing.T) {
	svc, _, _, _ := newSalesService(&fakeSaleStore{}, SalesOptions{})

	opts, err := svc.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.AgeRange{MinAge: 0, MaxAge: 100}, opts.AgeRange)
}

func TestBulkDelete(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	store := &fakeSaleStore{sales: []entity.Sale{{ID: a}, {ID: b}}}
	svc, cache, pub, _ := newSalesService(store, SalesOptions{})

	_, err := svc.BulkDelete(context.Background(), nil)
	assert.ErrorIs(t, err, entity.ErrValidation)
	assert.EqualError(t, err, "Please provide sale IDs to delete")

	_, err = svc.BulkDelete(context.Background(), []string{"nope"})
	assert.ErrorIs(t, err, entity.ErrValidation)

	res, err := svc.BulkDelete(context.Background(), []string{a.Hex(), primitive.NewObjectID().Hex()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DeletedCount)
	assert.Equal(t, "Successfully deleted 1 sales records", res.Message)
	assert.Len(t, store.sales, 1)
	assert.Equal(t, 1, cache.deletes)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.SalesDeleted, pub.events[0].Type)
}

func TestDeleteMissingSale(t *testing.T) {
	svc, _, _, _ := newSalesService(&fakeSaleStore{}, SalesOptions{})

	err := svc.Delete(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestImportUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.csv")
	csv := "Customer Name,Product Name,Quantity,Price per Unit,Loyalty Tier\n" +
		"Ana,Desk,2,50,Gold\n" +
		"Bo,Lamp,-1,5,Silver\n" +
		"Cy,Chair,1,30,Gold\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	store := &fakeSaleStore{}
	svc, _, pub, log := newSalesService(store, SalesOptions{UploadMaxRows: 1000})

	res, err := svc.ImportUpload(context.Background(), path, "upload.csv")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Successfully imported 2 records", res.Message)
	assert.Equal(t, 3, res.Processed)
	assert.Len(t, res.Errors, 1)
	assert.Equal(t, []string{"loyaltyTier"}, res.NewFields)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	require.Len(t, log.runs, 1)
	assert.Equal(t, "completed", log.runs[0].Status)
	assert.Equal(t, 2, log.runs[0].Inserted)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.SalesImported, pub.events[0].Type)
	assert.Equal(t, 2, pub.events[0].Count)
}

func TestImportUploadNothingStored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.csv")
	csv := "Customer Name,Product Name,Quantity,Price per Unit\n" +
		"Ana,Desk,2,50\n" +
		"Bo,Lamp,1,5\n" +
		"Cy,Chair,1,30\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	store := &fakeSaleStore{insertErr: errStore}
	svc, _, pub, log := newSalesService(store, SalesOptions{UploadMaxRows: 1000})

	res, err := svc.ImportUpload(context.Background(), path, "upload.csv")
	require.Error(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, "None of the 3 records could be stored", res.Message)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "Batch 1")

	require.Len(t, log.runs, 1)
	assert.Equal(t, "failed", log.runs[0].Status)
	assert.Empty(t, pub.events)
}

func TestImportUploadOverLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.csv")
	require.NoError(t, os.WriteFile(path, []byte("customerName\nA\nB\nC\n"), 0o600))

	store := &fakeSaleStore{}
	svc, _, _, log := newSalesService(store, SalesOptions{UploadMaxRows: 2})

	_, err := svc.ImportUpload(context.Background(), path, "big.csv")
	var limitErr *ingest.LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 3, limitErr.Found)
	assert.Empty(t, store.sales)

	require.Len(t, log.runs, 1)
	assert.Equal(t, "failed", log.runs[0].Status)
}

func TestDebugAndUploads(t *testing.T) {
	store := &fakeSaleStore{sales: []entity.Sale{{CustomerName: "Ana", ProductName: "Desk", Quantity: 2}}}
	svc, _, _, log := newSalesService(store, SalesOptions{})

	debug, err := svc.Debug(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), debug.Total)
	require.Len(t, debug.Sample, 1)
	assert.Equal(t, "Desk", debug.Sample[0].ProductName)
	assert.Equal(t, int64(debugSampleSize), store.finds[len(store.finds)-1].limit)

	log.runs = []entity.ImportRun{{FileName: "a.csv"}, {FileName: "b.csv"}}
	runs, err := svc.Uploads(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	noLog := NewSalesService(store, nil, newFakeCache(), &fakePublisher{}, nil, SalesOptions{})
	runs, err = noLog.Uploads(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
