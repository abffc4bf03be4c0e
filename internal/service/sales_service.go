package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"retail-service/internal/entity"
	"retail-service/internal/events"
	"retail-service/internal/ingest"
	"retail-service/internal/query"
	"retail-service/internal/schema"
)

const (
	defaultPage      = 1
	defaultPageSize  = 10
	defaultUploadLog = 20
	debugSampleSize  = 5
)

type SalesOptions struct {
	MaxPageSize   int
	UploadMaxRows int
	CacheTTL      time.Duration
}

// SalesService lists, exports, imports and deletes sales.
type SalesService struct {
	sales     SaleStore
	cache     Cache
	publisher events.Publisher
	importLog ImportLog
	uploads   *ingest.Pipeline
	detector  *schema.Detector
	opts      SalesOptions
}

// NewSalesService creates a SalesService. importLog may be nil when no audit database is configured.
func NewSalesService(sales SaleStore, uploads *ingest.Pipeline, cache Cache, publisher events.Publisher, importLog ImportLog, opts SalesOptions) *SalesService {
	return &SalesService{
		sales:     sales,
		cache:     cache,
		publisher: publisher,
		importLog: importLog,
		uploads:   uploads,
		detector:  schema.NewDetector(),
		opts:      opts,
	}
}

// List returns one page of sales matching f. The page query and the count run concurrently.
func (s *SalesService) List(ctx context.Context, page, limit int, f entity.FilterSpec) (*entity.SalesPage, error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if s.opts.MaxPageSize > 0 && limit > s.opts.MaxPageSize {
		limit = s.opts.MaxPageSize
	}

	filter := query.Build(f)
	sort := query.Sort(f.SortBy, f.SortOrder)

	var sales []entity.Sale
	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.sales.Find(gctx, filter, sort, int64((page-1)*limit), int64(limit))
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.sales.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Error listing sales")
		return nil, err
	}

	return &entity.SalesPage{Sales: sales, Pagination: NewPagination(page, limit, total)}, nil
}

func NewPagination(page, limit int, total int64) entity.Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return entity.Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: limit,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
	}
}

// Export renders every sale matching f as CSV.
func (s *SalesService) Export(ctx context.Context, f entity.FilterSpec) ([]byte, error) {
	sales, err := s.sales.Find(ctx, query.Build(f), query.Sort(f.SortBy, f.SortOrder), 0, 0)
	if err != nil {
		logger.Error().Err(err).Msg("Error exporting sales")
		return nil, err
	}
	return EncodeSalesCSV(sales)
}

// FilterOptions returns the distinct values for the filter panel, served from cache when possible.
func (s *SalesService) FilterOptions(ctx context.Context) (*entity.FilterOptions, error) {
	var cached entity.FilterOptions
	found, err := s.cache.Get(ctx, filterOptionsKey, &cached)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting filter options from cache")
	}
	if found {
		return &cached, nil
	}

	opts := &entity.FilterOptions{AgeRange: entity.AgeRange{MinAge: 0, MaxAge: 100}}
	distinct := map[string]*[]string{
		"customerRegion":  &opts.Regions,
		"gender":          &opts.Genders,
		"productCategory": &opts.Categories,
		"tags":            &opts.Tags,
		"paymentMethod":   &opts.PaymentMethods,
	}

	g, gctx := errgroup.WithContext(ctx)
	for field, dst := range distinct {
		field, dst := field, dst
		g.Go(func() error {
			values, err := s.sales.Distinct(gctx, field)
			if err != nil {
				return fmt.Errorf("distinct %s: %w", field, err)
			}
			*dst = values
			return nil
		})
	}
	g.Go(func() error {
		ages, ok, err := s.sales.AgeRange(gctx)
		if err != nil {
			return fmt.Errorf("age range: %w", err)
		}
		if ok {
			opts.AgeRange = ages
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Error getting filter options")
		return nil, err
	}

	if err := s.cache.Set(ctx, filterOptionsKey, opts, s.opts.CacheTTL); err != nil {
		logger.Error().Err(err).Msg("Error setting filter options in cache")
	}
	return opts, nil
}

// ImportUpload ingests an uploaded CSV file. The file is always removed. Column drift is logged and reported but
// never blocks the import.
func (s *SalesService) ImportUpload(ctx context.Context, path, fileName string) (*entity.UploadResult, error) {
	var newFields []string
	detected, err := s.detector.DetectFile(path)
	if err != nil {
		logger.Warn().Err(err).Msgf("Schema detection skipped for %s", fileName)
	} else {
		cmp := schema.Diff(detected, entity.SaleFields)
		cmp.Log(fileName)
		newFields = cmp.Names()
	}

	res, err := s.uploads.IngestFile(ctx, path, s.opts.UploadMaxRows)
	s.recordImport(ctx, fileName, res, newFields, err)
	if err != nil {
		return nil, err
	}
	if res.Inserted == 0 {
		// Returned alongside the error so the caller can reconcile which rows failed.
		return &entity.UploadResult{
			Message:   fmt.Sprintf("None of the %d records could be stored", res.Processed),
			Processed: res.Processed,
			Errors:    res.Errors,
			NewFields: newFields,
		}, fmt.Errorf("none of the %d records could be stored", res.Processed)
	}

	EvictSalesAggregates(ctx, s.cache)
	s.publish(ctx, events.Event{Type: events.SalesImported, ID: fileName, Count: res.Inserted})

	return &entity.UploadResult{
		Success:   true,
		Message:   fmt.Sprintf("Successfully imported %d records", res.Inserted),
		Count:     res.Inserted,
		Processed: res.Processed,
		Errors:    res.Errors,
		NewFields: newFields,
	}, nil
}

func (s *SalesService) recordImport(ctx context.Context, fileName string, res *ingest.Result, newFields []string, ingestErr error) {
	if s.importLog == nil {
		return
	}

	run := &entity.ImportRun{
		FileName:  fileName,
		NewFields: strings.Join(newFields, ","),
		Status:    "completed",
		CreatedAt: time.Now().UTC(),
	}
	if res != nil {
		run.Processed, run.Inserted, run.ErrorCount = res.Processed, res.Inserted, res.ErrorCount
	}
	if ingestErr != nil || res == nil || res.Inserted == 0 {
		run.Status = "failed"
	}

	if _, err := s.importLog.Record(ctx, run); err != nil {
		logger.Error().Err(err).Msgf("Error recording import of %s", fileName)
	}
}

// Uploads lists recent CSV imports, newest first.
func (s *SalesService) Uploads(ctx context.Context, limit int) ([]entity.ImportRun, error) {
	if s.importLog == nil {
		return []entity.ImportRun{}, nil
	}
	if limit <= 0 {
		limit = defaultUploadLog
	}
	return s.importLog.Recent(ctx, limit)
}

func (s *SalesService) BulkDelete(ctx context.Context, ids []string) (*entity.BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, entity.Invalid("Please provide sale IDs to delete")
	}

	oids, err := parseSaleIDs(ids)
	if err != nil {
		return nil, err
	}

	deleted, err := s.sales.DeleteByIDs(ctx, oids)
	if err != nil {
		logger.Error().Err(err).Msg("Error deleting sales")
		return nil, err
	}

	if deleted > 0 {
		EvictSalesAggregates(ctx, s.cache)
		s.publish(ctx, events.Event{Type: events.SalesDeleted, ID: ids[0], SaleIDs: ids, Count: int(deleted)})
	}

	return &entity.BulkDeleteResult{
		Success:      true,
		Message:      fmt.Sprintf("Successfully deleted %d sales records", deleted),
		DeletedCount: deleted,
	}, nil
}

// Delete removes a single sale.
func (s *SalesService) Delete(ctx context.Context, id string) error {
	res, err := s.BulkDelete(ctx, []string{id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return &entity.NotFoundError{Resource: "Sale"}
	}
	return nil
}

// Debug reports the collection size and the latest few sales.
func (s *SalesService) Debug(ctx context.Context) (*entity.SalesDebug, error) {
	var total int64
	var latest []entity.Sale
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.sales.Count(gctx, bson.D{})
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = s.sales.Find(gctx, bson.D{}, bson.D{{Key: "date", Value: -1}}, 0, debugSampleSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	debug := &entity.SalesDebug{Total: total, Sample: make([]entity.SaleSummary, 0, len(latest))}
	for _, sale := range latest {
		debug.Sample = append(debug.Sample, entity.SaleSummary{
			CustomerName:    sale.CustomerName,
			PhoneNumber:     sale.PhoneNumber,
			ProductName:     sale.ProductName,
			ProductCategory: sale.ProductCategory,
			Quantity:        sale.Quantity,
			FinalAmount:     sale.FinalAmount,
			Date:            sale.Date,
		})
	}
	return debug, nil
}

func (s *SalesService) publish(ctx context.Context, event events.Event) {
	event.At = time.Now().UTC()
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Error().Err(err).Msgf("Error publishing %s", event.Key())
	}
}

func parseSaleIDs(ids []string) ([]primitive.ObjectID, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := parseObjectID(id, "sale")
		if err != nil {
			return nil, err
		}
		oids = append(oids, oid)
	}
	return oids, nil
}
