package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"retail-service/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "ingest").Logger()

const (
	DefaultBatchSize  = 5000
	maxReportedErrors = 500
)

var ErrNoData = errors.New("no valid data found in CSV")

// LimitExceededError reports the true number of rows found when a file is over the row limit.
type LimitExceededError struct {
	Found int
	Max   int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("Upload limit exceeded! %d records found, max %d allowed. Please split into multiple files.",
		e.Found, e.Max)
}

// SaleWriter inserts a batch without stopping at the first bad document and reports how many were stored.
type SaleWriter interface {
	InsertMany(ctx context.Context, sales []entity.Sale) (int, error)
}

type Result struct {
	Inserted   int      `json:"inserted"`
	Processed  int      `json:"processed"`
	ErrorCount int      `json:"errorCount"`
	Errors     []string `json:"errors,omitempty"`
}

func (r *Result) addError(msg string) {
	r.ErrorCount++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, msg)
	}
}

type Pipeline struct {
	store      SaleWriter
	normalizer *Normalizer
	batchSize  int
}

func NewPipeline(store SaleWriter, normalizer *Normalizer, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{store: store, normalizer: normalizer, batchSize: batchSize}
}

// IngestFile ingests the CSV at path and removes the file on every exit path. With maxRecords > 0 the rows are
// counted first so an oversized file is rejected before anything is stored.
func (p *Pipeline) IngestFile(ctx context.Context, path string, maxRecords int) (*Result, error) {
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Msgf("Failed to remove upload %s", path)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	if maxRecords > 0 {
		n, err := CountRows(f)
		if err != nil {
			return nil, fmt.Errorf("count rows: %w", err)
		}
		if n > maxRecords {
			return &Result{Processed: n}, &LimitExceededError{Found: n, Max: maxRecords}
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind upload: %w", err)
		}
	}

	return p.Ingest(ctx, f, maxRecords)
}

// Ingest streams rows from r into the store in batches. Rows past maxRecords are counted but never stored, and the
// call then fails with a *LimitExceededError; batches flushed before the limit was crossed stay stored. A
// maxRecords of 0 disables the limit.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader, maxRecords int) (*Result, error) {
	res := &Result{}

	rows, err := NewRowReader(r)
	if err != nil {
		return res, err
	}

	batch := make([]entity.Sale, 0, p.batchSize)
	valid, batches := 0, 0

	for {
		row, index, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		var rowErr *RowError
		if errors.As(err, &rowErr) {
			res.Processed++
			res.addError(rowErr.Error())
			continue
		}
		if err != nil {
			return res, fmt.Errorf("read csv: %w", err)
		}

		res.Processed++
		if maxRecords > 0 && res.Processed > maxRecords {
			res.addError(fmt.Sprintf("Row %d: Upload limit exceeded (max %d records)", index, maxRecords))
			continue
		}

		sale, err := p.normalizer.Normalize(row, index)
		if err != nil {
			res.addError(err.Error())
			continue
		}

		valid++
		batch = append(batch, sale)
		if len(batch) >= p.batchSize {
			batches++
			p.flush(ctx, batches, batch, res)
			batch = batch[:0]
		}
	}

	if maxRecords > 0 && res.Processed > maxRecords {
		return res, &LimitExceededError{Found: res.Processed, Max: maxRecords}
	}
	if valid == 0 {
		return res, ErrNoData
	}

	if len(batch) > 0 {
		batches++
		p.flush(ctx, batches, batch, res)
	}

	logger.Info().
		Str("profile", p.normalizer.Profile().Name).
		Int("processed", res.Processed).
		Int("inserted", res.Inserted).
		Int("errors", res.ErrorCount).
		Msg("CSV ingestion finished")

	return res, nil
}

func (p *Pipeline) flush(ctx context.Context, n int, batch []entity.Sale, res *Result) {
	inserted, err := p.store.InsertMany(ctx, batch)
	res.Inserted += inserted
	if err != nil {
		logger.Error().Err(err).Msgf("Batch %d stored %d of %d records", n, inserted, len(batch))
		res.addError(fmt.Sprintf("Batch %d: %d of %d records failed: %v", n, len(batch)-inserted, len(batch), err))
		return
	}
	logger.Debug().Msgf("Batch %d stored %d records", n, inserted)
}
