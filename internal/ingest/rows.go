package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RowReader pulls CSV data rows one at a time. It is not restartable.
type RowReader struct {
	r      *csv.Reader
	header []string
	index  int
}

// NewRowReader reads the header line. An input without one yields ErrNoData.
func NewRowReader(r io.Reader) (*RowReader, error) {
	cr := newCSVReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}

	return &RowReader{r: cr, header: header}, nil
}

func (rr *RowReader) Header() []string { return rr.header }

// Next returns the next data row and its 1-based index. It returns io.EOF after the last row, and a *RowError for a
// malformed line, after which reading may continue.
func (rr *RowReader) Next() (Row, int, error) {
	record, err := rr.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, rr.index, io.EOF
	}

	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		rr.index++
		return nil, rr.index, &RowError{Row: rr.index, Message: parseErr.Err.Error()}
	}
	if err != nil {
		return nil, rr.index, err
	}

	rr.index++
	row := make(Row, len(rr.header))
	for i, name := range rr.header {
		if name == "" || i >= len(record) {
			continue
		}
		row[name] = record[i]
	}
	return row, rr.index, nil
}

// CountRows counts data rows without keeping them.
func CountRows(r io.Reader) (int, error) {
	cr := newCSVReader(r)
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("read csv header: %w", err)
	}

	n := 0
	for {
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			return n, err
		}
		n++
	}
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}
