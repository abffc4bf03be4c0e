package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
)

type Type string

const (
	Number  Type = "Number"
	Date    Type = "Date"
	Boolean Type = "Boolean"
	String  Type = "String"
)

const (
	sampleRows = 1000
	maxSamples = 100
	threshold  = 0.8
)

// Field describes one detected column.
type Field struct {
	OriginalName string `json:"originalName"`
	Type         Type   `json:"type"`
	Default      any    `json:"default"`
	IsInteger    bool   `json:"isInteger,omitempty"`
}

// Schema maps normalized field names to detected columns.
type Schema map[string]Field

type Detector struct {
	now func() time.Time
}

func NewDetector() *Detector {
	return &Detector{now: time.Now}
}

func (d *Detector) DetectFile(path string) (Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	return d.Detect(f)
}

// Detect samples the first rows of a CSV and infers a type for each column.
func (d *Detector) Detect(r io.Reader) (Schema, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Schema{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	samples := make([][]string, len(header))
	for rows := 0; rows < sampleRows; rows++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		for i := range header {
			if i >= len(record) || len(samples[i]) >= maxSamples {
				continue
			}
			if v := strings.TrimSpace(record[i]); v != "" {
				samples[i] = append(samples[i], v)
			}
		}
	}

	schema := make(Schema, len(header))
	for i, original := range header {
		name := NormalizeFieldName(original)
		if name == "" {
			continue
		}
		if _, ok := schema[name]; ok {
			continue
		}

		typ, isInt := DetectType(samples[i])
		schema[name] = Field{
			OriginalName: strings.TrimSpace(original),
			Type:         typ,
			Default:      d.defaultFor(typ),
			IsInteger:    isInt,
		}
	}

	return schema, nil
}

func (d *Detector) defaultFor(t Type) any {
	switch t {
	case Number:
		return 0
	case Date:
		return d.now()
	case Boolean:
		return false
	default:
		return ""
	}
}

// DetectType classifies sampled values. The integer flag is only meaningful for Number.
func DetectType(samples []string) (Type, bool) {
	if len(samples) == 0 {
		return String, false
	}

	numeric, dates, bools := 0, 0, 0
	hasDot := false
	for _, s := range samples {
		if isNumber(s) {
			numeric++
		}
		if strings.Contains(s, ".") {
			hasDot = true
		}
		if isDate(s) {
			dates++
		}
		if isBool(s) {
			bools++
		}
	}

	total := float64(len(samples))
	switch {
	case float64(numeric) > total*threshold:
		return Number, !hasDot
	case float64(dates) > total*threshold:
		return Date, false
	case float64(bools) > total*threshold:
		return Boolean, false
	}
	return String, false
}

func isNumber(s string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil && !math.IsInf(v, 0) && !math.IsNaN(v)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "0", "1", "yes", "no":
		return true
	}
	return false
}

// NormalizeFieldName folds a column header into a camel-cased field name: "Customer Name" becomes "customerName".
func NormalizeFieldName(header string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r)) {
			return r
		}
		return -1
	}, strings.TrimSpace(header))

	words := strings.Fields(cleaned)
	for i, w := range words {
		w = strings.ToLower(w)
		if i > 0 {
			w = strings.ToUpper(w[:1]) + w[1:]
		}
		words[i] = w
	}
	return strings.Join(words, "")
}
