package schema

import (
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "schema").Logger()

type NewField struct {
	Name         string `json:"name"`
	Type         Type   `json:"type"`
	OriginalName string `json:"originalName"`
}

type Comparison struct {
	NewFields    []NewField `json:"newFields"`
	HasNewFields bool       `json:"hasNewFields"`
}

// Diff reports detected fields missing from known. Names are compared case-insensitively, since single-word
// headers such as "customerName" fold to "customername".
func Diff(detected Schema, known []string) Comparison {
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[strings.ToLower(k)] = true
	}

	cmp := Comparison{NewFields: []NewField{}}
	for name, field := range detected {
		if knownSet[strings.ToLower(name)] {
			continue
		}
		cmp.NewFields = append(cmp.NewFields, NewField{Name: name, Type: field.Type, OriginalName: field.OriginalName})
	}
	sort.Slice(cmp.NewFields, func(i, j int) bool { return cmp.NewFields[i].Name < cmp.NewFields[j].Name })
	cmp.HasNewFields = len(cmp.NewFields) > 0

	return cmp
}

// ColumnMapping maps original headers to their normalized names.
func ColumnMapping(detected Schema) map[string]string {
	mapping := make(map[string]string, len(detected))
	for name, field := range detected {
		mapping[field.OriginalName] = name
	}
	return mapping
}

// Names returns the new field names.
func (c Comparison) Names() []string {
	names := make([]string, len(c.NewFields))
	for i, f := range c.NewFields {
		names[i] = f.Name
	}
	return names
}

// Log writes the comparison for source. Drift is advisory and never changes the store.
func (c Comparison) Log(source string) {
	if !c.HasNewFields {
		logger.Info().Str("source", source).Msg("CSV columns match the sales schema")
		return
	}

	for _, f := range c.NewFields {
		logger.Warn().
			Str("source", source).
			Str("field", f.Name).
			Str("column", f.OriginalName).
			Str("type", string(f.Type)).
			Msg("CSV column not in sales schema")
	}
}
