package main

import (
	"encoding/json"
	"fmt"
	"os"

	"retail-service/internal/entity"
	"retail-service/internal/schema"
)

type report struct {
	File       string            `json:"file"`
	Fields     schema.Schema     `json:"fields"`
	Mapping    map[string]string `json:"mapping"`
	Comparison schema.Comparison `json:"comparison"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: schemacheck file.csv [file.csv...]")
		os.Exit(2)
	}

	detector := schema.NewDetector()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	failed := false
	for _, path := range os.Args[1:] {
		detected, err := detector.DetectFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}

		cmp := schema.Diff(detected, entity.SaleFields)
		if err := enc.Encode(report{
			File:       path,
			Fields:     detected,
			Mapping:    schema.ColumnMapping(detected),
			Comparison: cmp,
		}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if failed {
		os.Exit(1)
	}
}
