// Package catalog loads the product catalog and serves it as an immutable
// in-memory index with precomputed search documents.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// LoadCSV parses a catalog CSV into product rows. Expected header:
// id,gender,masterCategory,subCategory,articleType,baseColour,season,year,usage,productDisplayName
// Rows with a missing or non-positive id are skipped; a missing year parses
// as 0 (unknown).
func LoadCSV(path string) ([]domain.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // product names may contain unescaped commas upstream

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	col := columnIndex(header)

	var items []domain.Product
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog row: %w", err)
		}

		id, err := strconv.Atoi(strings.TrimSpace(field(record, col, "id")))
		if err != nil || id <= 0 {
			continue
		}

		year := 0
		if raw := strings.TrimSpace(field(record, col, "year")); raw != "" {
			if parsed, err := strconv.Atoi(strings.Split(raw, ".")[0]); err == nil {
				year = parsed
			}
		}

		items = append(items, domain.Product{
			ID:             id,
			Gender:         strings.TrimSpace(field(record, col, "gender")),
			MasterCategory: strings.TrimSpace(field(record, col, "mastercategory")),
			SubCategory:    strings.TrimSpace(field(record, col, "subcategory")),
			ArticleType:    strings.TrimSpace(field(record, col, "articletype")),
			BaseColour:     strings.TrimSpace(field(record, col, "basecolour")),
			Season:         strings.TrimSpace(field(record, col, "season")),
			Year:           year,
			Usage:          strings.TrimSpace(field(record, col, "usage")),
			Name:           strings.TrimSpace(field(record, col, "productdisplayname")),
		})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("catalog csv %s contains no usable rows", path)
	}
	return items, nil
}

type columns map[string]int

func columnIndex(header []string) columns {
	out := make(columns, len(header))
	for i, name := range header {
		out[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return out
}

func field(record []string, col columns, name string) string {
	idx, ok := col[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}
