package hts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Header aliases accepted for each column, after normalization.
var columnAliases = map[string][]string{
	"code":        {"hts_number", "hts_code", "hts"},
	"description": {"description", "product_description"},
	"general":     {"general_rate_of_duty", "general", "duty_rate"},
	"special":     {"special_rate_of_duty", "special"},
	"unit":        {"unit_of_quantity", "unit"},
}

// ParseExportCSV reads a tariff schedule export (the "HTS Number,Indent,
// Description,..." CSV). Heading rows without a code are skipped.
func ParseExportCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("hts export is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read hts export header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalizeHeader(h)] = i
	}

	idx := make(map[string]int, len(columnAliases))
	for field, aliases := range columnAliases {
		idx[field] = -1
		for _, a := range aliases {
			if i, ok := cols[a]; ok {
				idx[field] = i
				break
			}
		}
	}
	if idx["code"] < 0 {
		return nil, fmt.Errorf("hts export has no hts_number column")
	}

	var entries []Entry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read hts export line %d: %w", line, err)
		}

		e := Entry{
			Code:           field(rec, idx["code"]),
			Description:    field(rec, idx["description"]),
			GeneralRate:    field(rec, idx["general"]),
			SpecialRate:    field(rec, idx["special"]),
			UnitOfQuantity: field(rec, idx["unit"]),
		}
		if e.Code == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// normalizeHeader lowercases and snake-cases a column title.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
