// Package report moves batches in and out of tabular form: the CSV upload a
// user fills in, and the CSV and text renderings of the results.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/landedcost/internal/duty"
)

// Upload columns. country_of_origin is optional.
const (
	colHTSCode    = "hts_code"
	colCost       = "cost"
	colFreight    = "freight"
	colInsurance  = "insurance"
	colQuantity   = "quantity"
	colUnitWeight = "unit_weight"
	colCountry    = "country_of_origin"
)

var requiredColumns = []string{colHTSCode, colCost, colFreight, colInsurance, colQuantity, colUnitWeight}

// ReadBatchCSV parses an upload into batch rows. Row IDs are 1-based data
// row numbers. A row with a bad cell becomes a row carrying an
// invalid_input error; only a broken header or unreadable CSV fails the read.
func ReadBatchCSV(r io.Reader, cfg duty.Config) ([]duty.BatchRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("batch upload is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read batch header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalizeHeader(h)] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("batch upload is missing column(s): %s", strings.Join(missing, ", "))
	}

	var rows []duty.BatchRow
	n := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read batch row %d: %w", n+1, err)
		}
		if blank(rec) {
			continue
		}
		n++

		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		row := duty.BatchRow{RowID: strconv.Itoa(n)}
		in, err := parseRow(get)
		if err == nil {
			row.Item, err = duty.NewShipmentLineItem(in, cfg)
		}
		if err != nil {
			row.Item.HTSCode = get(colHTSCode)
			row.Err = err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(get func(string) string) (duty.ShipmentInput, error) {
	in := duty.ShipmentInput{
		HTSCode:         get(colHTSCode),
		CountryOfOrigin: get(colCountry),
	}

	if get(colCost) == "" {
		return in, cellError(in.HTSCode, colCost, "is required")
	}

	amounts := []struct {
		col string
		dst *decimal.Decimal
	}{
		{colCost, &in.Cost},
		{colFreight, &in.Freight},
		{colInsurance, &in.Insurance},
		{colUnitWeight, &in.UnitWeight},
	}
	for _, a := range amounts {
		d, err := parseAmount(get(a.col))
		if err != nil {
			return in, cellError(in.HTSCode, a.col, "must be numeric")
		}
		*a.dst = d
	}

	q, err := parseAmount(get(colQuantity))
	if err != nil || !q.Equal(q.Truncate(0)) {
		return in, cellError(in.HTSCode, colQuantity, "must be a whole number")
	}
	in.Quantity = int(q.IntPart())
	return in, nil
}

// parseAmount reads a money or weight cell; blank means zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

func cellError(code, field, reason string) error {
	return &duty.Error{Kind: duty.KindInvalidInput, Code: code, Field: field, Reason: reason}
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// WriteTemplate writes an example upload.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	records := [][]string{
		{colHTSCode, colCost, colFreight, colInsurance, colQuantity, colUnitWeight, colCountry},
		{"0101.21.00", "1000.00", "100.00", "50.00", "10", "100.0", "CN"},
		{"0102.29.40", "2000.00", "200.00", "100.00", "5", "200.0", "MX"},
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write batch template: %w", err)
	}
	return nil
}

var resultHeader = []string{
	"row_id", "hts_code", "product_description", "country_of_origin",
	"cif_value", "duty_rate", "duty_type", "duty_amount", "total_landed_cost", "error_kind", "error",
}

// WriteResults writes one line per outcome, in batch order. Failed rows carry
// their reason in the error column and leave the amounts blank.
func WriteResults(w io.Writer, res duty.BatchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultHeader); err != nil {
		return fmt.Errorf("write results header: %w", err)
	}

	for _, o := range res.Outcomes {
		var rec []string
		if o.OK() {
			r := o.Result
			rec = []string{
				o.RowID, r.HTSCode, r.Description, r.Country,
				money(r.CIFValue), r.DutyRate, string(r.DutyType), money(r.DutyAmount), money(r.TotalLandedCost), "", "",
			}
		} else {
			rec = []string{o.RowID, o.Failure.HTSCode, "", "", "", "", "", "", "", string(o.Failure.Kind), o.Failure.Reason}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write result row %s: %w", o.RowID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
