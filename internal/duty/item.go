package duty

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// htsCodePattern is a heading followed by period-delimited subheading and
// statistical groups: 0101, 0101.21, 0101.21.00, 0102.29.40.24.
var htsCodePattern = regexp.MustCompile(`^\d{4}(\.\d{2,4})*$`)

// ShipmentInput is the raw, unvalidated description of one line item.
type ShipmentInput struct {
	HTSCode         string
	Cost            decimal.Decimal
	Freight         decimal.Decimal
	Insurance       decimal.Decimal
	Quantity        int
	UnitWeight      decimal.Decimal
	CountryOfOrigin string
}

// ShipmentLineItem is a validated line item. Build it with
// NewShipmentLineItem; the engine never mutates it.
type ShipmentLineItem struct {
	HTSCode         string
	Cost            decimal.Decimal
	Freight         decimal.Decimal
	Insurance       decimal.Decimal
	Quantity        int
	UnitWeight      decimal.Decimal // kilograms per unit
	CountryOfOrigin string
}

// NewShipmentLineItem normalizes and validates in. A blank origin falls back
// to cfg.DefaultCountry.
func NewShipmentLineItem(in ShipmentInput, cfg Config) (ShipmentLineItem, error) {
	country := strings.TrimSpace(in.CountryOfOrigin)
	if country == "" {
		country = cfg.DefaultCountry
	}

	item := ShipmentLineItem{
		HTSCode:         strings.TrimSpace(in.HTSCode),
		Cost:            in.Cost,
		Freight:         in.Freight,
		Insurance:       in.Insurance,
		Quantity:        in.Quantity,
		UnitWeight:      in.UnitWeight,
		CountryOfOrigin: country,
	}

	if country != "" {
		region, err := language.ParseRegion(country)
		if err != nil || !region.IsCountry() {
			e := invalidInput("country_of_origin", "must be an ISO 3166 country code")
			e.Code = item.HTSCode
			return ShipmentLineItem{}, e
		}
		item.CountryOfOrigin = region.String()
	}

	if err := item.Validate(); err != nil {
		return ShipmentLineItem{}, err
	}
	return item, nil
}

// Validate checks the numeric invariants of a line item.
func (it ShipmentLineItem) Validate() error {
	var e *Error
	switch {
	case it.HTSCode == "":
		e = invalidInput("hts_code", "is required")
	case !htsCodePattern.MatchString(it.HTSCode):
		e = invalidInput("hts_code", "must be period-delimited digit groups such as 0101.21.00")
	case it.Cost.IsNegative():
		e = invalidInput("cost", "must be greater than or equal to 0")
	case it.Freight.IsNegative():
		e = invalidInput("freight", "must be greater than or equal to 0")
	case it.Insurance.IsNegative():
		e = invalidInput("insurance", "must be greater than or equal to 0")
	case it.Quantity < 1:
		e = invalidInput("quantity", "must be at least 1")
	case it.UnitWeight.IsNegative():
		e = invalidInput("unit_weight", "must be greater than or equal to 0")
	}
	if e != nil {
		e.Code = it.HTSCode
		return e
	}
	return nil
}

// TotalWeight is the shipment weight in kilograms.
func (it ShipmentLineItem) TotalWeight() decimal.Decimal {
	return it.UnitWeight.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// CIFValue is the customs valuation basis: cost plus insurance plus freight.
func CIFValue(it ShipmentLineItem) decimal.Decimal {
	return it.Cost.Add(it.Freight).Add(it.Insurance)
}
