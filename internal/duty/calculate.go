package duty

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Reference is what the tariff reference data knows about a code.
type Reference struct {
	Code        string
	RateText    string
	Description string
}

// RateSource resolves a tariff code to its published rate text. A missing
// code must be reported with an error wrapping ErrCodeNotFound.
type RateSource interface {
	LookupRate(ctx context.Context, code string) (Reference, error)
}

// Result is the landed-cost computation for one line item.
type Result struct {
	HTSCode         string                     `json:"hts_code"`
	Description     string                     `json:"product_description"`
	Country         string                     `json:"country_of_origin"`
	CountryName     string                     `json:"country_name"`
	Currency        string                     `json:"currency"`
	Cost            decimal.Decimal            `json:"cost"`
	Freight         decimal.Decimal            `json:"freight"`
	Insurance       decimal.Decimal            `json:"insurance"`
	CIFValue        decimal.Decimal            `json:"cif_value"`
	DutyRate        string                     `json:"duty_rate"`
	Components      []RateComponent            `json:"components"`
	DutyAmount      decimal.Decimal            `json:"duty_amount"`
	TotalLandedCost decimal.Decimal            `json:"total_landed_cost"`
	DutyType        DutyType                   `json:"duty_type"`
	Breakdown       map[string]decimal.Decimal `json:"breakdown"`
}

// Calculator turns a line item and its rate text into a landed cost.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	cfg Config
}

// NewCalculator returns a Calculator bound to cfg.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Config returns the configuration the calculator was built with.
func (c *Calculator) Config() Config { return c.cfg }

// Calculate resolves rateText and applies it to item. It fails rather than
// guess: blank rate text, any unrecognized clause and missing weight for a
// per-kilogram rate are all errors of type *Error.
func (c *Calculator) Calculate(item ShipmentLineItem, rateText, description string) (Result, error) {
	if err := item.Validate(); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(rateText) == "" {
		return Result{}, &Error{
			Kind:   KindMissingStructuralInput,
			Code:   item.HTSCode,
			Field:  "duty_rate",
			Reason: "is empty in reference data",
		}
	}

	components := Parse(rateText, c.cfg)
	if unknown := unknownClauses(components); len(unknown) > 0 {
		return Result{}, &Error{
			Kind:     KindParseUnresolved,
			Code:     item.HTSCode,
			RateText: rateText,
			Clauses:  unknown,
		}
	}

	cif := CIFValue(item)
	ev, err := Evaluate(components, item, cif)
	if err != nil {
		return Result{}, err
	}

	return Result{
		HTSCode:         item.HTSCode,
		Description:     description,
		Country:         item.CountryOfOrigin,
		CountryName:     c.cfg.CountryName(item.CountryOfOrigin),
		Currency:        c.cfg.Currency,
		Cost:            item.Cost,
		Freight:         item.Freight,
		Insurance:       item.Insurance,
		CIFValue:        cif,
		DutyRate:        rateText,
		Components:      components,
		DutyAmount:      ev.DutyAmount,
		TotalLandedCost: cif.Add(ev.DutyAmount),
		DutyType:        ev.DutyType,
		Breakdown:       ev.Breakdown,
	}, nil
}

// CalculateCode looks item's tariff code up in src and calculates it.
// An unknown code is a KindLookupFailure error.
func (c *Calculator) CalculateCode(ctx context.Context, item ShipmentLineItem, src RateSource) (Result, error) {
	ref, err := lookup(ctx, src, item.HTSCode)
	if err != nil {
		return Result{}, err
	}
	return c.Calculate(item, ref.RateText, ref.Description)
}

func lookup(ctx context.Context, src RateSource, code string) (Reference, error) {
	ref, err := src.LookupRate(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return Reference{}, &Error{Kind: KindLookupFailure, Code: code, Err: err}
		}
		return Reference{}, fmt.Errorf("lookup tariff code %q: %w", code, err)
	}
	return ref, nil
}

func unknownClauses(components []RateComponent) []string {
	var out []string
	for _, c := range components {
		if c.Kind == KindUnknown {
			out = append(out, c.Text)
		}
	}
	return out
}
