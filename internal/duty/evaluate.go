package duty

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// DutyType labels the overall shape of a resolved rate.
type DutyType string

const (
	DutyTypeFree              DutyType = "free"
	DutyTypeAdValorem         DutyType = "ad_valorem"
	DutyTypeSpecificPerWeight DutyType = "specific_per_weight"
	DutyTypeSpecificPerUnit   DutyType = "specific_per_unit"
	DutyTypeCompound          DutyType = "compound"
	DutyTypeUnresolved        DutyType = "unresolved"
)

// Breakdown labels.
const (
	LabelDutyFree           = "duty_free"
	LabelAdValoremDuty      = "ad_valorem_duty"
	LabelSpecificWeightDuty = "specific_weight_duty"
	LabelSpecificUnitDuty   = "specific_unit_duty"
)

// Evaluation is the duty owed for a set of rate components.
type Evaluation struct {
	DutyAmount decimal.Decimal
	DutyType   DutyType
	// Breakdown maps a component label to its contribution; its values sum
	// to DutyAmount.
	Breakdown map[string]decimal.Decimal
	// Unresolved holds the text of every unknown clause.
	Unresolved []string
}

// Evaluate prices each component against item and cif. Unknown components
// add nothing to DutyAmount but force DutyTypeUnresolved. A per-kilogram
// component on an item without weight is a MissingStructuralInput error.
func Evaluate(components []RateComponent, item ShipmentLineItem, cif decimal.Decimal) (Evaluation, error) {
	ev := Evaluation{
		DutyAmount: decimal.Zero,
		Breakdown:  make(map[string]decimal.Decimal, len(components)),
	}

	var (
		contributing int
		lastKind     Kind
		sawFree      bool
	)
	for _, c := range components {
		var (
			label  string
			amount decimal.Decimal
		)
		switch c.Kind {
		case KindFree:
			sawFree = true
			label, amount = LabelDutyFree, decimal.Zero
		case KindAdValorem:
			label, amount = LabelAdValoremDuty, c.Magnitude.Mul(cif)
		case KindSpecificPerWeight:
			if !item.UnitWeight.IsPositive() {
				return Evaluation{}, &Error{
					Kind:   KindMissingStructuralInput,
					Code:   item.HTSCode,
					Field:  "unit_weight",
					Reason: "is required for per-kilogram rate " + strconv.Quote(c.Text),
				}
			}
			label, amount = LabelSpecificWeightDuty, c.Magnitude.Mul(item.TotalWeight())
		case KindSpecificPerUnit:
			label, amount = LabelSpecificUnitDuty, c.Magnitude.Mul(decimal.NewFromInt(int64(item.Quantity)))
		default:
			ev.Unresolved = append(ev.Unresolved, c.Text)
			continue
		}

		if c.Kind != KindFree {
			contributing++
			lastKind = c.Kind
		}
		ev.Breakdown[label] = ev.Breakdown[label].Add(amount)
		ev.DutyAmount = ev.DutyAmount.Add(amount)
	}

	switch {
	case len(ev.Unresolved) > 0 || len(components) == 0:
		ev.DutyType = DutyTypeUnresolved
	case contributing > 1:
		ev.DutyType = DutyTypeCompound
	case contributing == 1:
		ev.DutyType = DutyType(lastKind)
	case sawFree:
		ev.DutyType = DutyTypeFree
	}
	return ev, nil
}
