package duty

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind tags a parsed rate component.
type Kind string

const (
	KindFree              Kind = "free"
	KindAdValorem         Kind = "ad_valorem"
	KindSpecificPerWeight Kind = "specific_per_weight"
	KindSpecificPerUnit   Kind = "specific_per_unit"
	KindUnknown           Kind = "unknown"
)

// RateComponent is one clause of a duty rate. Magnitude is a fraction for
// ad valorem rates and an amount in Config.Currency per kilogram or per unit
// for specific rates; it is zero for free and unknown components.
type RateComponent struct {
	Kind      Kind            `json:"kind"`
	Magnitude decimal.Decimal `json:"magnitude"`
	Unit      string          `json:"unit,omitempty"`
	Text      string          `json:"text"`
}

const numberPattern = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?|\.\d+)`

var (
	clauseSeparator = regexp.MustCompile(`(?i)\s*\+\s*|\s+and\s+`)
	percentClause   = regexp.MustCompile(`^` + numberPattern + `\s*%$`)
	specificClause  = regexp.MustCompile(`^(\$)?\s*` + numberPattern + `\s*(\S.*)$`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// matcher classifies a single clause; ok is false when the clause is not
// its kind.
type matcher func(clause string, cfg Config) (c RateComponent, ok bool)

// matchers run in precedence order; the first that accepts a clause wins.
var matchers = []matcher{
	matchFree,
	matchAdValorem,
	matchPerWeight,
	matchPerUnit,
}

// Parse splits raw on "+" and "and" and classifies every clause. Clauses no
// matcher accepts are returned as KindUnknown with their text intact; they
// are never dropped. Blank input yields no components.
func Parse(raw string, cfg Config) []RateComponent {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	clauses := clauseSeparator.Split(raw, -1)
	components := make([]RateComponent, 0, len(clauses))
	for _, clause := range clauses {
		components = append(components, classify(strings.TrimSpace(clause), cfg))
	}
	return components
}

func classify(clause string, cfg Config) RateComponent {
	for _, m := range matchers {
		if c, ok := m(clause, cfg); ok {
			c.Text = clause
			return c
		}
	}
	return RateComponent{Kind: KindUnknown, Text: clause}
}

func matchFree(clause string, _ Config) (RateComponent, bool) {
	switch strings.ToLower(whitespace.ReplaceAllString(clause, " ")) {
	case "free", "duty free", "duty-free":
		return RateComponent{Kind: KindFree}, true
	}
	return RateComponent{}, false
}

func matchAdValorem(clause string, _ Config) (RateComponent, bool) {
	m := percentClause.FindStringSubmatch(clause)
	if m == nil {
		return RateComponent{}, false
	}
	pct, ok := parseNumber(m[1])
	if !ok {
		return RateComponent{}, false
	}
	return RateComponent{
		Kind:      KindAdValorem,
		Magnitude: pct.Div(decimal.NewFromInt(100)),
		Unit:      "%",
	}, true
}

func matchPerWeight(clause string, cfg Config) (RateComponent, bool) {
	return matchSpecific(clause, KindSpecificPerWeight, cfg.WeightUnits)
}

func matchPerUnit(clause string, cfg Config) (RateComponent, bool) {
	return matchSpecific(clause, KindSpecificPerUnit, cfg.UnitUnits)
}

// matchSpecific accepts "<number><unit>" and "$<number><unit>"; the leading
// dollar sign is folded into the unit spelling, so "$1.89/kg" looks up "$/kg".
func matchSpecific(clause string, kind Kind, units map[string]decimal.Decimal) (RateComponent, bool) {
	m := specificClause.FindStringSubmatch(clause)
	if m == nil {
		return RateComponent{}, false
	}

	unit := m[1] + strings.ToLower(whitespace.ReplaceAllString(m[3], ""))
	scale, known := units[unit]
	if !known {
		return RateComponent{}, false
	}

	amount, ok := parseNumber(m[2])
	if !ok {
		return RateComponent{}, false
	}
	return RateComponent{
		Kind:      kind,
		Magnitude: amount.Mul(scale),
		Unit:      unit,
	}, true
}

// parseNumber reads a decimal that may carry comma thousands separators.
func parseNumber(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
