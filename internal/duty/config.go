package duty

import "github.com/shopspring/decimal"

const (
	defaultCountry  = "CN"
	defaultCurrency = "USD"
)

// Config carries everything the engine would otherwise read from process
// state. Entry points take it explicitly so tests can vary it freely.
type Config struct {
	// DefaultCountry is the origin assumed when a line item leaves it blank.
	DefaultCountry string
	// Currency is the denomination of every monetary input and output.
	Currency string
	// WeightUnits maps a specific-per-kilogram unit spelling to the factor
	// that converts its amount into Currency per kilogram.
	WeightUnits map[string]decimal.Decimal
	// UnitUnits maps a specific-per-article unit spelling to the factor that
	// converts its amount into Currency per unit.
	UnitUnits map[string]decimal.Decimal
	// CountryNames expands origin codes for display only.
	CountryNames map[string]string
}

var cent = decimal.New(1, -2)

// DefaultConfig returns the US-dollar configuration used by the HTS schedule.
func DefaultConfig() Config {
	return Config{
		DefaultCountry: defaultCountry,
		Currency:       defaultCurrency,
		WeightUnits: map[string]decimal.Decimal{
			"¢/kg":     cent,
			"c/kg":     cent,
			"cent/kg":  cent,
			"cents/kg": cent,
			"$/kg":     decimal.NewFromInt(1),
		},
		UnitUnits: map[string]decimal.Decimal{
			"¢/unit":        cent,
			"¢/article":     cent,
			"¢/each":        cent,
			"¢each":         cent,
			"centseach":     cent,
			"cents/unit":    cent,
			"cents/article": cent,
			"$/unit":        decimal.NewFromInt(1),
			"$/article":     decimal.NewFromInt(1),
			"$/each":        decimal.NewFromInt(1),
			"$each":         decimal.NewFromInt(1),
		},
		CountryNames: map[string]string{
			"AU": "Australia",
			"CA": "Canada",
			"CN": "China",
			"DE": "Germany",
			"FR": "France",
			"GB": "United Kingdom",
			"IN": "India",
			"JP": "Japan",
			"KR": "South Korea",
			"MX": "Mexico",
			"RU": "Russia",
			"US": "United States",
		},
	}
}

// CountryName returns the display name for an origin code, or the code
// itself when no expansion is configured.
func (c Config) CountryName(code string) string {
	if name, ok := c.CountryNames[code]; ok {
		return name
	}
	return code
}
