package duty

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

// horses is the reference shipment: cost 1000, freight 100, insurance 50,
// ten units of 100 kg.
func horses(t *testing.T) ShipmentLineItem {
	t.Helper()
	item, err := NewShipmentLineItem(ShipmentInput{
		HTSCode:    "0101.21.00",
		Cost:       dec("1000"),
		Freight:    dec("100"),
		Insurance:  dec("50"),
		Quantity:   10,
		UnitWeight: dec("100"),
	}, DefaultConfig())
	require.NoError(t, err)
	return item
}

func TestCalculate_Free(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	res, err := calc.Calculate(horses(t), "Free", "Purebred breeding horses")
	require.NoError(t, err)

	assertDecimal(t, "cif", res.CIFValue, "1150.00")
	assertDecimal(t, "duty", res.DutyAmount, "0")
	assertDecimal(t, "total", res.TotalLandedCost, "1150.00")
	assert.Equal(t, DutyTypeFree, res.DutyType)
	assert.Equal(t, "Purebred breeding horses", res.Description)
	assert.Equal(t, "CN", res.Country)
	assert.Equal(t, "China", res.CountryName)
	require.Len(t, res.Breakdown, 1)
	assertDecimal(t, "free breakdown", res.Breakdown[LabelDutyFree], "0")
}

func TestCalculate_AdValorem(t *testing.T) {
	res, err := NewCalculator(DefaultConfig()).Calculate(horses(t), "5%", "")
	require.NoError(t, err)

	assertDecimal(t, "duty", res.DutyAmount, "57.50")
	assertDecimal(t, "total", res.TotalLandedCost, "1207.50")
	assert.Equal(t, DutyTypeAdValorem, res.DutyType)
	assertDecimal(t, "ad valorem breakdown", res.Breakdown[LabelAdValoremDuty], "57.5")
}

func TestCalculate_PerWeight(t *testing.T) {
	res, err := NewCalculator(DefaultConfig()).Calculate(horses(t), "2¢/kg", "")
	require.NoError(t, err)

	assertDecimal(t, "duty", res.DutyAmount, "20.00")
	assertDecimal(t, "total", res.TotalLandedCost, "1170.00")
	assert.Equal(t, DutyTypeSpecificPerWeight, res.DutyType)
}

func TestCalculate_PerUnit(t *testing.T) {
	res, err := NewCalculator(DefaultConfig()).Calculate(horses(t), "$2.50/unit", "")
	require.NoError(t, err)

	assertDecimal(t, "duty", res.DutyAmount, "25")
	assert.Equal(t, DutyTypeSpecificPerUnit, res.DutyType)
	assertDecimal(t, "unit breakdown", res.Breakdown[LabelSpecificUnitDuty], "25")
}

func TestCalculate_Compound(t *testing.T) {
	res, err := NewCalculator(DefaultConfig()).Calculate(horses(t), "5% + 2¢/kg", "")
	require.NoError(t, err)

	// 0.05 * 1150 + 0.02 * (100 * 10)
	assertDecimal(t, "duty", res.DutyAmount, "77.5")
	assertDecimal(t, "total", res.TotalLandedCost, "1227.5")
	assert.Equal(t, DutyTypeCompound, res.DutyType)
	require.Len(t, res.Breakdown, 2)

	sum := decimal.Zero
	for _, v := range res.Breakdown {
		sum = sum.Add(v)
	}
	assertDecimal(t, "breakdown sum", sum, res.DutyAmount.String())
}

func TestCalculate_PercentagesOfCIF(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	item := horses(t)
	cif := CIFValue(item)

	for _, p := range []string{"0", "0.1", "2.4", "6.8", "16.5", "37.5", "100", "1,000"} {
		t.Run(p, func(t *testing.T) {
			res, err := calc.Calculate(item, p+"%", "")
			require.NoError(t, err)

			want := dec(strings.ReplaceAll(p, ",", "")).Div(decimal.NewFromInt(100)).Mul(cif)
			assertDecimal(t, "duty", res.DutyAmount, want.String())
			assertDecimal(t, "total", res.TotalLandedCost, cif.Add(want).String())
		})
	}
}

func TestCalculate_IsDeterministic(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	item := horses(t)

	first, err := calc.Calculate(item, "5% + 2¢/kg", "x")
	require.NoError(t, err)
	second, err := calc.Calculate(item, "5% + 2¢/kg", "x")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCalculate_UnknownClauseIsUnresolved(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	for _, raw := range []string{"See note 3", "5% + see note 3", "6.3¢/liter"} {
		t.Run(raw, func(t *testing.T) {
			res, err := calc.Calculate(horses(t), raw, "")
			require.Error(t, err)
			assert.Equal(t, Result{}, res)
			assert.Equal(t, KindParseUnresolved, KindOf(err))

			var de *Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, raw, de.RateText)
			assert.NotEmpty(t, de.Clauses)
			assert.Contains(t, err.Error(), de.Clauses[0])
		})
	}
}

func TestCalculate_PerWeightWithoutWeight(t *testing.T) {
	item := horses(t)
	item.UnitWeight = decimal.Zero

	_, err := NewCalculator(DefaultConfig()).Calculate(item, "5% + 2¢/kg", "")
	require.Error(t, err)
	assert.Equal(t, KindMissingStructuralInput, KindOf(err))
	assert.Contains(t, err.Error(), "unit_weight")
	assert.Contains(t, err.Error(), "2¢/kg")
}

func TestCalculate_WeightNotNeededWithoutPerWeightRate(t *testing.T) {
	item := horses(t)
	item.UnitWeight = decimal.Zero

	res, err := NewCalculator(DefaultConfig()).Calculate(item, "5%", "")
	require.NoError(t, err)
	assertDecimal(t, "duty", res.DutyAmount, "57.5")
}

func TestCalculate_BlankRateText(t *testing.T) {
	_, err := NewCalculator(DefaultConfig()).Calculate(horses(t), "  ", "")
	require.Error(t, err)
	assert.Equal(t, KindMissingStructuralInput, KindOf(err))
}

func TestCalculate_RejectsInvalidItem(t *testing.T) {
	item := horses(t)
	item.Quantity = 0

	_, err := NewCalculator(DefaultConfig()).Calculate(item, "Free", "")
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

type mapSource map[string]Reference

func (m mapSource) LookupRate(_ context.Context, code string) (Reference, error) {
	ref, ok := m[code]
	if !ok {
		return Reference{}, fmt.Errorf("%w: %s", ErrCodeNotFound, code)
	}
	return ref, nil
}

type brokenSource struct{}

func (brokenSource) LookupRate(context.Context, string) (Reference, error) {
	return Reference{}, errors.New("database is locked")
}

func TestCalculateCode(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	src := mapSource{"0101.21.00": {Code: "0101.21.00", RateText: "5%", Description: "Horses"}}

	res, err := calc.CalculateCode(context.Background(), horses(t), src)
	require.NoError(t, err)
	assert.Equal(t, "Horses", res.Description)
	assertDecimal(t, "total", res.TotalLandedCost, "1207.5")

	missing := horses(t)
	missing.HTSCode = "9999.99.99"
	_, err = calc.CalculateCode(context.Background(), missing, src)
	assert.Equal(t, KindLookupFailure, KindOf(err))
	assert.True(t, errors.Is(err, ErrCodeNotFound))
	assert.Contains(t, err.Error(), "9999.99.99")

	_, err = calc.CalculateCode(context.Background(), horses(t), brokenSource{})
	require.Error(t, err)
	assert.Equal(t, ErrorKind(""), KindOf(err))
}

func TestNewShipmentLineItem_Validation(t *testing.T) {
	cfg := DefaultConfig()
	valid := ShipmentInput{
		HTSCode: " 0101.21.00 ", Cost: dec("1"), Freight: dec("0"), Insurance: dec("0"),
		Quantity: 1, UnitWeight: dec("0"), CountryOfOrigin: "mx",
	}

	item, err := NewShipmentLineItem(valid, cfg)
	require.NoError(t, err)
	assert.Equal(t, "0101.21.00", item.HTSCode)
	assert.Equal(t, "MX", item.CountryOfOrigin)

	tests := []struct {
		field  string
		mutate func(*ShipmentInput)
	}{
		{"hts_code", func(in *ShipmentInput) { in.HTSCode = "  " }},
		{"hts_code", func(in *ShipmentInput) { in.HTSCode = "0101.21.00." }},
		{"hts_code", func(in *ShipmentInput) { in.HTSCode = "0101.21.oops" }},
		{"hts_code", func(in *ShipmentInput) { in.HTSCode = "101.21.00" }},
		{"hts_code", func(in *ShipmentInput) { in.HTSCode = "0101.2" }},
		{"cost", func(in *ShipmentInput) { in.Cost = dec("-0.01") }},
		{"freight", func(in *ShipmentInput) { in.Freight = dec("-1") }},
		{"insurance", func(in *ShipmentInput) { in.Insurance = dec("-1") }},
		{"quantity", func(in *ShipmentInput) { in.Quantity = 0 }},
		{"unit_weight", func(in *ShipmentInput) { in.UnitWeight = dec("-2") }},
		{"country_of_origin", func(in *ShipmentInput) { in.CountryOfOrigin = "Narnia" }},
	}
	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			in := valid
			tc.mutate(&in)

			_, err := NewShipmentLineItem(in, cfg)
			require.Error(t, err)
			assert.Equal(t, KindInvalidInput, KindOf(err))

			var de *Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tc.field, de.Field)
		})
	}
}

func TestNewShipmentLineItem_AcceptsScheduleCodeShapes(t *testing.T) {
	for _, code := range []string{"0101", "0101.21", "0101.21.00", "0102.29.40.24", "8471.30.0100"} {
		_, err := NewShipmentLineItem(ShipmentInput{HTSCode: code, Quantity: 1}, DefaultConfig())
		assert.NoError(t, err, code)
	}
}

func TestNewShipmentLineItem_DefaultCountry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultCountry = "DE"

	item, err := NewShipmentLineItem(ShipmentInput{HTSCode: "0101", Quantity: 1}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "DE", item.CountryOfOrigin)
}
