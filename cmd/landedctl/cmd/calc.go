package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Simplici0/landedcost/internal/duty"
	"github.com/Simplici0/landedcost/internal/report"
)

// decimalValue lets a decimal.Decimal be bound to a flag.
type decimalValue struct{ d *decimal.Decimal }

func (v decimalValue) String() string {
	if v.d == nil {
		return "0"
	}
	return v.d.String()
}

func (v decimalValue) Set(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*v.d = d
	return nil
}

func (decimalValue) Type() string { return "decimal" }

var (
	calcInput  duty.ShipmentInput
	calcRate   string
	calcFormat string
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate duty and landed cost for one line item",
	Long: `Calc resolves the duty rate for --hts from the reference database and
prints the landed cost. --rate evaluates the given rate text instead.

Examples:
  landedctl calc --hts 0101.29.00 --cost 1000 --freight 100 --insurance 50 --quantity 10 --weight 100
  landedctl calc --hts 0000.00.00 --cost 1000 --quantity 10 --weight 100 --rate "5% + 2¢/kg"`,
	Args: cobra.NoArgs,
	RunE: runCalc,
}

func init() {
	f := calcCmd.Flags()
	f.StringVar(&calcInput.HTSCode, "hts", "", "HTS code of the line item")
	f.Var(decimalValue{&calcInput.Cost}, "cost", "product cost")
	f.Var(decimalValue{&calcInput.Freight}, "freight", "freight cost")
	f.Var(decimalValue{&calcInput.Insurance}, "insurance", "insurance cost")
	f.IntVar(&calcInput.Quantity, "quantity", 1, "number of units")
	f.Var(decimalValue{&calcInput.UnitWeight}, "weight", "weight of one unit in kg")
	f.StringVar(&calcInput.CountryOfOrigin, "country", "", "ISO country of origin (default $DEFAULT_COUNTRY or CN)")
	f.StringVar(&calcRate, "rate", "", "duty rate text to evaluate instead of the rate on file")
	f.StringVarP(&calcFormat, "format", "f", "text", "output format (text, json)")
	_ = calcCmd.MarkFlagRequired("hts")
	_ = calcCmd.MarkFlagRequired("cost")
}

func runCalc(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if calcFormat != "text" && calcFormat != "json" {
		return fmt.Errorf("unknown format %q", calcFormat)
	}

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	calc, store, err := newEngine(ctx, database)
	if err != nil {
		return err
	}

	item, err := duty.NewShipmentLineItem(calcInput, calc.Config())
	if err != nil {
		return err
	}

	var res duty.Result
	if calcRate != "" {
		res, err = calc.Calculate(item, calcRate, "")
	} else {
		res, err = calc.CalculateCode(ctx, item, store)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if calcFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintln(out, report.FormatResult(res))
	return nil
}
