package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Simplici0/landedcost/internal/duty"
)

// FormatResult renders a result the way it is shown to an operator.
func FormatResult(r duty.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "HTS Code: %s\n", r.HTSCode)
	fmt.Fprintf(&b, "Product: %s\n", r.Description)
	if r.CountryName != "" && r.CountryName != r.Country {
		fmt.Fprintf(&b, "Origin: %s (%s)\n", r.CountryName, r.Country)
	} else {
		fmt.Fprintf(&b, "Origin: %s\n", r.Country)
	}

	b.WriteString("\nCost Breakdown:\n")
	fmt.Fprintf(&b, "- Product Cost: %s %s\n", money(r.Cost), r.Currency)
	fmt.Fprintf(&b, "- Freight: %s %s\n", money(r.Freight), r.Currency)
	fmt.Fprintf(&b, "- Insurance: %s %s\n", money(r.Insurance), r.Currency)
	fmt.Fprintf(&b, "- CIF Value: %s %s\n", money(r.CIFValue), r.Currency)

	b.WriteString("\nDuty Calculation:\n")
	fmt.Fprintf(&b, "- Duty Rate: %s\n", r.DutyRate)
	fmt.Fprintf(&b, "- Duty Type: %s\n", r.DutyType)

	labels := make([]string, 0, len(r.Breakdown))
	for label := range r.Breakdown {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(&b, "  - %s: %s %s\n", label, money(r.Breakdown[label]), r.Currency)
	}
	fmt.Fprintf(&b, "- Duty Amount: %s %s\n", money(r.DutyAmount), r.Currency)

	fmt.Fprintf(&b, "\nTotal Landed Cost: %s %s", money(r.TotalLandedCost), r.Currency)
	return b.String()
}

// FormatSummary is the one-line tally of a batch.
func FormatSummary(res duty.BatchResult) string {
	return fmt.Sprintf("%d rows: %d succeeded, %d failed", len(res.Outcomes), res.Succeeded, res.Failed)
}
