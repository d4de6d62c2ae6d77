package seed

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/Simplici0/landedcost/internal/hts"
)

// Config contains the values required by startup seed.
type Config struct {
	Countries map[string]string
	Entries   []hts.Entry
}

// Stats contains seed operation counters. Existing counts rows that were
// already present and left untouched.
type Stats struct {
	Inserts  int
	Existing int
}

// DefaultEntries is a small slice of the schedule covering every rate shape
// the engine understands plus a few it deliberately refuses.
func DefaultEntries() []hts.Entry {
	return []hts.Entry{
		{Code: "0101.21.00", Description: "Live horses: Purebred breeding animals", GeneralRate: "Free", UnitOfQuantity: "No."},
		{Code: "0101.29.00", Description: "Live horses: Other", GeneralRate: "4.5%", UnitOfQuantity: "No."},
		{Code: "0102.29.40", Description: "Live cattle: Other", GeneralRate: "1¢/kg", UnitOfQuantity: "No. kg"},
		{Code: "0201.10.10", Description: "Carcasses and half-carcasses of bovine animals, fresh or chilled", GeneralRate: "4.4¢/kg", UnitOfQuantity: "kg"},
		{Code: "0603.11.00", Description: "Cut flowers: Roses", GeneralRate: "6.8%", UnitOfQuantity: "No."},
		{Code: "2204.21.50", Description: "Wine of fresh grapes, in containers not over 2 liters", GeneralRate: "6.3¢/liter", UnitOfQuantity: "liters"},
		{Code: "2402.10.30", Description: "Cigars, cheroots and cigarillos containing tobacco", GeneralRate: "$1.89/kg + 4.7%", UnitOfQuantity: "kg"},
		{Code: "6109.10.00", Description: "T-shirts, singlets, tank tops, knitted, of cotton", GeneralRate: "16.5%", UnitOfQuantity: "doz. kg"},
		{Code: "8471.30.01", Description: "Portable automatic data processing machines, weighing not more than 10 kg", GeneralRate: "Free", UnitOfQuantity: "No."},
		{Code: "9102.11.10", Description: "Wrist watches, battery powered, mechanical display only", GeneralRate: "51¢ each + 6.25% on the case + 5.3% on the strap", UnitOfQuantity: "No."},
	}
}

// Run executes the startup seed in an idempotent way. Existing rows are
// never overwritten, so an imported schedule wins over the sample lines.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureCountries(ctx, tx, cfg.Countries, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureEntries(ctx, tx, cfg.Entries, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureCountries(ctx context.Context, tx *sql.Tx, countries map[string]string, stats *Stats) error {
	codes := make([]string, 0, len(countries))
	for code := range countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO country_codes (code, name)
			VALUES (?, ?)
			ON CONFLICT(code) DO NOTHING
		`, code, countries[code])
		if err != nil {
			return fmt.Errorf("insert country code %q: %w", code, err)
		}
		if err := countInsert(res, stats); err != nil {
			return err
		}
	}
	return nil
}

func ensureEntries(ctx context.Context, tx *sql.Tx, entries []hts.Entry, stats *Stats) error {
	for _, e := range entries {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO hts_entries (hts_code, description, general_rate, special_rate, unit_of_quantity)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(hts_code) DO NOTHING
		`, e.Code, e.Description, e.GeneralRate, e.SpecialRate, e.UnitOfQuantity)
		if err != nil {
			return fmt.Errorf("insert hts entry %q: %w", e.Code, err)
		}
		if err := countInsert(res, stats); err != nil {
			return err
		}
	}
	return nil
}

func countInsert(res sql.Result, stats *Stats) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read seed rows affected: %w", err)
	}
	if n == 0 {
		stats.Existing++
		return nil
	}
	stats.Inserts += int(n)
	return nil
}
