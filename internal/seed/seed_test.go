package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/landedcost/internal/db"
	"github.com/Simplici0/landedcost/internal/duty"
	"github.com/Simplici0/landedcost/internal/hts"
	"github.com/Simplici0/landedcost/internal/migrations"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(ctx, database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	cfg := Config{
		Countries: duty.DefaultConfig().CountryNames,
		Entries:   DefaultEntries(),
	}
	wantInserts := len(cfg.Countries) + len(cfg.Entries)

	for i := 0; i < 10; i++ {
		stats, err := Run(ctx, database, cfg)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != wantInserts || stats.Existing != 0 {
				t.Fatalf("expected %d inserts and no existing rows in first run, got %+v", wantInserts, stats)
			}
			continue
		}
		if stats.Inserts != 0 || stats.Existing != wantInserts {
			t.Fatalf("expected 0 inserts and %d existing rows in iteration %d, got %+v", wantInserts, i, stats)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM country_codes`, nil, 12)
	assertCount(t, database, `SELECT COUNT(*) FROM hts_entries WHERE hts_code = ?`, "0101.21.00", 1)
	assertCount(t, database, `SELECT COUNT(*) FROM hts_entries`, nil, len(cfg.Entries))
}

func TestRunDoesNotOverwriteImportedLines(t *testing.T) {
	ctx := context.Background()

	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "seed-keep.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()
	if err := migrations.Up(ctx, database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	store := hts.NewStore(database)
	if _, err := store.Upsert(ctx, []hts.Entry{{Code: "0101.29.00", Description: "imported", GeneralRate: "3%"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	stats, err := Run(ctx, database, Config{Entries: DefaultEntries()})
	if err != nil {
		t.Fatalf("run seed: %v", err)
	}
	if stats.Existing != 1 || stats.Inserts != len(DefaultEntries())-1 {
		t.Fatalf("expected the imported line to be counted as existing, got %+v", stats)
	}

	e, err := store.Lookup(ctx, "0101.29.00")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if e.GeneralRate != "3%" || e.Description != "imported" {
		t.Fatalf("seed overwrote imported line: %+v", e)
	}
}

func TestDefaultEntriesCoverEveryOutcome(t *testing.T) {
	calc := duty.NewCalculator(duty.DefaultConfig())
	item, err := duty.NewShipmentLineItem(duty.ShipmentInput{
		HTSCode:    "0101.21.00",
		Quantity:   1,
		UnitWeight: decimal.NewFromInt(1),
	}, duty.DefaultConfig())
	if err != nil {
		t.Fatalf("build item: %v", err)
	}

	seen := map[string]bool{}
	for _, e := range DefaultEntries() {
		res, err := calc.Calculate(item, e.GeneralRate, e.Description)
		if err != nil {
			seen[string(duty.KindOf(err))] = true
			continue
		}
		seen[string(res.DutyType)] = true
	}

	for _, want := range []string{"free", "ad_valorem", "specific_per_weight", "compound", "parse_unresolved"} {
		if !seen[want] {
			t.Fatalf("sample schedule has no %s line; saw %v", want, seen)
		}
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
