// Package hts is the tariff reference data store: HTS lines with their
// published duty-rate text, and the country-code table used for display.
package hts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/landedcost/internal/duty"
)

// Entry is one line of the tariff schedule.
type Entry struct {
	Code           string `json:"hts_code"`
	Description    string `json:"description"`
	GeneralRate    string `json:"general_rate"`
	SpecialRate    string `json:"special_rate,omitempty"`
	UnitOfQuantity string `json:"unit_of_quantity,omitempty"`
}

// Stats counts rows written by an upsert.
type Stats struct {
	Inserts int
	Updates int
}

// Store reads and writes the reference tables.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Lookup returns the entry for code. Statistical suffix lines carry no rate
// in the schedule, so when the exact line has none the nearest ancestor line
// with a rate supplies it; the description stays the exact line's. A code
// absent from the table is never resolved through its ancestors and wraps
// duty.ErrCodeNotFound.
func (s *Store) Lookup(ctx context.Context, code string) (Entry, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Entry{}, fmt.Errorf("%w: empty code", duty.ErrCodeNotFound)
	}

	exact, found, err := s.get(ctx, code)
	if err != nil {
		return Entry{}, err
	}
	if !found {
		return Entry{}, fmt.Errorf("%w: %s", duty.ErrCodeNotFound, code)
	}
	if exact.GeneralRate != "" {
		return exact, nil
	}

	for parent := parentCode(code); parent != ""; parent = parentCode(parent) {
		anc, ok, err := s.get(ctx, parent)
		if err != nil {
			return Entry{}, err
		}
		if !ok || anc.GeneralRate == "" {
			continue
		}
		exact.GeneralRate = anc.GeneralRate
		if exact.SpecialRate == "" {
			exact.SpecialRate = anc.SpecialRate
		}
		return exact, nil
	}
	return exact, nil
}

// LookupRate adapts Lookup to duty.RateSource.
func (s *Store) LookupRate(ctx context.Context, code string) (duty.Reference, error) {
	e, err := s.Lookup(ctx, code)
	if err != nil {
		return duty.Reference{}, err
	}
	return duty.Reference{Code: e.Code, RateText: e.GeneralRate, Description: e.Description}, nil
}

func (s *Store) get(ctx context.Context, code string) (Entry, bool, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx, `
		SELECT hts_code, description, general_rate, special_rate, unit_of_quantity
		FROM hts_entries
		WHERE hts_code = ?
	`, code).Scan(&e.Code, &e.Description, &e.GeneralRate, &e.SpecialRate, &e.UnitOfQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query hts entry %q: %w", code, err)
	}
	return e, true, nil
}

// parentCode drops the last period-delimited group: 0101.21.00.10 -> 0101.21.00.
func parentCode(code string) string {
	i := strings.LastIndex(code, ".")
	if i <= 0 {
		return ""
	}
	return code[:i]
}

// Upsert writes entries in one transaction, replacing existing lines.
func (s *Store) Upsert(ctx context.Context, entries []Entry) (Stats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin hts upsert transaction: %w", err)
	}

	stats := Stats{}
	for _, e := range entries {
		if err := upsertEntry(ctx, tx, e, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit hts upsert transaction: %w", err)
	}
	return stats, nil
}

func upsertEntry(ctx context.Context, tx *sql.Tx, e Entry, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM hts_entries WHERE hts_code = ?)`, e.Code).Scan(&exists); err != nil {
		return fmt.Errorf("check hts entry %q existence: %w", e.Code, err)
	}

	if exists {
		if _, err := tx.ExecContext(ctx, `
			UPDATE hts_entries
			SET
				description = ?,
				general_rate = ?,
				special_rate = ?,
				unit_of_quantity = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE hts_code = ?
		`, e.Description, e.GeneralRate, e.SpecialRate, e.UnitOfQuantity, e.Code); err != nil {
			return fmt.Errorf("update hts entry %q: %w", e.Code, err)
		}
		stats.Updates++
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO hts_entries (hts_code, description, general_rate, special_rate, unit_of_quantity)
		VALUES (?, ?, ?, ?, ?)
	`, e.Code, e.Description, e.GeneralRate, e.SpecialRate, e.UnitOfQuantity); err != nil {
		return fmt.Errorf("insert hts entry %q: %w", e.Code, err)
	}
	stats.Inserts++
	return nil
}

// Count returns the number of schedule lines loaded.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hts_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count hts entries: %w", err)
	}
	return n, nil
}

// CountryNames loads the whole country table, keyed by ISO code.
func (s *Store) CountryNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name FROM country_codes ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query country codes: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var code, name string
		if err := rows.Scan(&code, &name); err != nil {
			return nil, fmt.Errorf("scan country code: %w", err)
		}
		names[code] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate country codes: %w", err)
	}
	return names, nil
}

// CountryConfig returns cfg with the country table filling in names for
// codes cfg does not already know. Names already in cfg win.
func (s *Store) CountryConfig(ctx context.Context, cfg duty.Config) (duty.Config, error) {
	names, err := s.CountryNames(ctx)
	if err != nil {
		return duty.Config{}, err
	}

	merged := make(map[string]string, len(names)+len(cfg.CountryNames))
	for code, name := range names {
		merged[code] = name
	}
	for code, name := range cfg.CountryNames {
		merged[code] = name
	}
	cfg.CountryNames = merged
	return cfg, nil
}
