package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"APP_ENV", "DB_PATH", "PORT", "MIGRATIONS_DIR", "DUTY_CONFIG", "DEFAULT_COUNTRY", "CURRENCY", "BATCH_WORKERS", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != defaultDBPath || cfg.Port != defaultPort || cfg.MigrationsDir != defaultMigrationsDir {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.IsDev() {
		t.Fatalf("expected dev environment by default")
	}
	if cfg.BatchWorkers < 1 {
		t.Fatalf("BatchWorkers=%d, want >= 1", cfg.BatchWorkers)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoad_RejectsBadWorkers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BATCH_WORKERS", "zero")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for BATCH_WORKERS=zero")
	}
}

func TestDuty_EnvOverridesDefaults(t *testing.T) {
	cfg := Config{DefaultCountry: "MX", Currency: "CAD"}

	d, err := cfg.Duty()
	if err != nil {
		t.Fatalf("Duty: %v", err)
	}
	if d.DefaultCountry != "MX" || d.Currency != "CAD" {
		t.Fatalf("unexpected duty config: %+v", d)
	}
	if _, ok := d.WeightUnits["¢/kg"]; !ok {
		t.Fatalf("default weight units lost: %v", d.WeightUnits)
	}
}

func TestDuty_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duty.yaml")
	content := []byte(`
default_country: DE
weight_units:
  "€c / KG": 0.01
  "€/kg": "1"
countries:
  DE: Deutschland
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write duty file: %v", err)
	}

	d, err := Config{DutyFile: path, DefaultCountry: "AT"}.Duty()
	if err != nil {
		t.Fatalf("Duty: %v", err)
	}
	if d.DefaultCountry != "AT" {
		t.Fatalf("env should win over file, got %q", d.DefaultCountry)
	}
	if len(d.WeightUnits) != 2 || !d.WeightUnits["€c/kg"].Equal(decimal.New(1, -2)) {
		t.Fatalf("unexpected weight units: %v", d.WeightUnits)
	}
	if d.CountryName("DE") != "Deutschland" || d.CountryName("CN") != "China" {
		t.Fatalf("unexpected country names: %v", d.CountryNames)
	}
}

func TestDuty_FileRejectsBadFactor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duty.yaml")
	if err := os.WriteFile(path, []byte("unit_units:\n  \"$/unit\": lots\n"), 0o600); err != nil {
		t.Fatalf("write duty file: %v", err)
	}

	if _, err := (Config{DutyFile: path}).Duty(); err == nil {
		t.Fatalf("expected error for non-numeric factor")
	}
}
