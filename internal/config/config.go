package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/landedcost/internal/duty"
	"github.com/Simplici0/landedcost/internal/logging"
)

const (
	defaultDBPath        = "./hts.db"
	defaultPort          = "8080"
	defaultEnv           = "dev"
	defaultMigrationsDir = "migrations"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env           string
	DBPath        string
	Port          string
	MigrationsDir string
	// DutyFile optionally points at a YAML file overriding the engine's
	// unit spellings and country names.
	DutyFile       string
	DefaultCountry string
	Currency       string
	BatchWorkers   int
	Logging        logging.Config
}

// Load reads .env (if present) and the environment and returns a populated Config.
func Load() (Config, error) {
	// Local development convenience; production injects real env vars.
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Env:            getenv("APP_ENV", defaultEnv),
		DBPath:         getenv("DB_PATH", defaultDBPath),
		Port:           getenv("PORT", defaultPort),
		MigrationsDir:  getenv("MIGRATIONS_DIR", defaultMigrationsDir),
		DutyFile:       os.Getenv("DUTY_CONFIG"),
		DefaultCountry: os.Getenv("DEFAULT_COUNTRY"),
		Currency:       os.Getenv("CURRENCY"),
		BatchWorkers:   runtime.NumCPU(),
		Logging: logging.Config{
			Level:  getenv("LOG_LEVEL", logging.DefaultConfig().Level),
			Format: getenv("LOG_FORMAT", logging.DefaultConfig().Format),
		},
	}

	if raw := os.Getenv("BATCH_WORKERS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("BATCH_WORKERS must be a positive integer, got %q", raw)
		}
		cfg.BatchWorkers = n
	}

	return cfg, nil
}

// IsDev reports whether schema migrations and seeding run at startup.
func (c Config) IsDev() bool {
	return c.Env == defaultEnv
}

// dutyFile is the YAML shape of DUTY_CONFIG.
type dutyFile struct {
	DefaultCountry string            `yaml:"default_country"`
	Currency       string            `yaml:"currency"`
	WeightUnits    map[string]string `yaml:"weight_units"`
	UnitUnits      map[string]string `yaml:"unit_units"`
	Countries      map[string]string `yaml:"countries"`
}

// Duty builds the engine configuration: defaults, then DUTY_CONFIG, then
// the DEFAULT_COUNTRY and CURRENCY variables.
func (c Config) Duty() (duty.Config, error) {
	out := duty.DefaultConfig()

	if c.DutyFile != "" {
		raw, err := os.ReadFile(c.DutyFile)
		if err != nil {
			return duty.Config{}, fmt.Errorf("read duty config: %w", err)
		}
		if err := applyDutyFile(&out, raw); err != nil {
			return duty.Config{}, fmt.Errorf("%s: %w", c.DutyFile, err)
		}
	}

	if c.DefaultCountry != "" {
		out.DefaultCountry = c.DefaultCountry
	}
	if c.Currency != "" {
		out.Currency = c.Currency
	}
	return out, nil
}

func applyDutyFile(out *duty.Config, raw []byte) error {
	var f dutyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("decode duty config: %w", err)
	}

	if f.DefaultCountry != "" {
		out.DefaultCountry = f.DefaultCountry
	}
	if f.Currency != "" {
		out.Currency = f.Currency
	}
	if len(f.WeightUnits) > 0 {
		units, err := parseUnits(f.WeightUnits)
		if err != nil {
			return fmt.Errorf("weight_units: %w", err)
		}
		out.WeightUnits = units
	}
	if len(f.UnitUnits) > 0 {
		units, err := parseUnits(f.UnitUnits)
		if err != nil {
			return fmt.Errorf("unit_units: %w", err)
		}
		out.UnitUnits = units
	}
	for code, name := range f.Countries {
		out.CountryNames[code] = name
	}
	return nil
}

func parseUnits(raw map[string]string) (map[string]decimal.Decimal, error) {
	units := make(map[string]decimal.Decimal, len(raw))
	for spelling, factor := range raw {
		d, err := decimal.NewFromString(factor)
		if err != nil || !d.IsPositive() {
			return nil, fmt.Errorf("factor for %q must be a positive number, got %q", spelling, factor)
		}
		units[strings.ToLower(strings.Join(strings.Fields(spelling), ""))] = d
	}
	return units, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
