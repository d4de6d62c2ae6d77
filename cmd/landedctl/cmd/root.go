// Package cmd provides the CLI commands for landedctl.
package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/landedcost/internal/config"
	"github.com/Simplici0/landedcost/internal/db"
	"github.com/Simplici0/landedcost/internal/duty"
	"github.com/Simplici0/landedcost/internal/hts"
	"github.com/Simplici0/landedcost/internal/logging"
)

var (
	dbPath        string
	migrationsDir string
	verbose       bool

	cfg    config.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "landedctl",
	Short: "Resolve import duties and landed costs from HTS rate text",
	Long: `landedctl calculates import duty and total landed cost for shipments
using the HTS rate text stored in the local reference database.

Examples:
  landedctl migrate
  landedctl import hts_export.csv
  landedctl calc --hts 0101.29.00 --cost 1000 --freight 100 --insurance 50 --quantity 10 --weight 100
  landedctl batch shipment.csv --out landed_costs.csv`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the CLI
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (default $DB_PATH or ./hts.db)")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations", "", "goose migrations directory (default $MIGRATIONS_DIR or ./migrations)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(templateCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if dbPath != "" {
		loaded.DBPath = dbPath
	}
	if migrationsDir != "" {
		loaded.MigrationsDir = migrationsDir
	}
	if verbose {
		loaded.Logging.Level = "debug"
	}

	l, err := logging.New(loaded.Logging)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	cfg, logger = loaded, l
	return nil
}

func openDB(ctx context.Context) (*sql.DB, error) {
	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened database", zap.String("path", cfg.DBPath))
	return database, nil
}

// newEngine builds the calculator over the reference store, with country
// names from the database filling gaps in the duty config.
func newEngine(ctx context.Context, database *sql.DB) (*duty.Calculator, *hts.Store, error) {
	dutyCfg, err := cfg.Duty()
	if err != nil {
		return nil, nil, err
	}

	store := hts.NewStore(database)
	dutyCfg, err = store.CountryConfig(ctx, dutyCfg)
	if err != nil {
		return nil, nil, err
	}
	return duty.NewCalculator(dutyCfg), store, nil
}
