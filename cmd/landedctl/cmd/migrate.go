package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/landedcost/internal/migrations"
	"github.com/Simplici0/landedcost/internal/seed"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		database, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := migrations.Up(ctx, database, cfg.MigrationsDir); err != nil {
			return err
		}
		version, err := migrations.Version(ctx, database)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
		return nil
	},
}

var withSamples bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the country table and, optionally, sample HTS lines",
	Long: `Seed inserts the configured country names and a handful of sample HTS
lines. Existing rows are left alone, so seeding after an import never
replaces imported rates.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		dutyCfg, err := cfg.Duty()
		if err != nil {
			return err
		}

		database, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		seedCfg := seed.Config{Countries: dutyCfg.CountryNames}
		if withSamples {
			seedCfg.Entries = seed.DefaultEntries()
		}
		stats, err := seed.Run(ctx, database, seedCfg)
		if err != nil {
			return err
		}
		logger.Info("seed complete", zap.Int("inserts", stats.Inserts), zap.Int("existing", stats.Existing))
		fmt.Fprintf(cmd.OutOrStdout(), "inserted %d rows (%d already present)\n", stats.Inserts, stats.Existing)
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&withSamples, "samples", true, "also insert sample HTS lines")
}
