package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/landedcost/internal/hts"
)

var importCmd = &cobra.Command{
	Use:   "import <hts_export.csv>",
	Short: "Load an HTS schedule CSV export into the reference database",
	Long: `Import reads a CSV export of the tariff schedule and upserts every line
that has an HTS number. Lines already present are updated in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open export: %w", err)
		}
		defer f.Close()

		entries, err := hts.ParseExportCSV(f)
		if err != nil {
			return err
		}

		database, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		stats, err := hts.NewStore(database).Upsert(ctx, entries)
		if err != nil {
			return err
		}
		logger.Info("import complete",
			zap.String("file", args[0]),
			zap.Int("inserts", stats.Inserts),
			zap.Int("updates", stats.Updates),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d lines (%d new, %d updated)\n", len(entries), stats.Inserts, stats.Updates)
		return nil
	},
}
